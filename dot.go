package crdt

import "strconv"

// Dot is a pair (replicaID, seq) uniquely identifying one write event.
// A dot is created exactly once, by the replica that performs a mutation
// needing fresh identity; it is immutable and never reissued, though its
// payload may later be tombstoned (removed from a DotStore while the dot
// itself stays known to a CausalContext).
type Dot struct {
	ReplicaID string
	Seq       uint64
}

// Less gives Dot a total order: by replica id, then by sequence. Used
// only for deterministic iteration/printing, never for CRDT semantics.
func (d Dot) Less(other Dot) bool {
	if d.ReplicaID != other.ReplicaID {
		return d.ReplicaID < other.ReplicaID
	}
	return d.Seq < other.Seq
}

func (d Dot) String() string {
	return d.ReplicaID + "-" + strconv.FormatUint(d.Seq, 10)
}

// IsZero reports whether d is the zero Dot, never a valid allocated dot
// (sequence numbers start at 1).
func (d Dot) IsZero() bool {
	return d.ReplicaID == "" && d.Seq == 0
}
