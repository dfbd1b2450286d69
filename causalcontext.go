package crdt

import "github.com/casperlundberg/json-delta-crdt/internal/telemetry"

// CausalContext is a compact representation of a set of dots: the
// "knowledge" a state or delta carries. It is split into a dot-vector
// (per-replica highest contiguous sequence, representing the prefix
// 1..N) and a dot-cloud (dots that arrived out of order and do not yet
// close a contiguous run). The two parts are always kept disjoint.
type CausalContext struct {
	vector map[string]uint64
	cloud  map[Dot]struct{}
}

// NewCausalContext returns an empty CausalContext.
func NewCausalContext() *CausalContext {
	return &CausalContext{
		vector: make(map[string]uint64),
		cloud:  make(map[Dot]struct{}),
	}
}

// Contains reports whether dot is known to cc, either because it falls
// within the contiguous prefix recorded in the vector or because it sits
// in the cloud. Membership agrees regardless of how the dot was
// absorbed, and is monotone: once true for a dot, a CausalContext never
// reports false for it again.
func (cc *CausalContext) Contains(d Dot) bool {
	if d.IsZero() {
		return false
	}
	if d.Seq <= cc.vector[d.ReplicaID] {
		return true
	}
	_, ok := cc.cloud[d]
	return ok
}

// Next allocates a fresh dot (replicaID, maxSeq+1) for replicaID,
// records it in cc and returns it. Two calls — even with the same
// replicaID — always produce two distinct dots: the allocation mutates
// cc before returning.
func (cc *CausalContext) Next(replicaID string) Dot {
	seq := cc.vector[replicaID]
	for known := range cc.cloud {
		if known.ReplicaID == replicaID && known.Seq > seq {
			seq = known.Seq
		}
	}
	d := Dot{ReplicaID: replicaID, Seq: seq + 1}
	cc.Add(d)
	telemetry.ObserveDotAlloc(replicaID)
	return d
}

// Add records d as known to cc. If d closes a contiguous range for its
// replica (or is already covered), the vector absorbs it and any cloud
// entries it newly makes contiguous are promoted out of the cloud.
func (cc *CausalContext) Add(d Dot) {
	if d.IsZero() {
		return
	}
	cur := cc.vector[d.ReplicaID]
	if d.Seq <= cur {
		return
	}
	if d.Seq == cur+1 {
		cc.vector[d.ReplicaID] = d.Seq
		cc.compact(d.ReplicaID)
		return
	}
	cc.cloud[d] = struct{}{}
}

// compact promotes cloud entries for replicaID into the vector for as
// long as they extend the contiguous prefix.
func (cc *CausalContext) compact(replicaID string) {
	for {
		next := Dot{ReplicaID: replicaID, Seq: cc.vector[replicaID] + 1}
		if _, ok := cc.cloud[next]; !ok {
			return
		}
		delete(cc.cloud, next)
		cc.vector[replicaID] = next.Seq
	}
}

// Join merges other into cc: the dot-vectors combine pointwise by
// maximum, the dot-clouds union, and the result is compacted so the
// vector/cloud split stays disjoint. Join is commutative, associative
// and idempotent.
func (cc *CausalContext) Join(other *CausalContext) {
	if other == nil {
		return
	}
	touched := make(map[string]struct{}, len(other.vector))
	for replicaID, seq := range other.vector {
		if seq > cc.vector[replicaID] {
			cc.vector[replicaID] = seq
		}
		touched[replicaID] = struct{}{}
	}
	for d := range other.cloud {
		if !cc.Contains(d) {
			cc.cloud[d] = struct{}{}
		}
		touched[d.ReplicaID] = struct{}{}
	}
	for replicaID := range touched {
		cc.compact(replicaID)
	}
}

// Clone returns a deep copy of cc.
func (cc *CausalContext) Clone() *CausalContext {
	out := NewCausalContext()
	for replicaID, seq := range cc.vector {
		out.vector[replicaID] = seq
	}
	for d := range cc.cloud {
		out.cloud[d] = struct{}{}
	}
	return out
}

// IsEmpty reports whether cc has observed no dots at all.
func (cc *CausalContext) IsEmpty() bool {
	return len(cc.vector) == 0 && len(cc.cloud) == 0
}

// Dots enumerates every dot known to cc (contiguous prefixes expanded).
// Intended for tests and debugging, not for hot paths.
func (cc *CausalContext) Dots() []Dot {
	var out []Dot
	for replicaID, seq := range cc.vector {
		for s := uint64(1); s <= seq; s++ {
			out = append(out, Dot{ReplicaID: replicaID, Seq: s})
		}
	}
	for d := range cc.cloud {
		out = append(out, d)
	}
	return out
}
