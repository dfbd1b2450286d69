package crdt

import (
	"encoding/binary"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/casperlundberg/json-delta-crdt/internal/telemetry"
)

// State is the pair (DotStore, CausalContext) described in spec §3. It
// is created empty and bound to a replicaID; from then on it only
// changes by joining deltas (local or received). Deltas are States of
// the same shape, possibly narrower.
type State struct {
	ReplicaID string
	Store     *DotStore
	CC        *CausalContext

	log     telemetry.Logger
	metrics bool
}

// StateOption configures optional ambient behavior on a State returned
// by NewState. The engine has no config file — whether logging/metrics
// are wired in is the one knob a host sets, at construction time.
type StateOption func(*State)

// WithLogger attaches a Logger that State.Join uses to report merges
// and errors. Omitting this leaves a no-op logger in place: operators
// are pure functions and must work the same with or without one.
func WithLogger(log telemetry.Logger) StateOption {
	return func(s *State) { s.log = log }
}

// WithMetrics enables Prometheus observation of Join calls on this
// State via internal/telemetry's package-level collectors. Callers
// still register those collectors with their own registry themselves
// (telemetry.MustRegister) — this option only turns on the recording.
func WithMetrics() StateOption {
	return func(s *State) { s.metrics = true }
}

// NewState returns an empty State of the given CRDT kind
// (TypeNameMVReg, TypeNameORMap or TypeNameORArray), bound to
// replicaID. Two States in the same process must never share a
// replicaID, or dot uniqueness breaks (spec §5).
func NewState(replicaID, crdtKind string, opts ...StateOption) *State {
	var store *DotStore
	switch crdtKind {
	case TypeNameMVReg:
		store = NewDotFun()
	default:
		store = NewDotMap(crdtKind)
	}
	s := &State{
		ReplicaID: replicaID,
		Store:     store,
		CC:        NewCausalContext(),
		log:       telemetry.NoopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Join merges a and b into a freshly allocated State, mutating neither
// input. Join is commutative, associative and idempotent (spec §8
// universal laws). The result's ReplicaID is a's, matching the
// convention that join is normally called as "merge a delta into my
// local state". The result inherits a's logger and metrics setting;
// a's logger reports the outcome, mirroring how the teacher's
// chotki.go logs around its own merge/commit paths.
func Join(a, b *State) (*State, error) {
	start := time.Now()
	store, err := joinDotStore(a.Store, b.Store, a.CC, b.CC)
	if err != nil {
		if a.log != nil {
			a.log.Warn("join failed", "error", err, "replica", a.ReplicaID)
		}
		return nil, err
	}
	cc := a.CC.Clone()
	cc.Join(b.CC)
	replicaID := a.ReplicaID
	if replicaID == "" {
		replicaID = b.ReplicaID
	}
	out := &State{ReplicaID: replicaID, Store: store, CC: cc, log: a.log, metrics: a.metrics}
	if out.log == nil {
		out.log = telemetry.NoopLogger{}
	}
	kind := typeNameOf(store)
	if a.metrics {
		telemetry.ObserveMerge(kind, time.Since(start), len(cc.Dots()))
	}
	out.log.Debug("joined state", "replica", replicaID, "kind", kind)
	return out, nil
}

func typeNameOf(ds *DotStore) string {
	if ds == nil {
		return ""
	}
	return ds.TypeName
}

// MergeIn joins delta into s in place: the host's usual way of
// accepting a locally produced or remotely received delta.
func (s *State) MergeIn(delta *State) error {
	merged, err := Join(s, delta)
	if err != nil {
		return err
	}
	s.Store = merged.Store
	s.CC = merged.CC
	return nil
}

// Clone returns a deep copy of s, independent of further mutation to
// either.
func (s *State) Clone() *State {
	return &State{
		ReplicaID: s.ReplicaID,
		Store:     s.Store.clone(),
		CC:        s.CC.Clone(),
		log:       s.log,
		metrics:   s.metrics,
	}
}

// Since computes the delta a host should ship to a peer that has
// already observed base: the dots in current.CC but not in base.CC,
// and their payloads (spec §6.4). The returned State's CC is exactly
// that difference, not current's full CC, so it composes correctly
// under repeated joins at the receiver.
func Since(base, current *State) *State {
	diffCC := NewCausalContext()
	for _, d := range current.CC.Dots() {
		if !base.CC.Contains(d) {
			diffCC.Add(d)
		}
	}
	return &State{
		ReplicaID: current.ReplicaID,
		Store:     projectDotStore(current.Store, diffCC),
		CC:        diffCC,
		log:       current.log,
		metrics:   current.metrics,
	}
}

// projectDotStore returns the subtree of ds restricted to dots present
// in keep, dropping keys/entries that end up empty.
func projectDotStore(ds *DotStore, keep *CausalContext) *DotStore {
	if ds == nil {
		return nil
	}
	switch ds.Kind {
	case KindDotFun:
		out := &DotStore{Kind: KindDotFun, TypeName: ds.TypeName, Fun: map[Dot]any{}}
		for d, v := range ds.Fun {
			if keep.Contains(d) {
				out.Fun[d] = v
			}
		}
		return out
	case KindDotFunMap:
		out := &DotStore{Kind: KindDotFunMap, FunMap: map[string]map[Dot]*DotStore{}}
		for key, inner := range ds.FunMap {
			kept := map[Dot]*DotStore{}
			for d, v := range inner {
				if keep.Contains(d) {
					kept[d] = v
				}
			}
			if len(kept) > 0 {
				out.FunMap[key] = kept
			}
		}
		return out
	case KindDotMap:
		out := &DotStore{Kind: KindDotMap, TypeName: ds.TypeName, Map: map[string]*DotStore{}}
		for key, child := range ds.Map {
			projected := projectDotStore(child, keep)
			if !projected.IsEmpty() {
				out.Map[key] = projected
			}
		}
		return out
	}
	return nil
}

// Fingerprint returns a short, deterministic digest of s's
// CausalContext and of the set of dots live in its DotStore (a dot's
// payload never changes, so that set pins down the store's content).
// It is not part of the CRDT algebra; it exists so a
// host can cheaply detect "nothing changed" (internal/viewcache keys
// its cache on it) and so logs can name a state without dumping its
// whole DotStore.
func (s *State) Fingerprint() uint64 {
	replicas := make([]string, 0, len(s.CC.vector))
	for r := range s.CC.vector {
		replicas = append(replicas, r)
	}
	sort.Strings(replicas)

	var buf [8]byte
	h := xxhash.New()
	for _, r := range replicas {
		h.Write([]byte(r))
		binary.LittleEndian.PutUint64(buf[:], s.CC.vector[r])
		h.Write(buf[:])
	}
	cloud := make([]Dot, 0, len(s.CC.cloud))
	for d := range s.CC.cloud {
		cloud = append(cloud, d)
	}
	sort.Slice(cloud, func(i, j int) bool { return cloud[i].Less(cloud[j]) })
	for _, d := range cloud {
		h.Write([]byte(d.ReplicaID))
		binary.LittleEndian.PutUint64(buf[:], d.Seq)
		h.Write(buf[:])
	}
	live := collectDots(s.Store)
	sort.Slice(live, func(i, j int) bool { return live[i].Less(live[j]) })
	h.Write([]byte{0})
	for _, d := range live {
		h.Write([]byte(d.ReplicaID))
		binary.LittleEndian.PutUint64(buf[:], d.Seq)
		h.Write(buf[:])
	}
	return h.Sum64()
}
