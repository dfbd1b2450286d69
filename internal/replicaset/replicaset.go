// Package replicaset provides a concurrency-safe registry of
// (replicaID -> *crdt.State), used by the cmd/crdtsim demo.
//
// The engine package itself stays synchronous (spec §5: a State belongs
// to one replica and is mutated by one goroutine at a time); this
// registry exists one layer up, where a test harness or demo fans out
// one goroutine per simulated replica and needs a shared, lock-free map
// from replica ID to that replica's current State. Grounded on the
// teacher's objects.go, which keeps its live object cache in an
// xsync.MapOf for the same reason — many goroutines touching disjoint
// keys shouldn't contend on a single mutex.
package replicaset

import (
	"github.com/puzpuzpuz/xsync/v3"

	crdt "github.com/casperlundberg/json-delta-crdt"
)

// Set is a concurrency-safe replicaID -> *crdt.State registry.
type Set struct {
	states *xsync.MapOf[string, *crdt.State]
}

// New returns an empty Set.
func New() *Set {
	return &Set{states: xsync.NewMapOf[string, *crdt.State]()}
}

// Register adds state to the set under its own ReplicaID.
func (s *Set) Register(state *crdt.State) {
	s.states.Store(state.ReplicaID, state)
}

// Get returns the State registered for replicaID, if any.
func (s *Set) Get(replicaID string) (*crdt.State, bool) {
	return s.states.Load(replicaID)
}

// Each calls fn once per registered replica. Iteration order is
// unspecified, matching xsync.MapOf's own Range contract.
func (s *Set) Each(fn func(replicaID string, state *crdt.State)) {
	s.states.Range(func(replicaID string, state *crdt.State) bool {
		fn(replicaID, state)
		return true
	})
}

// Broadcast merges delta into every registered replica except
// excludeReplicaID (typically the one that produced delta, which has
// already applied it locally). Returns the first error encountered, if
// any, without stopping the remaining merges.
func (s *Set) Broadcast(delta *crdt.State, excludeReplicaID string) error {
	var firstErr error
	s.states.Range(func(replicaID string, state *crdt.State) bool {
		if replicaID == excludeReplicaID {
			return true
		}
		if err := state.MergeIn(delta); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

// Len reports how many replicas are registered.
func (s *Set) Len() int {
	return s.states.Size()
}
