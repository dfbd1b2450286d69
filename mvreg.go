package crdt

import (
	"sort"

	"github.com/casperlundberg/json-delta-crdt/internal/telemetry"
)

// MVRegWrite returns a delta that sets state's register to value. The
// delta's DotStore holds a single fresh dot mapped to value; its
// CausalContext holds that dot plus whatever dots the register
// currently holds, so merging the delta back in tombstones every value
// the register previously held, concurrent writes from other replicas
// aside (spec §4.3).
//
// The fresh dot is allocated from state's CausalContext (cloned, never
// mutated in place — operators are pure) so it is collision-free against
// every other dot this replica has ever issued anywhere in its state
// tree, but the delta's own CausalContext is built from scratch,
// containing only the register's own prior dots and the new one. A
// delta that instead carried the whole ambient CausalContext forward
// would, once merged elsewhere, tombstone any dot that context happens
// to know about — including ones under entirely unrelated keys.
func MVRegWrite(state *State, value any) (*State, error) {
	if err := requireKind(state, KindDotFun, TypeNameMVReg); err != nil {
		return nil, err
	}
	d := state.CC.Clone().Next(state.ReplicaID)
	cc := NewCausalContext()
	for existing := range state.Store.Fun {
		cc.Add(existing)
	}
	cc.Add(d)
	store := &DotStore{Kind: KindDotFun, TypeName: TypeNameMVReg, Fun: map[Dot]any{d: value}}
	telemetry.ObserveOp(TypeNameMVReg, "write")
	return &State{ReplicaID: state.ReplicaID, Store: store, CC: cc}, nil
}

// MVRegClear returns a delta that empties state's register without
// writing a replacement. Its CausalContext observes exactly the dots
// the register currently holds, so merging it tombstones those and
// nothing else.
func MVRegClear(state *State) (*State, error) {
	if err := requireKind(state, KindDotFun, TypeNameMVReg); err != nil {
		return nil, err
	}
	cc := NewCausalContext()
	for d := range state.Store.Fun {
		cc.Add(d)
	}
	telemetry.ObserveOp(TypeNameMVReg, "clear")
	return &State{ReplicaID: state.ReplicaID, Store: NewDotFun(), CC: cc}, nil
}

// MVRegRead returns every value currently held by state's register: one
// value if there has been no concurrent write, more than one if two
// replicas wrote without having observed each other first. Values are
// returned ordered by their dot so repeated calls on the same state are
// deterministic.
func MVRegRead(state *State) []any {
	if state == nil || state.Store == nil || state.Store.Kind != KindDotFun {
		return nil
	}
	dots := make([]Dot, 0, len(state.Store.Fun))
	for d := range state.Store.Fun {
		dots = append(dots, d)
	}
	sort.Slice(dots, func(i, j int) bool { return dots[i].Less(dots[j]) })
	out := make([]any, len(dots))
	for i, d := range dots {
		out[i] = state.Store.Fun[d]
	}
	return out
}
