package crdt

import (
	"github.com/pkg/errors"

	"github.com/casperlundberg/json-delta-crdt/crdterrors"
	"github.com/casperlundberg/json-delta-crdt/internal/telemetry"
)

// emptyChildStore returns a fresh empty DotStore of the CRDT kind named
// by typeName, for use as the starting point of a key or element an
// operator is touching for the first time.
func emptyChildStore(typeName string) *DotStore {
	switch typeName {
	case TypeNameMVReg:
		return NewDotFun()
	case TypeNameORMap, TypeNameORArray:
		return NewDotMap(typeName)
	default:
		return NewDotMap(typeName)
	}
}

// ORMapApplyToKey applies a sub-operation to the child state stored at
// key, creating an empty child of childTypeName first if key has never
// been written. apply receives that child's State (its Store's dots
// plus the whole map's CausalContext, so nested operators can tell
// known-but-absent apart from never-observed) and must return a delta
// for the child alone. The result is that child delta repackaged as an
// ORMap-level delta at key (spec §4.4).
func ORMapApplyToKey(state *State, key, childTypeName string, apply func(child *State) (*State, error)) (*State, error) {
	if err := requireKind(state, KindDotMap, TypeNameORMap); err != nil {
		return nil, err
	}
	childStore := state.Store.Map[key]
	if childStore == nil {
		childStore = emptyChildStore(childTypeName)
	} else if childStore.TypeName != childTypeName {
		telemetry.ObserveError("type_mismatch")
		return nil, errors.Wrapf(crdterrors.ErrTypeMismatch, "ormap key %q holds %q, not %q", key, childStore.TypeName, childTypeName)
	}
	childState := &State{ReplicaID: state.ReplicaID, Store: childStore, CC: state.CC}
	delta, err := apply(childState)
	if err != nil {
		return nil, errors.Wrapf(err, "ormap key %q", key)
	}
	out := NewDotMap(TypeNameORMap)
	out.Map[key] = delta.Store
	telemetry.ObserveOp(TypeNameORMap, "applyToKey")
	return &State{ReplicaID: state.ReplicaID, Store: out, CC: delta.CC}, nil
}

// ORMapRemove returns a delta that tombstones key: its CausalContext
// observes exactly the dots currently live under key (found recursively,
// however deeply key's value is nested) and its DotStore says nothing
// about key at all, so the merge's join rule drops every one of those
// dots on the far side without touching any other key (spec §4.4).
// Removing a key that is already absent is a no-op delta.
func ORMapRemove(state *State, key string) (*State, error) {
	if err := requireKind(state, KindDotMap, TypeNameORMap); err != nil {
		return nil, err
	}
	child := state.Store.Map[key]
	cc := NewCausalContext()
	for _, d := range collectDots(child) {
		cc.Add(d)
	}
	telemetry.ObserveOp(TypeNameORMap, "remove")
	return &State{ReplicaID: state.ReplicaID, Store: NewDotMap(TypeNameORMap), CC: cc}, nil
}
