package crdt

import (
	"github.com/pkg/errors"

	"github.com/casperlundberg/json-delta-crdt/crdterrors"
	"github.com/casperlundberg/json-delta-crdt/internal/telemetry"
	"github.com/casperlundberg/json-delta-crdt/utils"
)

// elementSlotTypeName tags the two-child DotMap {FIRST, SECOND} that
// backs each ORArray element (spec §4.5). It is internal — hosts never
// construct one directly, only through InsertValue.
const elementSlotTypeName = "orarray.element"

// pickMinimalPosition resolves an element's FIRST register — possibly
// holding several concurrent positions while a move is contested — to
// the single Position used for ordering: the lexicographically smallest
// one currently held. Every replica computes this the same way
// regardless of which concurrent value eventually wins the register, so
// order stays a pure function of joined state (spec §4.5's ordering
// invariant).
func pickMinimalPosition(firstStore *DotStore) Position {
	if firstStore == nil || len(firstStore.Fun) == 0 {
		return nil
	}
	var min Position
	first := true
	for _, v := range firstStore.Fun {
		p := v.(Position)
		if first || p.Compare(min) < 0 {
			min, first = p, false
		}
	}
	return min
}

// ORArrayInsertValue returns a delta that inserts a new element under
// uid: position is written into a fresh FIRST register and buildValue
// populates a fresh SECOND register of valueTypeName, combined into one
// delta (spec §4.5). uid identity is the host's responsibility —
// callers typically mint one with google/uuid so two concurrent inserts
// never collide.
func ORArrayInsertValue(state *State, uid string, position Position, valueTypeName string, buildValue func(child *State) (*State, error)) (*State, error) {
	if err := requireKind(state, KindDotMap, TypeNameORArray); err != nil {
		return nil, err
	}
	// alloc is a scratch clone threaded through both slot allocations so
	// the FIRST dot and whatever dot buildValue mints for SECOND are
	// drawn from the same advancing counter and can never collide.
	alloc := state.CC.Clone()
	posDot := alloc.Next(state.ReplicaID)

	valChild := &State{ReplicaID: state.ReplicaID, Store: emptyChildStore(valueTypeName), CC: alloc}
	valDelta, err := buildValue(valChild)
	if err != nil {
		return nil, errors.Wrapf(err, "orarray insert uid %q", uid)
	}

	cc := NewCausalContext()
	cc.Add(posDot)
	cc.Join(valDelta.CC)

	element := &DotStore{
		Kind:     KindDotMap,
		TypeName: elementSlotTypeName,
		Map: map[string]*DotStore{
			"FIRST":  {Kind: KindDotFun, TypeName: TypeNameMVReg, Fun: map[Dot]any{posDot: position}},
			"SECOND": valDelta.Store,
		},
	}
	out := NewDotMap(TypeNameORArray)
	out.Map[uid] = element
	telemetry.ObserveOp(TypeNameORArray, "insertValue")
	return &State{ReplicaID: state.ReplicaID, Store: out, CC: cc}, nil
}

// ORArrayMove returns a delta that relocates uid to newPosition. uid
// must already be known locally — ErrMissingElement otherwise, checked
// up front so the function never dereferences a nil child (the bug
// spec §4.5 calls out: acting on state.Store.Map[uid] before confirming
// it is non-nil). A uid that is known but currently tombstoned is not
// an error: move proceeds and introduces a dot peers will accept.
//
// Move's delta observes only the FIRST (position) register's current
// dots, never SECOND (value). This is what makes move win over a
// concurrent delete at the whole-element level (spec's move-wins
// scenario): delete's CausalContext has always known the value's
// original dot (it was part of the common history both replicas
// share), so a move whose own delta also claimed to observe that dot
// would let the deleter's CausalContext erase it once merged. Leaving
// SECOND untouched means a racing delete can only ever remove the
// position, never the value sitting behind it.
func ORArrayMove(state *State, uid string, newPosition Position) (*State, error) {
	if err := requireKind(state, KindDotMap, TypeNameORArray); err != nil {
		return nil, err
	}
	existing := state.Store.Map[uid]
	if existing.IsEmpty() {
		telemetry.ObserveError("missing_element")
		return nil, errors.Wrapf(crdterrors.ErrMissingElement, "orarray: uid %q not present", uid)
	}
	posDot := state.CC.Clone().Next(state.ReplicaID)

	cc := NewCausalContext()
	if firstStore := existing.Map["FIRST"]; firstStore != nil {
		for d := range firstStore.Fun {
			cc.Add(d)
		}
	}
	cc.Add(posDot)

	element := &DotStore{
		Kind:     KindDotMap,
		TypeName: elementSlotTypeName,
		Map: map[string]*DotStore{
			"FIRST": {Kind: KindDotFun, TypeName: TypeNameMVReg, Fun: map[Dot]any{posDot: newPosition}},
		},
	}
	out := NewDotMap(TypeNameORArray)
	out.Map[uid] = element
	telemetry.ObserveOp(TypeNameORArray, "move")
	return &State{ReplicaID: state.ReplicaID, Store: out, CC: cc}, nil
}

// ORArrayApplyToValue applies a sub-operation to the SECOND (value)
// register held at uid, leaving its position untouched. If uid has no
// entry in state and creates is true, it is implicitly inserted at
// position first (resolving spec §4.5's open question in favor of
// implicit insert — see DESIGN.md); otherwise ErrMissingElement.
func ORArrayApplyToValue(state *State, uid string, position Position, valueTypeName string, creates bool, apply func(child *State) (*State, error)) (*State, error) {
	if err := requireKind(state, KindDotMap, TypeNameORArray); err != nil {
		return nil, err
	}
	existing := state.Store.Map[uid]
	if existing.IsEmpty() {
		if !creates {
			telemetry.ObserveError("missing_element")
			return nil, errors.Wrapf(crdterrors.ErrMissingElement, "orarray: uid %q not present", uid)
		}
		return ORArrayInsertValue(state, uid, position, valueTypeName, apply)
	}
	secondStore := existing.Map["SECOND"]
	if secondStore == nil {
		secondStore = emptyChildStore(valueTypeName)
	}
	valChild := &State{ReplicaID: state.ReplicaID, Store: secondStore, CC: state.CC}
	delta, err := apply(valChild)
	if err != nil {
		return nil, errors.Wrapf(err, "orarray value uid %q", uid)
	}
	element := &DotStore{Kind: KindDotMap, TypeName: elementSlotTypeName, Map: map[string]*DotStore{"SECOND": delta.Store}}
	out := NewDotMap(TypeNameORArray)
	out.Map[uid] = element
	telemetry.ObserveOp(TypeNameORArray, "applyToValue")
	return &State{ReplicaID: state.ReplicaID, Store: out, CC: delta.CC}, nil
}

// ORArrayDelete returns a delta that removes uid from the visible
// sequence: its CausalContext observes every dot currently in uid's
// FIRST register and its DotStore says nothing about uid, so the far
// side's join rule drops those position dots — value() excludes any
// element without a surviving position (orArrayOrder). Deleting an
// absent uid is a no-op delta, not an error.
//
// SECOND is deliberately left unobserved, for the same move-wins reason
// ORArrayMove leaves it untouched: a delete that also claimed the
// value's dot would, once merged with a concurrent move, erase the
// value a move is trying to carry forward. The value's storage is
// reclaimed only when its own register is later overwritten or cleared
// — acceptable here since causal-context garbage collection beyond
// merge-correctness is out of scope.
func ORArrayDelete(state *State, uid string) (*State, error) {
	if err := requireKind(state, KindDotMap, TypeNameORArray); err != nil {
		return nil, err
	}
	child := state.Store.Map[uid]
	cc := NewCausalContext()
	if child != nil {
		if firstStore := child.Map["FIRST"]; firstStore != nil {
			for d := range firstStore.Fun {
				cc.Add(d)
			}
		}
	}
	telemetry.ObserveOp(TypeNameORArray, "delete")
	return &State{ReplicaID: state.ReplicaID, Store: NewDotMap(TypeNameORArray), CC: cc}, nil
}

// orArrayOrder returns uid in ascending (minimalPosition, uid) order,
// the deterministic key spec §4.5 mandates so order is a pure function
// of joined state regardless of which replica asks.
func orArrayOrder(state *State) []string {
	type item struct {
		uid string
		pos Position
	}
	items := make([]item, 0, len(state.Store.Map))
	for uid, el := range state.Store.Map {
		pos := pickMinimalPosition(el.Map["FIRST"])
		if pos == nil {
			continue
		}
		items = append(items, item{uid, pos})
	}
	h := utils.NewHeap(func(a, b item) bool {
		if c := a.pos.Compare(b.pos); c != 0 {
			return c < 0
		}
		return a.uid < b.uid
	})
	for _, it := range items {
		h.Push(it)
	}
	out := make([]string, 0, len(items))
	for h.Len() > 0 {
		out = append(out, h.Pop().uid)
	}
	return out
}
