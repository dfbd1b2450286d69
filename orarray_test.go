package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestORArrayInsertThenValuesInPositionOrder(t *testing.T) {
	s := NewState("r1", TypeNameORArray)
	d1, err := ORArrayInsertValue(s, "a", Position{100}, TypeNameMVReg, writeMVReg("A"))
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(d1))
	d2, err := ORArrayInsertValue(s, "b", Position{50}, TypeNameMVReg, writeMVReg("B"))
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(d2))
	d3, err := ORArrayInsertValue(s, "c", Position{75}, TypeNameMVReg, writeMVReg("C"))
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(d3))

	values, err := ORArrayValues(s)
	require.NoError(t, err)
	assert.Equal(t, []any{"B", "C", "A"}, values)
}

func TestORArrayMoveChangesOrderNotIdentity(t *testing.T) {
	s := NewState("r1", TypeNameORArray)
	d1, err := ORArrayInsertValue(s, "a", Position{100}, TypeNameMVReg, writeMVReg("A"))
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(d1))
	d2, err := ORArrayInsertValue(s, "b", Position{200}, TypeNameMVReg, writeMVReg("B"))
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(d2))

	moveDelta, err := ORArrayMove(s, "a", Position{300})
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(moveDelta))

	values, err := ORArrayValues(s)
	require.NoError(t, err)
	assert.Equal(t, []any{"B", "A"}, values)
}

func TestORArrayMoveOnMissingUidErrors(t *testing.T) {
	s := NewState("r1", TypeNameORArray)
	_, err := ORArrayMove(s, "ghost", Position{1})
	assert.Error(t, err)
}

func TestORArrayDeleteRemovesElement(t *testing.T) {
	s := NewState("r1", TypeNameORArray)
	d1, err := ORArrayInsertValue(s, "a", Position{100}, TypeNameMVReg, writeMVReg("A"))
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(d1))

	delDelta, err := ORArrayDelete(s, "a")
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(delDelta))

	values, err := ORArrayValues(s)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestORArrayDeleteOfAbsentUidIsNoop(t *testing.T) {
	s := NewState("r1", TypeNameORArray)
	delta, err := ORArrayDelete(s, "ghost")
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(delta))
	values, err := ORArrayValues(s)
	require.NoError(t, err)
	assert.Empty(t, values)
}

// TestORArrayMoveWinsOverConcurrentDelete is scenario S3: one replica
// moves an element while another concurrently deletes it without having
// observed the move. The element must survive at its new position.
func TestORArrayMoveWinsOverConcurrentDelete(t *testing.T) {
	s := NewState("r1", TypeNameORArray)
	d1, err := ORArrayInsertValue(s, "a", Position{100}, TypeNameMVReg, writeMVReg("A"))
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(d1))

	r1 := s.Clone()
	r2 := s.Clone()
	r2.ReplicaID = "r2"

	moveDelta, err := ORArrayMove(r1, "a", Position{300})
	require.NoError(t, err)
	deleteDelta, err := ORArrayDelete(r2, "a")
	require.NoError(t, err)

	require.NoError(t, r1.MergeIn(moveDelta))
	require.NoError(t, r2.MergeIn(deleteDelta))
	require.NoError(t, r1.MergeIn(deleteDelta))
	require.NoError(t, r2.MergeIn(moveDelta))

	v1, err := ORArrayValues(r1)
	require.NoError(t, err)
	v2, err := ORArrayValues(r2)
	require.NoError(t, err)
	assert.Equal(t, []any{"A"}, v1)
	assert.Equal(t, v1, v2)
}

// TestORArrayMoveAndValueUpdateCommute is scenario S4: concurrent move
// and value update on the same element must both survive and converge
// to a single clean element, not a duplicate.
func TestORArrayMoveAndValueUpdateCommute(t *testing.T) {
	s := NewState("r1", TypeNameORArray)
	d1, err := ORArrayInsertValue(s, "x", Position{100}, TypeNameMVReg, writeMVReg("initial"))
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(d1))

	r1 := s.Clone()
	r2 := s.Clone()
	r2.ReplicaID = "r2"

	moveDelta, err := ORArrayMove(r1, "x", Position{200})
	require.NoError(t, err)
	updateDelta, err := ORArrayApplyToValue(r2, "x", Position{100}, TypeNameMVReg, false, writeMVReg("updated"))
	require.NoError(t, err)

	require.NoError(t, r1.MergeIn(moveDelta))
	require.NoError(t, r2.MergeIn(updateDelta))
	require.NoError(t, r1.MergeIn(updateDelta))
	require.NoError(t, r2.MergeIn(moveDelta))

	v1, err := ORArrayValues(r1)
	require.NoError(t, err)
	v2, err := ORArrayValues(r2)
	require.NoError(t, err)
	assert.Equal(t, []any{"updated"}, v1)
	assert.Equal(t, v1, v2)
}

func TestORArrayApplyToValueCreatesWhenMissingAndAllowed(t *testing.T) {
	s := NewState("r1", TypeNameORArray)
	delta, err := ORArrayApplyToValue(s, "new", Position{42}, TypeNameMVReg, true, writeMVReg("fresh"))
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(delta))

	values, err := ORArrayValues(s)
	require.NoError(t, err)
	assert.Equal(t, []any{"fresh"}, values)
}

func TestORArrayApplyToValueErrorsWhenMissingAndNotAllowed(t *testing.T) {
	s := NewState("r1", TypeNameORArray)
	_, err := ORArrayApplyToValue(s, "ghost", Position{1}, TypeNameMVReg, false, writeMVReg("x"))
	assert.Error(t, err)
}

// TestORArrayApplyToValueSurvivesClearedValueRegister exercises the
// nil-SECOND guard: an element whose value register has been cleared to
// empty (and thus dropped from the Map by the join rule) still lets a
// later applyToValue call construct a fresh empty child instead of
// panicking on a nil DotStore.
func TestORArrayApplyToValueSurvivesClearedValueRegister(t *testing.T) {
	s := NewState("r1", TypeNameORArray)
	d1, err := ORArrayInsertValue(s, "a", Position{100}, TypeNameMVReg, writeMVReg("A"))
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(d1))

	clearDelta, err := ORArrayApplyToValue(s, "a", Position{100}, TypeNameMVReg, false, func(child *State) (*State, error) {
		return MVRegClear(child)
	})
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(clearDelta))

	rewriteDelta, err := ORArrayApplyToValue(s, "a", Position{100}, TypeNameMVReg, false, writeMVReg("B"))
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(rewriteDelta))

	values, err := ORArrayValues(s)
	require.NoError(t, err)
	assert.Equal(t, []any{"B"}, values)
}

// TestORArrayMoveOnElementWithoutPositionDoesNotPanic exercises the
// nil-FIRST guard: once a delete has dropped an element's position, its
// value register remains (ORArrayDelete leaves SECOND alone), and
// ORArrayMove and ORArrayDelete must not panic on the missing FIRST
// register.
func TestORArrayMoveOnElementWithoutPositionDoesNotPanic(t *testing.T) {
	s := NewState("r1", TypeNameORArray)
	d1, err := ORArrayInsertValue(s, "a", Position{100}, TypeNameMVReg, writeMVReg("A"))
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(d1))
	delDelta, err := ORArrayDelete(s, "a")
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(delDelta))
	require.Nil(t, s.Store.Map["a"].Map["FIRST"])

	assert.NotPanics(t, func() {
		_, err := ORArrayMove(s, "a", Position{200})
		require.NoError(t, err)
		_, err = ORArrayDelete(s, "a")
		require.NoError(t, err)
	})
}

// TestORArrayCircularMovesConverge is scenario S6: three replicas each
// move a distinct element concurrently into a cycle of positions; every
// replica must converge to the same three elements with no panic and no
// duplication.
func TestORArrayCircularMovesConverge(t *testing.T) {
	s := NewState("r1", TypeNameORArray)
	for _, ins := range []struct {
		uid string
		pos Position
		val string
	}{
		{"a", Position{100}, "A"},
		{"b", Position{200}, "B"},
		{"c", Position{300}, "C"},
	} {
		d, err := ORArrayInsertValue(s, ins.uid, ins.pos, TypeNameMVReg, writeMVReg(ins.val))
		require.NoError(t, err)
		require.NoError(t, s.MergeIn(d))
	}

	r1, r2, r3 := s.Clone(), s.Clone(), s.Clone()
	r1.ReplicaID, r2.ReplicaID, r3.ReplicaID = "r1", "r2", "r3"

	moveA, err := ORArrayMove(r1, "a", Position{200})
	require.NoError(t, err)
	moveB, err := ORArrayMove(r2, "b", Position{300})
	require.NoError(t, err)
	moveC, err := ORArrayMove(r3, "c", Position{100})
	require.NoError(t, err)

	for _, delta := range []*State{moveA, moveB, moveC} {
		require.NoError(t, r1.MergeIn(delta))
		require.NoError(t, r2.MergeIn(delta))
		require.NoError(t, r3.MergeIn(delta))
	}

	v1, err := ORArrayValues(r1)
	require.NoError(t, err)
	v2, err := ORArrayValues(r2)
	require.NoError(t, err)
	v3, err := ORArrayValues(r3)
	require.NoError(t, err)
	assert.Len(t, v1, 3)
	assert.Equal(t, v1, v2)
	assert.Equal(t, v2, v3)
}

func TestORArrayInsertRejectsWrongOuterKind(t *testing.T) {
	s := NewState("r1", TypeNameMVReg)
	_, err := ORArrayInsertValue(s, "a", Position{1}, TypeNameMVReg, writeMVReg("v"))
	assert.Error(t, err)
}
