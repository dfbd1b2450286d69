package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMVReg(v any) func(*State) (*State, error) {
	return func(child *State) (*State, error) { return MVRegWrite(child, v) }
}

func TestORMapApplyToKeyCreatesAndReads(t *testing.T) {
	s := NewState("r1", TypeNameORMap)
	delta, err := ORMapApplyToKey(s, "k", TypeNameMVReg, writeMVReg("v1"))
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(delta))

	values, err := ORMapValue(s)
	require.NoError(t, err)
	assert.Equal(t, "v1", values["k"])
}

func TestORMapApplyToKeyRejectsTypeMismatch(t *testing.T) {
	s := NewState("r1", TypeNameORMap)
	delta, err := ORMapApplyToKey(s, "k", TypeNameMVReg, writeMVReg("v1"))
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(delta))

	_, err = ORMapApplyToKey(s, "k", TypeNameORArray, func(child *State) (*State, error) {
		return ORArrayInsertValue(child, "x", NewTopLevelPosition(), TypeNameMVReg, writeMVReg("y"))
	})
	assert.Error(t, err)
}

func TestORMapRemoveTombstonesKeyOnly(t *testing.T) {
	s := NewState("r1", TypeNameORMap)
	d1, err := ORMapApplyToKey(s, "a", TypeNameMVReg, writeMVReg("va"))
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(d1))
	d2, err := ORMapApplyToKey(s, "b", TypeNameMVReg, writeMVReg("vb"))
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(d2))

	removeDelta, err := ORMapRemove(s, "a")
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(removeDelta))

	values, err := ORMapValue(s)
	require.NoError(t, err)
	_, hasA := values["a"]
	assert.False(t, hasA)
	assert.Equal(t, "vb", values["b"])
}

func TestORMapRemoveOfAbsentKeyIsNoop(t *testing.T) {
	s := NewState("r1", TypeNameORMap)
	delta, err := ORMapRemove(s, "nope")
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(delta))
	values, err := ORMapValue(s)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestORMapAddWinsOverConcurrentRemove(t *testing.T) {
	s := NewState("r1", TypeNameORMap)
	d0, err := ORMapApplyToKey(s, "k", TypeNameMVReg, writeMVReg("v0"))
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(d0))

	r1 := s.Clone()
	r2 := s.Clone()
	r2.ReplicaID = "r2"

	writeDelta, err := ORMapApplyToKey(r1, "k", TypeNameMVReg, writeMVReg("v1"))
	require.NoError(t, err)
	removeDelta, err := ORMapRemove(r2, "k")
	require.NoError(t, err)

	require.NoError(t, r1.MergeIn(writeDelta))
	require.NoError(t, r2.MergeIn(removeDelta))
	require.NoError(t, r1.MergeIn(removeDelta))
	require.NoError(t, r2.MergeIn(writeDelta))

	v1, err := ORMapValue(r1)
	require.NoError(t, err)
	v2, err := ORMapValue(r2)
	require.NoError(t, err)
	assert.Equal(t, "v1", v1["k"])
	assert.Equal(t, v1, v2)
}

func TestORMapApplyToKeyRejectsWrongOuterKind(t *testing.T) {
	s := NewState("r1", TypeNameMVReg)
	_, err := ORMapApplyToKey(s, "k", TypeNameMVReg, writeMVReg("v"))
	assert.Error(t, err)
}
