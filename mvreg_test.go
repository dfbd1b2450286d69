package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMVRegWriteThenReadRoundTrips(t *testing.T) {
	s := NewState("r1", TypeNameMVReg)
	delta, err := MVRegWrite(s, "hello")
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(delta))
	assert.Equal(t, []any{"hello"}, MVRegRead(s))
}

func TestMVRegWriteReplacesPriorValue(t *testing.T) {
	s := NewState("r1", TypeNameMVReg)
	d1, err := MVRegWrite(s, "v1")
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(d1))

	d2, err := MVRegWrite(s, "v2")
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(d2))

	assert.Equal(t, []any{"v2"}, MVRegRead(s))
}

func TestMVRegConcurrentWritesSurviveAsMultiValue(t *testing.T) {
	base := NewState("r1", TypeNameMVReg)
	d0, err := MVRegWrite(base, "v0")
	require.NoError(t, err)
	require.NoError(t, base.MergeIn(d0))

	r1 := base.Clone()
	r1.ReplicaID = "r1"
	r2 := base.Clone()
	r2.ReplicaID = "r2"

	d1, err := MVRegWrite(r1, "from-r1")
	require.NoError(t, err)
	d2, err := MVRegWrite(r2, "from-r2")
	require.NoError(t, err)

	require.NoError(t, r1.MergeIn(d1))
	require.NoError(t, r2.MergeIn(d2))
	require.NoError(t, r1.MergeIn(d2))
	require.NoError(t, r2.MergeIn(d1))

	assert.ElementsMatch(t, []any{"from-r1", "from-r2"}, MVRegRead(r1))
	assert.ElementsMatch(t, MVRegRead(r1), MVRegRead(r2))
}

func TestMVRegClearRemovesValueWithoutReplacement(t *testing.T) {
	s := NewState("r1", TypeNameMVReg)
	d1, err := MVRegWrite(s, "v1")
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(d1))

	d2, err := MVRegClear(s)
	require.NoError(t, err)
	require.NoError(t, s.MergeIn(d2))

	assert.Empty(t, MVRegRead(s))
}

func TestMVRegWriteRejectsWrongKind(t *testing.T) {
	s := NewState("r1", TypeNameORMap)
	_, err := MVRegWrite(s, "v")
	assert.Error(t, err)
}

func TestMVRegReadOnNilStateReturnsNil(t *testing.T) {
	assert.Nil(t, MVRegRead(nil))
}
