package hash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTable_StartsAtGlobalDepthZeroWithOneBucket(t *testing.T) {
	tbl := New[int, string](2)
	require.Equal(t, 0, tbl.GlobalDepth())
	require.Equal(t, 1, tbl.NumBuckets())
}

func TestTable_InsertFindRemove(t *testing.T) {
	tbl := New[int, string](2)
	tbl.Insert(1, "a")

	v, ok := tbl.Find(1)
	require.True(t, ok)
	require.Equal(t, "a", v)

	require.True(t, tbl.Remove(1))
	_, ok = tbl.Find(1)
	require.False(t, ok)
}

func TestTable_InsertUpsertsExistingKeyWithoutSplitting(t *testing.T) {
	tbl := New[int, string](2)
	tbl.Insert(1, "a")
	depthBefore := tbl.GlobalDepth()

	tbl.Insert(1, "b")

	v, ok := tbl.Find(1)
	require.True(t, ok)
	require.Equal(t, "b", v)
	require.Equal(t, depthBefore, tbl.GlobalDepth())
}

// TestTable_ScenarioD_DirectoryDoublingPreservesAllKeys mirrors spec
// Scenario D: bucket_size=2, insert three keys that collide, and confirm
// every key survives whatever splits the third insert triggers.
func TestTable_ScenarioD_DirectoryDoublingPreservesAllKeys(t *testing.T) {
	tbl := New[int, string](2)

	tbl.Insert(1, "a")
	tbl.Insert(5, "b")
	tbl.Insert(9, "c")

	for k, want := range map[int]string{1: "a", 5: "b", 9: "c"} {
		v, ok := tbl.Find(k)
		require.True(t, ok, "key %d should be found", k)
		require.Equal(t, want, v)
	}
	require.GreaterOrEqual(t, tbl.GlobalDepth(), 1)
}

func TestTable_ManyKeysSurviveRepeatedSplits(t *testing.T) {
	tbl := New[int, int](3)
	const n = 500
	for i := 0; i < n; i++ {
		tbl.Insert(i, i*i)
	}
	for i := 0; i < n; i++ {
		v, ok := tbl.Find(i)
		require.True(t, ok)
		require.Equal(t, i*i, v)
	}
}

func TestTable_LocalDepthNeverExceedsGlobalDepth(t *testing.T) {
	tbl := New[int, int](2)
	for i := 0; i < 200; i++ {
		tbl.Insert(i, i)
	}
	for i := 0; i < len(tbl.dir); i++ {
		require.LessOrEqual(t, tbl.LocalDepth(i), tbl.GlobalDepth())
	}
}
