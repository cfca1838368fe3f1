package btree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIterator_BeginAtSeeksToFirstKeyGreaterOrEqual(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	for _, k := range []int64{10, 20, 30, 40, 50} {
		_, err := tree.Insert(Int64Key(k), RID{PageID: int32(k)})
		require.NoError(t, err)
	}

	it, err := tree.BeginAt(Int64Key(25))
	require.NoError(t, err)
	defer it.Close()

	require.False(t, it.IsEnd())
	require.Equal(t, Int64Key(30), it.Key())
}

func TestIterator_BeginAtExactKeyLandsOnIt(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	for _, k := range []int64{10, 20, 30} {
		_, err := tree.Insert(Int64Key(k), RID{PageID: int32(k)})
		require.NoError(t, err)
	}

	it, err := tree.BeginAt(Int64Key(20))
	require.NoError(t, err)
	defer it.Close()

	require.False(t, it.IsEnd())
	require.Equal(t, Int64Key(20), it.Key())
}

func TestIterator_BeginAtPastEveryKeyIsEnd(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	for _, k := range []int64{1, 2, 3} {
		_, err := tree.Insert(Int64Key(k), RID{PageID: int32(k)})
		require.NoError(t, err)
	}

	it, err := tree.BeginAt(Int64Key(999))
	require.NoError(t, err)
	require.True(t, it.IsEnd())
}

func TestIterator_NextPanicsPastTheEnd(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	_, err := tree.Insert(Int64Key(1), RID{PageID: 1})
	require.NoError(t, err)

	it, err := tree.Begin()
	require.NoError(t, err)
	require.NoError(t, it.Next())
	require.True(t, it.IsEnd())

	require.Panics(t, func() { _ = it.Next() })
}

func TestIterator_EqualComparesPositionNotIdentity(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	for _, k := range []int64{1, 2, 3} {
		_, err := tree.Insert(Int64Key(k), RID{PageID: int32(k)})
		require.NoError(t, err)
	}

	a, err := tree.Begin()
	require.NoError(t, err)
	defer a.Close()

	b, err := tree.BeginAt(Int64Key(1))
	require.NoError(t, err)
	defer b.Close()

	require.True(t, a.Equal(b))
	require.NoError(t, a.Next())
	require.False(t, a.Equal(b))
}

func TestIterator_EmptyTreeBeginIsImmediatelyEnd(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	it, err := tree.Begin()
	require.NoError(t, err)
	require.True(t, it.IsEnd())
}

func TestIterator_IteratesAcrossMultipleLeaves(t *testing.T) {
	tree := newTestTree(t, 3, 3)
	for i := int64(1); i <= 25; i++ {
		_, err := tree.Insert(Int64Key(i), RID{PageID: int32(i)})
		require.NoError(t, err)
	}

	it, err := tree.Begin()
	require.NoError(t, err)
	defer it.Close()

	count := 0
	var last int64 = 0
	for !it.IsEnd() {
		k := int64(it.Key())
		require.Greater(t, k, last)
		last = k
		count++
		require.NoError(t, it.Next())
	}
	require.Equal(t, 25, count)
}
