package buffer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ABS-leo/bustub-lab/disk"
	"github.com/ABS-leo/bustub-lab/txn"
)

// TestBufferPool_ScenarioB_PinPreventsEviction: pool size 1. NewPage
// returns a pinned page 0. A second NewPage fails while it's pinned.
// Unpinning frees it up for a later, clean eviction.
func TestBufferPool_ScenarioB_PinPreventsEviction(t *testing.T) {
	dm := disk.NewMemManager()
	bp := New(1, dm, nil)

	p0, err := bp.NewPage(txn.TODO())
	require.NoError(t, err)
	require.Equal(t, int32(0), p0.ID())

	_, err = bp.NewPage(txn.TODO())
	require.Error(t, err)

	require.True(t, bp.UnpinPage(0, false))

	p1, err := bp.NewPage(txn.TODO())
	require.NoError(t, err)
	require.Equal(t, int32(1), p1.ID())
	require.Empty(t, dm.Writes, "clean victim must not be written back")
}

// TestBufferPool_ScenarioC_DirtyEvictionFlushesFirst: a dirty page must
// be written to disk before its frame is reused.
func TestBufferPool_ScenarioC_DirtyEvictionFlushesFirst(t *testing.T) {
	dm := disk.NewMemManager()
	bp := New(1, dm, nil)

	p0, err := bp.NewPage(txn.TODO())
	require.NoError(t, err)
	copy(p0.Data(), []byte("hello"))
	require.True(t, bp.UnpinPage(0, true))

	_, err = bp.NewPage(txn.TODO())
	require.NoError(t, err)

	require.Equal(t, []int32{0}, dm.Writes)
	readBack := make([]byte, len(p0.Data()))
	require.NoError(t, dm.ReadPage(0, readBack))
	require.Equal(t, byte('h'), readBack[0])
}

func TestBufferPool_FetchPagePinsAndIncrementsAccess(t *testing.T) {
	dm := disk.NewMemManager()
	bp := New(2, dm, nil)

	p0, err := bp.NewPage(txn.TODO())
	require.NoError(t, err)
	id := p0.ID()
	copy(p0.Data(), []byte("payload"))
	require.True(t, bp.UnpinPage(id, true))
	require.True(t, bp.FlushPage(id))

	p1, err := bp.FetchPage(id)
	require.NoError(t, err)
	require.Equal(t, 1, p1.PinCount())
	require.True(t, bp.UnpinPage(id, false))
}

func TestBufferPool_UnpinNonResidentOrAlreadyUnpinnedFails(t *testing.T) {
	dm := disk.NewMemManager()
	bp := New(2, dm, nil)

	require.False(t, bp.UnpinPage(42, false))

	p0, err := bp.NewPage(txn.TODO())
	require.NoError(t, err)
	require.True(t, bp.UnpinPage(p0.ID(), false))
	require.False(t, bp.UnpinPage(p0.ID(), false))
}

func TestBufferPool_FlushPageNonResidentFails(t *testing.T) {
	dm := disk.NewMemManager()
	bp := New(2, dm, nil)
	require.False(t, bp.FlushPage(7))
}

func TestBufferPool_DeletePage(t *testing.T) {
	dm := disk.NewMemManager()
	bp := New(2, dm, nil)

	p0, err := bp.NewPage(txn.TODO())
	require.NoError(t, err)
	id := p0.ID()

	// pinned: delete refused
	require.False(t, bp.DeletePage(txn.TODO(), id))

	require.True(t, bp.UnpinPage(id, false))
	require.True(t, bp.DeletePage(txn.TODO(), id))

	// deleting again: not resident, reports true per spec
	require.True(t, bp.DeletePage(txn.TODO(), id))

	_, err = bp.FetchPage(id)
	// page id was deallocated from the directory; fetch reads zeroed
	// disk content into a fresh frame rather than erroring, since the
	// disk manager itself has no notion of "deleted" ids.
	require.NoError(t, err)
}

// TestBufferPool_FrameAccountingInvariant exercises invariant #3: the
// free list plus tracked frames never exceeds the pool size, and every
// pinned frame has a positive pin count.
func TestBufferPool_FrameAccountingInvariant(t *testing.T) {
	dm := disk.NewMemManager()
	const poolSize = 4
	bp := New(poolSize, dm, nil)

	var ids []int32
	for i := 0; i < poolSize; i++ {
		p, err := bp.NewPage(txn.TODO())
		require.NoError(t, err)
		ids = append(ids, p.ID())
	}

	require.Equal(t, 0, bp.GetFreeFrameCount())
	require.Equal(t, 0, bp.GetEvictableCount())

	for _, id := range ids {
		require.True(t, bp.UnpinPage(id, false))
	}
	require.Equal(t, poolSize, bp.GetEvictableCount())

	require.LessOrEqual(t, bp.GetFreeFrameCount()+bp.GetEvictableCount(), poolSize)
}
