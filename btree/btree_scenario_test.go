package btree

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ABS-leo/bustub-lab/buffer"
	"github.com/ABS-leo/bustub-lab/disk"
	"github.com/ABS-leo/bustub-lab/txn"
)

// trackingPool wraps a real buffer.BufferPool to record every page id
// NewPage hands out and every page id DeletePage actually removes, so a
// test can assert no page gets stranded: every allocated id must end up
// either deleted or still reachable from the tree's root.
type trackingPool struct {
	*buffer.BufferPool

	mu        sync.Mutex
	allocated map[int32]bool
	deleted   map[int32]bool
}

func newTrackingPool(bp *buffer.BufferPool) *trackingPool {
	return &trackingPool{
		BufferPool: bp,
		allocated:  map[int32]bool{},
		deleted:    map[int32]bool{},
	}
}

func (p *trackingPool) NewPage(t txn.Txn) (*buffer.Page, error) {
	page, err := p.BufferPool.NewPage(t)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.allocated[page.ID()] = true
	p.mu.Unlock()
	return page, nil
}

func (p *trackingPool) DeletePage(t txn.Txn, pageID int32) bool {
	ok := p.BufferPool.DeletePage(t, pageID)
	if ok {
		p.mu.Lock()
		p.deleted[pageID] = true
		p.mu.Unlock()
	}
	return ok
}

// reachablePages walks every page currently linked into the tree: the
// leaf chain plus every internal page visited on the way there.
func reachablePages[K comparable](t *testing.T, tree *Tree[K]) map[int32]bool {
	t.Helper()
	seen := map[int32]bool{}
	if tree.IsEmpty() {
		return seen
	}

	var walk func(id int32)
	walk = func(id int32) {
		seen[id] = true
		page, err := tree.pool.FetchPage(id)
		require.NoError(t, err)
		h := rawHeader{page.Data()}
		if h.pageType() == internalPage {
			iv := newInternalView[K](page.Data(), tree.ks)
			n := iv.size()
			tree.pool.UnpinPage(id, false)
			for i := 0; i < n; i++ {
				walk(iv.childAt(i))
			}
			return
		}
		tree.pool.UnpinPage(id, false)
	}
	walk(tree.rootPageID)
	return seen
}

func newScenarioTestTree(t *testing.T, leafMax, internalMax int) (*Tree[Int64Key], *trackingPool) {
	t.Helper()
	dm := disk.NewMemManager()
	bp := buffer.NewWithReservedHeaderPage(64, dm, nil)
	tp := newTrackingPool(bp)
	header := NewHeaderPage(tp)
	require.NoError(t, header.Init())

	tree, err := New[Int64Key](tp, header, Options[Int64Key]{
		Name:            "scenario_index",
		LeafMaxSize:     leafMax,
		InternalMaxSize: internalMax,
		KeySerializer:   Int64KeySerializer{},
		Comparator:      CompareInt64Key,
	})
	require.NoError(t, err)
	return tree, tp
}

// TestTree_ScenarioE mirrors the literal worked example: leaf_max_size=3,
// internal_max_size=3, keys 1..10 inserted in order. Every key must be
// retrievable and the leaf chain must yield them in ascending order.
func TestTree_ScenarioE_SequentialInsertsBuildAWorkingTree(t *testing.T) {
	tree, _ := newScenarioTestTree(t, 3, 3)

	for i := int64(1); i <= 10; i++ {
		ok, err := tree.Insert(Int64Key(i), RID{PageID: int32(i)})
		require.NoError(t, err)
		require.True(t, ok)
	}

	for i := int64(1); i <= 10; i++ {
		rid, found, err := tree.GetValue(Int64Key(i))
		require.NoError(t, err)
		require.True(t, found, "key %d", i)
		require.Equal(t, int32(i), rid.PageID)
	}

	it, err := tree.Begin()
	require.NoError(t, err)
	defer it.Close()

	var seen []int64
	for !it.IsEnd() {
		seen = append(seen, int64(it.Key()))
		require.NoError(t, it.Next())
	}
	require.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, seen)
}

// TestTree_ScenarioF removes keys 1..9 in order and expects the tree to
// collapse to a single leaf root holding only key 10. It also asserts
// the "no leaked pages" invariant: every page id ever handed out by
// NewPage during the whole scenario is, by the end, either still
// reachable from the root or was actually passed to DeletePage — nothing
// was merged away and silently left stranded in the pool.
func TestTree_ScenarioF_SequentialRemovesCollapseToSingleLeafRoot(t *testing.T) {
	tree, tp := newScenarioTestTree(t, 3, 3)

	for i := int64(1); i <= 10; i++ {
		_, err := tree.Insert(Int64Key(i), RID{PageID: int32(i)})
		require.NoError(t, err)
	}

	for i := int64(1); i <= 9; i++ {
		require.NoError(t, tree.Remove(Int64Key(i)))
	}

	for i := int64(1); i <= 9; i++ {
		_, found, err := tree.GetValue(Int64Key(i))
		require.NoError(t, err)
		require.False(t, found, "key %d should have been removed", i)
	}

	rid, found, err := tree.GetValue(Int64Key(10))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int32(10), rid.PageID)

	page, err := tree.pool.FetchPage(tree.rootPageID)
	require.NoError(t, err)
	h := rawHeader{page.Data()}
	require.Equal(t, leafPage, h.pageType())
	lv := newLeafView[Int64Key](page.Data(), tree.ks)
	require.Equal(t, 1, lv.size())
	tree.pool.UnpinPage(tree.rootPageID, false)

	require.NotEmpty(t, tp.deleted, "the leaf merges triggered by removing keys 1..9 must have deleted pages")

	reachable := reachablePages(t, tree)
	for id := range reachable {
		require.False(t, tp.deleted[id], "page %d is both reachable and deleted", id)
	}
	for id := range tp.allocated {
		require.True(t, reachable[id] || tp.deleted[id], "page %d was allocated but is neither reachable nor deleted: leaked", id)
	}
}
