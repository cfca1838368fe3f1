// Package btree implements a persistent, ordered B+tree index over fixed-
// width comparable keys, built entirely on top of a buffer.Pool: every
// node lives behind the pool's pin/unpin contract, and the tree itself
// holds no page-level latches. Grounded on
// original_source/src/storage/index/b_plus_tree.cpp for the algorithms
// and on thetarby-helindb/btree/btree/pager.go for the Go pin-dispatch
// idiom (a page-type tag byte selects leafView vs internalView).
package btree

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ABS-leo/bustub-lab/buffer"
	"github.com/ABS-leo/bustub-lab/common"
	"github.com/ABS-leo/bustub-lab/txn"
)

// Options parameterises a Tree at construction.
type Options[K comparable] struct {
	Name            string
	LeafMaxSize     int
	InternalMaxSize int
	KeySerializer   KeySerializer[K]
	Comparator      Comparator[K]
	Logger          *zap.Logger
}

// Tree is a B+tree index. Insert and Remove serialise on opLock, so at
// most one mutating operation is in flight at a time; GetValue and the
// iterators take no lock and are not safe against a concurrent Insert or
// Remove.
type Tree[K comparable] struct {
	opLock sync.Mutex

	pool       buffer.Pool
	header     *HeaderPage
	name       string
	ks         KeySerializer[K]
	cmp        Comparator[K]
	leafMax    int
	internalMax int
	rootPageID int32
	log        *zap.Logger
}

// New creates a fresh, empty tree and registers it in the header page.
func New[K comparable](pool buffer.Pool, header *HeaderPage, opts Options[K]) (*Tree[K], error) {
	if opts.LeafMaxSize < 3 {
		return nil, fmt.Errorf("btree: leaf max size must be >= 3, got %d", opts.LeafMaxSize)
	}
	if opts.InternalMaxSize < 3 {
		return nil, fmt.Errorf("btree: internal max size must be >= 3, got %d", opts.InternalMaxSize)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if err := header.InsertRecord(opts.Name, common.InvalidPageID); err != nil {
		return nil, err
	}

	return &Tree[K]{
		pool:        pool,
		header:      header,
		name:        opts.Name,
		ks:          opts.KeySerializer,
		cmp:         opts.Comparator,
		leafMax:     opts.LeafMaxSize,
		internalMax: opts.InternalMaxSize,
		rootPageID:  common.InvalidPageID,
		log:         log,
	}, nil
}

// Open reattaches to a tree previously registered in the header page.
func Open[K comparable](pool buffer.Pool, header *HeaderPage, opts Options[K]) (*Tree[K], error) {
	root, ok, err := header.GetRootID(opts.Name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("btree: no index named %q", opts.Name)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Tree[K]{
		pool:        pool,
		header:      header,
		name:        opts.Name,
		ks:          opts.KeySerializer,
		cmp:         opts.Comparator,
		leafMax:     opts.LeafMaxSize,
		internalMax: opts.InternalMaxSize,
		rootPageID:  root,
		log:         log,
	}, nil
}

func (t *Tree[K]) IsEmpty() bool { return t.rootPageID == common.InvalidPageID }

func (t *Tree[K]) RootPageID() int32 { return t.rootPageID }

func ceilDiv(a, b int) int { return (a + b - 1) / b }

func (t *Tree[K]) leafMinSize() int     { return ceilDiv(t.leafMax-1, 2) }
func (t *Tree[K]) internalMinSize() int { return ceilDiv(t.internalMax, 2) }

// findLeafID descends from the root to the leaf that would hold key,
// unpinning every internal page on the way down and leaving the leaf
// itself unpinned too — callers re-fetch it to get a pinned handle for
// whatever they're about to do with it. This hand-over-hand unpinning
// needs no latch crabbing because at most one mutating operation is ever
// in flight (see Tree).
func (t *Tree[K]) findLeafID(key K) (int32, error) {
	curID := t.rootPageID
	for {
		page, err := t.pool.FetchPage(curID)
		if err != nil {
			return 0, err
		}
		h := rawHeader{page.Data()}
		if h.pageType() == leafPage {
			t.pool.UnpinPage(curID, false)
			return curID, nil
		}
		iv := newInternalView[K](page.Data(), t.ks)
		next := iv.lookup(key, t.cmp)
		t.pool.UnpinPage(curID, false)
		curID = next
	}
}

// GetValue returns the record id stored for key, if present.
func (t *Tree[K]) GetValue(key K) (RID, bool, error) {
	if t.IsEmpty() {
		return RID{}, false, nil
	}

	leafID, err := t.findLeafID(key)
	if err != nil {
		return RID{}, false, err
	}

	page, err := t.pool.FetchPage(leafID)
	if err != nil {
		return RID{}, false, err
	}
	lv := newLeafView[K](page.Data(), t.ks)
	idx, found := lv.findKeyIndex(key, t.cmp)

	var val RID
	if found {
		val = lv.valueAt(idx)
	}
	t.pool.UnpinPage(leafID, false)
	return val, found, nil
}

func (t *Tree[K]) setParent(childID, parentID int32) error {
	page, err := t.pool.FetchPage(childID)
	if err != nil {
		return err
	}
	h := rawHeader{page.Data()}
	h.setParentID(parentID)
	t.pool.UnpinPage(childID, true)
	return nil
}

// Insert adds key/val, splitting leaves and internal pages up the tree
// as needed. Returns false without modifying the tree if key is already
// present.
func (t *Tree[K]) Insert(key K, val RID) (bool, error) {
	t.opLock.Lock()
	defer t.opLock.Unlock()

	if t.IsEmpty() {
		page, err := t.pool.NewPage(txn.TODO())
		if err != nil {
			return false, err
		}
		lv := newLeafView[K](page.Data(), t.ks)
		lv.init(page.ID(), common.InvalidPageID, t.leafMax)
		lv.insertAt(0, key, val)

		t.rootPageID = page.ID()
		t.pool.UnpinPage(page.ID(), true)

		if err := t.header.UpdateRecord(t.name, t.rootPageID); err != nil {
			return false, err
		}
		return true, nil
	}

	leafID, err := t.findLeafID(key)
	if err != nil {
		return false, err
	}

	page, err := t.pool.FetchPage(leafID)
	if err != nil {
		return false, err
	}
	lv := newLeafView[K](page.Data(), t.ks)

	idx, found := lv.findKeyIndex(key, t.cmp)
	if found {
		t.pool.UnpinPage(leafID, false)
		return false, nil
	}

	lv.insertAt(idx, key, val)
	if lv.size() < t.leafMax {
		t.pool.UnpinPage(leafID, true)
		return true, nil
	}

	t.log.Debug("leaf overflow, splitting", zap.Int32("leaf_id", leafID))
	if err := t.splitLeafAndInsertIntoParent(leafID, lv); err != nil {
		// the key is already in the leaf and the leaf is dirty. If the
		// new leaf could not be allocated, this leaf is left over-full; if
		// the failure came while propagating the split upward, the pages
		// split so far stay as they are. Per spec.md §9 open question 4,
		// nothing is rolled back.
		t.pool.UnpinPage(leafID, true)
		return false, err
	}
	t.pool.UnpinPage(leafID, true)
	return true, nil
}

func (t *Tree[K]) splitLeafAndInsertIntoParent(leafID int32, lv leafView[K]) error {
	newPage, err := t.pool.NewPage(txn.TODO())
	if err != nil {
		return err
	}
	newLeaf := newLeafView[K](newPage.Data(), t.ks)
	newLeaf.init(newPage.ID(), lv.parentID(), t.leafMax)

	start := lv.size() / 2
	n := lv.size()
	for i := start; i < n; i++ {
		newLeaf.insertAt(newLeaf.size(), lv.keyAt(i), lv.valueAt(i))
	}
	lv.setSize(start)

	newLeaf.setNextLeaf(lv.nextLeaf())
	lv.setNextLeaf(newLeaf.pageID())

	splitKey := newLeaf.keyAt(0)
	newID := newPage.ID()
	t.pool.UnpinPage(newID, true)

	return t.insertIntoParent(leafID, splitKey, newID)
}

// insertIntoParent implements the spec's insert_into_parent: if old was
// the root, a new internal root is allocated; otherwise the split key
// is inserted into old's existing parent, splitting that parent too if
// it now overflows.
func (t *Tree[K]) insertIntoParent(oldID int32, splitKey K, newID int32) error {
	oldPage, err := t.pool.FetchPage(oldID)
	if err != nil {
		return err
	}
	parentID := rawHeader{oldPage.Data()}.parentID()
	t.pool.UnpinPage(oldID, false)

	if parentID == common.InvalidPageID {
		newRoot, err := t.pool.NewPage(txn.TODO())
		if err != nil {
			return err
		}
		rv := newInternalView[K](newRoot.Data(), t.ks)
		rv.init(newRoot.ID(), common.InvalidPageID, t.internalMax)

		var zero K
		rv.insertAt(0, zero, oldID)
		rv.insertAt(1, splitKey, newID)

		t.rootPageID = newRoot.ID()
		t.pool.UnpinPage(newRoot.ID(), true)

		if err := t.setParent(oldID, t.rootPageID); err != nil {
			return err
		}
		if err := t.setParent(newID, t.rootPageID); err != nil {
			return err
		}
		return t.header.UpdateRecord(t.name, t.rootPageID)
	}

	parentPage, err := t.pool.FetchPage(parentID)
	if err != nil {
		return err
	}
	pv := newInternalView[K](parentPage.Data(), t.ks)
	idx := pv.childIndexOf(oldID)
	pv.insertAt(idx+1, splitKey, newID)

	if err := t.setParent(newID, parentID); err != nil {
		t.pool.UnpinPage(parentID, true)
		return err
	}

	// an internal page holds up to internalMax children and splits only
	// once an insert takes it past that, so both halves of the split keep
	// at least internalMinSize children.
	if pv.size() <= t.internalMax {
		t.pool.UnpinPage(parentID, true)
		return nil
	}

	newSiblingID, promotedKey, err := t.splitInternal(pv)
	if err != nil {
		t.pool.UnpinPage(parentID, true)
		return err
	}
	t.pool.UnpinPage(parentID, true)
	return t.insertIntoParent(parentID, promotedKey, newSiblingID)
}

// splitInternal moves the upper half of pv's entries (starting at
// max(1, size/2), so slot 0's leftmost-child convention survives in
// both halves) into a freshly allocated page, re-parenting every moved
// child. The key at the split point is promoted to the caller, not
// retained in either half.
func (t *Tree[K]) splitInternal(pv internalView[K]) (int32, K, error) {
	var zero K
	newPage, err := t.pool.NewPage(txn.TODO())
	if err != nil {
		return 0, zero, err
	}
	nv := newInternalView[K](newPage.Data(), t.ks)
	nv.init(newPage.ID(), pv.parentID(), t.internalMax)

	start := common.Max(1, pv.size()/2)
	splitKey := pv.keyAt(start)

	n := pv.size()
	for i := start; i < n; i++ {
		child := pv.childAt(i)
		nv.insertAt(nv.size(), pv.keyAt(i), child)
		if err := t.setParent(child, newPage.ID()); err != nil {
			return 0, zero, err
		}
	}
	pv.setSize(start)

	newID := newPage.ID()
	t.pool.UnpinPage(newID, true)
	return newID, splitKey, nil
}

// Remove deletes key if present; a no-op otherwise.
func (t *Tree[K]) Remove(key K) error {
	t.opLock.Lock()
	defer t.opLock.Unlock()

	if t.IsEmpty() {
		return nil
	}

	leafID, err := t.findLeafID(key)
	if err != nil {
		return err
	}

	page, err := t.pool.FetchPage(leafID)
	if err != nil {
		return err
	}
	lv := newLeafView[K](page.Data(), t.ks)
	idx, found := lv.findKeyIndex(key, t.cmp)
	if !found {
		t.pool.UnpinPage(leafID, false)
		return nil
	}

	lv.removeAt(idx)
	size := lv.size()
	t.pool.UnpinPage(leafID, true)

	if size >= t.leafMinSize() {
		return nil
	}
	return t.coalesceOrRedistributeLeaf(leafID)
}
