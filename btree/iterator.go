package btree

import (
	"github.com/ABS-leo/bustub-lab/buffer"
	"github.com/ABS-leo/bustub-lab/common"
)

// Iterator walks a tree's leaf chain in ascending key order. It owns a
// single pinned leaf page and an index into it; advancing past a leaf's
// last entry unpins it and fetches the next one via the leaf chain, so
// callers never need to know the tree's shape. An abandoned iterator
// leaks its pin unless Close is called.
type Iterator[K comparable] struct {
	tree   *Tree[K]
	leafID int32
	page   *buffer.Page
	idx    int
	atEnd  bool
}

// Begin returns an iterator positioned at the tree's first entry.
func (t *Tree[K]) Begin() (*Iterator[K], error) {
	if t.IsEmpty() {
		return &Iterator[K]{tree: t, atEnd: true}, nil
	}

	curID := t.rootPageID
	for {
		page, err := t.pool.FetchPage(curID)
		if err != nil {
			return nil, err
		}
		h := rawHeader{page.Data()}
		if h.pageType() == leafPage {
			return &Iterator[K]{tree: t, leafID: curID, page: page, idx: 0}, nil
		}
		iv := newInternalView[K](page.Data(), t.ks)
		next := iv.childAt(0)
		t.pool.UnpinPage(curID, false)
		curID = next
	}
}

// BeginAt returns an iterator positioned at the first entry >= key.
func (t *Tree[K]) BeginAt(key K) (*Iterator[K], error) {
	if t.IsEmpty() {
		return &Iterator[K]{tree: t, atEnd: true}, nil
	}

	leafID, err := t.findLeafID(key)
	if err != nil {
		return nil, err
	}
	page, err := t.pool.FetchPage(leafID)
	if err != nil {
		return nil, err
	}
	lv := newLeafView[K](page.Data(), t.ks)
	idx, _ := lv.findKeyIndex(key, t.cmp)

	it := &Iterator[K]{tree: t, leafID: leafID, page: page, idx: idx}
	if idx >= lv.size() {
		return it.advance(lv.nextLeaf())
	}
	return it, nil
}

// advance unpins the iterator's current leaf and moves to leaf nextID at
// index 0, or to the end sentinel if nextID is invalid.
func (it *Iterator[K]) advance(nextID int32) (*Iterator[K], error) {
	it.tree.pool.UnpinPage(it.leafID, false)
	if nextID == common.InvalidPageID {
		it.atEnd = true
		it.leafID = common.InvalidPageID
		it.page = nil
		return it, nil
	}

	page, err := it.tree.pool.FetchPage(nextID)
	if err != nil {
		return nil, err
	}
	it.leafID = nextID
	it.page = page
	it.idx = 0
	return it, nil
}

// IsEnd reports whether the iterator has run off the last leaf.
func (it *Iterator[K]) IsEnd() bool { return it.atEnd }

// Next advances to the following entry, panicking if already at the end.
func (it *Iterator[K]) Next() error {
	if it.atEnd {
		panic("btree: Next called on an exhausted iterator")
	}

	lv := newLeafView[K](it.page.Data(), it.tree.ks)
	it.idx++
	if it.idx < lv.size() {
		return nil
	}

	_, err := it.advance(lv.nextLeaf())
	return err
}

// Key returns the entry the iterator is positioned at.
func (it *Iterator[K]) Key() K {
	if it.atEnd {
		panic("btree: Key called on an exhausted iterator")
	}
	lv := newLeafView[K](it.page.Data(), it.tree.ks)
	return lv.keyAt(it.idx)
}

// Value returns the record id the iterator is positioned at.
func (it *Iterator[K]) Value() RID {
	if it.atEnd {
		panic("btree: Value called on an exhausted iterator")
	}
	lv := newLeafView[K](it.page.Data(), it.tree.ks)
	return lv.valueAt(it.idx)
}

// Equal reports whether it and other are at the same position: both at
// the end, or pinned on the same leaf at the same index.
func (it *Iterator[K]) Equal(other *Iterator[K]) bool {
	if it.atEnd || other.atEnd {
		return it.atEnd == other.atEnd
	}
	return it.leafID == other.leafID && it.idx == other.idx
}

// Close releases the iterator's pinned leaf, if any. Safe to call more
// than once or on an already-exhausted iterator.
func (it *Iterator[K]) Close() {
	if it.atEnd || it.page == nil {
		return
	}
	it.tree.pool.UnpinPage(it.leafID, false)
	it.page = nil
	it.atEnd = true
}
