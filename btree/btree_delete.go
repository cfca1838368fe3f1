package btree

import (
	"go.uber.org/zap"

	"github.com/ABS-leo/bustub-lab/common"
	"github.com/ABS-leo/bustub-lab/txn"
)

// coalesceOrRedistributeLeaf handles an underflowed leaf: if it's the
// root, adjust_root decides whether that's even a problem; otherwise it
// either merges into a sibling or borrows one entry from it. Grounded
// on original_source/src/storage/index/b_plus_tree.cpp's
// CoalesceOrRedistribute/Coalesce/Redistribute trio.
func (t *Tree[K]) coalesceOrRedistributeLeaf(nodeID int32) error {
	if nodeID == t.rootPageID {
		return t.adjustRoot()
	}

	nodePage, err := t.pool.FetchPage(nodeID)
	if err != nil {
		return err
	}
	parentID := rawHeader{nodePage.Data()}.parentID()
	t.pool.UnpinPage(nodeID, false)

	parentPage, err := t.pool.FetchPage(parentID)
	if err != nil {
		return err
	}
	pv := newInternalView[K](parentPage.Data(), t.ks)
	idx := pv.childIndexOf(nodeID)

	isPrev := idx > 0
	siblingIdx := idx + 1
	if isPrev {
		siblingIdx = idx - 1
	}
	siblingID := pv.childAt(siblingIdx)

	nodePage, err = t.pool.FetchPage(nodeID)
	if err != nil {
		t.pool.UnpinPage(parentID, false)
		return err
	}
	nv := newLeafView[K](nodePage.Data(), t.ks)

	siblingPage, err := t.pool.FetchPage(siblingID)
	if err != nil {
		t.pool.UnpinPage(nodeID, false)
		t.pool.UnpinPage(parentID, false)
		return err
	}
	sv := newLeafView[K](siblingPage.Data(), t.ks)

	// leaf capacity for the merge test is leafMax-1: a leaf page holds at
	// most leafMax-1 live entries (see leafMinSize, which derives from
	// the same bound).
	capacity := t.leafMax - 1
	if nv.size()+sv.size() <= capacity {
		leftID, left, rightID, right, sepIdx := nodeID, nv, siblingID, sv, siblingIdx
		if isPrev {
			leftID, left, rightID, right, sepIdx = siblingID, sv, nodeID, nv, idx
		}

		n := right.size()
		for i := 0; i < n; i++ {
			left.insertAt(left.size(), right.keyAt(i), right.valueAt(i))
		}
		left.setNextLeaf(right.nextLeaf())
		pv.removeAt(sepIdx)

		t.pool.UnpinPage(leftID, true)
		t.pool.UnpinPage(rightID, true)
		t.pool.DeletePage(txn.TODO(), rightID)
		t.log.Debug("merged leaf into sibling", zap.Int32("kept", leftID), zap.Int32("deleted", rightID))

		return t.afterParentShrink(parentID, pv.size())
	}

	// redistribute: borrow one entry from the sibling's near end.
	if isPrev {
		last := sv.size() - 1
		key, val := sv.keyAt(last), sv.valueAt(last)
		sv.removeAt(last)
		nv.insertAt(0, key, val)
		pv.setKeyAt(idx, nv.keyAt(0))
	} else {
		key, val := sv.keyAt(0), sv.valueAt(0)
		sv.removeAt(0)
		nv.insertAt(nv.size(), key, val)
		pv.setKeyAt(siblingIdx, sv.keyAt(0))
	}

	t.pool.UnpinPage(nodeID, true)
	t.pool.UnpinPage(siblingID, true)
	t.pool.UnpinPage(parentID, true)
	return nil
}

// coalesceOrRedistributeInternal is coalesceOrRedistributeLeaf's sibling
// for internal pages, reached only by underflow recursing up from a
// child merge. Entry 0's key carries no separator, so merging pulls the
// parent's separator down as the first promoted key, matching
// Coalesce()'s internal-node branch in the source.
func (t *Tree[K]) coalesceOrRedistributeInternal(nodeID int32) error {
	if nodeID == t.rootPageID {
		return t.adjustRoot()
	}

	nodePage, err := t.pool.FetchPage(nodeID)
	if err != nil {
		return err
	}
	parentID := rawHeader{nodePage.Data()}.parentID()
	t.pool.UnpinPage(nodeID, false)

	parentPage, err := t.pool.FetchPage(parentID)
	if err != nil {
		return err
	}
	pv := newInternalView[K](parentPage.Data(), t.ks)
	idx := pv.childIndexOf(nodeID)

	isPrev := idx > 0
	siblingIdx := idx + 1
	if isPrev {
		siblingIdx = idx - 1
	}
	siblingID := pv.childAt(siblingIdx)

	nodePage, err = t.pool.FetchPage(nodeID)
	if err != nil {
		t.pool.UnpinPage(parentID, false)
		return err
	}
	nv := newInternalView[K](nodePage.Data(), t.ks)

	siblingPage, err := t.pool.FetchPage(siblingID)
	if err != nil {
		t.pool.UnpinPage(nodeID, false)
		t.pool.UnpinPage(parentID, false)
		return err
	}
	sv := newInternalView[K](siblingPage.Data(), t.ks)

	// internal capacity for the merge test is internalMax: an internal page
	// holds up to internalMax children (see insertIntoParent).
	capacity := t.internalMax
	if nv.size()+sv.size() <= capacity {
		leftID, left, rightID, right, sepIdx := nodeID, nv, siblingID, sv, siblingIdx
		if isPrev {
			leftID, left, rightID, right, sepIdx = siblingID, sv, nodeID, nv, idx
		}

		sepKey := pv.keyAt(sepIdx)
		firstChild := right.childAt(0)
		left.insertAt(left.size(), sepKey, firstChild)
		if err := t.setParent(firstChild, leftID); err != nil {
			return err
		}

		n := right.size()
		for i := 1; i < n; i++ {
			child := right.childAt(i)
			left.insertAt(left.size(), right.keyAt(i), child)
			if err := t.setParent(child, leftID); err != nil {
				return err
			}
		}

		pv.removeAt(sepIdx)

		t.pool.UnpinPage(leftID, true)
		t.pool.UnpinPage(rightID, true)
		t.pool.DeletePage(txn.TODO(), rightID)

		return t.afterParentShrink(parentID, pv.size())
	}

	// redistribute: internal-node borrowing, implemented here rather than
	// left as a leaf-only special case (see SPEC_FULL.md's resolution of
	// the source's redistribution gap). Borrowing rotates the parent
	// separator through the borrowed child, since slot 0's key is never
	// meaningful on either side.
	var zero K
	if isPrev {
		last := sv.size() - 1
		borrowed := sv.childAt(last)
		newSep := sv.keyAt(last)
		oldSep := pv.keyAt(idx)
		sv.removeAt(last)

		nv.insertAt(0, zero, borrowed)
		nv.setKeyAt(1, oldSep)
		if err := t.setParent(borrowed, nodeID); err != nil {
			return err
		}

		pv.setKeyAt(idx, newSep)
	} else {
		borrowed := sv.childAt(0)
		oldSep := pv.keyAt(siblingIdx)
		newSep := sv.keyAt(1)
		sv.removeAt(0)

		nv.insertAt(nv.size(), oldSep, borrowed)
		if err := t.setParent(borrowed, nodeID); err != nil {
			return err
		}

		pv.setKeyAt(siblingIdx, newSep)
	}

	t.pool.UnpinPage(nodeID, true)
	t.pool.UnpinPage(siblingID, true)
	t.pool.UnpinPage(parentID, true)
	return nil
}

// afterParentShrink unpins parentID and, if removing a separator left it
// underflowed, recurses into its coalesce/redistribute. A root parent is
// never coalesced; it goes to adjust_root instead, which replaces a root
// left with a single child by that child and leaves any larger root as
// it is.
func (t *Tree[K]) afterParentShrink(parentID int32, parentSize int) error {
	t.pool.UnpinPage(parentID, true)
	if parentID == t.rootPageID {
		return t.adjustRoot()
	}
	if parentSize < t.internalMinSize() {
		return t.coalesceOrRedistributeInternal(parentID)
	}
	return nil
}

// adjustRoot collapses a root that has become trivial: an empty leaf
// root empties the whole tree, and a size-1 internal root is replaced
// by its sole child.
func (t *Tree[K]) adjustRoot() error {
	page, err := t.pool.FetchPage(t.rootPageID)
	if err != nil {
		return err
	}
	h := rawHeader{page.Data()}

	if h.pageType() == leafPage {
		lv := newLeafView[K](page.Data(), t.ks)
		if lv.size() > 0 {
			t.pool.UnpinPage(t.rootPageID, false)
			return nil
		}
		t.pool.UnpinPage(t.rootPageID, false)
		oldRoot := t.rootPageID
		t.rootPageID = common.InvalidPageID
		t.pool.DeletePage(txn.TODO(), oldRoot)
		return t.header.UpdateRecord(t.name, t.rootPageID)
	}

	iv := newInternalView[K](page.Data(), t.ks)
	if iv.size() > 1 {
		t.pool.UnpinPage(t.rootPageID, false)
		return nil
	}

	child := iv.childAt(0)
	t.pool.UnpinPage(t.rootPageID, false)
	oldRoot := t.rootPageID
	t.rootPageID = child

	if err := t.setParent(child, common.InvalidPageID); err != nil {
		return err
	}
	t.pool.DeletePage(txn.TODO(), oldRoot)
	return t.header.UpdateRecord(t.name, t.rootPageID)
}
