package btree

import (
	"encoding/binary"
)

// internalView interprets a raw page's bytes as a B+tree internal page:
// an ordered array of (key, child_page_id) entries. Entry 0's key is
// invalid and carries only the leftmost child pointer — the standard
// "N+1 children, N separator keys" layout. Grounded on
// original_source/src/storage/page/b_plus_tree_internal_page.cpp.
type internalView[K any] struct {
	rawHeader
	ks      KeySerializer[K]
	entrySz int
}

func newInternalView[K any](data []byte, ks KeySerializer[K]) internalView[K] {
	return internalView[K]{
		rawHeader: rawHeader{data: data},
		ks:        ks,
		entrySz:   ks.Size() + 4,
	}
}

func (n internalView[K]) init(pageID, parentID int32, maxSize int) {
	n.setPageType(internalPage)
	n.setPageID(pageID)
	n.setParentID(parentID)
	n.setSize(0)
	n.setMaxSize(maxSize)
}

func (n internalView[K]) entryOffset(i int) int {
	return headerSize + i*n.entrySz
}

func (n internalView[K]) keyAt(i int) K {
	off := n.entryOffset(i)
	return n.ks.Deserialize(n.data[off : off+n.ks.Size()])
}

func (n internalView[K]) setKeyAt(i int, key K) {
	off := n.entryOffset(i)
	n.ks.Serialize(key, n.data[off:off+n.ks.Size()])
}

func (n internalView[K]) childAt(i int) int32 {
	off := n.entryOffset(i) + n.ks.Size()
	return int32(binary.BigEndian.Uint32(n.data[off : off+4]))
}

func (n internalView[K]) setChildAt(i int, child int32) {
	off := n.entryOffset(i) + n.ks.Size()
	binary.BigEndian.PutUint32(n.data[off:off+4], uint32(child))
}

func (n internalView[K]) setAt(i int, key K, child int32) {
	n.setKeyAt(i, key)
	n.setChildAt(i, child)
}

func (n internalView[K]) copyEntry(from, to int) {
	src := n.entryOffset(from)
	dst := n.entryOffset(to)
	copy(n.data[dst:dst+n.entrySz], n.data[src:src+n.entrySz])
}

// insertAt shifts entries [i, size) right and writes (key, child) at i.
func (n internalView[K]) insertAt(i int, key K, child int32) {
	sz := n.size()
	for j := sz; j > i; j-- {
		n.copyEntry(j-1, j)
	}
	n.setAt(i, key, child)
	n.setSize(sz + 1)
}

// removeAt shifts entries (i, size) left, shrinking size by one.
func (n internalView[K]) removeAt(i int) {
	sz := n.size()
	for j := i; j < sz-1; j++ {
		n.copyEntry(j+1, j)
	}
	n.setSize(sz - 1)
}

// childIndexOf returns the index of the entry pointing at childID, or -1.
func (n internalView[K]) childIndexOf(childID int32) int {
	for i := 0; i < n.size(); i++ {
		if n.childAt(i) == childID {
			return i
		}
	}
	return -1
}

// lookup finds the child to descend into for key: the largest separator
// K_i with K_i <= key (entry 0's key is never compared against — it is
// always the fallback leftmost child).
func (n internalView[K]) lookup(key K, cmp Comparator[K]) int32 {
	target := 0
	for i := 1; i < n.size(); i++ {
		if cmp(n.keyAt(i), key) <= 0 {
			target = i
		} else {
			break
		}
	}
	return n.childAt(target)
}
