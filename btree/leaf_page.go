package btree

import (
	"encoding/binary"

	"github.com/ABS-leo/bustub-lab/common"
)

// leafView interprets a raw page's bytes as a B+tree leaf: an ordered
// array of (key, RID) entries plus a next_leaf pointer chaining leaves
// in key order. Grounded on
// original_source/src/storage/page/b_plus_tree_leaf_page.cpp.
type leafView[K any] struct {
	rawHeader
	ks      KeySerializer[K]
	vs      RIDSerializer
	entrySz int
}

func newLeafView[K any](data []byte, ks KeySerializer[K]) leafView[K] {
	return leafView[K]{
		rawHeader: rawHeader{data: data},
		ks:        ks,
		vs:        RIDSerializer{},
		entrySz:   ks.Size() + ridSize,
	}
}

func (l leafView[K]) init(pageID, parentID int32, maxSize int) {
	l.setPageType(leafPage)
	l.setPageID(pageID)
	l.setParentID(parentID)
	l.setSize(0)
	l.setMaxSize(maxSize)
	l.setNextLeaf(common.InvalidPageID)
}

func (l leafView[K]) nextLeaf() int32 {
	return int32(binary.BigEndian.Uint32(l.data[headerSize:]))
}

func (l leafView[K]) setNextLeaf(id int32) {
	binary.BigEndian.PutUint32(l.data[headerSize:], uint32(id))
}

func (l leafView[K]) entryOffset(i int) int {
	return leafHeaderSize + i*l.entrySz
}

func (l leafView[K]) keyAt(i int) K {
	off := l.entryOffset(i)
	return l.ks.Deserialize(l.data[off : off+l.ks.Size()])
}

func (l leafView[K]) valueAt(i int) RID {
	off := l.entryOffset(i) + l.ks.Size()
	return l.vs.Deserialize(l.data[off : off+ridSize])
}

func (l leafView[K]) setAt(i int, key K, val RID) {
	off := l.entryOffset(i)
	l.ks.Serialize(key, l.data[off:off+l.ks.Size()])
	l.vs.Serialize(val, l.data[off+l.ks.Size():off+l.entrySz])
}

// insertAt shifts entries [i, size) right by one slot and writes
// (key, val) at i, growing size by one.
func (l leafView[K]) insertAt(i int, key K, val RID) {
	n := l.size()
	for j := n; j > i; j-- {
		l.copyEntry(j-1, j)
	}
	l.setAt(i, key, val)
	l.setSize(n + 1)
}

// removeAt shifts entries (i, size) left by one slot, shrinking size by
// one.
func (l leafView[K]) removeAt(i int) {
	n := l.size()
	for j := i; j < n-1; j++ {
		l.copyEntry(j+1, j)
	}
	l.setSize(n - 1)
}

func (l leafView[K]) copyEntry(from, to int) {
	src := l.entryOffset(from)
	dst := l.entryOffset(to)
	copy(l.data[dst:dst+l.entrySz], l.data[src:src+l.entrySz])
}

// findKeyIndex returns (index, found): the index of key if present, else
// the insertion point that keeps entries ascending.
func (l leafView[K]) findKeyIndex(key K, cmp Comparator[K]) (int, bool) {
	lo, hi := 0, l.size()
	for lo < hi {
		mid := lo + (hi-lo)/2
		c := cmp(l.keyAt(mid), key)
		switch {
		case c == 0:
			return mid, true
		case c < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return lo, false
}
