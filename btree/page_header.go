package btree

import "encoding/binary"

// pageType tags the byte at a fixed offset of a page's raw bytes, letting
// a fetched page be dispatched to a leaf or internal view without a
// separate lookup — the same trick thetarby-helindb/btree/btree/pager.go
// uses (ReadPersistentNodeHeader(bpage.GetAt(0)).IsLeaf) to choose
// between VarKeyLeafNode and VarKeyInternalNode.
type pageType byte

const (
	invalidPage  pageType = 0
	leafPage     pageType = 1
	internalPage pageType = 2
)

// Shared header layout, common to leaf and internal pages:
//
//	offset 0:  page type   (1 byte)
//	offset 1:  page id     (4 bytes, int32)
//	offset 5:  parent id   (4 bytes, int32)
//	offset 9:  size        (4 bytes, int32, number of live entries)
//	offset 13: max size    (4 bytes, int32)
const headerSize = 17

// Leaf pages append one more field after the shared header:
//
//	offset 17: next leaf id (4 bytes, int32)
const leafHeaderSize = headerSize + 4

type rawHeader struct{ data []byte }

func (h rawHeader) pageType() pageType  { return pageType(h.data[0]) }
func (h rawHeader) setPageType(t pageType) { h.data[0] = byte(t) }

func (h rawHeader) pageID() int32 { return int32(binary.BigEndian.Uint32(h.data[1:])) }
func (h rawHeader) setPageID(id int32) {
	binary.BigEndian.PutUint32(h.data[1:], uint32(id))
}

func (h rawHeader) parentID() int32 { return int32(binary.BigEndian.Uint32(h.data[5:])) }
func (h rawHeader) setParentID(id int32) {
	binary.BigEndian.PutUint32(h.data[5:], uint32(id))
}

func (h rawHeader) size() int { return int(binary.BigEndian.Uint32(h.data[9:])) }
func (h rawHeader) setSize(n int) {
	binary.BigEndian.PutUint32(h.data[9:], uint32(n))
}

func (h rawHeader) maxSize() int { return int(binary.BigEndian.Uint32(h.data[13:])) }
func (h rawHeader) setMaxSize(n int) {
	binary.BigEndian.PutUint32(h.data[13:], uint32(n))
}
