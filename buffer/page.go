package buffer

import (
	"github.com/ABS-leo/bustub-lab/common"
)

// Page is a fixed-size byte array plus the metadata the buffer pool needs
// to track its residence: the page id it currently holds (or InvalidPageID
// while the frame is free), a pin count, and a dirty flag. The data bytes
// are exactly common.PageSize long and are round-tripped byte-for-byte
// through the disk manager.
type Page struct {
	id       int32
	pinCount int
	dirty    bool
	data     []byte
}

func newPage() *Page {
	return &Page{
		id:   common.InvalidPageID,
		data: make([]byte, common.PageSize),
	}
}

// Data returns the page's raw bytes. The caller must hold the page pinned
// for the duration of any read or write into the returned slice.
func (p *Page) Data() []byte { return p.data }

func (p *Page) ID() int32 { return p.id }

func (p *Page) PinCount() int { return p.pinCount }

func (p *Page) IsDirty() bool { return p.dirty }

// reset clears a frame before it is reused for a different page id.
func (p *Page) reset(id int32) {
	p.id = id
	p.pinCount = 0
	p.dirty = false
	for i := range p.data {
		p.data[i] = 0
	}
}
