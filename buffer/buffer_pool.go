// Package buffer owns the fixed-size frame array that sits between the
// B+tree and the disk manager: pinning, the LRU-K eviction policy, and
// the extendible-hash page directory that maps page ids to frames.
package buffer

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ABS-leo/bustub-lab/common"
	"github.com/ABS-leo/bustub-lab/disk"
	"github.com/ABS-leo/bustub-lab/hash"
	"github.com/ABS-leo/bustub-lab/txn"
)

// Pool is the contract the B+tree (and any other page-oriented caller)
// consumes. Every FetchPage/NewPage must be paired with exactly one
// UnpinPage, marking dirty iff the caller mutated the page's bytes.
type Pool interface {
	NewPage(t txn.Txn) (*Page, error)
	FetchPage(pageID int32) (*Page, error)
	UnpinPage(pageID int32, isDirty bool) bool
	FlushPage(pageID int32) bool
	FlushAllPages()
	DeletePage(t txn.Txn, pageID int32) bool
}

// BufferPool implements Pool over a fixed array of frames, a directory
// (an extendible hash table keyed by page id), and an LRU-K replacer.
// A single monitor lock serialises every public operation.
//
// Grounded on thetarby-helindb/buffer/buffer_pool.go for the free-
// list-first / evict-otherwise control flow, simplified per SPEC_FULL.md
// §4.3: no WAL log records, no on-disk free list page — the log manager
// and header-page bookkeeping those depend on are out of this core's
// scope.
type BufferPool struct {
	mu sync.Mutex

	poolSize  int
	frames    []*Page
	directory *hash.Table[int32, int32] // page id -> frame id
	freeList  []int32
	replacer  *LRUKReplacer
	disk      disk.Manager
	nextPage  int32
	log       *zap.Logger
}

var _ Pool = &BufferPool{}

const replacerK = 2

// New builds a pool of poolSize frames backed by dm. The internal page
// table uses hash buckets of 4 entries; the bucket size has no bearing on
// correctness, only on how often that directory itself splits.
func New(poolSize int, dm disk.Manager, log *zap.Logger) *BufferPool {
	if log == nil {
		log = zap.NewNop()
	}

	free := make([]int32, poolSize)
	frames := make([]*Page, poolSize)
	for i := 0; i < poolSize; i++ {
		free[i] = int32(i)
		frames[i] = newPage()
	}

	return &BufferPool{
		poolSize:  poolSize,
		frames:    frames,
		directory: hash.New[int32, int32](4),
		freeList:  free,
		replacer:  NewLRUKReplacer(poolSize, replacerK),
		disk:      dm,
		log:       log,
	}
}

// NewWithReservedHeaderPage builds a pool the same way New does, but
// reserves page id 0 for the caller's header page, matching the
// teacher's own disk manager convention (disk/disk_manager.go starts
// lastPageId at 1, "first page is reserved").
func NewWithReservedHeaderPage(poolSize int, dm disk.Manager, log *zap.Logger) *BufferPool {
	bp := New(poolSize, dm, log)
	bp.nextPage = 1
	return bp
}

// NewPage allocates a fresh page id, places it in a frame (free list
// first, else eviction), pins it, zeroes its memory, and registers it in
// the directory. Returns an error when no frame is obtainable.
func (p *BufferPool) NewPage(t txn.Txn) (*Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameID, err := p.obtainFrame()
	if err != nil {
		return nil, err
	}

	id := p.nextPage
	p.nextPage++

	page := p.frames[frameID]
	page.reset(id)
	page.pinCount = 1

	p.directory.Insert(id, frameID)
	p.replacer.RecordAccess(frameID)
	p.replacer.SetEvictable(frameID, false)

	return page, nil
}

// FetchPage returns the page for pageID, reading it from disk on a cache
// miss. Returns an error when no frame is obtainable or the disk read
// fails.
func (p *BufferPool) FetchPage(pageID int32) (*Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if frameID, ok := p.directory.Find(pageID); ok {
		page := p.frames[frameID]
		page.pinCount++
		p.replacer.RecordAccess(frameID)
		p.replacer.SetEvictable(frameID, false)
		return page, nil
	}

	frameID, err := p.obtainFrame()
	if err != nil {
		return nil, err
	}

	page := p.frames[frameID]
	page.reset(pageID)
	if err := p.disk.ReadPage(pageID, page.data); err != nil {
		p.log.Warn("fetch: disk read failed", zap.Int32("page_id", pageID), zap.Error(err))
		p.freeList = append(p.freeList, frameID)
		return nil, fmt.Errorf("buffer: fetch page %d: %w", pageID, err)
	}

	page.pinCount = 1
	p.directory.Insert(pageID, frameID)
	p.replacer.RecordAccess(frameID)
	p.replacer.SetEvictable(frameID, false)

	return page, nil
}

// UnpinPage decrements pageID's pin count and OR-ins isDirty (dirty is
// sticky until flushed). When the pin count reaches zero the frame
// becomes evictable. Returns false if the page is not resident or
// already unpinned.
func (p *BufferPool) UnpinPage(pageID int32, isDirty bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameID, ok := p.directory.Find(pageID)
	if !ok {
		return false
	}

	page := p.frames[frameID]
	if page.pinCount <= 0 {
		return false
	}

	if isDirty {
		page.dirty = true
	}

	page.pinCount--
	if page.pinCount == 0 {
		p.replacer.SetEvictable(frameID, true)
	}
	return true
}

// FlushPage writes pageID to disk unconditionally and clears its dirty
// flag. Returns false if the page is not resident.
func (p *BufferPool) FlushPage(pageID int32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushLocked(pageID)
}

func (p *BufferPool) flushLocked(pageID int32) bool {
	frameID, ok := p.directory.Find(pageID)
	if !ok {
		return false
	}

	page := p.frames[frameID]
	if err := p.disk.WritePage(pageID, page.data); err != nil {
		p.log.Warn("flush: disk write failed", zap.Int32("page_id", pageID), zap.Error(err))
		return false
	}
	page.dirty = false
	return true
}

// FlushAllPages flushes every resident dirty page.
func (p *BufferPool) FlushAllPages() {
	p.mu.Lock()
	dirty := make([]int32, 0, p.poolSize)
	for _, page := range p.frames {
		if page.id != common.InvalidPageID && page.dirty {
			dirty = append(dirty, page.id)
		}
	}
	p.mu.Unlock()

	for _, id := range dirty {
		p.FlushPage(id)
	}
}

// DeletePage removes pageID from the pool and returns its frame to the
// free list. Returns true if the page was not resident (nothing to do);
// returns false without doing anything if the page is pinned.
func (p *BufferPool) DeletePage(t txn.Txn, pageID int32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameID, ok := p.directory.Find(pageID)
	if !ok {
		return true
	}

	page := p.frames[frameID]
	if page.pinCount > 0 {
		return false
	}

	p.directory.Remove(pageID)
	p.replacer.Remove(frameID)
	page.reset(common.InvalidPageID)
	p.freeList = append(p.freeList, frameID)
	return true
}

// obtainFrame returns a free frame id, evicting a victim (flushing it
// first if dirty) when none is free. Must be called with p.mu held.
func (p *BufferPool) obtainFrame() (int32, error) {
	if n := len(p.freeList); n > 0 {
		frameID := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return frameID, nil
	}

	frameID, ok := p.replacer.Evict()
	if !ok {
		// spec.md §7: errors are never logged by the core; reporting is
		// delegated to the caller.
		return 0, common.ErrPoolExhausted
	}

	victim := p.frames[frameID]
	if victim.dirty {
		if err := p.disk.WritePage(victim.id, victim.data); err != nil {
			p.log.Error("eviction: disk write failed", zap.Int32("page_id", victim.id), zap.Error(err))
			return 0, fmt.Errorf("buffer: flush victim page %d: %w", victim.id, err)
		}
		victim.dirty = false
	}

	p.directory.Remove(victim.id)
	return frameID, nil
}

// GetFreeFrameCount reports frames not currently holding a resident page
// (free list length), used by invariant-checking tests.
func (p *BufferPool) GetFreeFrameCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.freeList)
}

// GetEvictableCount reports the replacer's tracked-evictable count.
func (p *BufferPool) GetEvictableCount() int {
	return p.replacer.Size()
}
