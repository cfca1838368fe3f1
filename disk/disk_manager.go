// Package disk treats the page store as an abstract byte-addressable
// collaborator: it only moves fixed-size pages to and from stable
// storage. It knows nothing about page contents, frames, or pinning.
package disk

import (
	"fmt"
	"os"
	"sync"

	"github.com/ABS-leo/bustub-lab/common"
)

// Manager is consumed by the buffer pool on cache miss (ReadPage) and on
// dirty eviction or explicit flush (WritePage).
type Manager interface {
	ReadPage(pageID int32, dst []byte) error
	WritePage(pageID int32, src []byte) error
	Close() error
}

// FileManager is a real file-backed Manager. Page id i lives at byte
// offset i*PageSize.
type FileManager struct {
	mu   sync.Mutex
	file *os.File
}

var _ Manager = &FileManager{}

func NewFileManager(path string) (*FileManager, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("disk: open %s: %w", path, err)
	}
	return &FileManager{file: f}, nil
}

func (d *FileManager) ReadPage(pageID int32, dst []byte) error {
	if len(dst) != common.PageSize {
		return fmt.Errorf("disk: read buffer must be %d bytes, got %d", common.PageSize, len(dst))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	off := int64(pageID) * int64(common.PageSize)
	n, err := d.file.ReadAt(dst, off)
	if err != nil {
		return fmt.Errorf("disk: read page %d: %w", pageID, err)
	}
	if n != common.PageSize {
		return fmt.Errorf("disk: short read for page %d: got %d bytes", pageID, n)
	}
	return nil
}

func (d *FileManager) WritePage(pageID int32, src []byte) error {
	if len(src) != common.PageSize {
		return fmt.Errorf("disk: write buffer must be %d bytes, got %d", common.PageSize, len(src))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	off := int64(pageID) * int64(common.PageSize)
	n, err := d.file.WriteAt(src, off)
	if err != nil {
		return fmt.Errorf("disk: write page %d: %w", pageID, err)
	}
	if n != common.PageSize {
		return fmt.Errorf("disk: short write for page %d: wrote %d bytes", pageID, n)
	}
	return nil
}

func (d *FileManager) Close() error {
	return d.file.Close()
}

// MemManager is an in-memory Manager used by tests. It records every
// WritePage call so tests can assert on write ordering (Scenario C: a
// dirty eviction must write through before the frame is reused).
type MemManager struct {
	mu     sync.Mutex
	pages  map[int32][]byte
	Writes []int32
}

var _ Manager = &MemManager{}

func NewMemManager() *MemManager {
	return &MemManager{pages: map[int32][]byte{}}
}

func (m *MemManager) ReadPage(pageID int32, dst []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.pages[pageID]
	if !ok {
		// an unwritten page reads back as zeroes, matching a sparse file.
		for i := range dst {
			dst[i] = 0
		}
		return nil
	}
	copy(dst, data)
	return nil
}

func (m *MemManager) WritePage(pageID int32, src []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf := make([]byte, common.PageSize)
	copy(buf, src)
	m.pages[pageID] = buf
	m.Writes = append(m.Writes, pageID)
	return nil
}

func (m *MemManager) Close() error { return nil }
