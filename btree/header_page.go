package btree

import (
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"

	"github.com/ABS-leo/bustub-lab/buffer"
	"github.com/ABS-leo/bustub-lab/common"
)

// HeaderPageID is the reserved page id holding the index-name -> root
// page-id map. A real catalog would allocate this page dynamically and
// record its id elsewhere; this core reserves page 0 for it, since the
// catalog itself is out of scope (spec.md §1).
const HeaderPageID int32 = 0

// HeaderPage is the minimal concrete form of the external "header page"
// collaborator spec.md §6 names but treats opaquely: a record of index
// name -> root page id that every tree consults on open and updates on
// every root change. Grounded on the teacher's own compress-then-write
// idiom in disk/wal/bwal_log_serde.go (snappy.Encode/Decode around a
// serialized record), applied here to the root-pointer record instead
// of a WAL record since the WAL stays out of scope.
type HeaderPage struct {
	pool buffer.Pool
}

func NewHeaderPage(pool buffer.Pool) *HeaderPage {
	return &HeaderPage{pool: pool}
}

// Init writes an empty header page at HeaderPageID. Call once, when a
// fresh database file is created.
func (h *HeaderPage) Init() error {
	return h.write(map[string]int32{})
}

// InsertRecord adds name -> root, failing if name already has a record.
func (h *HeaderPage) InsertRecord(name string, root int32) error {
	m, err := h.read()
	if err != nil {
		return err
	}
	if _, ok := m[name]; ok {
		return fmt.Errorf("header page: index %q already registered", name)
	}
	m[name] = root
	return h.write(m)
}

// UpdateRecord overwrites name's root page id.
func (h *HeaderPage) UpdateRecord(name string, root int32) error {
	m, err := h.read()
	if err != nil {
		return err
	}
	m[name] = root
	return h.write(m)
}

// GetRootID returns the root page id registered for name.
func (h *HeaderPage) GetRootID(name string) (int32, bool, error) {
	m, err := h.read()
	if err != nil {
		return 0, false, err
	}
	root, ok := m[name]
	return root, ok, nil
}

func (h *HeaderPage) read() (map[string]int32, error) {
	page, err := h.pool.FetchPage(HeaderPageID)
	if err != nil {
		return nil, fmt.Errorf("header page: fetch: %w", err)
	}
	defer h.pool.UnpinPage(HeaderPageID, false)

	data := page.Data()
	length := int(data[0])<<8 | int(data[1])
	if length == 0 {
		return map[string]int32{}, nil
	}

	decoded, err := snappy.Decode(nil, data[2:2+length])
	if err != nil {
		return nil, fmt.Errorf("header page: decompress: %w", err)
	}

	m := map[string]int32{}
	if err := json.Unmarshal(decoded, &m); err != nil {
		return nil, fmt.Errorf("header page: decode: %w", err)
	}
	return m, nil
}

func (h *HeaderPage) write(m map[string]int32) error {
	plain, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("header page: encode: %w", err)
	}
	compressed := snappy.Encode(nil, plain)
	if len(compressed)+2 > common.PageSize {
		return fmt.Errorf("header page: record set too large to fit one page")
	}

	page, err := h.pool.FetchPage(HeaderPageID)
	if err != nil {
		return fmt.Errorf("header page: fetch: %w", err)
	}

	data := page.Data()
	data[0] = byte(len(compressed) >> 8)
	data[1] = byte(len(compressed))
	copy(data[2:], compressed)

	h.pool.UnpinPage(HeaderPageID, true)
	return nil
}
