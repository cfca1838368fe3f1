// Command demo exercises the storage core end to end: a disk-backed
// buffer pool, a header page, and a B+tree index, the way
// thetarby-helindb's own main.go pokes at its buffer pool directly.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ABS-leo/bustub-lab/btree"
	"github.com/ABS-leo/bustub-lab/buffer"
	"github.com/ABS-leo/bustub-lab/disk"
)

func main() {
	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	dbPath := filepath.Join(os.TempDir(), uuid.New().String()+".db")
	log.Info("opening database file", zap.String("path", dbPath))

	dm, err := disk.NewFileManager(dbPath)
	if err != nil {
		log.Fatal("open disk manager", zap.Error(err))
	}
	defer dm.Close()
	defer os.Remove(dbPath)

	pool := buffer.NewWithReservedHeaderPage(64, dm, log)
	header := btree.NewHeaderPage(pool)
	if err := header.Init(); err != nil {
		log.Fatal("init header page", zap.Error(err))
	}

	tree, err := btree.New[btree.Int64Key](pool, header, btree.Options[btree.Int64Key]{
		Name:            "demo_index",
		LeafMaxSize:     32,
		InternalMaxSize: 32,
		KeySerializer:   btree.Int64KeySerializer{},
		Comparator:      btree.CompareInt64Key,
		Logger:          log,
	})
	if err != nil {
		log.Fatal("create tree", zap.Error(err))
	}

	const n = 500
	for i := int64(0); i < n; i++ {
		ok, err := tree.Insert(btree.Int64Key(i), btree.RID{PageID: int32(i / 10), SlotNum: uint32(i % 10)})
		if err != nil {
			log.Fatal("insert", zap.Int64("key", i), zap.Error(err))
		}
		if !ok {
			log.Warn("duplicate key rejected", zap.Int64("key", i))
		}
	}
	log.Info("inserted records", zap.Int("count", n))

	pool.FlushAllPages()

	it, err := tree.BeginAt(btree.Int64Key(490))
	if err != nil {
		log.Fatal("seek iterator", zap.Error(err))
	}
	defer it.Close()

	fmt.Println("keys from 490 onward:")
	for !it.IsEnd() {
		fmt.Printf("  key=%d rid=%+v\n", it.Key(), it.Value())
		if err := it.Next(); err != nil {
			log.Fatal("advance iterator", zap.Error(err))
		}
	}

	for i := int64(0); i < n; i += 2 {
		if err := tree.Remove(btree.Int64Key(i)); err != nil {
			log.Fatal("remove", zap.Int64("key", i), zap.Error(err))
		}
	}
	log.Info("removed even keys", zap.Int("remaining", n/2))
}
