// Package hash implements a dynamic extendible hash table: a directory
// addressed by the low global_depth bits of hash(key), pointing at
// shared buckets that split by doubling when they overflow.
//
// Grounded on original_source/src/container/hash/extendible_hash_table.cpp
// for the split algorithm; Go generics replace the C++ template
// parameter, following the teacher's own generic-container idiom in
// common/key_mutex.go (KeyMutex[T any]).
package hash

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Table is a dynamic directory of shared buckets. A single monitor lock
// serialises every public operation, including reads.
type Table[K comparable, V any] struct {
	mu sync.Mutex

	globalDepth int
	bucketSize  int
	numBuckets  int
	dir         []*bucket[K, V]
}

// entry is one key/value pair stored in a bucket.
type entry[K comparable, V any] struct {
	key K
	val V
}

// bucket is a list of up to bucketSize key/value pairs tagged with a
// local depth.
type bucket[K comparable, V any] struct {
	depth int
	items []entry[K, V]
}

func newBucket[K comparable, V any](size, depth int) *bucket[K, V] {
	return &bucket[K, V]{depth: depth, items: make([]entry[K, V], 0, size)}
}

func (b *bucket[K, V]) find(key K) (V, bool) {
	for _, e := range b.items {
		if e.key == key {
			return e.val, true
		}
	}
	var zero V
	return zero, false
}

func (b *bucket[K, V]) remove(key K) bool {
	for i, e := range b.items {
		if e.key == key {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return true
		}
	}
	return false
}

// insert upserts key/value into the bucket. Returns false only when the
// key is new and the bucket is already at capacity.
func (b *bucket[K, V]) insert(key K, val V, capacity int) bool {
	for i, e := range b.items {
		if e.key == key {
			b.items[i].val = val
			return true
		}
	}
	if len(b.items) >= capacity {
		return false
	}
	b.items = append(b.items, entry[K, V]{key: key, val: val})
	return true
}

// New builds a table whose buckets hold up to bucketSize entries. The
// directory starts with exactly one slot pointing at a depth-0 bucket;
// hashOf(key) & 0 == 0 means every key lands in that slot until the
// first split. This fragile-looking initial state is intentional —
// preserved verbatim rather than pre-sizing the directory.
func New[K comparable, V any](bucketSize int) *Table[K, V] {
	t := &Table[K, V]{
		bucketSize: bucketSize,
		numBuckets: 1,
		dir:        make([]*bucket[K, V], 1),
	}
	t.dir[0] = newBucket[K, V](bucketSize, 0)
	return t
}

func hashOf[K comparable](key K) uint64 {
	return xxhash.Sum64String(toHashableString(key))
}

// toHashableString renders any comparable key to bytes for xxhash. Fixed-
// width keys in this core are integers or small structs formatted via
// fmt, which is adequate since keys are compared for hash routing only
// (equality is still done on the typed key itself in bucket.find).
func toHashableString[K comparable](key K) string {
	type stringer interface{ String() string }
	if s, ok := any(key).(stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", key)
}

func (t *Table[K, V]) indexOf(key K) int {
	mask := (1 << t.globalDepth) - 1
	return int(hashOf(key)) & mask
}

// Find returns the value for key, if present.
func (t *Table[K, V]) Find(key K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.indexOf(key)
	return t.dir[idx].find(key)
}

// Remove deletes key, reporting whether it was present. No merge/shrink
// is performed, matching the source (extendible hashing only grows).
func (t *Table[K, V]) Remove(key K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.indexOf(key)
	return t.dir[idx].remove(key)
}

// Insert upserts key/value, splitting the target bucket (and doubling
// the directory if needed) as many times as it takes to make room.
func (t *Table[K, V]) Insert(key K, val V) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for {
		idx := t.indexOf(key)
		b := t.dir[idx]

		if b.insert(key, val, t.bucketSize) {
			return
		}

		if b.depth == t.globalDepth {
			t.doubleDirectory()
		}

		b.depth++
		localDepth := b.depth

		b0 := newBucket[K, V](t.bucketSize, localDepth)
		b1 := newBucket[K, V](t.bucketSize, localDepth)

		for _, e := range b.items {
			if (hashOf(e.key) >> uint(localDepth-1)) & 1 == 1 {
				b1.items = append(b1.items, e)
			} else {
				b0.items = append(b0.items, e)
			}
		}

		for i := range t.dir {
			if t.dir[i] == b {
				if (i>>uint(localDepth-1))&1 == 1 {
					t.dir[i] = b1
				} else {
					t.dir[i] = b0
				}
			}
		}

		t.numBuckets++
	}
}

func (t *Table[K, V]) doubleDirectory() {
	n := len(t.dir)
	grown := make([]*bucket[K, V], n*2)
	copy(grown, t.dir)
	copy(grown[n:], t.dir)
	t.dir = grown
	t.globalDepth++
}

// GlobalDepth returns the number of directory-index bits currently in use.
func (t *Table[K, V]) GlobalDepth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.globalDepth
}

// NumBuckets returns the number of distinct buckets currently allocated.
func (t *Table[K, V]) NumBuckets() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.numBuckets
}

// LocalDepth returns the local depth of the bucket addressed by dirIndex.
func (t *Table[K, V]) LocalDepth(dirIndex int) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if dirIndex < 0 || dirIndex >= len(t.dir) {
		return 0
	}
	return t.dir[dirIndex].depth
}
