package btree

import (
	"bytes"
	"encoding/binary"
)

// KeySerializer fixes a key type's on-page width and its byte
// representation. Grounded on thetarby-helindb/btree/key_serializer.go's
// KeySerializer interface, narrowed to fixed-width keys per this core's
// Non-goal on variable-size keys.
type KeySerializer[K any] interface {
	Size() int
	Serialize(key K, dst []byte)
	Deserialize(src []byte) K
}

// ValueSerializer mirrors KeySerializer for a leaf page's value type.
type ValueSerializer[V any] interface {
	Size() int
	Serialize(val V, dst []byte)
	Deserialize(src []byte) V
}

// Comparator orders two keys: negative if a < b, zero if equal, positive
// if a > b. Supplied by the caller since K is only constrained to be
// comparable (for Go's == on simple key types), which says nothing about
// ordering.
type Comparator[K any] func(a, b K) int

// Int64Key is the everyday fixed-width key: an 8-byte big-endian integer.
type Int64Key int64

type Int64KeySerializer struct{}

func (Int64KeySerializer) Size() int { return 8 }

func (Int64KeySerializer) Serialize(key Int64Key, dst []byte) {
	binary.BigEndian.PutUint64(dst, uint64(key))
}

func (Int64KeySerializer) Deserialize(src []byte) Int64Key {
	return Int64Key(binary.BigEndian.Uint64(src))
}

func CompareInt64Key(a, b Int64Key) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// BlobKey16 is a 16-byte fixed-width comparable key for callers whose
// natural key isn't an integer (a UUID, a hash, a composite of small
// columns) — spec.md's "fixed-width comparable blobs" made concrete.
type BlobKey16 [16]byte

type BlobKey16Serializer struct{}

func (BlobKey16Serializer) Size() int { return 16 }

func (BlobKey16Serializer) Serialize(key BlobKey16, dst []byte) {
	copy(dst, key[:])
}

func (BlobKey16Serializer) Deserialize(src []byte) BlobKey16 {
	var k BlobKey16
	copy(k[:], src)
	return k
}

func CompareBlobKey16(a, b BlobKey16) int {
	return bytes.Compare(a[:], b[:])
}
