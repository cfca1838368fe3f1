package btree

import "encoding/binary"

// RID is a record identifier: the (page, slot) pair a leaf entry's value
// ultimately points at. The B+tree never interprets it further — that is
// the table heap's job, which is out of this core's scope.
type RID struct {
	PageID  int32
	SlotNum uint32
}

const ridSize = 8

// RIDSerializer is the canonical ValueSerializer for leaf values.
type RIDSerializer struct{}

func (RIDSerializer) Size() int { return ridSize }

func (RIDSerializer) Serialize(v RID, dst []byte) {
	binary.BigEndian.PutUint32(dst, uint32(v.PageID))
	binary.BigEndian.PutUint32(dst[4:], v.SlotNum)
}

func (RIDSerializer) Deserialize(src []byte) RID {
	return RID{
		PageID:  int32(binary.BigEndian.Uint32(src)),
		SlotNum: binary.BigEndian.Uint32(src[4:]),
	}
}
