package storage

import (
	"encoding/binary"
	"hash/crc32"
)

// NodeRecordSize is exactly one cache line.
const NodeRecordSize = 64

// RelationshipRecordSize.
const RelationshipRecordSize = 32

// NoEpoch marks "never deleted" in DeletedEpoch.
const NoEpoch = ^uint64(0)

const (
	nodeFlagDeleted uint32 = 1 << 0
	relFlagDeleted  uint8  = 1 << 0
)

// NodeRecord is the fixed-width on-disk representation of a node. Its NodeId
// is implicit: the record's index within the node segment.
type NodeRecord struct {
	PrimaryLabel   uint32
	Flags          uint32
	FirstRelOffset uint64 // offset into the adjacency segment; 0 means no adjacencies
	PropOffset     uint64 // offset into the property segment; 0 means no properties
	CreatedEpoch   uint64
	DeletedEpoch   uint64 // NoEpoch means not deleted
	Checksum       uint32
}

func (r *NodeRecord) Deleted() bool { return r.Flags&nodeFlagDeleted != 0 }

func (r *NodeRecord) markDeleted() { r.Flags |= nodeFlagDeleted }

// Visible reports whether the record is visible to a reader pinned at epoch.
//.
func (r *NodeRecord) Visible(epoch uint64) bool {
	if r.CreatedEpoch > epoch {
		return false
	}
	return r.DeletedEpoch == NoEpoch || r.DeletedEpoch > epoch
}

// encodeNodeRecord writes r into a NodeRecordSize-byte buffer with a fresh checksum.
func encodeNodeRecord(r *NodeRecord) []byte {
	buf := make([]byte, NodeRecordSize)
	binary.LittleEndian.PutUint32(buf[0:4], r.PrimaryLabel)
	binary.LittleEndian.PutUint32(buf[4:8], r.Flags)
	binary.LittleEndian.PutUint64(buf[8:16], r.FirstRelOffset)
	binary.LittleEndian.PutUint64(buf[16:24], r.PropOffset)
	binary.LittleEndian.PutUint64(buf[24:32], r.CreatedEpoch)
	binary.LittleEndian.PutUint64(buf[32:40], r.DeletedEpoch)
	sum := crc32.ChecksumIEEE(buf[:40])
	binary.LittleEndian.PutUint32(buf[40:44], sum)
	// buf[44:64] reserved, left zero.
	return buf
}

func decodeNodeRecord(buf []byte) (*NodeRecord, bool) {
	r := &NodeRecord{
		PrimaryLabel:   binary.LittleEndian.Uint32(buf[0:4]),
		Flags:          binary.LittleEndian.Uint32(buf[4:8]),
		FirstRelOffset: binary.LittleEndian.Uint64(buf[8:16]),
		PropOffset:     binary.LittleEndian.Uint64(buf[16:24]),
		CreatedEpoch:   binary.LittleEndian.Uint64(buf[24:32]),
		DeletedEpoch:   binary.LittleEndian.Uint64(buf[32:40]),
		Checksum:       binary.LittleEndian.Uint32(buf[40:44]),
	}
	ok := crc32.ChecksumIEEE(buf[:40]) == r.Checksum
	return r, ok
}

// RelationshipRecord is the fixed-width on-disk representation of a
// relationship in the relationship segment. Its RelationshipId is derived
// from (TypeId, slot index in that segment) by the caller (see engine.go);
// this keeps the record itself at exactly 32 bytes while IDs remain unique
// and never reused, since slot indexes are never recycled.
type RelationshipRecord struct {
	Source     uint64
	Target     uint64
	TypeID     uint32
	PropOffset uint32
	Flags      uint8
	Checksum   uint32
}

func (r *RelationshipRecord) Deleted() bool { return r.Flags&relFlagDeleted != 0 }

func (r *RelationshipRecord) markDeleted() { r.Flags |= relFlagDeleted }

// encodeRelationshipRecord writes r into a RelationshipRecordSize-byte
// buffer. The checksum covers every byte except itself.
func encodeRelationshipRecord(r *RelationshipRecord) []byte {
	buf := make([]byte, RelationshipRecordSize)
	binary.LittleEndian.PutUint64(buf[0:8], r.Source)
	binary.LittleEndian.PutUint64(buf[8:16], r.Target)
	binary.LittleEndian.PutUint32(buf[16:20], r.TypeID)
	binary.LittleEndian.PutUint32(buf[20:24], r.PropOffset)
	buf[24] = r.Flags
	// buf[25:28] reserved padding.
	sum := crc32.ChecksumIEEE(buf[:28])
	binary.LittleEndian.PutUint32(buf[28:32], sum)
	return buf
}

func decodeRelationshipRecord(buf []byte) (*RelationshipRecord, bool) {
	r := &RelationshipRecord{
		Source:     binary.LittleEndian.Uint64(buf[0:8]),
		Target:     binary.LittleEndian.Uint64(buf[8:16]),
		TypeID:     binary.LittleEndian.Uint32(buf[16:20]),
		PropOffset: binary.LittleEndian.Uint32(buf[20:24]),
		Flags:      buf[24],
		Checksum:   binary.LittleEndian.Uint32(buf[28:32]),
	}
	ok := crc32.ChecksumIEEE(buf[:28]) == r.Checksum
	return r, ok
}

// RelationshipID packs a TypeId and a slot index into the opaque 64-bit
// handle callers see: the upper 32 bits hold the TypeId, the lower 32 bits
// the slot in the shared relationship segment.
func RelationshipID(typeID uint32, index uint32) uint64 {
	return uint64(typeID)<<32 | uint64(index)
}

// SplitRelationshipID reverses RelationshipID.
func SplitRelationshipID(id uint64) (typeID uint32, index uint32) {
	return uint32(id >> 32), uint32(id)
}
