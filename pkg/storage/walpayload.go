package storage

import (
	"encoding/binary"

	"github.com/cuemby/nexus/pkg/nexuserr"
)

// Physical WAL payloads for the four mutations GraphStorage originates.
// Create payloads omit the allocated node/relationship ID: slot allocation
// is a sequential counter (allocNodeSlot/allocRelSlot), so replaying creates
// in order against a replica that started from the same snapshot reproduces
// the same IDs. Delete payloads must carry the target ID explicitly, since a
// delete can target any previously allocated slot.

// EncodeNodeCreatePayload packs a node create for the WAL: label, then the
// property blob.
func EncodeNodeCreatePayload(label uint32, props PropertyMap, scheme Scheme) ([]byte, error) {
	blob, err := EncodePropertyBlob(props, scheme)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 4+len(blob))
	binary.LittleEndian.PutUint32(buf[0:4], label)
	copy(buf[4:], blob)
	return buf, nil
}

// DecodeNodeCreatePayload unpacks a payload written by EncodeNodeCreatePayload.
func DecodeNodeCreatePayload(payload []byte) (label uint32, props PropertyMap, err error) {
	if len(payload) < 4 {
		return 0, nil, nexuserr.New(nexuserr.KindStorage, nexuserr.CodeProtocolMismatch, "truncated node create payload")
	}
	label = binary.LittleEndian.Uint32(payload[0:4])
	props, err = DecodePropertyBlob(payload[4:])
	if err != nil {
		return 0, nil, err
	}
	return label, props, nil
}

// EncodeNodeDeletePayload packs a node delete: just the target node ID.
func EncodeNodeDeletePayload(nodeID uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, nodeID)
	return buf
}

// DecodeNodeDeletePayload unpacks a payload written by EncodeNodeDeletePayload.
func DecodeNodeDeletePayload(payload []byte) (nodeID uint64, err error) {
	if len(payload) < 8 {
		return 0, nexuserr.New(nexuserr.KindStorage, nexuserr.CodeProtocolMismatch, "truncated node delete payload")
	}
	return binary.LittleEndian.Uint64(payload[0:8]), nil
}

// EncodeRelCreatePayload packs a relationship create: source, target,
// typeID, then the property blob.
func EncodeRelCreatePayload(source, target uint64, typeID uint32, props PropertyMap, scheme Scheme) ([]byte, error) {
	blob, err := EncodePropertyBlob(props, scheme)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 20+len(blob))
	binary.LittleEndian.PutUint64(buf[0:8], source)
	binary.LittleEndian.PutUint64(buf[8:16], target)
	binary.LittleEndian.PutUint32(buf[16:20], typeID)
	copy(buf[20:], blob)
	return buf, nil
}

// DecodeRelCreatePayload unpacks a payload written by EncodeRelCreatePayload.
func DecodeRelCreatePayload(payload []byte) (source, target uint64, typeID uint32, props PropertyMap, err error) {
	if len(payload) < 20 {
		return 0, 0, 0, nil, nexuserr.New(nexuserr.KindStorage, nexuserr.CodeProtocolMismatch, "truncated relationship create payload")
	}
	source = binary.LittleEndian.Uint64(payload[0:8])
	target = binary.LittleEndian.Uint64(payload[8:16])
	typeID = binary.LittleEndian.Uint32(payload[16:20])
	props, err = DecodePropertyBlob(payload[20:])
	if err != nil {
		return 0, 0, 0, nil, err
	}
	return source, target, typeID, props, nil
}

// EncodeRelDeletePayload packs a relationship delete: just the target
// relationship ID.
func EncodeRelDeletePayload(relID uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, relID)
	return buf
}

// DecodeRelDeletePayload unpacks a payload written by EncodeRelDeletePayload.
func DecodeRelDeletePayload(payload []byte) (relID uint64, err error) {
	if len(payload) < 8 {
		return 0, nexuserr.New(nexuserr.KindStorage, nexuserr.CodeProtocolMismatch, "truncated relationship delete payload")
	}
	return binary.LittleEndian.Uint64(payload[0:8]), nil
}
