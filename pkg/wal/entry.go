package wal

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/cuemby/nexus/pkg/nexuserr"
)

// OpTag identifies the kind of mutation a WalEntry records.
type OpTag uint8

const (
	OpNodeCreate OpTag = iota
	OpNodeDelete
	OpNodePropSet
	OpRelCreate
	OpRelDelete
	OpRelPropSet
	OpSchemaOp
)

func (t OpTag) String() string {
	switch t {
	case OpNodeCreate:
		return "NodeCreate"
	case OpNodeDelete:
		return "NodeDelete"
	case OpNodePropSet:
		return "NodePropSet"
	case OpRelCreate:
		return "RelCreate"
	case OpRelDelete:
		return "RelDelete"
	case OpRelPropSet:
		return "RelPropSet"
	case OpSchemaOp:
		return "SchemaOp"
	default:
		return fmt.Sprintf("OpTag(%d)", uint8(t))
	}
}

// Entry is one WAL record: "offset strictly increasing;
// epoch non-decreasing; serialized with a framed CRC".
type Entry struct {
	Offset  uint64
	Epoch   uint64
	OpTag   OpTag
	Payload []byte
}

// frameHeaderSize is the fixed portion preceding the payload: offset(8) +
// epoch(8) + opTag(1) + payloadLen(4).
const frameHeaderSize = 8 + 8 + 1 + 4

// trailerSize is the CRC32 that follows the payload.
const trailerSize = 4

// EncodedSize returns the total on-disk size of e's frame.
func (e Entry) EncodedSize() int {
	return frameHeaderSize + len(e.Payload) + trailerSize
}

// Encode serializes e into a self-contained, CRC-checked frame.
func (e Entry) Encode() []byte {
	buf := make([]byte, e.EncodedSize())
	binary.LittleEndian.PutUint64(buf[0:8], e.Offset)
	binary.LittleEndian.PutUint64(buf[8:16], e.Epoch)
	buf[16] = byte(e.OpTag)
	binary.LittleEndian.PutUint32(buf[17:21], uint32(len(e.Payload)))
	copy(buf[frameHeaderSize:], e.Payload)
	sum := crc32.ChecksumIEEE(buf[:frameHeaderSize+len(e.Payload)])
	binary.LittleEndian.PutUint32(buf[frameHeaderSize+len(e.Payload):], sum)
	return buf
}

// DecodeEntry parses one frame from the front of buf, returning the entry
// and the number of bytes consumed. It reports a torn/short read via
// (Entry{}, 0, nil) rather than an error, since an incomplete final frame
// at the end of a segment is an expected crash artifact, not corruption.
func DecodeEntry(buf []byte) (Entry, int, error) {
	if len(buf) < frameHeaderSize {
		return Entry{}, 0, nil
	}
	payloadLen := binary.LittleEndian.Uint32(buf[17:21])
	total := frameHeaderSize + int(payloadLen) + trailerSize
	if len(buf) < total {
		return Entry{}, 0, nil
	}

	e := Entry{
		Offset:  binary.LittleEndian.Uint64(buf[0:8]),
		Epoch:   binary.LittleEndian.Uint64(buf[8:16]),
		OpTag:   OpTag(buf[16]),
		Payload: append([]byte(nil), buf[frameHeaderSize:frameHeaderSize+int(payloadLen)]...),
	}
	wantSum := binary.LittleEndian.Uint32(buf[frameHeaderSize+int(payloadLen) : total])
	gotSum := crc32.ChecksumIEEE(buf[:frameHeaderSize+int(payloadLen)])
	if gotSum != wantSum {
		return Entry{}, 0, nexuserr.New(nexuserr.KindStorage, nexuserr.CodeChecksumMismatch,
			fmt.Sprintf("wal entry at offset %d failed checksum verification", e.Offset))
	}
	return e, total, nil
}
