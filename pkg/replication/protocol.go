package replication

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/cuemby/nexus/pkg/nexuserr"
)

// ProtocolVersion is bumped whenever the wire format changes incompatibly.
const ProtocolVersion uint32 = 1

// MsgType tags a frame's payload so the reader can dispatch without
// peeking into the body.
type MsgType uint8

const (
	MsgHello MsgType = iota + 1
	MsgWelcome
	MsgWalEntry
	MsgWalAck
	MsgSnapshotMeta
	MsgSnapshotChunk
	MsgSnapshotComplete
	MsgPing
	MsgPong
	MsgError
)

func (t MsgType) String() string {
	switch t {
	case MsgHello:
		return "Hello"
	case MsgWelcome:
		return "Welcome"
	case MsgWalEntry:
		return "WalEntry"
	case MsgWalAck:
		return "WalAck"
	case MsgSnapshotMeta:
		return "SnapshotMeta"
	case MsgSnapshotChunk:
		return "SnapshotChunk"
	case MsgSnapshotComplete:
		return "SnapshotComplete"
	case MsgPing:
		return "Ping"
	case MsgPong:
		return "Pong"
	case MsgError:
		return "Error"
	default:
		return fmt.Sprintf("MsgType(%d)", uint8(t))
	}
}

// maxFrameBytes bounds a single frame's payload, guarding against a
// corrupt or hostile length prefix driving an unbounded allocation.
const maxFrameBytes = 256 << 20

// writeFrame writes a type-tagged, length-prefixed, CRC-checked frame:
// type(1) payloadLen(4) payload crc32(4).
func writeFrame(w io.Writer, msgType MsgType, payload []byte) error {
	header := make([]byte, 5)
	header[0] = byte(msgType)
	binary.BigEndian.PutUint32(header[1:5], uint32(len(payload)))
	if _, err := w.Write(header); err != nil {
		return nexuserr.Wrap(nexuserr.KindReplication, nexuserr.CodeTimeout, "write frame header", err)
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return nexuserr.Wrap(nexuserr.KindReplication, nexuserr.CodeTimeout, "write frame payload", err)
		}
	}
	sum := crc32.ChecksumIEEE(payload)
	var trailer [4]byte
	binary.BigEndian.PutUint32(trailer[:], sum)
	if _, err := w.Write(trailer[:]); err != nil {
		return nexuserr.Wrap(nexuserr.KindReplication, nexuserr.CodeTimeout, "write frame trailer", err)
	}
	return nil
}

// readFrame reads one frame, verifying its checksum.
func readFrame(r io.Reader) (MsgType, []byte, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}
	msgType := MsgType(header[0])
	payloadLen := binary.BigEndian.Uint32(header[1:5])
	if payloadLen > maxFrameBytes {
		return 0, nil, nexuserr.New(nexuserr.KindReplication, nexuserr.CodeProtocolMismatch,
			fmt.Sprintf("frame payload %d exceeds maximum %d", payloadLen, maxFrameBytes))
	}
	payload := make([]byte, payloadLen)
	if payloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return 0, nil, nexuserr.Wrap(nexuserr.KindReplication, nexuserr.CodeTimeout, "read frame payload", err)
		}
	}
	var trailer [4]byte
	if _, err := io.ReadFull(r, trailer[:]); err != nil {
		return 0, nil, nexuserr.Wrap(nexuserr.KindReplication, nexuserr.CodeTimeout, "read frame trailer", err)
	}
	want := binary.BigEndian.Uint32(trailer[:])
	got := crc32.ChecksumIEEE(payload)
	if got != want {
		return 0, nil, nexuserr.New(nexuserr.KindReplication, nexuserr.CodeChecksumMismatch,
			fmt.Sprintf("%s frame failed checksum verification", msgType))
	}
	return msgType, payload, nil
}

// putString appends a length-prefixed string to buf.
func putString(buf []byte, s string) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, s...)
}

// getString reads a length-prefixed string from the front of buf, returning
// the value and the remaining bytes.
func getString(buf []byte) (string, []byte, error) {
	if len(buf) < 4 {
		return "", nil, io.ErrUnexpectedEOF
	}
	n := binary.BigEndian.Uint32(buf[:4])
	buf = buf[4:]
	if uint32(len(buf)) < n {
		return "", nil, io.ErrUnexpectedEOF
	}
	return string(buf[:n]), buf[n:], nil
}

func putUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func getUint64(buf []byte) (uint64, []byte, error) {
	if len(buf) < 8 {
		return 0, nil, io.ErrUnexpectedEOF
	}
	return binary.BigEndian.Uint64(buf[:8]), buf[8:], nil
}

func putUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func getUint32(buf []byte) (uint32, []byte, error) {
	if len(buf) < 4 {
		return 0, nil, io.ErrUnexpectedEOF
	}
	return binary.BigEndian.Uint32(buf[:4]), buf[4:], nil
}

func putBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func getBool(buf []byte) (bool, []byte, error) {
	if len(buf) < 1 {
		return false, nil, io.ErrUnexpectedEOF
	}
	return buf[0] != 0, buf[1:], nil
}

func putBytes(buf []byte, data []byte) []byte {
	buf = putUint32(buf, uint32(len(data)))
	return append(buf, data...)
}

func getBytes(buf []byte) ([]byte, []byte, error) {
	n, rest, err := getUint32(buf)
	if err != nil {
		return nil, nil, err
	}
	if uint32(len(rest)) < n {
		return nil, nil, io.ErrUnexpectedEOF
	}
	return rest[:n], rest[n:], nil
}
