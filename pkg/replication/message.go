package replication

import (
	"github.com/cuemby/nexus/pkg/nexuserr"
	"github.com/cuemby/nexus/pkg/wal"
)

// Hello is sent by a connecting replica to identify itself and report how
// far it has already replayed.
type Hello struct {
	ReplicaID       string
	LastOffset      uint64
	ProtocolVersion uint32
}

func (m Hello) encode() []byte {
	buf := putString(nil, m.ReplicaID)
	buf = putUint64(buf, m.LastOffset)
	buf = putUint32(buf, m.ProtocolVersion)
	return buf
}

func decodeHello(buf []byte) (Hello, error) {
	id, buf, err := getString(buf)
	if err != nil {
		return Hello{}, err
	}
	offset, buf, err := getUint64(buf)
	if err != nil {
		return Hello{}, err
	}
	version, _, err := getUint32(buf)
	if err != nil {
		return Hello{}, err
	}
	return Hello{ReplicaID: id, LastOffset: offset, ProtocolVersion: version}, nil
}

// Welcome answers a Hello, telling the replica where the leader's WAL
// currently stands and whether it must take a full snapshot first.
type Welcome struct {
	LeaderID         string
	CurrentOffset    uint64
	RequiresFullSync bool
}

func (m Welcome) encode() []byte {
	buf := putString(nil, m.LeaderID)
	buf = putUint64(buf, m.CurrentOffset)
	buf = putBool(buf, m.RequiresFullSync)
	return buf
}

func decodeWelcome(buf []byte) (Welcome, error) {
	id, buf, err := getString(buf)
	if err != nil {
		return Welcome{}, err
	}
	offset, buf, err := getUint64(buf)
	if err != nil {
		return Welcome{}, err
	}
	full, _, err := getBool(buf)
	if err != nil {
		return Welcome{}, err
	}
	return Welcome{LeaderID: id, CurrentOffset: offset, RequiresFullSync: full}, nil
}

// WalMessage carries one replayed WAL entry from leader to replica.
type WalMessage struct {
	Entry wal.Entry
}

func (m WalMessage) encode() []byte {
	frame := m.Entry.Encode()
	return putBytes(nil, frame)
}

func decodeWalMessage(buf []byte) (WalMessage, error) {
	frame, _, err := getBytes(buf)
	if err != nil {
		return WalMessage{}, err
	}
	entry, n, err := wal.DecodeEntry(frame)
	if err != nil {
		return WalMessage{}, err
	}
	if n == 0 {
		return WalMessage{}, nexuserr.New(nexuserr.KindReplication, nexuserr.CodeProtocolMismatch, "truncated wal entry in frame")
	}
	return WalMessage{Entry: entry}, nil
}

// WalAck acknowledges application of the entry at Offset.
type WalAck struct {
	Offset  uint64
	Success bool
}

func (m WalAck) encode() []byte {
	buf := putUint64(nil, m.Offset)
	buf = putBool(buf, m.Success)
	return buf
}

func decodeWalAck(buf []byte) (WalAck, error) {
	offset, buf, err := getUint64(buf)
	if err != nil {
		return WalAck{}, err
	}
	success, _, err := getBool(buf)
	if err != nil {
		return WalAck{}, err
	}
	return WalAck{Offset: offset, Success: success}, nil
}

// SnapshotMeta precedes a chunked snapshot transfer.
type SnapshotMeta struct {
	SnapshotID string
	TotalSize  uint64
	ChunkCount uint32
	Checksum   uint32
	WalOffset  uint64
}

func (m SnapshotMeta) encode() []byte {
	buf := putString(nil, m.SnapshotID)
	buf = putUint64(buf, m.TotalSize)
	buf = putUint32(buf, m.ChunkCount)
	buf = putUint32(buf, m.Checksum)
	buf = putUint64(buf, m.WalOffset)
	return buf
}

func decodeSnapshotMeta(buf []byte) (SnapshotMeta, error) {
	id, buf, err := getString(buf)
	if err != nil {
		return SnapshotMeta{}, err
	}
	total, buf, err := getUint64(buf)
	if err != nil {
		return SnapshotMeta{}, err
	}
	chunks, buf, err := getUint32(buf)
	if err != nil {
		return SnapshotMeta{}, err
	}
	checksum, buf, err := getUint32(buf)
	if err != nil {
		return SnapshotMeta{}, err
	}
	walOffset, _, err := getUint64(buf)
	if err != nil {
		return SnapshotMeta{}, err
	}
	return SnapshotMeta{SnapshotID: id, TotalSize: total, ChunkCount: chunks, Checksum: checksum, WalOffset: walOffset}, nil
}

// SnapshotChunk carries one piece of a chunked snapshot transfer.
type SnapshotChunk struct {
	SnapshotID string
	Index      uint32
	Data       []byte
	Checksum   uint32
}

func (m SnapshotChunk) encode() []byte {
	buf := putString(nil, m.SnapshotID)
	buf = putUint32(buf, m.Index)
	buf = putBytes(buf, m.Data)
	buf = putUint32(buf, m.Checksum)
	return buf
}

func decodeSnapshotChunk(buf []byte) (SnapshotChunk, error) {
	id, buf, err := getString(buf)
	if err != nil {
		return SnapshotChunk{}, err
	}
	index, buf, err := getUint32(buf)
	if err != nil {
		return SnapshotChunk{}, err
	}
	data, buf, err := getBytes(buf)
	if err != nil {
		return SnapshotChunk{}, err
	}
	checksum, _, err := getUint32(buf)
	if err != nil {
		return SnapshotChunk{}, err
	}
	return SnapshotChunk{SnapshotID: id, Index: index, Data: data, Checksum: checksum}, nil
}

// SnapshotComplete closes out a transfer.
type SnapshotComplete struct {
	SnapshotID string
	Success    bool
}

func (m SnapshotComplete) encode() []byte {
	buf := putString(nil, m.SnapshotID)
	buf = putBool(buf, m.Success)
	return buf
}

func decodeSnapshotComplete(buf []byte) (SnapshotComplete, error) {
	id, buf, err := getString(buf)
	if err != nil {
		return SnapshotComplete{}, err
	}
	success, _, err := getBool(buf)
	if err != nil {
		return SnapshotComplete{}, err
	}
	return SnapshotComplete{SnapshotID: id, Success: success}, nil
}

// Ping/Pong carry a timestamp (unix nanoseconds) round-tripped for
// liveness and, indirectly, lag observation.
type Ping struct{ Timestamp int64 }
type Pong struct{ Timestamp int64 }

func (m Ping) encode() []byte { return putUint64(nil, uint64(m.Timestamp)) }
func decodePing(buf []byte) (Ping, error) {
	ts, _, err := getUint64(buf)
	return Ping{Timestamp: int64(ts)}, err
}

func (m Pong) encode() []byte { return putUint64(nil, uint64(m.Timestamp)) }
func decodePong(buf []byte) (Pong, error) {
	ts, _, err := getUint64(buf)
	return Pong{Timestamp: int64(ts)}, err
}

// ErrorMsg reports a protocol-level failure the peer should treat as
// terminal for the connection.
type ErrorMsg struct {
	Code    uint32
	Message string
}

func (m ErrorMsg) encode() []byte {
	buf := putUint32(nil, m.Code)
	return putString(buf, m.Message)
}

func decodeErrorMsg(buf []byte) (ErrorMsg, error) {
	code, buf, err := getUint32(buf)
	if err != nil {
		return ErrorMsg{}, err
	}
	msg, _, err := getString(buf)
	if err != nil {
		return ErrorMsg{}, err
	}
	return ErrorMsg{Code: code, Message: msg}, nil
}
