package replication

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/nexus/pkg/wal"
)

func TestHelloRoundTrip(t *testing.T) {
	want := Hello{ReplicaID: "replica-a", LastOffset: 42, ProtocolVersion: ProtocolVersion}
	got, err := decodeHello(want.encode())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestWelcomeRoundTrip(t *testing.T) {
	want := Welcome{LeaderID: "leader-1", CurrentOffset: 99, RequiresFullSync: true}
	got, err := decodeWelcome(want.encode())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestWalMessageRoundTrip(t *testing.T) {
	entry := wal.Entry{Offset: 7, Epoch: 3, OpTag: wal.OpNodeCreate, Payload: []byte("node payload")}
	want := WalMessage{Entry: entry}
	got, err := decodeWalMessage(want.encode())
	require.NoError(t, err)
	require.Equal(t, entry.Offset, got.Entry.Offset)
	require.Equal(t, entry.Epoch, got.Entry.Epoch)
	require.Equal(t, entry.OpTag, got.Entry.OpTag)
	require.Equal(t, entry.Payload, got.Entry.Payload)
}

func TestWalAckRoundTrip(t *testing.T) {
	want := WalAck{Offset: 12, Success: true}
	got, err := decodeWalAck(want.encode())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestSnapshotMetaRoundTrip(t *testing.T) {
	want := SnapshotMeta{SnapshotID: "snap-1", TotalSize: 1024, ChunkCount: 3, Checksum: 0xdeadbeef, WalOffset: 500}
	got, err := decodeSnapshotMeta(want.encode())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestSnapshotChunkRoundTrip(t *testing.T) {
	want := SnapshotChunk{SnapshotID: "snap-1", Index: 2, Data: []byte{9, 8, 7}, Checksum: 123}
	got, err := decodeSnapshotChunk(want.encode())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestSnapshotCompleteRoundTrip(t *testing.T) {
	want := SnapshotComplete{SnapshotID: "snap-1", Success: true}
	got, err := decodeSnapshotComplete(want.encode())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestPingPongRoundTrip(t *testing.T) {
	ping := Ping{Timestamp: 1234567890}
	gotPing, err := decodePing(ping.encode())
	require.NoError(t, err)
	require.Equal(t, ping, gotPing)

	pong := Pong{Timestamp: 987654321}
	gotPong, err := decodePong(pong.encode())
	require.NoError(t, err)
	require.Equal(t, pong, gotPong)
}

func TestErrorMsgRoundTrip(t *testing.T) {
	want := ErrorMsg{Code: 2, Message: "protocol version mismatch"}
	got, err := decodeErrorMsg(want.encode())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestWalMessageTruncatedFrameRejected(t *testing.T) {
	_, err := decodeWalMessage(putBytes(nil, []byte{1, 2, 3}))
	require.Error(t, err)
}
