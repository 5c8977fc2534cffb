package replication

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/nexus/pkg/config"
	"github.com/cuemby/nexus/pkg/wal"
)

// fakeWalSource is an in-memory WalSource for exercising Leader.streamLoop
// without a real WAL on disk.
type fakeWalSource struct {
	mu      sync.Mutex
	entries []wal.Entry
	notify  chan struct{}
}

func newFakeWalSource() *fakeWalSource {
	return &fakeWalSource{notify: make(chan struct{})}
}

func (f *fakeWalSource) NextOffset() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.entries))
}

func (f *fakeWalSource) ReplayFrom(fromOffset uint64) ([]wal.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []wal.Entry
	for _, e := range f.entries {
		if e.Offset >= fromOffset {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeWalSource) Wait() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notify
}

func (f *fakeWalSource) append(e wal.Entry) {
	f.mu.Lock()
	f.entries = append(f.entries, e)
	close(f.notify)
	f.notify = make(chan struct{})
	f.mu.Unlock()
}

func TestLeaderAwaitAckAsyncOneIsNoOp(t *testing.T) {
	l := NewLeader("leader-1", newFakeWalSource(), nil, config.ReplConfig{AckPolicy: config.AckAsyncOne})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, l.AwaitAck(ctx, 100))
}

func TestLeaderAwaitAckSyncOneWaitsForAck(t *testing.T) {
	l := NewLeader("leader-1", newFakeWalSource(), nil, config.ReplConfig{AckPolicy: config.AckSyncOne})
	h := &replicaHandle{id: "replica-1"}
	l.mu.Lock()
	l.replicas["replica-1"] = h
	l.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- l.AwaitAck(ctx, 5) }()

	select {
	case <-done:
		t.Fatal("AwaitAck should still be blocked")
	case <-time.After(20 * time.Millisecond):
	}

	h.recordAck(5)
	l.mu.Lock()
	close(l.ackNotify)
	l.ackNotify = make(chan struct{})
	l.mu.Unlock()

	require.NoError(t, <-done)
}

func TestLeaderAwaitAckSyncAllWithNoReplicasIsNoOp(t *testing.T) {
	l := NewLeader("leader-1", newFakeWalSource(), nil, config.ReplConfig{AckPolicy: config.AckSyncAll})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, l.AwaitAck(ctx, 10))
}

func TestLeaderLagSnapshot(t *testing.T) {
	l := NewLeader("leader-1", newFakeWalSource(), nil, config.ReplConfig{})
	h := &replicaHandle{id: "replica-1"}
	h.recordAck(7)
	l.mu.Lock()
	l.replicas["replica-1"] = h
	l.mu.Unlock()

	lag := l.LagSnapshot(10)
	require.Contains(t, lag, "replica-1")
	require.Equal(t, uint64(3), lag["replica-1"].EntriesBehind)
	require.True(t, lag["replica-1"].LastAckAge >= 0)
}

func TestLeaderStreamLoopSendsEntriesInOrder(t *testing.T) {
	source := newFakeWalSource()
	source.append(wal.Entry{Offset: 0, Epoch: 1, OpTag: wal.OpNodeCreate, Payload: []byte("a")})
	source.append(wal.Entry{Offset: 1, Epoch: 1, OpTag: wal.OpNodeCreate, Payload: []byte("b")})

	l := NewLeader("leader-1", source, nil, config.ReplConfig{})

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	h := &replicaHandle{id: "replica-1", c: newConn(server)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.streamLoop(ctx, h, 0) }()

	cc := newConn(client)
	msg0, err := cc.recv()
	require.NoError(t, err)
	m0, ok := msg0.(WalMessage)
	require.True(t, ok)
	require.Equal(t, uint64(0), m0.Entry.Offset)

	msg1, err := cc.recv()
	require.NoError(t, err)
	m1, ok := msg1.(WalMessage)
	require.True(t, ok)
	require.Equal(t, uint64(1), m1.Entry.Offset)
}
