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

// collectingApplier records every entry it is asked to apply.
type collectingApplier struct {
	mu      sync.Mutex
	applied []wal.Entry
}

func (a *collectingApplier) Apply(e wal.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.applied = append(a.applied, e)
	return nil
}

func (a *collectingApplier) entries() []wal.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]wal.Entry(nil), a.applied...)
}

func TestReplicaStatsDefaults(t *testing.T) {
	applier := &collectingApplier{}
	r := NewReplica("replica-1", applier, nil, config.ReplConfig{LeaderAddr: "localhost:0"})
	stats := r.Stats()
	require.False(t, stats.Connected)
	require.False(t, stats.Promoted)
	require.Equal(t, uint64(0), stats.CurrentOffset)
}

func TestReplicaPromoteStopsLoop(t *testing.T) {
	applier := &collectingApplier{}
	r := NewReplica("replica-1", applier, nil, config.ReplConfig{LeaderAddr: "127.0.0.1:1"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	go func() {
		close(started)
		r.Start(ctx)
	}()
	<-started

	r.Promote()
	require.True(t, r.Stats().Promoted)
}

func TestReplicaReceiveLoopAppliesAndAcks(t *testing.T) {
	applier := &collectingApplier{}
	r := NewReplica("replica-1", applier, nil, config.ReplConfig{HeartbeatInterval: time.Hour, MissedHeartbeats: 3})

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loopDone := make(chan error, 1)
	go func() { loopDone <- r.receiveLoop(ctx, newConn(server)) }()

	cc := newConn(client)
	entry := wal.Entry{Offset: 3, Epoch: 1, OpTag: wal.OpNodeCreate, Payload: []byte("x")}
	require.NoError(t, cc.sendWalMessage(WalMessage{Entry: entry}))

	ackMsg, err := cc.recv()
	require.NoError(t, err)
	ack, ok := ackMsg.(WalAck)
	require.True(t, ok)
	require.Equal(t, uint64(3), ack.Offset)
	require.True(t, ack.Success)

	require.Eventually(t, func() bool {
		return len(applier.entries()) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, entry.Offset, applier.entries()[0].Offset)
	require.Equal(t, uint64(4), r.Stats().CurrentOffset)

	close(r.stopCh)
	select {
	case <-loopDone:
	case <-time.After(time.Second):
		t.Fatal("receiveLoop did not exit after stopCh closed")
	}
}

func TestReplicaReceiveLoopRespondsToPing(t *testing.T) {
	applier := &collectingApplier{}
	r := NewReplica("replica-1", applier, nil, config.ReplConfig{HeartbeatInterval: time.Hour, MissedHeartbeats: 3})

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = r.receiveLoop(ctx, newConn(server)) }()

	cc := newConn(client)
	require.NoError(t, cc.sendPing(Ping{Timestamp: 42}))

	msg, err := cc.recv()
	require.NoError(t, err)
	pong, ok := msg.(Pong)
	require.True(t, ok)
	require.Equal(t, int64(42), pong.Timestamp)
}
