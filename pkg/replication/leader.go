package replication

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cuemby/nexus/pkg/config"
	"github.com/cuemby/nexus/pkg/log"
	"github.com/cuemby/nexus/pkg/nexuserr"
	"github.com/cuemby/nexus/pkg/wal"
)

// WalSource is the subset of *wal.WAL the leader streamer needs: read
// entries at or after an offset, learn the current append frontier, and
// be woken when a new entry commits.
type WalSource interface {
	NextOffset() uint64
	ReplayFrom(fromOffset uint64) ([]wal.Entry, error)
	Wait() <-chan struct{}
}

// replicaHandle tracks one connected replica's streaming goroutine and
// acknowledgement state.
type replicaHandle struct {
	id string
	c  *conn

	mu              sync.Mutex
	lastAckedOffset uint64
	lastAckTime     time.Time
}

func (h *replicaHandle) recordAck(offset uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if offset > h.lastAckedOffset {
		h.lastAckedOffset = offset
	}
	h.lastAckTime = time.Now()
}

func (h *replicaHandle) snapshot() (offset uint64, lastAck time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastAckedOffset, h.lastAckTime
}

// Leader accepts replica connections and streams committed WAL entries to
// each, tracking acknowledgements so the engine can honor the configured
// AckPolicy before reporting a write as committed.
type Leader struct {
	id          string
	source      WalSource
	snapshotter Snapshotter
	ackPolicy   config.AckPolicy
	logger      zerolog.Logger

	mu        sync.RWMutex
	replicas  map[string]*replicaHandle
	ackNotify chan struct{}
}

// NewLeader builds a Leader streaming from source, offering snapshotter
// for cold-join full sync, under the given replication config.
func NewLeader(id string, source WalSource, snapshotter Snapshotter, cfg config.ReplConfig) *Leader {
	return &Leader{
		id:          id,
		source:      source,
		snapshotter: snapshotter,
		ackPolicy:   cfg.AckPolicy,
		logger:      log.WithComponent("replication"),
		replicas:    make(map[string]*replicaHandle),
		ackNotify:   make(chan struct{}),
	}
}

// Serve accepts connections on ln until ctx is cancelled or ln is closed,
// handling each replica on its own goroutine.
func (l *Leader) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		nc, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go l.handleReplica(ctx, nc)
	}
}

func (l *Leader) handleReplica(ctx context.Context, nc net.Conn) {
	c := newConn(nc)
	defer c.Close()

	msg, err := c.recv()
	if err != nil {
		l.logger.Warn().Err(err).Msg("replica handshake failed")
		return
	}
	hello, ok := msg.(Hello)
	if !ok {
		_ = c.sendError(ErrorMsg{Code: 1, Message: "expected Hello"})
		return
	}
	if hello.ProtocolVersion != ProtocolVersion {
		_ = c.sendError(ErrorMsg{Code: 2, Message: fmt.Sprintf("protocol version mismatch: have %d, want %d", hello.ProtocolVersion, ProtocolVersion)})
		return
	}

	currentOffset := l.source.NextOffset()
	requiresFullSync := hello.LastOffset == 0 && currentOffset > 0

	welcome := Welcome{LeaderID: l.id, CurrentOffset: currentOffset, RequiresFullSync: requiresFullSync}
	if err := c.sendWelcome(welcome); err != nil {
		l.logger.Warn().Err(err).Str("replica", hello.ReplicaID).Msg("failed to send welcome")
		return
	}

	streamFrom := hello.LastOffset
	if requiresFullSync {
		if l.snapshotter == nil {
			_ = c.sendError(ErrorMsg{Code: 3, Message: "full sync required but no snapshotter configured"})
			return
		}
		data, walOffset, err := l.snapshotter.Snapshot()
		if err != nil {
			_ = c.sendError(ErrorMsg{Code: 4, Message: "snapshot failed"})
			return
		}
		if err := sendSnapshot(c, uuid.New().String(), data, walOffset); err != nil {
			l.logger.Warn().Err(err).Str("replica", hello.ReplicaID).Msg("snapshot transfer failed")
			return
		}
		streamFrom = walOffset
	}

	handle := &replicaHandle{id: hello.ReplicaID, c: c, lastAckedOffset: streamFrom, lastAckTime: time.Now()}
	l.mu.Lock()
	l.replicas[hello.ReplicaID] = handle
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		delete(l.replicas, hello.ReplicaID)
		l.mu.Unlock()
	}()

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(connCtx)
	g.Go(func() error { return l.streamLoop(gctx, handle, streamFrom) })
	g.Go(func() error { return l.ackLoop(gctx, handle) })

	if err := g.Wait(); err != nil {
		l.logger.Info().Err(err).Str("replica", hello.ReplicaID).Msg("replica disconnected")
	}
}

// streamLoop pushes entries from fromOffset onward, blocking on the WAL's
// notify channel between batches instead of polling.
func (l *Leader) streamLoop(ctx context.Context, h *replicaHandle, fromOffset uint64) error {
	for {
		entries, err := l.source.ReplayFrom(fromOffset)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := h.c.sendWalMessage(WalMessage{Entry: e}); err != nil {
				return err
			}
			fromOffset = e.Offset + 1
		}
		if len(entries) > 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.source.Wait():
		}
	}
}

// ackLoop reads WalAck/Ping/Pong frames from the replica connection.
func (l *Leader) ackLoop(ctx context.Context, h *replicaHandle) error {
	for {
		msg, err := h.c.recv()
		if err != nil {
			return err
		}
		switch m := msg.(type) {
		case WalAck:
			h.recordAck(m.Offset)
			l.mu.Lock()
			close(l.ackNotify)
			l.ackNotify = make(chan struct{})
			l.mu.Unlock()
		case Ping:
			if err := h.c.sendPong(Pong{Timestamp: m.Timestamp}); err != nil {
				return err
			}
		case Pong:
			// liveness only
		case ErrorMsg:
			return nexuserr.New(nexuserr.KindReplication, nexuserr.CodeProtocolMismatch, m.Message)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// AwaitAck blocks until offset has been acknowledged per the leader's
// configured AckPolicy (no-op for AsyncOne), or ctx is cancelled.
func (l *Leader) AwaitAck(ctx context.Context, offset uint64) error {
	switch l.ackPolicy {
	case config.AckAsyncOne:
		return nil
	case config.AckSyncOne:
		return l.awaitN(ctx, offset, 1)
	case config.AckSyncAll:
		l.mu.RLock()
		n := len(l.replicas)
		l.mu.RUnlock()
		return l.awaitN(ctx, offset, n)
	default:
		return nil
	}
}

// awaitN blocks until at least n connected replicas have acknowledged
// offset, re-counting the acked replicas in one loop each time an
// acknowledgement notification arrives.
func (l *Leader) awaitN(ctx context.Context, offset uint64, n int) error {
	if n == 0 {
		return nil
	}
	for {
		l.mu.RLock()
		acked := 0
		notify := l.ackNotify
		for _, h := range l.replicas {
			if got, _ := h.snapshot(); got >= offset {
				acked++
			}
		}
		l.mu.RUnlock()
		if acked >= n {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-notify:
		}
	}
}

// LagSnapshot reports each connected replica's distance behind offset and
// time since its last acknowledgement, for metrics reporting.
func (l *Leader) LagSnapshot(currentOffset uint64) map[string]ReplicaLag {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]ReplicaLag, len(l.replicas))
	for id, h := range l.replicas {
		acked, lastAck := h.snapshot()
		behind := uint64(0)
		if currentOffset > acked {
			behind = currentOffset - acked
		}
		out[id] = ReplicaLag{EntriesBehind: behind, LastAckAge: time.Since(lastAck)}
	}
	return out
}

// ReplicaLag is one replica's distance behind the leader's WAL, mirroring
// pkg/metrics.ReplicaLag without creating a dependency on that package.
type ReplicaLag struct {
	EntriesBehind uint64
	LastAckAge    time.Duration
}
