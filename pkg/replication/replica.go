package replication

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/nexus/pkg/config"
	"github.com/cuemby/nexus/pkg/log"
	"github.com/cuemby/nexus/pkg/nexuserr"
	"github.com/cuemby/nexus/pkg/retry"
)

// ReplicaStats is a point-in-time snapshot of a Replica's connection and
// progress state, exposed for status reporting.
type ReplicaStats struct {
	Connected       bool
	LeaderID        string
	CurrentOffset   uint64
	MissedHeartbeats int
	LastEntryAt     time.Time
	Promoted        bool
}

// Replica connects to a leader, pulls a snapshot when joining cold,
// applies streamed WAL entries in order, and reconnects with backoff on
// disconnect until Stop is called or it is Promoted to leader.
type Replica struct {
	id          string
	leaderAddr  string
	applier     Applier
	snapshotter Snapshotter
	cfg         config.ReplConfig
	logger      zerolog.Logger

	mu             sync.Mutex
	connected      bool
	leaderID       string
	currentOffset  uint64
	missed         int
	lastEntryAt    time.Time

	promoted int32
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewReplica builds a Replica that will stream from cfg.LeaderAddr,
// applying entries through applier and installing snapshots through
// snapshotter.
func NewReplica(id string, applier Applier, snapshotter Snapshotter, cfg config.ReplConfig) *Replica {
	return &Replica{
		id:          id,
		leaderAddr:  cfg.LeaderAddr,
		applier:     applier,
		snapshotter: snapshotter,
		cfg:         cfg,
		logger:      log.WithComponent("replication"),
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start runs the connect-apply-reconnect loop until ctx is cancelled or
// Stop is called. It returns once the loop has fully exited. Each
// disconnect is reclassified as a transient error so retry.Slow's
// unbounded, capped-backoff policy keeps reconnecting instead of giving
// up after the connection's underlying cause (a protocol error, a
// checksum failure) would otherwise be treated as permanent.
func (r *Replica) Start(ctx context.Context) {
	defer close(r.done)
	if atomic.LoadInt32(&r.promoted) == 1 {
		return
	}

	_, err := retry.Do(ctx, retry.Slow(), func() error {
		select {
		case <-r.stopCh:
			return nil
		default:
		}
		sessionErr := r.connectAndSync(ctx)
		if sessionErr == nil {
			return nil
		}
		select {
		case <-r.stopCh:
			return nil
		default:
		}
		r.logger.Warn().Err(sessionErr).Str("leader", r.leaderAddr).Msg("replica session ended, retrying")
		return nexuserr.Wrap(nexuserr.KindTransient, nexuserr.CodeTimeout, "replica session ended", sessionErr)
	})
	if err != nil && ctx.Err() == nil {
		r.logger.Error().Err(err).Msg("replica connect loop terminated")
	}
}

// Stop halts the connect loop; Start returns once any in-flight session
// observes it.
func (r *Replica) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.done
}

// Promote marks this replica as promoted to leader, ending the connect
// loop without tearing down already-applied state. The engine is
// responsible for actually standing up a Leader afterward.
func (r *Replica) Promote() {
	atomic.StoreInt32(&r.promoted, 1)
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// Stats returns a snapshot of the replica's current connection state.
func (r *Replica) Stats() ReplicaStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ReplicaStats{
		Connected:        r.connected,
		LeaderID:         r.leaderID,
		CurrentOffset:    r.currentOffset,
		MissedHeartbeats: r.missed,
		LastEntryAt:      r.lastEntryAt,
		Promoted:         atomic.LoadInt32(&r.promoted) == 1,
	}
}

// connectAndSync dials the leader, performs the handshake and optional
// snapshot transfer, and then runs the receive loop until the connection
// drops or a heartbeat timeout fires.
func (r *Replica) connectAndSync(ctx context.Context) error {
	dialer := net.Dialer{}
	nc, err := dialer.DialContext(ctx, "tcp", r.leaderAddr)
	if err != nil {
		return nexuserr.Wrap(nexuserr.KindReplication, nexuserr.CodeTimeout, "dial leader", err)
	}
	c := newConn(nc)
	defer c.Close()

	r.mu.Lock()
	lastOffset := r.currentOffset
	r.mu.Unlock()

	if err := c.sendHello(Hello{ReplicaID: r.id, LastOffset: lastOffset, ProtocolVersion: ProtocolVersion}); err != nil {
		return err
	}
	msg, err := c.recv()
	if err != nil {
		return err
	}
	welcome, ok := msg.(Welcome)
	if !ok {
		if errMsg, isErr := msg.(ErrorMsg); isErr {
			return nexuserr.New(nexuserr.KindReplication, nexuserr.CodeProtocolMismatch, errMsg.Message)
		}
		return nexuserr.New(nexuserr.KindReplication, nexuserr.CodeProtocolMismatch, "expected Welcome")
	}

	if welcome.RequiresFullSync {
		if r.snapshotter == nil {
			return nexuserr.New(nexuserr.KindReplication, nexuserr.CodeProtocolMismatch, "leader requires full sync but no snapshotter configured")
		}
		data, walOffset, err := receiveSnapshot(c)
		if err != nil {
			return err
		}
		if err := r.snapshotter.Restore(data); err != nil {
			return nexuserr.Wrap(nexuserr.KindReplication, nexuserr.CodeProtocolMismatch, "restore snapshot", err)
		}
		r.mu.Lock()
		r.currentOffset = walOffset
		r.mu.Unlock()
	}

	r.mu.Lock()
	r.connected = true
	r.leaderID = welcome.LeaderID
	r.missed = 0
	r.mu.Unlock()
	r.logger.Info().Str("leader", welcome.LeaderID).Msg("replica synced with leader")

	defer func() {
		r.mu.Lock()
		r.connected = false
		r.mu.Unlock()
	}()

	return r.receiveLoop(ctx, c)
}

// receiveLoop applies incoming WalMessage entries and acknowledges them,
// tracking missed heartbeats against cfg.HeartbeatInterval and
// cfg.MissedHeartbeats.
func (r *Replica) receiveLoop(ctx context.Context, c *conn) error {
	interval := r.cfg.HeartbeatInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	maxMissed := r.cfg.MissedHeartbeats
	if maxMissed <= 0 {
		maxMissed = 3
	}

	type recvResult struct {
		msg any
		err error
	}
	msgCh := make(chan recvResult, 1)
	go func() {
		for {
			msg, err := c.recv()
			msgCh <- recvResult{msg, err}
			if err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stopCh:
			return nil
		case <-ticker.C:
			r.mu.Lock()
			r.missed++
			missed := r.missed
			r.mu.Unlock()
			if missed > maxMissed {
				return nexuserr.New(nexuserr.KindReplication, nexuserr.CodeTimeout, "missed too many heartbeats from leader")
			}
			_ = c.sendPing(Ping{Timestamp: time.Now().UnixNano()})
		case res := <-msgCh:
			if res.err != nil {
				return res.err
			}
			r.mu.Lock()
			r.missed = 0
			r.mu.Unlock()

			switch m := res.msg.(type) {
			case WalMessage:
				if err := r.applier.Apply(m.Entry); err != nil {
					return nexuserr.Wrap(nexuserr.KindReplication, nexuserr.CodeProtocolMismatch, "apply replicated entry", err)
				}
				r.mu.Lock()
				r.currentOffset = m.Entry.Offset + 1
				r.lastEntryAt = time.Now()
				r.mu.Unlock()
				if err := c.sendWalAck(WalAck{Offset: m.Entry.Offset, Success: true}); err != nil {
					return err
				}
			case Pong:
				// heartbeat roundtrip observed; missed count already reset above
			case Ping:
				if err := c.sendPong(Pong{Timestamp: m.Timestamp}); err != nil {
					return err
				}
			case ErrorMsg:
				return nexuserr.New(nexuserr.KindReplication, nexuserr.CodeProtocolMismatch, m.Message)
			}
		}
	}
}
