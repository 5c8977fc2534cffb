package wal

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/nexus/pkg/config"
	"github.com/cuemby/nexus/pkg/log"
)

// WAL is Nexus's write-ahead log: an ordered, monotonically-offset
// sequence of framed Entry records spanning one or more segment files in
// dir. It drives both crash recovery (see recovery.go) and replication
// streaming (reading committed entries back out by offset for shipping
// to replicas).
type WAL struct {
	mu sync.Mutex

	dir        string
	policy     config.DurabilityPolicy
	segmentCap int64
	groupWindow time.Duration

	active     *segment
	nextOffset uint64
	lastEpoch  uint64

	pendingSync   int
	groupTimer    *time.Timer
	periodicStop  chan struct{}
	periodicOnce  sync.Once

	notifyCh chan struct{}

	logger zerolog.Logger
}

// Open opens (creating if necessary) the WAL directory, replaying existing
// segments to recover nextOffset/lastEpoch and truncating any torn tail.
func Open(dir string, cfg config.WALConfig) (*WAL, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create wal dir: %w", err)
	}

	logger := log.WithComponent("wal")

	recovered, err := Recover(dir)
	if err != nil {
		return nil, fmt.Errorf("recover wal: %w", err)
	}

	startOffset := recovered.StartOffsetForAppend
	seg, err := openSegmentForAppend(dir, startOffset)
	if err != nil {
		return nil, err
	}

	w := &WAL{
		dir:          dir,
		policy:       cfg.Durability,
		segmentCap:   cfg.SegmentBytes,
		groupWindow:  cfg.GroupCommitWindow,
		active:       seg,
		nextOffset:   recovered.NextOffset,
		lastEpoch:    recovered.MaxEpoch,
		periodicStop: make(chan struct{}),
		notifyCh:     make(chan struct{}),
		logger:       logger,
	}

	if cfg.Durability == config.DurabilityPeriodic {
		go w.periodicSyncLoop()
	}

	logger.Info().Str("dir", dir).Uint64("next_offset", w.nextOffset).Uint64("max_epoch", w.lastEpoch).
		Msg("wal opened")
	return w, nil
}

// Append writes entry with the given epoch and opTag, assigning it the
// next strictly-increasing offset, and returns the committed Entry. Sync
// behavior is governed by the configured DurabilityPolicy.
func (w *WAL) Append(epoch uint64, op OpTag, payload []byte) (Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e := Entry{Offset: w.nextOffset, Epoch: epoch, OpTag: op, Payload: payload}
	frame := e.Encode()

	if w.active.size+int64(len(frame)) > w.segmentCap {
		if err := w.rotateLocked(); err != nil {
			return Entry{}, err
		}
	}

	if err := w.active.append(frame); err != nil {
		return Entry{}, err
	}
	w.nextOffset++
	if epoch > w.lastEpoch {
		w.lastEpoch = epoch
	}

	switch w.policy {
	case config.DurabilityPerCommit:
		if err := w.active.sync(); err != nil {
			return Entry{}, err
		}
	case config.DurabilityGroup:
		w.pendingSync++
		if w.groupTimer == nil {
			w.groupTimer = time.AfterFunc(w.groupWindow, func() {
				w.mu.Lock()
				defer w.mu.Unlock()
				_ = w.active.sync()
				w.pendingSync = 0
				w.groupTimer = nil
			})
		}
	case config.DurabilityPeriodic:
		// flushed by periodicSyncLoop
	}

	close(w.notifyCh)
	w.notifyCh = make(chan struct{})

	return e, nil
}

// Wait returns a channel that closes the next time Append commits an
// entry, letting a tailing reader (the replication leader's streamer)
// block without polling.
func (w *WAL) Wait() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.notifyCh
}

// ReplayFrom returns every durable entry with Offset >= fromOffset, read
// directly off the segment files on disk, in order. The replication
// leader uses it both to serve a replica's catch-up range and, combined
// with Wait, to tail newly committed entries.
func (w *WAL) ReplayFrom(fromOffset uint64) ([]Entry, error) {
	var out []Entry
	err := Replay(w.dir, func(e Entry) error {
		if e.Offset >= fromOffset {
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

// Sync forces a durability barrier regardless of policy. Callers that need
// a guaranteed-durable offset (e.g. before acking a replica) call this
// directly rather than waiting for the configured policy's next flush.
func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active.sync()
}

func (w *WAL) periodicSyncLoop() {
	ticker := time.NewTicker(w.groupWindow)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.mu.Lock()
			_ = w.active.sync()
			w.mu.Unlock()
		case <-w.periodicStop:
			return
		}
	}
}

func (w *WAL) rotateLocked() error {
	if err := w.active.sync(); err != nil {
		return err
	}
	if err := w.active.close(); err != nil {
		return err
	}
	seg, err := openSegmentForAppend(w.dir, w.nextOffset)
	if err != nil {
		return err
	}
	w.active = seg
	w.logger.Debug().Uint64("start_offset", w.nextOffset).Msg("rotated wal segment")
	return nil
}

// NextOffset returns the offset that will be assigned to the next Append.
func (w *WAL) NextOffset() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.nextOffset
}

// LastEpoch returns the highest epoch seen in any durable entry, used to
// restore the transaction manager's epoch counter on restart.
func (w *WAL) LastEpoch() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastEpoch
}

// Close flushes and closes the active segment.
func (w *WAL) Close() error {
	w.periodicOnce.Do(func() { close(w.periodicStop) })
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.active.sync(); err != nil {
		return err
	}
	return w.active.close()
}
