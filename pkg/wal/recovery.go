package wal

import (
	"fmt"
	"os"

	"github.com/cuemby/nexus/pkg/log"
)

// RecoveryResult summarizes what replaying the WAL on disk found.
type RecoveryResult struct {
	NextOffset           uint64 // offset to assign to the next Append
	MaxEpoch             uint64 // highest epoch seen in any durable entry
	StartOffsetForAppend uint64 // start offset of the segment Open should reuse for appends
}

// Recover replays every segment in dir in order. A short frame or checksum
// failure in any segment but the last is rejected without truncating,
// since that indicates real corruption rather than a crash artifact; in
// the final segment either one is treated as a torn tail, and everything
// from that frame on is truncated.
func Recover(dir string) (RecoveryResult, error) {
	logger := log.WithComponent("wal")

	offsets, err := listSegments(dir)
	if err != nil {
		return RecoveryResult{}, err
	}
	if len(offsets) == 0 {
		return RecoveryResult{NextOffset: 0, MaxEpoch: 0, StartOffsetForAppend: 0}, nil
	}

	result := RecoveryResult{}
	expectedOffset := offsets[0]

	for i, start := range offsets {
		isLast := i == len(offsets)-1
		path := segmentPath(dir, start)
		data, err := os.ReadFile(path)
		if err != nil {
			return RecoveryResult{}, fmt.Errorf("read wal segment %s: %w", path, err)
		}

		pos := 0
		for pos < len(data) {
			entry, n, err := DecodeEntry(data[pos:])
			if err != nil {
				if !isLast {
					return RecoveryResult{}, fmt.Errorf("corrupt wal segment %s at byte %d: %w", path, pos, err)
				}
				// Checksum failure on the final segment's tail: treat as a
				// torn write and truncate, same as a short read.
				logger.Warn().Str("segment", path).Int("offset_in_segment", pos).
					Msg("truncating corrupt tail of final wal segment")
				break
			}
			if n == 0 {
				if !isLast {
					return RecoveryResult{}, fmt.Errorf("short wal frame in non-final segment %s at byte %d", path, pos)
				}
				logger.Warn().Str("segment", path).Int("offset_in_segment", pos).
					Msg("truncating torn tail of final wal segment")
				break
			}
			if entry.Offset != expectedOffset {
				return RecoveryResult{}, fmt.Errorf("wal offset gap: expected %d, got %d in %s", expectedOffset, entry.Offset, path)
			}
			expectedOffset = entry.Offset + 1
			result.NextOffset = expectedOffset
			if entry.Epoch > result.MaxEpoch {
				result.MaxEpoch = entry.Epoch
			}
			pos += n
		}

		if isLast && pos < len(data) {
			seg, err := openSegmentForAppend(dir, start)
			if err != nil {
				return RecoveryResult{}, err
			}
			if err := seg.truncate(int64(pos)); err != nil {
				seg.close()
				return RecoveryResult{}, err
			}
			if err := seg.close(); err != nil {
				return RecoveryResult{}, err
			}
		}
		if isLast {
			result.StartOffsetForAppend = start
		}
	}

	return result, nil
}

// Replay streams every valid entry across all segments in dir, in offset
// order, invoking fn for each. A short frame ends its segment silently in
// any segment; a checksum failure is skipped silently on the final segment
// and aborts replay with an error elsewhere. WAL.ReplayFrom uses it, and
// the replication leader calls that to serve entries after a given offset.
func Replay(dir string, fn func(Entry) error) error {
	offsets, err := listSegments(dir)
	if err != nil {
		return err
	}
	for i, start := range offsets {
		isLast := i == len(offsets)-1
		path := segmentPath(dir, start)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read wal segment %s: %w", path, err)
		}
		pos := 0
		for pos < len(data) {
			entry, n, err := DecodeEntry(data[pos:])
			if err != nil {
				if isLast {
					break
				}
				return fmt.Errorf("corrupt wal segment %s at byte %d: %w", path, pos, err)
			}
			if n == 0 {
				break
			}
			if err := fn(entry); err != nil {
				return err
			}
			pos += n
		}
	}
	return nil
}
