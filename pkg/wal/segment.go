package wal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const segmentExt = ".wal"

// segmentPath returns the path of the segment file whose first entry has
// the given offset.
func segmentPath(dir string, startOffset uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%020d%s", startOffset, segmentExt))
}

// listSegments returns the start offsets of every segment file in dir, in
// ascending order.
func listSegments(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list wal segments: %w", err)
	}
	var offsets []uint64
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), segmentExt) {
			continue
		}
		base := strings.TrimSuffix(e.Name(), segmentExt)
		off, err := strconv.ParseUint(base, 10, 64)
		if err != nil {
			continue
		}
		offsets = append(offsets, off)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	return offsets, nil
}

// segment wraps one append-only WAL file.
type segment struct {
	startOffset uint64
	file        *os.File
	size        int64
}

func openSegmentForAppend(dir string, startOffset uint64) (*segment, error) {
	path := segmentPath(dir, startOffset)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open wal segment %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat wal segment %s: %w", path, err)
	}
	return &segment{startOffset: startOffset, file: f, size: info.Size()}, nil
}

func (s *segment) append(frame []byte) error {
	n, err := s.file.Write(frame)
	if err != nil {
		return fmt.Errorf("append wal frame: %w", err)
	}
	s.size += int64(n)
	return nil
}

func (s *segment) sync() error {
	return s.file.Sync()
}

func (s *segment) close() error {
	return s.file.Close()
}

// truncate discards everything in the segment after offset bytes, used to
// drop a torn tail left by a crash mid-write.
func (s *segment) truncate(offset int64) error {
	if err := s.file.Truncate(offset); err != nil {
		return fmt.Errorf("truncate torn wal segment: %w", err)
	}
	s.size = offset
	return nil
}
