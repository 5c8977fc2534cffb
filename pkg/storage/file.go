package storage

import (
	"fmt"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"

	"github.com/cuemby/nexus/pkg/log"
)

// DataFile is a single memory-mapped primary data file: header + node
// segment + relationship directory/segments + property segment + adjacency
// segment. All segment growth keeps prior offsets valid by
// remapping rather than moving data.
type DataFile struct {
	mu sync.RWMutex

	path   string
	file   *os.File
	mapped mmap.MMap
	header *Header
}

// OpenDataFile opens path, creating it with a fresh header+segments if it
// doesn't exist. A magic/version mismatch on an existing file is fatal
//.
func OpenDataFile(path string) (*DataFile, error) {
	logger := log.WithComponent("storage")

	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}

	df := &DataFile{path: path, file: f}

	if isNew {
		if err := df.initFresh(); err != nil {
			f.Close()
			return nil, err
		}
		logger.Info().Str("path", path).Msg("initialized new data file")
	} else {
		if err := df.mapExisting(); err != nil {
			f.Close()
			return nil, err
		}
		logger.Info().Str("path", path).Uint64("file_size", df.header.FileSize).Msg("opened existing data file")
	}
	return df, nil
}

func (df *DataFile) initFresh() error {
	nodeSegSize := uint64(GrowthFloor)
	relDirSize := uint64(GrowthFloor)
	propSegSize := uint64(GrowthFloor)
	adjSegSize := uint64(GrowthFloor)

	h := &Header{
		Magic:         Magic,
		Version:       FormatVersion,
		NodeSegOffset: HeaderSize,
		NodeSegSize:   nodeSegSize,
		NodeCount:     0,
		RelDirOffset:  HeaderSize + nodeSegSize,
		RelDirSize:    relDirSize,
		PropSegOffset: HeaderSize + nodeSegSize + relDirSize,
		PropSegSize:   propSegSize,
		PropSegUsed:   0,
		AdjSegOffset:  HeaderSize + nodeSegSize + relDirSize + propSegSize,
		AdjSegSize:    adjSegSize,
		AdjSegUsed:    0,
	}
	h.FileSize = h.AdjSegOffset + h.AdjSegSize

	if err := df.file.Truncate(int64(h.FileSize)); err != nil {
		return fmt.Errorf("truncate fresh data file: %w", err)
	}
	if _, err := df.file.WriteAt(h.Encode(), 0); err != nil {
		return fmt.Errorf("write fresh header: %w", err)
	}
	df.header = h
	return df.remap()
}

func (df *DataFile) mapExisting() error {
	hdrBuf := make([]byte, HeaderSize)
	if _, err := df.file.ReadAt(hdrBuf, 0); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	h, err := DecodeHeader(hdrBuf)
	if err != nil {
		return fmt.Errorf("fatal: data file header invalid: %w", err)
	}
	df.header = h
	return df.remap()
}

func (df *DataFile) remap() error {
	if df.mapped != nil {
		if err := df.mapped.Unmap(); err != nil {
			return fmt.Errorf("unmap before remap: %w", err)
		}
	}
	info, err := df.file.Stat()
	if err != nil {
		return fmt.Errorf("stat data file: %w", err)
	}
	if uint64(info.Size()) != df.header.FileSize {
		if err := df.file.Truncate(int64(df.header.FileSize)); err != nil {
			return fmt.Errorf("resize data file: %w", err)
		}
	}
	m, err := mmap.Map(df.file, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("mmap data file: %w", err)
	}
	df.mapped = m
	return nil
}

// ReadAt copies n bytes starting at offset out of the mapped region.
func (df *DataFile) ReadAt(offset uint64, n int) []byte {
	df.mu.RLock()
	defer df.mu.RUnlock()
	out := make([]byte, n)
	copy(out, df.mapped[offset:offset+uint64(n)])
	return out
}

// WriteAt copies data into the mapped region at offset. Callers are
// responsible for fsync/WAL durability; this only updates the mapping.
func (df *DataFile) WriteAt(offset uint64, data []byte) {
	df.mu.Lock()
	defer df.mu.Unlock()
	copy(df.mapped[offset:], data)
}

// Sync flushes the mapped region to disk.
func (df *DataFile) Sync() error {
	df.mu.RLock()
	defer df.mu.RUnlock()
	return df.mapped.Flush()
}

// Header returns a copy of the current header.
func (df *DataFile) Header() Header {
	df.mu.RLock()
	defer df.mu.RUnlock()
	return *df.header
}

func (df *DataFile) persistHeader() error {
	if _, err := df.file.WriteAt(df.header.Encode(), 0); err != nil {
		return fmt.Errorf("persist header: %w", err)
	}
	return nil
}

// GrowNodeSegment doubles the node segment (with a 64 MiB floor), remapping
// the file. Returns ErrOutOfSpace only if the underlying filesystem refuses
// the resize.
func (df *DataFile) GrowNodeSegment() error {
	df.mu.Lock()
	defer df.mu.Unlock()
	return df.growSegment("node", &df.header.NodeSegSize, &df.header.RelDirOffset)
}

// GrowRelationshipSegment doubles the relationship segment.
func (df *DataFile) GrowRelationshipSegment() error {
	df.mu.Lock()
	defer df.mu.Unlock()
	return df.growSegment("relationship", &df.header.RelDirSize, &df.header.PropSegOffset)
}

// GrowPropertySegment doubles the property segment.
func (df *DataFile) GrowPropertySegment() error {
	df.mu.Lock()
	defer df.mu.Unlock()
	return df.growSegment("property", &df.header.PropSegSize, &df.header.AdjSegOffset)
}

// GrowAdjacencySegment doubles the adjacency segment (the last segment, so
// nothing after it needs shifting).
func (df *DataFile) GrowAdjacencySegment() error {
	df.mu.Lock()
	defer df.mu.Unlock()
	old := df.header.AdjSegSize
	grown := nextCapacity(old)
	delta := grown - old
	df.header.AdjSegSize = grown
	df.header.FileSize += delta
	if err := df.file.Truncate(int64(df.header.FileSize)); err != nil {
		df.header.AdjSegSize = old
		df.header.FileSize -= delta
		return ErrOutOfSpace("adjacency")
	}
	if err := df.remapLocked(); err != nil {
		df.header.AdjSegSize = old
		df.header.FileSize -= delta
		return ErrOutOfSpace("adjacency")
	}
	return df.persistHeader()
}

// growSegment grows a non-terminal segment by shifting every segment that
// follows it further into the file. Whole-file rewrite is the simplest
// correct approach for a background-compaction-friendly layout; it only
// runs when a segment is actually exhausted, not on the hot path.
func (df *DataFile) growSegment(name string, size *uint64, nextOffset *uint64) error {
	oldSize := *size
	grown := nextCapacity(oldSize)
	delta := grown - oldSize
	shiftStart := *nextOffset

	newFileSize := df.header.FileSize + delta
	if err := df.file.Truncate(int64(newFileSize)); err != nil {
		return ErrOutOfSpace(name)
	}

	// Shift everything from shiftStart to the old end of file forward by delta.
	tail := make([]byte, df.header.FileSize-shiftStart)
	copy(tail, df.mapped[shiftStart:df.header.FileSize])
	if _, err := df.file.WriteAt(tail, int64(shiftStart+delta)); err != nil {
		return fmt.Errorf("shift segments during grow: %w", err)
	}

	*size = grown
	df.shiftOffsetsAfter(shiftStart, delta)
	df.header.FileSize = newFileSize

	if err := df.remapLocked(); err != nil {
		return fmt.Errorf("remap after grow: %w", err)
	}
	return df.persistHeader()
}

func (df *DataFile) shiftOffsetsAfter(threshold, delta uint64) {
	if df.header.RelDirOffset >= threshold {
		df.header.RelDirOffset += delta
	}
	if df.header.PropSegOffset >= threshold {
		df.header.PropSegOffset += delta
	}
	if df.header.AdjSegOffset >= threshold {
		df.header.AdjSegOffset += delta
	}
}

func (df *DataFile) remapLocked() error {
	if df.mapped != nil {
		if err := df.mapped.Unmap(); err != nil {
			return err
		}
	}
	m, err := mmap.Map(df.file, mmap.RDWR, 0)
	if err != nil {
		return err
	}
	df.mapped = m
	return nil
}

// Snapshot returns a copy of the entire mapped region: header, every
// segment, all in one self-contained image a replica can restore from.
func (df *DataFile) Snapshot() []byte {
	df.mu.RLock()
	defer df.mu.RUnlock()
	out := make([]byte, len(df.mapped))
	copy(out, df.mapped)
	return out
}

// Restore replaces the file's entire contents with data (a prior Snapshot
// image) and remaps. The caller must hold GraphStorage's write lock and is
// responsible for making sure nothing else touches the file concurrently.
func (df *DataFile) Restore(data []byte) error {
	df.mu.Lock()
	defer df.mu.Unlock()
	if df.mapped != nil {
		if err := df.mapped.Unmap(); err != nil {
			return fmt.Errorf("unmap before restore: %w", err)
		}
		df.mapped = nil
	}
	if err := df.file.Truncate(int64(len(data))); err != nil {
		return fmt.Errorf("truncate for restore: %w", err)
	}
	if _, err := df.file.WriteAt(data, 0); err != nil {
		return fmt.Errorf("write restore image: %w", err)
	}
	hdrBuf := make([]byte, HeaderSize)
	if _, err := df.file.ReadAt(hdrBuf, 0); err != nil {
		return fmt.Errorf("read restored header: %w", err)
	}
	h, err := DecodeHeader(hdrBuf)
	if err != nil {
		return fmt.Errorf("fatal: restored data file header invalid: %w", err)
	}
	df.header = h
	m, err := mmap.Map(df.file, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("mmap restored data file: %w", err)
	}
	df.mapped = m
	return nil
}

// Close flushes and unmaps the file.
func (df *DataFile) Close() error {
	df.mu.Lock()
	defer df.mu.Unlock()
	if df.mapped != nil {
		if err := df.mapped.Flush(); err != nil {
			return fmt.Errorf("flush on close: %w", err)
		}
		if err := df.mapped.Unmap(); err != nil {
			return fmt.Errorf("unmap on close: %w", err)
		}
	}
	return df.file.Close()
}
