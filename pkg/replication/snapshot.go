package replication

import (
	"hash/crc32"

	"github.com/cuemby/nexus/pkg/nexuserr"
)

// snapshotChunkBytes is the size of each SnapshotChunk payload; chosen to
// stay well under maxFrameBytes while amortizing per-frame overhead.
const snapshotChunkBytes = 4 << 20

// Snapshotter is the engine-side hook the leader uses to produce a
// consistent point-in-time copy of the graph for a replica joining cold
// (its Hello reports offset 0 while the leader's WAL is non-empty), and
// the hook a replica uses
// to install one it received. Implementations are expected to take their
// own consistency snapshot (e.g. under the storage engine's epoch
// machinery) rather than relying on the caller to quiesce writes.
type Snapshotter interface {
	// Snapshot returns a self-contained byte image of current state and
	// the WAL offset it is consistent as of.
	Snapshot() (data []byte, walOffset uint64, err error)
	// Restore replaces local state with data, which was produced by a
	// peer's Snapshot.
	Restore(data []byte) error
}

// sendSnapshot chunks data across the wire, preceded by SnapshotMeta and
// followed by SnapshotComplete.
func sendSnapshot(c *conn, snapshotID string, data []byte, walOffset uint64) error {
	chunkCount := (len(data) + snapshotChunkBytes - 1) / snapshotChunkBytes
	if chunkCount == 0 {
		chunkCount = 1
	}
	meta := SnapshotMeta{
		SnapshotID: snapshotID,
		TotalSize:  uint64(len(data)),
		ChunkCount: uint32(chunkCount),
		Checksum:   crc32.ChecksumIEEE(data),
		WalOffset:  walOffset,
	}
	if err := c.sendSnapshotMeta(meta); err != nil {
		return err
	}
	for i := 0; i < chunkCount; i++ {
		start := i * snapshotChunkBytes
		end := start + snapshotChunkBytes
		if end > len(data) {
			end = len(data)
		}
		chunk := data[start:end]
		msg := SnapshotChunk{
			SnapshotID: snapshotID,
			Index:      uint32(i),
			Data:       chunk,
			Checksum:   crc32.ChecksumIEEE(chunk),
		}
		if err := c.sendSnapshotChunk(msg); err != nil {
			return err
		}
	}
	return c.sendSnapshotComplete(SnapshotComplete{SnapshotID: snapshotID, Success: true})
}

// receiveSnapshot reads a SnapshotMeta, its chunks, and the closing
// SnapshotComplete, verifying both per-chunk and whole-payload checksums.
func receiveSnapshot(c *conn) (data []byte, walOffset uint64, err error) {
	msg, err := c.recv()
	if err != nil {
		return nil, 0, err
	}
	meta, ok := msg.(SnapshotMeta)
	if !ok {
		return nil, 0, nexuserr.New(nexuserr.KindReplication, nexuserr.CodeProtocolMismatch, "expected SnapshotMeta")
	}

	buf := make([]byte, 0, meta.TotalSize)
	for i := uint32(0); i < meta.ChunkCount; i++ {
		msg, err := c.recv()
		if err != nil {
			return nil, 0, err
		}
		chunk, ok := msg.(SnapshotChunk)
		if !ok {
			return nil, 0, nexuserr.New(nexuserr.KindReplication, nexuserr.CodeProtocolMismatch, "expected SnapshotChunk")
		}
		if chunk.SnapshotID != meta.SnapshotID || chunk.Index != i {
			return nil, 0, nexuserr.New(nexuserr.KindReplication, nexuserr.CodeProtocolMismatch, "snapshot chunk out of sequence")
		}
		if crc32.ChecksumIEEE(chunk.Data) != chunk.Checksum {
			return nil, 0, nexuserr.New(nexuserr.KindReplication, nexuserr.CodeChecksumMismatch, "snapshot chunk failed checksum verification")
		}
		buf = append(buf, chunk.Data...)
	}
	if crc32.ChecksumIEEE(buf) != meta.Checksum {
		return nil, 0, nexuserr.New(nexuserr.KindReplication, nexuserr.CodeChecksumMismatch, "snapshot payload failed checksum verification")
	}

	msg, err = c.recv()
	if err != nil {
		return nil, 0, err
	}
	complete, ok := msg.(SnapshotComplete)
	if !ok || !complete.Success {
		return nil, 0, nexuserr.New(nexuserr.KindReplication, nexuserr.CodeProtocolMismatch, "snapshot transfer did not complete successfully")
	}
	return buf, meta.WalOffset, nil
}
