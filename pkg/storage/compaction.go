package storage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cuemby/nexus/pkg/log"
)

// EpochPinner reports the oldest epoch any active transaction still needs
// to see, so compaction never reclaims a version a running reader depends
// on.
type EpochPinner interface {
	MinPinnedEpoch() uint64
}

// Compactor scans a GraphStorage's primary data file for tombstoned
// node/relationship slots that are no longer visible to any pinned epoch
// and reports them. It does not rewrite the file, so no space is
// reclaimed.
type Compactor struct {
	gs     *GraphStorage
	pinner EpochPinner
	logger zerolog.Logger
}

func NewCompactor(gs *GraphStorage, pinner EpochPinner) *Compactor {
	return &Compactor{gs: gs, pinner: pinner, logger: log.WithComponent("compaction")}
}

// CompactionStats summarizes one compaction pass.
type CompactionStats struct {
	NodesScanned       uint64
	NodesReclaimed     uint64
	RelationshipsScanned   uint64
	RelationshipsReclaimed uint64
	BytesBefore        uint64
	BytesAfter         uint64
}

// Plan scans the current file and reports what a compaction pass would
// reclaim, without mutating anything, holding gs.mu's read lock for the
// whole scan. A deleted node counts when its DeletedEpoch is below the
// minimum pinned epoch; relationship records carry no delete epoch, so
// every deleted relationship counts.
func (c *Compactor) Plan() (CompactionStats, error) {
	minEpoch := c.pinner.MinPinnedEpoch()
	stats := CompactionStats{}

	h := c.gs.df.Header()
	stats.BytesBefore = h.FileSize

	c.gs.mu.RLock()
	defer c.gs.mu.RUnlock()

	for id := uint64(0); id < h.NodeCount; id++ {
		rec, ok := c.gs.readNodeRecordLocked(id)
		if !ok {
			continue
		}
		stats.NodesScanned++
		if rec.Deleted() && rec.DeletedEpoch < minEpoch {
			stats.NodesReclaimed++
		}
	}
	for idx := uint32(0); uint64(idx) < h.RelSegCount; idx++ {
		rec, ok := c.gs.readRelRecordLocked(idx)
		if !ok {
			continue
		}
		stats.RelationshipsScanned++
		if rec.Deleted() {
			stats.RelationshipsReclaimed++
		}
	}
	return stats, nil
}

// Run computes and logs the Plan. When nothing is reclaimable it returns
// the stats with a nil error; otherwise it returns the stats together with
// an error. It drops no records and rewrites no adjacency blocks.
func (c *Compactor) Run() (CompactionStats, error) {
	minEpoch := c.pinner.MinPinnedEpoch()
	stats, err := c.Plan()
	if err != nil {
		return stats, err
	}

	c.logger.Info().
		Uint64("min_pinned_epoch", minEpoch).
		Uint64("nodes_reclaimable", stats.NodesReclaimed).
		Uint64("rels_reclaimable", stats.RelationshipsReclaimed).
		Msg("compaction plan computed")

	if stats.NodesReclaimed == 0 && stats.RelationshipsReclaimed == 0 {
		c.logger.Debug().Msg("nothing to reclaim, skipping rewrite")
		return stats, nil
	}

	// Reclaimable slots are reported, not removed: the node, relationship
	// and adjacency segments are left as they are.
	return stats, fmt.Errorf("compaction rewrite not yet safe to run: %d nodes and %d relationships are reclaimable, pinned epoch %d", stats.NodesReclaimed, stats.RelationshipsReclaimed, minEpoch)
}
