package engine

import "github.com/cuemby/nexus/pkg/storage"

// Compact runs one compaction pass over the primary data file (see
// storage.Compactor.Run): it counts node/relationship slots tombstoned
// before the oldest epoch any pinned transaction still needs, returns an
// error when any are reclaimable, and does not rewrite the file.
func (db *Database) Compact() (storage.CompactionStats, error) {
	return db.compactor.Run()
}

// CompactionPlan reports what a compaction pass would reclaim, without
// rewriting anything.
func (db *Database) CompactionPlan() (storage.CompactionStats, error) {
	return db.compactor.Plan()
}
