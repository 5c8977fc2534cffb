package engine

// catalogStats implements planner.Stats over the live label and property
// indexes, so the optimizer's cardinality estimates reflect the database's
// actual current state rather than planner.NopStats' fixed guesses.
type catalogStats struct {
	db *Database
}

func newCatalogStats(db *Database) *catalogStats {
	return &catalogStats{db: db}
}

func (s *catalogStats) LabelCount(labelID uint32) int {
	if n := s.db.labels.Count(labelID); n > 0 {
		return n
	}
	return int(s.db.storage.NodeCount())
}

func (s *catalogStats) HasPropertyIndex(labelID, keyID uint32) bool {
	return s.db.props.Has(labelID, keyID)
}

func (s *catalogStats) PropertyIndexCount(labelID, keyID uint32) int {
	return s.db.props.Len(labelID, keyID)
}

func (s *catalogStats) HasVectorIndex(labelID uint32) bool {
	s.db.vecMu.RLock()
	defer s.db.vecMu.RUnlock()
	_, ok := s.db.vectorLabels[labelID]
	return ok
}
