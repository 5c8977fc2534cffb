package planner

// Stats is the storage/index cardinality information the optimizer needs
//. pkg/engine
// wires a concrete implementation over pkg/index and pkg/storage.
type Stats interface {
	// LabelCount returns the number of nodes carrying labelID, or the
	// total node count if labelID is unknown to the caller (full scan).
	LabelCount(labelID uint32) int
	// HasPropertyIndex reports whether (labelID, keyID) has a secondary
	// property index available for equality/range lookups.
	HasPropertyIndex(labelID, keyID uint32) bool
	// PropertyIndexCount returns the number of entries indexed for
	// (labelID, keyID), used for index-scan cost estimation.
	PropertyIndexCount(labelID, keyID uint32) int
	// HasVectorIndex reports whether labelID has a KNN vector index.
	HasVectorIndex(labelID uint32) bool
}

// NopStats is a Stats implementation with no information available; every
// estimate falls back to the cost model's documented defaults. Useful for
// planning before any data has been written, and in tests.
type NopStats struct{}

func (NopStats) LabelCount(uint32) int                { return 1000 }
func (NopStats) HasPropertyIndex(uint32, uint32) bool { return false }
func (NopStats) PropertyIndexCount(uint32, uint32) int { return 0 }
func (NopStats) HasVectorIndex(uint32) bool           { return false }
