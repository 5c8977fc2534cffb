// Package index provides the secondary, rebuildable structures that sit
// beside primary graph storage: an exact label→node-set index, a sorted
// property index for range scans, a BM25 full-text index over tokenized
// property text, and a flat (brute-force) KNN vector index.
//
// None of these own authoritative data. Every index can be rebuilt from
// primary storage by replaying node/relationship creation; they exist to
// make the planner's index-selection candidates cheap to execute.
package index
