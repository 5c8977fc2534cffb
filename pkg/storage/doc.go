// Package storage implements Nexus's graph-native on-disk storage engine:
// a single memory-mapped primary data file holding fixed-width node and
// relationship records, a property blob region, and a compressed
// adjacency index. All relationships share one relationship segment: a
// RelationshipId carries its TypeId in its upper 32 bits, but records of
// different types are not stored apart.
//
// The package owns the file exclusively — nothing outside pkg/storage reads
// or writes the mapped region directly. NodeId and RelationshipId are the
// handles the graph operations take; NodeRecord's offset fields and the
// block offsets AdjacencyIndex returns are exported as well.
package storage
