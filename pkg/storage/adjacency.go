package storage

import (
	"encoding/binary"
	"fmt"
	"iter"
	"sort"
)

// Direction distinguishes outgoing from incoming relationships in an
// adjacency block.
type Direction uint8

const (
	Outgoing Direction = iota
	Incoming
)

// AdjacencyEntry is one edge as seen from a node's adjacency list.
type AdjacencyEntry struct {
	Direction  Direction
	TypeID     uint32
	RelID      uint64
	NeighborID uint64
}

// adjacencyGroup is one (direction, typeID) bucket within a block, holding
// its entries pre-sorted by RelID so merge-join style traversal and delta
// encoding both work.
type adjacencyGroup struct {
	direction Direction
	typeID    uint32
	pairs     [][2]uint64 // (relID, neighborID), sorted by relID
}

// AdjacencyIndex manages append-only adjacency blocks inside a DataFile's
// adjacency segment. Blocks are immutable once written: appending an edge
// decodes the node's current block, adds the entry, and bump-allocates a
// brand new block, leaving the old bytes in the segment unreferenced;
// compaction does not reclaim them (see compaction.go).
type AdjacencyIndex struct {
	df *DataFile
}

func NewAdjacencyIndex(df *DataFile) *AdjacencyIndex {
	return &AdjacencyIndex{df: df}
}

// AppendEdge adds one directed entry to the node's adjacency block,
// returning the new block's offset (callers store this back into the
// NodeRecord's FirstRelOffset). offset 0 means "no block yet".
func (ai *AdjacencyIndex) AppendEdge(offset uint64, dir Direction, typeID uint32, relID, neighborID uint64) (uint64, error) {
	groups, err := ai.readBlock(offset)
	if err != nil {
		return 0, err
	}
	groups = insertIntoGroups(groups, dir, typeID, relID, neighborID)
	return ai.writeBlock(groups)
}

// Iter streams every entry in the node's adjacency block matching dir and,
// if typeFilter is non-nil, the given TypeId. Implemented as a
// range-over-func iterator; readBlock decodes the whole block before the
// first entry is yielded.
func (ai *AdjacencyIndex) Iter(offset uint64, dir Direction, typeFilter *uint32) iter.Seq[AdjacencyEntry] {
	return func(yield func(AdjacencyEntry) bool) {
		if offset == 0 {
			return
		}
		groups, err := ai.readBlock(offset)
		if err != nil {
			return
		}
		for _, g := range groups {
			if g.direction != dir {
				continue
			}
			if typeFilter != nil && g.typeID != *typeFilter {
				continue
			}
			for _, p := range g.pairs {
				entry := AdjacencyEntry{Direction: dir, TypeID: g.typeID, RelID: p[0], NeighborID: p[1]}
				if !yield(entry) {
					return
				}
			}
		}
	}
}

// Degree returns the number of matching entries by counting Iter's
// output, without building an []AdjacencyEntry.
func (ai *AdjacencyIndex) Degree(offset uint64, dir Direction, typeFilter *uint32) int {
	n := 0
	for range ai.Iter(offset, dir, typeFilter) {
		n++
	}
	return n
}

func insertIntoGroups(groups []adjacencyGroup, dir Direction, typeID uint32, relID, neighborID uint64) []adjacencyGroup {
	for i := range groups {
		if groups[i].direction == dir && groups[i].typeID == typeID {
			groups[i].pairs = insertSorted(groups[i].pairs, relID, neighborID)
			return groups
		}
	}
	return append(groups, adjacencyGroup{
		direction: dir,
		typeID:    typeID,
		pairs:     [][2]uint64{{relID, neighborID}},
	})
}

func insertSorted(pairs [][2]uint64, relID, neighborID uint64) [][2]uint64 {
	i := sort.Search(len(pairs), func(i int) bool { return pairs[i][0] >= relID })
	pairs = append(pairs, [2]uint64{})
	copy(pairs[i+1:], pairs[i:])
	pairs[i] = [2]uint64{relID, neighborID}
	return pairs
}

// block wire format:
//   uint32 groupCount
//   per group: direction(1) typeID(varint) scheme(1) count(varint) dataLen(varint) data
func (ai *AdjacencyIndex) readBlock(offset uint64) ([]adjacencyGroup, error) {
	if offset == 0 {
		return nil, nil
	}
	hdr := ai.df.ReadAt(offset, 4)
	groupCount := binary.LittleEndian.Uint32(hdr)
	pos := offset + 4

	groups := make([]adjacencyGroup, 0, groupCount)
	for i := uint32(0); i < groupCount; i++ {
		meta := ai.df.ReadAt(pos, 1)
		dir := Direction(meta[0])
		pos++

		typeID, n, err := readVarintAt(ai.df, pos)
		if err != nil {
			return nil, err
		}
		pos += uint64(n)

		schemeByte := ai.df.ReadAt(pos, 1)
		scheme := Scheme(schemeByte[0])
		pos++

		count, n, err := readVarintAt(ai.df, pos)
		if err != nil {
			return nil, err
		}
		pos += uint64(n)

		dataLen, n, err := readVarintAt(ai.df, pos)
		if err != nil {
			return nil, err
		}
		pos += uint64(n)

		data := ai.df.ReadAt(pos, int(dataLen))
		pos += dataLen

		pairs := decodeAdjacencyIDs(scheme, data, int(count))
		groups = append(groups, adjacencyGroup{direction: dir, typeID: uint32(typeID), pairs: pairs})
	}
	return groups, nil
}

func (ai *AdjacencyIndex) writeBlock(groups []adjacencyGroup) (uint64, error) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(len(groups)))

	for _, g := range groups {
		buf = append(buf, byte(g.direction))
		buf = appendUvarint(buf, uint64(g.typeID))
		scheme, encoded := ChooseAdaptiveScheme(g.pairs)
		buf = append(buf, byte(scheme))
		buf = appendUvarint(buf, uint64(len(g.pairs)))
		buf = appendUvarint(buf, uint64(len(encoded)))
		buf = append(buf, encoded...)
	}

	offset, err := ai.allocate(uint64(len(buf)))
	if err != nil {
		return 0, err
	}
	ai.df.WriteAt(offset, buf)
	return offset, nil
}

func (ai *AdjacencyIndex) allocate(n uint64) (uint64, error) {
	df := ai.df
	df.mu.Lock()
	h := df.header
	for h.AdjSegUsed+n > h.AdjSegSize {
		df.mu.Unlock()
		if err := df.GrowAdjacencySegment(); err != nil {
			return 0, err
		}
		df.mu.Lock()
		h = df.header
	}
	offset := h.AdjSegOffset + h.AdjSegUsed
	h.AdjSegUsed += n
	df.mu.Unlock()
	if err := df.persistHeader(); err != nil {
		return 0, err
	}
	return offset, nil
}

func readVarintAt(df *DataFile, offset uint64) (uint64, int, error) {
	// Varints are at most 10 bytes; read a bounded window and decode.
	window := df.ReadAt(offset, binary.MaxVarintLen64)
	v, n := binary.Uvarint(window)
	if n <= 0 {
		return 0, 0, fmt.Errorf("readVarintAt: invalid varint at offset %d", offset)
	}
	return v, n, nil
}
