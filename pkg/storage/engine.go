package storage

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cuemby/nexus/pkg/events"
	"github.com/cuemby/nexus/pkg/log"
	"github.com/cuemby/nexus/pkg/wal"
)

// LabelIndex is the subset of pkg/index's label index GraphStorage needs,
// injected so storage stays independent of the index package.
type LabelIndex interface {
	AddNode(labelID uint32, nodeID uint64)
	RemoveNode(labelID uint32, nodeID uint64)
}

// nopLabelIndex is used when no index has been wired yet.
type nopLabelIndex struct{}

func (nopLabelIndex) AddNode(uint32, uint64)    {}
func (nopLabelIndex) RemoveNode(uint32, uint64) {}

// WalAppender is the subset of *wal.WAL GraphStorage needs to originate a
// physical op log entry for a mutation, injected so storage stays
// independent of the wal package's concrete type.
type WalAppender interface {
	Append(epoch uint64, op wal.OpTag, payload []byte) (wal.Entry, error)
}

// GraphStorage is the façade other packages use to mutate and read the
// graph. It owns a DataFile and the adjacency index built on
// top of it, and publishes invalidation events for every mutation.
type GraphStorage struct {
	mu sync.RWMutex

	df     *DataFile
	adj    *AdjacencyIndex
	broker *events.Broker
	index  LabelIndex
	logger zerolog.Logger
	wal    WalAppender

	compressionScheme Scheme
}

// Option configures a GraphStorage at construction time.
type Option func(*GraphStorage)

// WithLabelIndex wires a label index so create_node/delete_node keep it
// current.
func WithLabelIndex(idx LabelIndex) Option {
	return func(gs *GraphStorage) { gs.index = idx }
}

// WithEventBroker wires the invalidation event broker.
func WithEventBroker(b *events.Broker) Option {
	return func(gs *GraphStorage) { gs.broker = b }
}

// WithPropertyCompression sets the scheme used for newly written property
// blobs.
func WithPropertyCompression(scheme Scheme) Option {
	return func(gs *GraphStorage) { gs.compressionScheme = scheme }
}

// WithWAL wires a physical op log: every CreateNode/CreateRelationship/
// DeleteNode/DeleteRelationship appends one entry after the mutation is
// written to the mapped data file. The data file is its own source of
// truth, flushed to disk when it is closed; this WAL exists for epoch/offset
// bookkeeping and replication shipping, not ARIES-style write-ahead
// durability, so logging after the fact rather than before is deliberate.
func WithWAL(w WalAppender) Option {
	return func(gs *GraphStorage) { gs.wal = w }
}

// Open opens (or creates) the primary data file at dataDir/graph.ndb and
// returns a ready GraphStorage.
func Open(dataDir string, opts ...Option) (*GraphStorage, error) {
	df, err := OpenDataFile(dataDir + "/graph.ndb")
	if err != nil {
		return nil, fmt.Errorf("open graph storage: %w", err)
	}
	gs := &GraphStorage{
		df:                df,
		adj:               NewAdjacencyIndex(df),
		index:             nopLabelIndex{},
		logger:            log.WithComponent("storage"),
		compressionScheme: SchemeZstd,
	}
	for _, opt := range opts {
		opt(gs)
	}
	return gs, nil
}

// CreateNode allocates a new node with the given primary label and
// properties, visible starting at createdEpoch.
// Fails with OutOfSpace if the node segment cannot grow.
func (gs *GraphStorage) CreateNode(primaryLabel uint32, props PropertyMap, createdEpoch uint64) (uint64, error) {
	gs.mu.Lock()
	propOffset, err := gs.writeProperties(props)
	if err != nil {
		gs.mu.Unlock()
		return 0, err
	}

	nodeID, err := gs.allocNodeSlot()
	if err != nil {
		gs.mu.Unlock()
		return 0, err
	}

	rec := &NodeRecord{
		PrimaryLabel: primaryLabel,
		PropOffset:   propOffset,
		CreatedEpoch: createdEpoch,
		DeletedEpoch: NoEpoch,
	}
	gs.writeNodeRecord(nodeID, rec)
	gs.mu.Unlock()

	gs.index.AddNode(primaryLabel, nodeID)
	gs.publish(events.KindNodeCreated, events.Event{LabelIDs: []uint32{primaryLabel}, NodeIDs: []uint64{nodeID}})
	gs.appendWAL(createdEpoch, wal.OpNodeCreate, func() ([]byte, error) {
		return EncodeNodeCreatePayload(primaryLabel, props, gs.compressionScheme)
	})

	gs.logger.Debug().Uint64("node_id", nodeID).Uint32("label", primaryLabel).Msg("created node")
	return nodeID, nil
}

// CreateRelationship links source and target with typeID, failing with
// NodeNotFound if either endpoint is missing.
func (gs *GraphStorage) CreateRelationship(source, target uint64, typeID uint32, props PropertyMap, createdEpoch uint64) (uint64, error) {
	gs.mu.Lock()

	srcRec, ok := gs.readNodeRecordLocked(source)
	if !ok {
		gs.mu.Unlock()
		return 0, ErrNodeNotFound(source)
	}
	tgtRec, ok := gs.readNodeRecordLocked(target)
	if !ok {
		gs.mu.Unlock()
		return 0, ErrNodeNotFound(target)
	}

	propOffset, err := gs.writeProperties(props)
	if err != nil {
		gs.mu.Unlock()
		return 0, err
	}

	index, err := gs.allocRelSlot()
	if err != nil {
		gs.mu.Unlock()
		return 0, err
	}
	relID := RelationshipID(typeID, index)

	rec := &RelationshipRecord{
		Source:     source,
		Target:     target,
		TypeID:     typeID,
		PropOffset: uint32(propOffset),
	}
	gs.writeRelRecord(index, rec)

	newSrcOffset, err := gs.adj.AppendEdge(srcRec.FirstRelOffset, Outgoing, typeID, relID, target)
	if err != nil {
		gs.mu.Unlock()
		return 0, err
	}
	srcRec.FirstRelOffset = newSrcOffset
	gs.writeNodeRecord(source, srcRec)

	newTgtOffset, err := gs.adj.AppendEdge(tgtRec.FirstRelOffset, Incoming, typeID, relID, source)
	if err != nil {
		gs.mu.Unlock()
		return 0, err
	}
	if target != source {
		tgtRec.FirstRelOffset = newTgtOffset
		gs.writeNodeRecord(target, tgtRec)
	} else {
		// self-loop: both directions live in the same block
		srcRec.FirstRelOffset = newTgtOffset
		gs.writeNodeRecord(source, srcRec)
	}
	gs.mu.Unlock()

	gs.publish(events.KindRelCreated, events.Event{TypeIDs: []uint32{typeID}, NodeIDs: []uint64{source, target}})
	gs.appendWAL(createdEpoch, wal.OpRelCreate, func() ([]byte, error) {
		return EncodeRelCreatePayload(source, target, typeID, props, gs.compressionScheme)
	})
	gs.logger.Debug().Uint64("rel_id", relID).Uint64("source", source).Uint64("target", target).Msg("created relationship")
	return relID, nil
}

// GetRelationships streams relID/neighborID pairs for node in dir, optionally
// filtered to a single type.
func (gs *GraphStorage) GetRelationships(nodeID uint64, dir Direction, typeFilter *uint32) ([]AdjacencyEntry, error) {
	gs.mu.RLock()
	rec, ok := gs.readNodeRecordLocked(nodeID)
	gs.mu.RUnlock()
	if !ok {
		return nil, ErrNodeNotFound(nodeID)
	}
	out := make([]AdjacencyEntry, 0, 8)
	for entry := range gs.adj.Iter(rec.FirstRelOffset, dir, typeFilter) {
		out = append(out, entry)
	}
	return out, nil
}

// GetNode returns the node's record and decoded properties if visible at
// epoch, verifying its checksum.
func (gs *GraphStorage) GetNode(nodeID uint64, epoch uint64) (*NodeRecord, PropertyMap, error) {
	gs.mu.RLock()
	rec, ok := gs.readNodeRecordLocked(nodeID)
	gs.mu.RUnlock()
	if !ok {
		return nil, nil, ErrNotFound("node", nodeID)
	}
	if !rec.Visible(epoch) {
		return nil, nil, ErrNotFound("node", nodeID)
	}
	props, err := gs.readProperties(rec.PropOffset)
	if err != nil {
		return nil, nil, err
	}
	return rec, props, nil
}

// GetRelationship returns the relationship's record and decoded properties.
// RelationshipRecord carries no CreatedEpoch: relationships inherit visibility
// from their endpoints and their own tombstone flag, so only the deleted flag
// is checked here.
func (gs *GraphStorage) GetRelationship(relID uint64) (*RelationshipRecord, PropertyMap, error) {
	_, index := SplitRelationshipID(relID)
	gs.mu.RLock()
	rec, ok := gs.readRelRecordLocked(index)
	gs.mu.RUnlock()
	if !ok || rec.Deleted() {
		return nil, nil, ErrNotFound("relationship", relID)
	}
	props, err := gs.readProperties(uint64(rec.PropOffset))
	if err != nil {
		return nil, nil, err
	}
	return rec, props, nil
}

// DeleteNode marks a node deleted as of deletedEpoch (tombstone; the slot
// itself is reclaimed only by compaction).
func (gs *GraphStorage) DeleteNode(nodeID uint64, deletedEpoch uint64) error {
	gs.mu.Lock()
	rec, ok := gs.readNodeRecordLocked(nodeID)
	if !ok {
		gs.mu.Unlock()
		return ErrNodeNotFound(nodeID)
	}
	rec.markDeleted()
	rec.DeletedEpoch = deletedEpoch
	gs.writeNodeRecord(nodeID, rec)
	gs.mu.Unlock()

	gs.index.RemoveNode(rec.PrimaryLabel, nodeID)
	gs.publish(events.KindNodeDeleted, events.Event{LabelIDs: []uint32{rec.PrimaryLabel}, NodeIDs: []uint64{nodeID}})
	gs.appendWAL(deletedEpoch, wal.OpNodeDelete, func() ([]byte, error) {
		return EncodeNodeDeletePayload(nodeID), nil
	})
	return nil
}

// DeleteRelationship marks a relationship deleted as of deletedEpoch.
func (gs *GraphStorage) DeleteRelationship(relID uint64, deletedEpoch uint64) error {
	typeID, index := SplitRelationshipID(relID)
	gs.mu.Lock()
	rec, ok := gs.readRelRecordLocked(index)
	if !ok {
		gs.mu.Unlock()
		return ErrNotFound("relationship", relID)
	}
	rec.markDeleted()
	gs.writeRelRecord(index, rec)
	gs.mu.Unlock()

	gs.publish(events.KindRelDeleted, events.Event{TypeIDs: []uint32{typeID}, NodeIDs: []uint64{rec.Source, rec.Target}})
	gs.appendWAL(deletedEpoch, wal.OpRelDelete, func() ([]byte, error) {
		return EncodeRelDeletePayload(relID), nil
	})
	return nil
}

// appendWAL originates one physical op log entry, logging and discarding
// any encode or append failure: a WAL write never unwinds a mutation that
// is already written to the mapped data file.
func (gs *GraphStorage) appendWAL(epoch uint64, op wal.OpTag, encode func() ([]byte, error)) {
	if gs.wal == nil {
		return
	}
	payload, err := encode()
	if err != nil {
		gs.logger.Error().Err(err).Stringer("op", op).Msg("failed to encode wal payload")
		return
	}
	if _, err := gs.wal.Append(epoch, op, payload); err != nil {
		gs.logger.Error().Err(err).Stringer("op", op).Msg("failed to append wal entry")
	}
}

// SnapshotBytes returns a self-contained copy of the underlying data file,
// for replication cold-join transfer.
func (gs *GraphStorage) SnapshotBytes() []byte {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.df.Snapshot()
}

// RestoreBytes replaces the underlying data file's contents with a snapshot
// image produced by SnapshotBytes, typically on another instance.
func (gs *GraphStorage) RestoreBytes(data []byte) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return gs.df.Restore(data)
}

func (gs *GraphStorage) publish(kind events.Kind, ev events.Event) {
	if gs.broker == nil {
		return
	}
	ev.Kind = kind
	gs.broker.Publish(ev)
}

// --- low-level slot management (caller must hold gs.mu) ---

func (gs *GraphStorage) allocNodeSlot() (uint64, error) {
	h := gs.df.Header()
	for (h.NodeCount+1)*NodeRecordSize > h.NodeSegSize {
		if err := gs.df.GrowNodeSegment(); err != nil {
			return 0, err
		}
		h = gs.df.Header()
	}
	nodeID := h.NodeCount
	gs.df.header.NodeCount++
	if err := gs.df.persistHeader(); err != nil {
		return 0, err
	}
	return nodeID, nil
}

func (gs *GraphStorage) allocRelSlot() (uint32, error) {
	h := gs.df.Header()
	for (h.RelSegCount+1)*RelationshipRecordSize > h.RelDirSize {
		if err := gs.df.GrowRelationshipSegment(); err != nil {
			return 0, err
		}
		h = gs.df.Header()
	}
	index := uint32(h.RelSegCount)
	gs.df.header.RelSegCount++
	if err := gs.df.persistHeader(); err != nil {
		return 0, err
	}
	return index, nil
}

func (gs *GraphStorage) writeNodeRecord(nodeID uint64, rec *NodeRecord) {
	offset := gs.df.header.NodeSegOffset + nodeID*NodeRecordSize
	gs.df.WriteAt(offset, encodeNodeRecord(rec))
}

func (gs *GraphStorage) readNodeRecordLocked(nodeID uint64) (*NodeRecord, bool) {
	if nodeID >= gs.df.header.NodeCount {
		return nil, false
	}
	offset := gs.df.header.NodeSegOffset + nodeID*NodeRecordSize
	buf := gs.df.ReadAt(offset, NodeRecordSize)
	rec, ok := decodeNodeRecord(buf)
	if !ok {
		gs.logger.Error().Uint64("node_id", nodeID).Msg("node record failed checksum verification")
		return nil, false
	}
	return rec, true
}

func (gs *GraphStorage) writeRelRecord(index uint32, rec *RelationshipRecord) {
	offset := gs.df.header.RelDirOffset + uint64(index)*RelationshipRecordSize
	gs.df.WriteAt(offset, encodeRelationshipRecord(rec))
}

func (gs *GraphStorage) readRelRecordLocked(index uint32) (*RelationshipRecord, bool) {
	if uint64(index) >= gs.df.header.RelSegCount {
		return nil, false
	}
	offset := gs.df.header.RelDirOffset + uint64(index)*RelationshipRecordSize
	buf := gs.df.ReadAt(offset, RelationshipRecordSize)
	rec, ok := decodeRelationshipRecord(buf)
	if !ok {
		gs.logger.Error().Uint32("rel_index", index).Msg("relationship record failed checksum verification")
		return nil, false
	}
	return rec, true
}

func (gs *GraphStorage) writeProperties(props PropertyMap) (uint64, error) {
	if len(props) == 0 {
		return 0, nil
	}
	blob, err := EncodePropertyBlob(props, gs.compressionScheme)
	if err != nil {
		return 0, fmt.Errorf("encode property blob: %w", err)
	}
	return gs.allocPropertySpace(blob)
}

func (gs *GraphStorage) readProperties(offset uint64) (PropertyMap, error) {
	if offset == 0 {
		return PropertyMap{}, nil
	}
	lenBuf := gs.df.ReadAt(offset, 4)
	blobLen := leUint32(lenBuf)
	blob := gs.df.ReadAt(offset+4, int(blobLen))
	return DecodePropertyBlob(blob)
}

func (gs *GraphStorage) allocPropertySpace(blob []byte) (uint64, error) {
	need := uint64(4 + len(blob))
	h := gs.df.Header()
	for h.PropSegUsed+need > h.PropSegSize {
		if err := gs.df.GrowPropertySegment(); err != nil {
			return 0, err
		}
		h = gs.df.Header()
	}
	offset := gs.df.header.PropSegOffset + gs.df.header.PropSegUsed
	lenBuf := make([]byte, 4)
	putLeUint32(lenBuf, uint32(len(blob)))
	gs.df.WriteAt(offset, lenBuf)
	gs.df.WriteAt(offset+4, blob)
	gs.df.header.PropSegUsed += need
	if err := gs.df.persistHeader(); err != nil {
		return 0, err
	}
	return offset, nil
}

// NodeCount returns the number of node slots ever allocated, including
// tombstoned ones (an upper bound on live nodes until compaction runs).
func (gs *GraphStorage) NodeCount() uint64 {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.df.Header().NodeCount
}

// RelationshipCount returns the number of relationship slots ever
// allocated, including tombstoned ones.
func (gs *GraphStorage) RelationshipCount() uint64 {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.df.Header().RelSegCount
}

// Close flushes and closes the underlying data file.
func (gs *GraphStorage) Close() error { return gs.df.Close() }

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLeUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
