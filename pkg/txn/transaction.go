package txn

import "github.com/google/uuid"

// Mode distinguishes a read transaction (no lock, pins a snapshot epoch)
// from a write transaction (holds the exclusive write lock).
type Mode uint8

const (
	ModeRead Mode = iota
	ModeWrite
)

// State tracks a transaction's lifecycle.
type State uint8

const (
	StateActive State = iota
	StateCommitted
	StateAborted
)

// writtenRecord identifies one physical record a write transaction touched,
// so Abort can compensate it (see Manager.abort).
type writtenRecord struct {
	kind string // "node" or "relationship"
	id   uint64
}

// Transaction is a single begin_read/begin_write handle.
type Transaction struct {
	ID    uuid.UUID
	Mode  Mode
	Epoch uint64 // pinned read epoch for reads; E+1 staging epoch for writes
	state State

	mgr     *Manager
	written []writtenRecord
}

// RecordWrite tracks that this transaction created, modified, or deleted
// the given record, so an Abort can tombstone it rather than leave a
// dangling version stamped with an epoch that a later, unrelated commit
// might advance the global counter past.
func (tx *Transaction) RecordWrite(kind string, id uint64) {
	tx.written = append(tx.written, writtenRecord{kind: kind, id: id})
}

// Commit finalizes the transaction.
func (tx *Transaction) Commit() error { return tx.mgr.commit(tx) }

// Abort discards the transaction's staged writes.
func (tx *Transaction) Abort(undo Undoer) error { return tx.mgr.abort(tx, undo) }

// State reports the transaction's current lifecycle state.
func (tx *Transaction) State() State { return tx.state }

// Undoer lets Manager.abort compensate physical writes made by an aborted
// write transaction, keyed by the (kind, id) pairs recorded via
// RecordWrite. pkg/engine passes noopUndoer, which compensates nothing.
type Undoer interface {
	UndoWrite(kind string, id uint64, atEpoch uint64) error
}
