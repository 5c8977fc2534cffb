package replication

import "github.com/cuemby/nexus/pkg/wal"

// Applier replays a WAL entry received from the leader into local state.
// The engine wires this to the same decode/apply path used for crash
// recovery, so a replica's storage ends up byte-for-byte consistent with
// the leader's without replication needing to know about records, nodes,
// or properties at all.
type Applier interface {
	Apply(entry wal.Entry) error
}

// ApplierFunc adapts a plain function to Applier.
type ApplierFunc func(entry wal.Entry) error

func (f ApplierFunc) Apply(entry wal.Entry) error { return f(entry) }
