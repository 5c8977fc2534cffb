package engine

import (
	"fmt"
	"net"

	"github.com/cuemby/nexus/pkg/replication"
)

// startReplication stands up a Leader or Replica per cfg.Repl.Role, wiring
// the WAL directly as the leader's WalSource and a storageApplier/
// storageSnapshotter pair against the local GraphStorage for the replica
// side. "standalone" (the default) wires neither.
func (db *Database) startReplication() error {
	switch db.cfg.Repl.Role {
	case "", "standalone":
		return nil

	case "leader":
		snapshotter := newStorageSnapshotter(db.storage, db.wal)
		db.leader = replication.NewLeader(db.cfg.Repl.ReplicaID, db.wal, snapshotter, db.cfg.Repl)
		if db.cfg.Repl.ListenAddr == "" {
			return fmt.Errorf("engine: replication role leader requires listen_addr")
		}
		ln, err := net.Listen("tcp", db.cfg.Repl.ListenAddr)
		if err != nil {
			return fmt.Errorf("listen for replicas: %w", err)
		}
		db.replListener = ln
		go func() {
			if err := db.leader.Serve(db.bgCtx, ln); err != nil {
				db.logger.Warn().Err(err).Msg("replication listener stopped")
			}
		}()
		return nil

	case "replica":
		if db.cfg.Repl.LeaderAddr == "" {
			return fmt.Errorf("engine: replication role replica requires leader_addr")
		}
		applier := newStorageApplier(db.storage)
		snapshotter := newStorageSnapshotter(db.storage, db.wal)
		db.replica = replication.NewReplica(db.cfg.Repl.ReplicaID, applier, snapshotter, db.cfg.Repl)
		go db.replica.Start(db.bgCtx)
		return nil

	default:
		return fmt.Errorf("engine: unknown replication role %q", db.cfg.Repl.Role)
	}
}
