package engine

import (
	"github.com/cuemby/nexus/pkg/cache"
	"github.com/cuemby/nexus/pkg/metrics"
)

// The methods below satisfy metrics.Source so Open can hand *Database
// straight to metrics.NewCollector without an adapter type.

func (db *Database) NodeCount() uint64 { return db.storage.NodeCount() }

func (db *Database) RelationshipCount() uint64 { return db.storage.RelationshipCount() }

func (db *Database) ActiveTransactionCount() int { return db.txns.ActiveCount() }

func (db *Database) ResultCacheStats() cache.Stats { return db.resultCache.ResultStats() }

func (db *Database) PlanCacheStats() cache.Stats { return db.resultCache.PlanStats() }

func (db *Database) RelationshipCacheStats() cache.Stats { return db.relCache.Stats() }

func (db *Database) ReplicaLag() map[string]metrics.ReplicaLag {
	if db.leader == nil {
		return nil
	}
	lag := db.leader.LagSnapshot(db.wal.NextOffset())
	out := make(map[string]metrics.ReplicaLag, len(lag))
	for id, l := range lag {
		out[id] = metrics.ReplicaLag{EntriesBehind: l.EntriesBehind, LastAckAge: l.LastAckAge}
	}
	return out
}
