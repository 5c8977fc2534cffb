// Package engine assembles catalog, storage, WAL, transactions, caches,
// indexes, the query pipeline and replication into a single embeddable
// graph database, the way pkg/manager assembles Warren's subsystems behind
// one façade.
package engine

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/nexus/pkg/cache"
	"github.com/cuemby/nexus/pkg/catalog"
	"github.com/cuemby/nexus/pkg/config"
	"github.com/cuemby/nexus/pkg/events"
	"github.com/cuemby/nexus/pkg/exec"
	"github.com/cuemby/nexus/pkg/index"
	"github.com/cuemby/nexus/pkg/log"
	"github.com/cuemby/nexus/pkg/metrics"
	"github.com/cuemby/nexus/pkg/planner"
	"github.com/cuemby/nexus/pkg/query"
	"github.com/cuemby/nexus/pkg/replication"
	"github.com/cuemby/nexus/pkg/storage"
	"github.com/cuemby/nexus/pkg/txn"
	"github.com/cuemby/nexus/pkg/wal"
)

// Database is an open Nexus instance: one data directory, one WAL, one
// transaction manager, and the query pipeline and caches layered on top.
type Database struct {
	cfg    config.Config
	logger zerolog.Logger

	bgCtx    context.Context
	bgCancel context.CancelFunc

	catalog *catalog.Catalog
	wal     *wal.WAL
	storage *storage.GraphStorage
	txns    *txn.Manager
	broker  *events.Broker

	labels   *index.LabelIndex
	props    *index.PropertyIndex
	fullText *index.FullTextIndex

	vecMu   sync.RWMutex
	vectors map[uint32]*index.VectorIndex // keyed by property KeyId
	// vectorLabels tracks which labels have at least one KNN index, for
	// catalogStats.HasVectorIndex: the planner's Stats interface asks by
	// label, but the index itself is keyed by property KeyId only (a
	// label is not part of a vector lookup), so this is a coarser,
	// stats-only view built alongside vectors rather than derived from it.
	vectorLabels map[uint32]struct{}

	resultCache *cache.QueryCache
	relCache    *cache.RelationshipCache

	costModel planner.CostModel
	stats     *catalogStats
	schema    *schemaRegistry

	compactor *storage.Compactor

	leader       *replication.Leader
	replica      *replication.Replica
	replListener net.Listener

	metricsCollector *metrics.Collector
}

// Open opens (or creates) a Database rooted at cfg.DataDir, wiring every
// subsystem and, per cfg.Repl.Role, starting replication as a leader or
// replica.
func Open(cfg config.Config) (*Database, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	logger := log.WithComponent("engine")

	catStore, err := catalog.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open catalog store: %w", err)
	}
	cat, err := catalog.New(catStore)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	broker := events.NewBroker()
	broker.Start()

	w, err := wal.Open(cfg.DataDir+"/wal", cfg.WAL)
	if err != nil {
		return nil, fmt.Errorf("open wal: %w", err)
	}

	labels := index.NewLabelIndex()
	gs, err := storage.Open(cfg.DataDir,
		storage.WithLabelIndex(labels),
		storage.WithEventBroker(broker),
		storage.WithPropertyCompression(storage.SchemeZstd),
		storage.WithWAL(w),
	)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	txns := txn.NewManager(w.LastEpoch())
	props := index.NewPropertyIndex(32)
	fullText := index.NewFullTextIndex(index.AnalyzerStemmed)

	resultCache := cache.NewQueryCache(cfg.Cache.ResultCacheCapacity, cfg.Cache.ResultCacheTTL, cfg.Cache.PlanCacheCapacity, broker)
	relCache := cache.NewRelationshipCache(cfg.Cache.RelCacheCapacity, broker)

	bgCtx, bgCancel := context.WithCancel(context.Background())
	db := &Database{
		cfg:          cfg,
		logger:       logger,
		bgCtx:        bgCtx,
		bgCancel:     bgCancel,
		catalog:      cat,
		wal:          w,
		storage:      gs,
		txns:         txns,
		broker:       broker,
		labels:       labels,
		props:        props,
		fullText:     fullText,
		vectors:      make(map[uint32]*index.VectorIndex),
		vectorLabels: make(map[uint32]struct{}),
		resultCache:  resultCache,
		relCache:     relCache,
		costModel:    planner.FromConfig(cfg.Cost),
		schema:       newSchemaRegistry(),
	}
	db.stats = newCatalogStats(db)
	db.compactor = storage.NewCompactor(gs, txns)

	if err := db.startReplication(); err != nil {
		return nil, err
	}

	db.metricsCollector = metrics.NewCollector(db)
	db.metricsCollector.Start(0)

	logger.Info().Str("data_dir", cfg.DataDir).Str("repl_role", cfg.Repl.Role).Msg("database opened")
	return db, nil
}

// Close stops replication and background collectors, then closes the
// caches, the event broker, storage, the WAL and the catalog, in that
// order.
func (db *Database) Close() error {
	db.bgCancel()
	if db.metricsCollector != nil {
		db.metricsCollector.Stop()
	}
	if db.replica != nil {
		db.replica.Stop()
	}
	if db.replListener != nil {
		db.replListener.Close()
	}
	db.resultCache.Close()
	db.relCache.Close()
	db.broker.Stop()

	if err := db.storage.Close(); err != nil {
		return err
	}
	if err := db.wal.Close(); err != nil {
		return err
	}
	return db.catalog.Close()
}

// QueryResult is the outcome of running one statement: either an exec
// ResultSet (MATCH/CREATE/... queries) or a schema acknowledgement (DDL
// statements have no rows). RowCount and ExecutionTimeMS are always
// populated for query results, mirroring the columns/row_count/
// execution_time_ms shape every result is expected to report.
type QueryResult struct {
	Rows    *exec.ResultSet
	Applied string // non-empty for schema/tx-control statements

	RowCount        int
	ExecutionTimeMS float64
}

// Query parses, plans, optimizes and executes src against the current
// database state, passing params to any $name placeholders it contains.
// The returned result's ExecutionTimeMS covers this whole call, parsing
// included, since that's the latency a caller actually observes.
func (db *Database) Query(ctx context.Context, src string, params map[string]any) (*QueryResult, error) {
	start := time.Now()
	stmt, err := query.Parse(src)
	if err != nil {
		return nil, err
	}

	switch s := stmt.(type) {
	case *query.CreateIndexStmt, *query.DropIndexStmt, *query.CreateConstraintStmt, *query.DropConstraintStmt:
		applied, err := db.applySchemaStmt(s)
		if err != nil {
			return nil, err
		}
		return &QueryResult{Applied: applied, ExecutionTimeMS: elapsedMS(start)}, nil
	case *query.TxControlStmt:
		// Explicit multi-statement transactions aren't supported yet: every
		// Query call is already its own atomic unit of work, so BEGIN/COMMIT/
		// ROLLBACK are accepted as no-ops rather than rejected outright.
		return &QueryResult{Applied: s.Kind, ExecutionTimeMS: elapsedMS(start)}, nil
	case *query.Query:
		rs, err := db.runQuery(ctx, src, s, params)
		if err != nil {
			return nil, err
		}
		return &QueryResult{Rows: rs, RowCount: rs.RowCount, ExecutionTimeMS: elapsedMS(start)}, nil
	default:
		return nil, fmt.Errorf("engine: unhandled statement type %T", stmt)
	}
}

// elapsedMS reports the milliseconds elapsed since start, as a float so
// sub-millisecond queries still report a nonzero duration.
func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

func (db *Database) runQuery(ctx context.Context, src string, q *query.Query, params map[string]any) (*exec.ResultSet, error) {
	write := isWriteQuery(q)

	fp := cache.FingerprintQuery(src, stringifyParams(params))
	if !write {
		if cached, ok := db.resultCache.GetResult(fp); ok {
			if rs, ok := cached.(*exec.ResultSet); ok {
				return rs, nil
			}
		}
	}

	plan, err := db.buildPlan(fp, q)
	if err != nil {
		return nil, err
	}

	var tx *txn.Transaction
	if write {
		tx, err = db.txns.BeginWrite(ctx)
		if err != nil {
			return nil, err
		}
	} else {
		tx = db.txns.BeginRead()
	}

	execCtx := &exec.Context{
		Storage:  db.storage,
		Catalog:  db.catalog,
		Labels:   db.labels,
		Props:    db.props,
		FullText: db.fullText,
		Vectors:  db.vectorSnapshot(),
		Epoch:    tx.Epoch,
		Params:   params,
	}

	rs, execErr := exec.Execute(plan, execCtx)
	if execErr != nil {
		if write {
			_ = tx.Abort(noopUndoer{})
		}
		return nil, execErr
	}

	if write {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		if db.leader != nil {
			if err := db.leader.AwaitAck(ctx, db.wal.NextOffset()-1); err != nil {
				db.logger.Warn().Err(err).Msg("write committed locally but replica ack policy was not satisfied")
			}
		}
	}

	if !write {
		labelIDs, typeIDs := planScopes(plan)
		db.resultCache.PutResult(fp, rs, labelIDs, typeIDs)
	}
	return rs, nil
}

func (db *Database) buildPlan(fp cache.Fingerprint, q *query.Query) (*planner.Plan, error) {
	if cached, ok := db.resultCache.GetPlan(fp); ok {
		if plan, ok := cached.(*planner.Plan); ok {
			return plan, nil
		}
	}
	root, err := planner.Build(q, db.catalog)
	if err != nil {
		return nil, err
	}
	opt := planner.NewOptimizer(db.costModel, db.stats)
	plan, err := opt.Optimize(root)
	if err != nil {
		return nil, err
	}
	db.resultCache.PutPlan(fp, plan)
	return plan, nil
}

// noopUndoer satisfies txn.Undoer for aborted writes. pkg/exec's mutation
// operators never call Transaction.RecordWrite, so the manager's undo loop
// never iterates any writes to compensate; an aborted write still leaves
// its already-applied storage mutations in place. See DESIGN.md.
type noopUndoer struct{}

func (noopUndoer) UndoWrite(kind string, id uint64, atEpoch uint64) error { return nil }

func (db *Database) vectorSnapshot() map[uint32]*index.VectorIndex {
	db.vecMu.RLock()
	defer db.vecMu.RUnlock()
	out := make(map[uint32]*index.VectorIndex, len(db.vectors))
	for k, v := range db.vectors {
		out[k] = v
	}
	return out
}
