package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Storage metrics
	NodesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nexus_nodes_total",
			Help: "Total number of live nodes in the graph",
		},
	)

	RelationshipsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nexus_relationships_total",
			Help: "Total number of live relationships in the graph",
		},
	)

	StoreSizeBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nexus_store_size_bytes",
			Help: "On-disk size of a storage segment by kind",
		},
		[]string{"segment"},
	)

	CompactionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nexus_compaction_duration_seconds",
			Help:    "Time taken to compact a storage segment",
			Buckets: prometheus.DefBuckets,
		},
	)

	CompactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_compactions_total",
			Help: "Total number of compaction passes by outcome",
		},
		[]string{"outcome"},
	)

	// Transaction metrics
	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_transactions_total",
			Help: "Total number of transactions by outcome (commit, abort)",
		},
		[]string{"outcome"},
	)

	TransactionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nexus_transaction_duration_seconds",
			Help:    "Transaction lifetime from Begin to Commit/Abort",
			Buckets: prometheus.DefBuckets,
		},
	)

	ActiveTransactions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nexus_active_transactions",
			Help: "Number of transactions currently open",
		},
	)

	// WAL metrics
	WalAppendsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nexus_wal_appends_total",
			Help: "Total number of WAL entries appended",
		},
	)

	WalBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nexus_wal_bytes_total",
			Help: "Total number of bytes appended to the WAL",
		},
	)

	WalFsyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nexus_wal_fsync_duration_seconds",
			Help:    "Time taken for a WAL fsync",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Query pipeline metrics
	QueryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nexus_query_latency_seconds",
			Help:    "End-to-end query latency by pipeline stage",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_queries_total",
			Help: "Total number of queries executed by outcome",
		},
		[]string{"outcome"},
	)

	PlansConsidered = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nexus_planner_plans_considered",
			Help:    "Number of plan nodes the optimizer visited per query",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	JoinAlgorithmChosenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_join_algorithm_chosen_total",
			Help: "Total number of times each join algorithm was selected",
		},
		[]string{"algorithm"},
	)

	// Cache metrics
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_cache_hits_total",
			Help: "Total number of cache hits by cache name",
		},
		[]string{"cache"},
	)

	CacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_cache_misses_total",
			Help: "Total number of cache misses by cache name",
		},
		[]string{"cache"},
	)

	CacheEvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_cache_evictions_total",
			Help: "Total number of cache evictions by cache name",
		},
		[]string{"cache"},
	)

	CacheSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nexus_cache_size",
			Help: "Current number of entries held by a cache",
		},
		[]string{"cache"},
	)

	// Index metrics
	IndexEntriesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nexus_index_entries_total",
			Help: "Number of entries held by an index",
		},
		[]string{"index", "kind"},
	)

	FullTextSearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nexus_fulltext_search_duration_seconds",
			Help:    "Time taken for a full-text search",
			Buckets: prometheus.DefBuckets,
		},
	)

	KnnSearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nexus_knn_search_duration_seconds",
			Help:    "Time taken for a KNN vector search",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Replication metrics
	ReplicationLagEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nexus_replication_lag_entries",
			Help: "Number of WAL entries a replica is behind the leader",
		},
		[]string{"replica"},
	)

	ReplicationLagSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nexus_replication_lag_seconds",
			Help: "Time since a replica last acknowledged a WAL entry",
		},
		[]string{"replica"},
	)

	ReplicasConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nexus_replicas_connected",
			Help: "Number of replicas currently streaming from this leader",
		},
	)

	ReplicationAcksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_replication_acks_total",
			Help: "Total number of WAL acks received by replica",
		},
		[]string{"replica"},
	)

	SnapshotTransferDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nexus_snapshot_transfer_duration_seconds",
			Help:    "Time taken to transfer a full snapshot to a new replica",
			Buckets: prometheus.DefBuckets,
		},
	)

	FailoversTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nexus_failovers_total",
			Help: "Total number of leader failovers observed",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nexus_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(
		NodesTotal, RelationshipsTotal, StoreSizeBytes, CompactionDuration, CompactionsTotal,
		TransactionsTotal, TransactionDuration, ActiveTransactions,
		WalAppendsTotal, WalBytesTotal, WalFsyncDuration,
		QueryLatency, QueriesTotal, PlansConsidered, JoinAlgorithmChosenTotal,
		CacheHitsTotal, CacheMissesTotal, CacheEvictionsTotal, CacheSize,
		IndexEntriesTotal, FullTextSearchDuration, KnnSearchDuration,
		ReplicationLagEntries, ReplicationLagSeconds, ReplicasConnected, ReplicationAcksTotal,
		SnapshotTransferDuration, FailoversTotal,
		APIRequestsTotal, APIRequestDuration,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ReportCacheStats adds hits/misses/evictions observed since the last poll
// (not cumulative totals) to the counters for the named cache, and sets its
// current size gauge. Takes raw counters rather than a cache.Stats so
// pkg/metrics never needs to import pkg/cache.
func ReportCacheStats(name string, hits, misses, evictions uint64, size int) {
	CacheHitsTotal.WithLabelValues(name).Add(float64(hits))
	CacheMissesTotal.WithLabelValues(name).Add(float64(misses))
	CacheEvictionsTotal.WithLabelValues(name).Add(float64(evictions))
	CacheSize.WithLabelValues(name).Set(float64(size))
}
