package metrics

import (
	"time"

	"github.com/cuemby/nexus/pkg/cache"
)

// Source is the subset of engine-level state the collector polls. It's an
// interface (rather than a direct pkg/engine import) so pkg/metrics stays
// a leaf package with no dependency on the rest of the tree.
type Source interface {
	NodeCount() uint64
	RelationshipCount() uint64
	ActiveTransactionCount() int
	ResultCacheStats() cache.Stats
	PlanCacheStats() cache.Stats
	RelationshipCacheStats() cache.Stats
	ReplicaLag() map[string]ReplicaLag
}

// ReplicaLag is one replica's distance behind the leader's WAL.
type ReplicaLag struct {
	EntriesBehind uint64
	LastAckAge    time.Duration
}

// Collector periodically samples a Source and pushes the readings into the
// package's Prometheus gauges/counters.
type Collector struct {
	source Source
	stopCh chan struct{}

	lastResult       cache.Stats
	lastPlan         cache.Stats
	lastRelationship cache.Stats
}

// NewCollector builds a Collector polling source.
func NewCollector(source Source) *Collector {
	return &Collector{source: source, stopCh: make(chan struct{})}
}

// Start begins periodic collection on its own goroutine, every interval.
func (c *Collector) Start(interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts collection.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	NodesTotal.Set(float64(c.source.NodeCount()))
	RelationshipsTotal.Set(float64(c.source.RelationshipCount()))
	ActiveTransactions.Set(float64(c.source.ActiveTransactionCount()))

	c.reportDelta("result", c.source.ResultCacheStats(), &c.lastResult)
	c.reportDelta("plan", c.source.PlanCacheStats(), &c.lastPlan)
	c.reportDelta("relationship", c.source.RelationshipCacheStats(), &c.lastRelationship)

	for replica, lag := range c.source.ReplicaLag() {
		ReplicationLagEntries.WithLabelValues(replica).Set(float64(lag.EntriesBehind))
		ReplicationLagSeconds.WithLabelValues(replica).Set(lag.LastAckAge.Seconds())
	}
}

// reportDelta reports hit/miss/eviction counts observed since last, since
// cache.Stats are cumulative but the Prometheus counters expect increments.
func (c *Collector) reportDelta(name string, current cache.Stats, last *cache.Stats) {
	ReportCacheStats(name, current.Hits-last.Hits, current.Misses-last.Misses, current.Evictions-last.Evictions, current.Size)
	*last = current
}
