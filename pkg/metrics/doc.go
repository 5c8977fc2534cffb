/*
Package metrics provides Prometheus metrics collection and exposition for
Nexus's storage engine, transaction manager, query pipeline, and replication
stream.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                  │          │
	│  │                                              │          │
	│  │  Storage: node/relationship counts,         │          │
	│  │           segment sizes, compaction          │          │
	│  │  Transactions: commit/abort rate, duration  │          │
	│  │  WAL: append rate, bytes, fsync latency     │          │
	│  │  Query: per-stage latency, plan shape       │          │
	│  │  Cache: hit/miss/eviction per named cache   │          │
	│  │  Index: entry counts, search latency        │          │
	│  │  Replication: lag, acks, failovers          │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint               │          │
	│  │  - Path: /metrics                           │          │
	│  │  - Handler: promhttp.Handler()              │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Collector

Collector polls a Source (the subset of engine.Database's counters and
cache.Stats snapshots metrics needs) on a fixed interval and converts
cumulative cache statistics into Prometheus counter deltas. Keeping Source
as an interface here, rather than importing pkg/engine directly, keeps
pkg/metrics a leaf with no dependency on the packages it instruments.

# Health

HealthChecker tracks per-component health (storage, wal, api, ...)
independently of Prometheus and serves /health, /ready, and /live for
orchestrators that need a liveness/readiness probe rather than a metrics
scrape. Readiness additionally requires the storage, wal, and api
components to all be registered and healthy; a missing component is
treated the same as an unhealthy one.
*/
package metrics
