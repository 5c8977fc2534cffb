// Package cache implements Nexus's query result/plan cache and
// relationship cache, all built on a shared generic LRU with
// TTL and hit/miss statistics, invalidated by structured events from
// pkg/events rather than by polling.
package cache
