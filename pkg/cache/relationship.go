package cache

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cuemby/nexus/pkg/events"
)

// RelKey identifies a cached adjacency lookup: a node, a direction, and a
// sorted set of relationship TypeIds (an empty set means "all types").
type RelKey struct {
	NodeID    uint64
	Direction uint8
	TypesKey  string // sorted, comma-joined TypeIds; precomputed so RelKey stays comparable
}

// NewRelKey builds a RelKey, sorting typeIDs so two equivalent queries with
// differently-ordered type filters hit the same cache entry.
func NewRelKey(nodeID uint64, direction uint8, typeIDs []uint32) RelKey {
	sorted := append([]uint32(nil), typeIDs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	key := ""
	for i, t := range sorted {
		if i > 0 {
			key += ","
		}
		key += fmt.Sprintf("%d", t)
	}
	return RelKey{NodeID: nodeID, Direction: direction, TypesKey: key}
}

// relEntry is a relationship cache entry: the cached adjacency list plus
// access metadata.
type relEntry struct {
	Neighbors  []uint64
	LastAccess time.Time
	HitCount   uint64
}

// RelationshipCache caches adjacency lookups keyed by (NodeId, Direction,
// TypeIds), invalidated by node/relationship mutation events
// rather than on a TTL, since adjacency is only ever stale after a write.
type RelationshipCache struct {
	mu      sync.Mutex
	entries map[RelKey]*relEntry
	byNode  map[uint64][]RelKey // reverse index for event-driven eviction
	maxSize int

	sub    events.Subscriber
	broker *events.Broker
	stop   chan struct{}
	once   sync.Once

	stats Stats
}

// NewRelationshipCache builds a RelationshipCache bounded to maxSize
// entries, subscribing to broker for
// invalidation if non-nil.
func NewRelationshipCache(maxSize int, broker *events.Broker) *RelationshipCache {
	rc := &RelationshipCache{
		entries: make(map[RelKey]*relEntry),
		byNode:  make(map[uint64][]RelKey),
		maxSize: maxSize,
		broker:  broker,
		stop:    make(chan struct{}),
	}
	if broker != nil {
		rc.sub = broker.Subscribe()
		go rc.run()
	}
	return rc
}

// Get returns the cached neighbor list for key, updating its access
// metadata on a hit.
func (rc *RelationshipCache) Get(key RelKey) ([]uint64, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	e, ok := rc.entries[key]
	if !ok {
		rc.stats.Misses++
		return nil, false
	}
	e.LastAccess = time.Now()
	e.HitCount++
	rc.stats.Hits++
	return e.Neighbors, true
}

// Put caches neighbors for key, evicting the entry with the oldest
// LastAccess if at capacity (found by a scan rather than an ordered list
// like the query LRU's, since entries are small and invalidation is
// event-driven, not TTL-driven).
func (rc *RelationshipCache) Put(key RelKey, neighbors []uint64) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if _, exists := rc.entries[key]; !exists && len(rc.entries) >= rc.maxSize {
		rc.evictOneLocked()
	}
	rc.entries[key] = &relEntry{Neighbors: neighbors, LastAccess: time.Now(), HitCount: 0}
	rc.byNode[key.NodeID] = append(rc.byNode[key.NodeID], key)
}

func (rc *RelationshipCache) evictOneLocked() {
	var oldestKey RelKey
	var oldestTime time.Time
	first := true
	for k, e := range rc.entries {
		if first || e.LastAccess.Before(oldestTime) {
			oldestKey, oldestTime, first = k, e.LastAccess, false
		}
	}
	if !first {
		rc.removeLocked(oldestKey)
		rc.stats.Evictions++
	}
}

func (rc *RelationshipCache) removeLocked(key RelKey) {
	delete(rc.entries, key)
	keys := rc.byNode[key.NodeID]
	for i, k := range keys {
		if k == key {
			rc.byNode[key.NodeID] = append(keys[:i], keys[i+1:]...)
			break
		}
	}
}

// InvalidateNode drops every cached entry for nodeID (both as the lookup
// subject and, conservatively, nothing finer-grained: a relationship
// touching nodeID may also change a neighbor's adjacency list, but that
// neighbor gets its own InvalidateNode from the same event's NodeIDs).
func (rc *RelationshipCache) InvalidateNode(nodeID uint64) int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	keys := rc.byNode[nodeID]
	for _, k := range keys {
		delete(rc.entries, k)
	}
	delete(rc.byNode, nodeID)
	return len(keys)
}

func (rc *RelationshipCache) run() {
	for {
		select {
		case ev, ok := <-rc.sub:
			if !ok {
				return
			}
			for _, nodeID := range ev.NodeIDs {
				rc.InvalidateNode(nodeID)
			}
		case <-rc.stop:
			return
		}
	}
}

// Stats returns cumulative hit/miss/eviction counters plus current size.
func (rc *RelationshipCache) Stats() Stats {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	s := rc.stats
	s.Size = len(rc.entries)
	return s
}

// Close unsubscribes from the event broker and stops the invalidation loop.
func (rc *RelationshipCache) Close() {
	rc.once.Do(func() {
		close(rc.stop)
		if rc.broker != nil && rc.sub != nil {
			rc.broker.Unsubscribe(rc.sub)
		}
	})
}
