// Package catalog interns label names, relationship type names and
// property key names to small, stable integer IDs.
//
// The three namespaces are independent bijections: a name maps to exactly
// one ID within its namespace, and once issued an ID is permanent for the
// catalog's lifetime. IDs are allocated monotonically starting at 1 (0 is
// reserved to mean "no label primary label" in NodeRecord encoding).
package catalog

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cuemby/nexus/pkg/log"
)

// Namespace identifies which of the three catalogs an entry belongs to.
type Namespace string

const (
	NamespaceLabel    Namespace = "label"
	NamespaceType     Namespace = "type"
	NamespaceProperty Namespace = "property"
)

// Catalog interns names to IDs within three independent namespaces, backed
// by a persistent Store so IDs survive restarts.
type Catalog struct {
	mu     sync.RWMutex
	store  Store
	logger zerolog.Logger

	labels    bimap
	types     bimap
	propKeys  bimap
}

type bimap struct {
	nameToID map[string]uint32
	idToName map[uint32]string
	next     uint32
}

func newBimap() bimap {
	return bimap{nameToID: make(map[string]uint32), idToName: make(map[uint32]string), next: 1}
}

// New creates a Catalog backed by store, replaying any previously persisted
// entries so IDs are stable across restarts.
func New(store Store) (*Catalog, error) {
	c := &Catalog{
		store:    store,
		logger:   log.WithComponent("catalog"),
		labels:   newBimap(),
		types:    newBimap(),
		propKeys: newBimap(),
	}
	entries, err := store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	for _, e := range entries {
		bm := c.bimapFor(e.Namespace)
		bm.nameToID[e.Name] = e.ID
		bm.idToName[e.ID] = e.Name
		if e.ID >= bm.next {
			bm.next = e.ID + 1
		}
		c.setBimap(e.Namespace, bm)
	}
	return c, nil
}

func (c *Catalog) bimapFor(ns Namespace) bimap {
	switch ns {
	case NamespaceLabel:
		return c.labels
	case NamespaceType:
		return c.types
	default:
		return c.propKeys
	}
}

func (c *Catalog) setBimap(ns Namespace, bm bimap) {
	switch ns {
	case NamespaceLabel:
		c.labels = bm
	case NamespaceType:
		c.types = bm
	default:
		c.propKeys = bm
	}
}

// getOrCreate is idempotent: calling it twice with the
// same name returns the same ID, allocating and persisting a new one only
// on first use.
func (c *Catalog) getOrCreate(ns Namespace, name string) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bm := c.bimapFor(ns)
	if id, ok := bm.nameToID[name]; ok {
		return id, nil
	}

	id := bm.next
	if err := c.store.Persist(Entry{Namespace: ns, Name: name, ID: id}); err != nil {
		return 0, fmt.Errorf("persist catalog entry %s/%s: %w", ns, name, err)
	}

	bm.nameToID[name] = id
	bm.idToName[id] = name
	bm.next = id + 1
	c.setBimap(ns, bm)

	c.logger.Debug().Str("namespace", string(ns)).Str("name", name).Uint32("id", id).Msg("interned new catalog entry")
	return id, nil
}

func (c *Catalog) lookup(ns Namespace, name string) (uint32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	bm := c.bimapFor(ns)
	id, ok := bm.nameToID[name]
	return id, ok
}

func (c *Catalog) reverseLookup(ns Namespace, id uint32) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	bm := c.bimapFor(ns)
	name, ok := bm.idToName[id]
	return name, ok
}

// GetOrCreateLabel interns a label name, allocating a new LabelId on first use.
func (c *Catalog) GetOrCreateLabel(name string) (uint32, error) { return c.getOrCreate(NamespaceLabel, name) }

// GetOrCreateType interns a relationship type name.
func (c *Catalog) GetOrCreateType(name string) (uint32, error) { return c.getOrCreate(NamespaceType, name) }

// GetOrCreateKey interns a property key name.
func (c *Catalog) GetOrCreateKey(name string) (uint32, error) { return c.getOrCreate(NamespaceProperty, name) }

// GetLabelID is a lookup-only query; it never allocates.
func (c *Catalog) GetLabelID(name string) (uint32, bool) { return c.lookup(NamespaceLabel, name) }

// GetTypeID is a lookup-only query; it never allocates.
func (c *Catalog) GetTypeID(name string) (uint32, bool) { return c.lookup(NamespaceType, name) }

// GetKeyID is a lookup-only query; it never allocates.
func (c *Catalog) GetKeyID(name string) (uint32, bool) { return c.lookup(NamespaceProperty, name) }

// LabelName resolves an interned LabelId back to its name.
func (c *Catalog) LabelName(id uint32) (string, bool) { return c.reverseLookup(NamespaceLabel, id) }

// TypeName resolves an interned TypeId back to its name.
func (c *Catalog) TypeName(id uint32) (string, bool) { return c.reverseLookup(NamespaceType, id) }

// KeyName resolves an interned KeyId back to its name.
func (c *Catalog) KeyName(id uint32) (string, bool) { return c.reverseLookup(NamespaceProperty, id) }

// Labels returns a snapshot of (name, id) pairs, driving the schema
// admin interface's `GET /labels`.
func (c *Catalog) Labels() map[string]uint32 { return c.snapshot(NamespaceLabel) }

// Types returns a snapshot of (name, id) pairs for relationship types.
func (c *Catalog) Types() map[string]uint32 { return c.snapshot(NamespaceType) }

// Keys returns a snapshot of (name, id) pairs for property keys.
func (c *Catalog) Keys() map[string]uint32 { return c.snapshot(NamespaceProperty) }

func (c *Catalog) snapshot(ns Namespace) map[string]uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	bm := c.bimapFor(ns)
	out := make(map[string]uint32, len(bm.nameToID))
	for k, v := range bm.nameToID {
		out[k] = v
	}
	return out
}

// Close releases the underlying persistent store.
func (c *Catalog) Close() error { return c.store.Close() }
