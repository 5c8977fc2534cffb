package catalog

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

var bucketEntries = []byte("catalog_entries")

// Entry is a single persisted (namespace, name) -> id mapping.
type Entry struct {
	Namespace Namespace `json:"namespace"`
	Name      string    `json:"name"`
	ID        uint32    `json:"id"`
}

func (e Entry) key() []byte {
	return []byte(fmt.Sprintf("%s/%s", e.Namespace, e.Name))
}

// Store persists catalog entries so names and IDs survive restarts.
type Store interface {
	Persist(e Entry) error
	LoadAll() ([]Entry, error)
	Close() error
}

// BoltStore implements Store on top of go.etcd.io/bbolt: one bucket,
// JSON-encoded values, an Update/View transaction per call.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if necessary) the catalog database file under
// dataDir.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "catalog.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open catalog store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create catalog bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Persist writes a single catalog entry durably before the caller returns an
// allocated ID to its user.
func (s *BoltStore) Persist(e Entry) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		return b.Put(e.key(), data)
	})
}

// LoadAll returns every persisted entry, used once at startup to rebuild the
// in-memory bimaps.
func (s *BoltStore) LoadAll() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		return b.ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			entries = append(entries, e)
			return nil
		})
	})
	return entries, err
}

// Close closes the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// MemStore is an in-memory Store implementation used by tests and by
// bulk-import/benchmark tooling that doesn't need durability.
type MemStore struct {
	entries []Entry
}

// NewMemStore creates an empty in-memory Store.
func NewMemStore() *MemStore { return &MemStore{} }

func (s *MemStore) Persist(e Entry) error {
	s.entries = append(s.entries, e)
	return nil
}

func (s *MemStore) LoadAll() ([]Entry, error) {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *MemStore) Close() error { return nil }
