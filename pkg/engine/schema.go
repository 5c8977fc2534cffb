package engine

import (
	"fmt"
	"sync"

	"github.com/cuemby/nexus/pkg/index"
	"github.com/cuemby/nexus/pkg/query"
)

// defaultVectorDim/defaultVectorMetric back a CREATE INDEX ... KNN
// statement: query.CreateIndexStmt carries no dimensionality or metric
// (the grammar has no WITH clause to carry them), so a KNN index is
// always opened with 768 dimensions and the cosine metric. Database has
// no method that creates a vector index with other settings.
const (
	defaultVectorDim    = 768
	defaultVectorMetric = index.MetricCosine
)

// indexDescriptor is what applySchemaStmt remembers about a named index,
// since query.DropIndexStmt carries only the name: the catalog package
// tracks label/type/key name<->id mappings but has no notion of an index
// or constraint, so the engine keeps this bookkeeping itself.
type indexDescriptor struct {
	kind     string // "", "fulltext", "knn"
	labelID  uint32
	keyID    uint32
}

type constraintDescriptor struct {
	labelID uint32
	keyID   uint32
	unique  bool
}

type schemaRegistry struct {
	mu          sync.Mutex
	indexes     map[string]indexDescriptor
	constraints map[string]constraintDescriptor
}

func newSchemaRegistry() *schemaRegistry {
	return &schemaRegistry{
		indexes:     make(map[string]indexDescriptor),
		constraints: make(map[string]constraintDescriptor),
	}
}

// applySchemaStmt dispatches a DDL statement, returning a short
// human-readable confirmation for QueryResult.Applied.
func (db *Database) applySchemaStmt(stmt query.Statement) (string, error) {
	switch s := stmt.(type) {
	case *query.CreateIndexStmt:
		return db.createIndex(s)
	case *query.DropIndexStmt:
		return db.dropIndex(s)
	case *query.CreateConstraintStmt:
		return db.createConstraint(s)
	case *query.DropConstraintStmt:
		return db.dropConstraint(s)
	default:
		return "", fmt.Errorf("engine: unhandled schema statement %T", stmt)
	}
}

func (db *Database) createIndex(s *query.CreateIndexStmt) (string, error) {
	labelID, err := db.catalog.GetOrCreateLabel(s.Label)
	if err != nil {
		return "", err
	}
	keyID, err := db.catalog.GetOrCreateKey(s.Property)
	if err != nil {
		return "", err
	}

	switch s.Kind {
	case "", "property":
		db.props.CreateIndex(labelID, keyID)
	case "fulltext":
		// One process-wide FullTextIndex multiplexes every (label, key)
		// pair internally; creating the schema entry needs no separate
		// allocation, just the registry bookkeeping below.
	case "knn":
		db.vecMu.Lock()
		db.vectors[keyID] = index.NewVectorIndex(defaultVectorDim, defaultVectorMetric)
		db.vectorLabels[labelID] = struct{}{}
		db.vecMu.Unlock()
		db.logger.Warn().Str("name", s.Name).Int("dim", defaultVectorDim).
			Msg("KNN index created at a fixed default dimensionality: CREATE INDEX has no WITH clause to carry one")
	default:
		return "", fmt.Errorf("engine: unknown index kind %q", s.Kind)
	}

	db.schema.mu.Lock()
	db.schema.indexes[s.Name] = indexDescriptor{kind: s.Kind, labelID: labelID, keyID: keyID}
	db.schema.mu.Unlock()

	return fmt.Sprintf("index %s created", s.Name), nil
}

func (db *Database) dropIndex(s *query.DropIndexStmt) (string, error) {
	db.schema.mu.Lock()
	desc, ok := db.schema.indexes[s.Name]
	if ok {
		delete(db.schema.indexes, s.Name)
	}
	db.schema.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("engine: no such index %q", s.Name)
	}

	switch desc.kind {
	case "", "property":
		db.props.DropIndex(desc.labelID, desc.keyID)
	case "knn":
		db.vecMu.Lock()
		delete(db.vectors, desc.keyID)
		db.vecMu.Unlock()
	case "fulltext":
		// Nothing to release: see createIndex.
	}
	return fmt.Sprintf("index %s dropped", s.Name), nil
}

// createConstraint and dropConstraint are bookkeeping only: nothing in
// pkg/exec's CREATE/MERGE/SET path currently consults the registry to
// enforce uniqueness. See DESIGN.md.
func (db *Database) createConstraint(s *query.CreateConstraintStmt) (string, error) {
	labelID, err := db.catalog.GetOrCreateLabel(s.Label)
	if err != nil {
		return "", err
	}
	keyID, err := db.catalog.GetOrCreateKey(s.Property)
	if err != nil {
		return "", err
	}
	db.schema.mu.Lock()
	db.schema.constraints[s.Name] = constraintDescriptor{labelID: labelID, keyID: keyID, unique: s.Unique}
	db.schema.mu.Unlock()
	return fmt.Sprintf("constraint %s created (not enforced)", s.Name), nil
}

func (db *Database) dropConstraint(s *query.DropConstraintStmt) (string, error) {
	db.schema.mu.Lock()
	_, ok := db.schema.constraints[s.Name]
	delete(db.schema.constraints, s.Name)
	db.schema.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("engine: no such constraint %q", s.Name)
	}
	return fmt.Sprintf("constraint %s dropped", s.Name), nil
}
