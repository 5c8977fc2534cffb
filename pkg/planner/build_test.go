package planner

import (
	"testing"

	"github.com/cuemby/nexus/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	labels map[string]uint32
	types  map[string]uint32
	keys   map[string]uint32
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		labels: map[string]uint32{"Person": 1, "Movie": 2},
		types:  map[string]uint32{"ACTED_IN": 10},
		keys:   map[string]uint32{"name": 100, "embedding": 101},
	}
}

func (f *fakeResolver) GetOrCreateLabel(name string) (uint32, error) {
	if id, ok := f.labels[name]; ok {
		return id, nil
	}
	id := uint32(len(f.labels) + 1)
	f.labels[name] = id
	return id, nil
}

func (f *fakeResolver) GetOrCreateType(name string) (uint32, error) {
	if id, ok := f.types[name]; ok {
		return id, nil
	}
	id := uint32(len(f.types) + 1)
	f.types[name] = id
	return id, nil
}

func (f *fakeResolver) GetOrCreateKey(name string) (uint32, error) {
	if id, ok := f.keys[name]; ok {
		return id, nil
	}
	id := uint32(len(f.keys) + 1)
	f.keys[name] = id
	return id, nil
}

func (f *fakeResolver) GetLabelID(name string) (uint32, bool) { id, ok := f.labels[name]; return id, ok }
func (f *fakeResolver) GetTypeID(name string) (uint32, bool)  { id, ok := f.types[name]; return id, ok }
func (f *fakeResolver) GetKeyID(name string) (uint32, bool)   { id, ok := f.keys[name]; return id, ok }

func mustParse(t *testing.T, src string) *query.Query {
	t.Helper()
	s, err := query.Parse(src)
	require.NoError(t, err)
	q, ok := s.(*query.Query)
	require.True(t, ok, "expected a Query statement, got %T", s)
	return q
}

func TestBuildSimpleMatchReturn(t *testing.T) {
	q := mustParse(t, `MATCH (p:Person) RETURN p.name`)
	root, err := Build(q, newFakeResolver())
	require.NoError(t, err)

	proj, ok := root.(*ProjectNode)
	require.True(t, ok)
	scan, ok := proj.Input.(*ScanNode)
	require.True(t, ok)
	assert.Equal(t, "p", scan.Var)
	assert.True(t, scan.HasLabel)
	assert.EqualValues(t, 1, scan.LabelID)
}

func TestBuildMatchWhereFilter(t *testing.T) {
	q := mustParse(t, `MATCH (p:Person) WHERE p.name = "Alice" RETURN p`)
	root, err := Build(q, newFakeResolver())
	require.NoError(t, err)

	proj := root.(*ProjectNode)
	filter, ok := proj.Input.(*FilterNode)
	require.True(t, ok)
	_, isScan := filter.Input.(*ScanNode)
	assert.True(t, isScan)
}

func TestBuildExpandChain(t *testing.T) {
	q := mustParse(t, `MATCH (p:Person)-[:ACTED_IN]->(m:Movie) RETURN m`)
	root, err := Build(q, newFakeResolver())
	require.NoError(t, err)

	proj := root.(*ProjectNode)
	join, ok := proj.Input.(*JoinNode)
	require.True(t, ok, "expected the labeled second node to join against the expand, got %T", proj.Input)
	_, isExpand := join.Left.(*ExpandNode)
	assert.True(t, isExpand)
}

func TestBuildKnnOrderByRewrite(t *testing.T) {
	q := mustParse(t, `MATCH (p:Person) RETURN p ORDER BY p.embedding <-> [0.1, 0.2] LIMIT 5`)
	root, err := Build(q, newFakeResolver())
	require.NoError(t, err)

	proj, ok := root.(*ProjectNode)
	require.True(t, ok)
	knn, ok := proj.Input.(*KnnNode)
	require.True(t, ok, "expected KNN ordering to produce a KnnNode, got %T", proj.Input)
	assert.Equal(t, "p", knn.Var)
	assert.EqualValues(t, 101, knn.KeyID)
	assert.Equal(t, 5, knn.K)
}

func TestBuildCreateClause(t *testing.T) {
	q := mustParse(t, `CREATE (p:Person {name: "Bob"})`)
	root, err := Build(q, newFakeResolver())
	require.NoError(t, err)

	create, ok := root.(*CreateNode)
	require.True(t, ok)
	assert.Len(t, create.Patterns, 1)
}
