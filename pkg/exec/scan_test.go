package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/nexus/pkg/planner"
	"github.com/cuemby/nexus/pkg/query"
	"github.com/cuemby/nexus/pkg/storage"
)

func TestScanOperatorByLabel(t *testing.T) {
	ctx := newTestContext(t)
	person := mustLabel(t, ctx, "Person")
	movie := mustLabel(t, ctx, "Movie")
	nameKey := mustKey(t, ctx, "name")

	createTestNode(t, ctx, person, storage.PropertyMap{nameKey: storage.StringValue("Alice")})
	createTestNode(t, ctx, person, storage.PropertyMap{nameKey: storage.StringValue("Bob")})
	createTestNode(t, ctx, movie, storage.PropertyMap{nameKey: storage.StringValue("Matrix")})

	op := NewScanOperator(&planner.ScanNode{Var: "p", LabelID: person, HasLabel: true}, ctx)
	rows := drainAll(t, op)
	require.Len(t, rows, 2)
	for _, row := range rows {
		nr, ok := row["p"].(NodeRef)
		require.True(t, ok)
		assert.Equal(t, []uint32{person}, nr.Labels)
	}
}

func TestScanOperatorFullScan(t *testing.T) {
	ctx := newTestContext(t)
	person := mustLabel(t, ctx, "Person")
	createTestNode(t, ctx, person, nil)
	createTestNode(t, ctx, person, nil)

	op := NewScanOperator(&planner.ScanNode{Var: "n"}, ctx)
	rows := drainAll(t, op)
	assert.Len(t, rows, 2)
}

func TestIndexScanOperatorEquality(t *testing.T) {
	ctx := newTestContext(t)
	person := mustLabel(t, ctx, "Person")
	ageKey := mustKey(t, ctx, "age")

	id1 := createTestNode(t, ctx, person, storage.PropertyMap{ageKey: storage.IntValue(30)})
	createTestNode(t, ctx, person, storage.PropertyMap{ageKey: storage.IntValue(40)})
	ctx.Props.Add(person, ageKey, storage.IntValue(30), id1)

	op := NewIndexScanOperator(&planner.IndexScanNode{
		Var: "p", LabelID: person, KeyID: ageKey, Op: "=",
		Value: &query.Literal{Value: int64(30)},
	}, ctx)
	rows := drainAll(t, op)
	require.Len(t, rows, 1)
	nr := rows[0]["p"].(NodeRef)
	assert.Equal(t, id1, nr.ID)
}
