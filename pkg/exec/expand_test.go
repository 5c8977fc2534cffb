package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/nexus/pkg/planner"
	"github.com/cuemby/nexus/pkg/query"
)

func TestExpandOperatorOneHopOutgoing(t *testing.T) {
	ctx := newTestContext(t)
	person := mustLabel(t, ctx, "Person")
	knows, err := ctx.Catalog.GetOrCreateType("KNOWS")
	require.NoError(t, err)

	alice := createTestNode(t, ctx, person, nil)
	bob := createTestNode(t, ctx, person, nil)
	_, err = ctx.Storage.CreateRelationship(alice, bob, knows, nil, ctx.Epoch)
	require.NoError(t, err)

	child := newSliceOperator([]Row{{"a": NodeRef{ID: alice, Labels: []uint32{person}}}})
	node := &planner.ExpandNode{FromVar: "a", ToVar: "b", RelVar: "r", Dir: query.DirOut, TypeIDs: []uint32{knows}}
	op := NewExpandOperator(node, child, ctx)

	rows := drainAll(t, op)
	require.Len(t, rows, 1)
	assert.Equal(t, bob, rows[0]["b"].(NodeRef).ID)
	r := rows[0]["r"].(RelRef)
	assert.Equal(t, alice, r.Source)
	assert.Equal(t, bob, r.Target)
}

func TestExpandOperatorVariableLength(t *testing.T) {
	ctx := newTestContext(t)
	person := mustLabel(t, ctx, "Person")
	knows, err := ctx.Catalog.GetOrCreateType("KNOWS")
	require.NoError(t, err)

	a := createTestNode(t, ctx, person, nil)
	b := createTestNode(t, ctx, person, nil)
	c := createTestNode(t, ctx, person, nil)
	_, err = ctx.Storage.CreateRelationship(a, b, knows, nil, ctx.Epoch)
	require.NoError(t, err)
	_, err = ctx.Storage.CreateRelationship(b, c, knows, nil, ctx.Epoch)
	require.NoError(t, err)

	child := newSliceOperator([]Row{{"a": NodeRef{ID: a}}})
	node := &planner.ExpandNode{
		FromVar: "a", ToVar: "b", Dir: query.DirOut, TypeIDs: []uint32{knows},
		VarLength: true, MinHops: 1, MaxHops: 2,
	}
	op := NewExpandOperator(node, child, ctx)
	rows := drainAll(t, op)

	var reached []uint64
	for _, row := range rows {
		reached = append(reached, row["b"].(NodeRef).ID)
	}
	assert.ElementsMatch(t, []uint64{b, c}, reached)
}
