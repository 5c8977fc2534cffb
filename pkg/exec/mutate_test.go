package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/nexus/pkg/planner"
	"github.com/cuemby/nexus/pkg/query"
	"github.com/cuemby/nexus/pkg/storage"
)

func TestCreateOperatorCreatesNodeAndRelationship(t *testing.T) {
	ctx := newTestContext(t)
	pattern := &query.PathPattern{
		Start: &query.NodePattern{Var: "a", Labels: []string{"Person"}, Props: map[string]query.Expr{
			"name": &query.Literal{Value: "Alice"},
		}},
		Hops: []*query.Hop{{
			Rel:  &query.RelPattern{Var: "r", Types: []string{"KNOWS"}, Direction: query.DirOut},
			Node: &query.NodePattern{Var: "b", Labels: []string{"Person"}, Props: map[string]query.Expr{
				"name": &query.Literal{Value: "Bob"},
			}},
		}},
	}
	op := NewCreateOperator(&planner.CreateNode{Patterns: []*query.PathPattern{pattern}}, &emptyOperator{}, ctx)
	rows := drainAll(t, op)
	require.Len(t, rows, 1)

	a := rows[0]["a"].(NodeRef)
	b := rows[0]["b"].(NodeRef)
	r := rows[0]["r"].(RelRef)
	assert.Equal(t, r.Source, a.ID)
	assert.Equal(t, r.Target, b.ID)
	assert.Equal(t, uint64(2), ctx.Storage.NodeCount())
}

func TestSetPropsOperatorUpdatesBoundNode(t *testing.T) {
	ctx := newTestContext(t)
	person := mustLabel(t, ctx, "Person")
	nameKey := mustKey(t, ctx, "name")
	id := createTestNode(t, ctx, person, storage.PropertyMap{nameKey: storage.StringValue("Alice")})

	child := newSliceOperator([]Row{{"p": NodeRef{ID: id, Labels: []uint32{person}, Props: storage.PropertyMap{nameKey: storage.StringValue("Alice")}}}})
	items := []*query.SetItem{{Var: "p", Prop: "name", Value: &query.Literal{Value: "Carol"}}}
	op := NewSetPropsOperator(&planner.SetPropsNode{Items: items}, child, ctx)
	rows := drainAll(t, op)
	require.Len(t, rows, 1)
	nr := rows[0]["p"].(NodeRef)
	assert.Equal(t, storage.StringValue("Carol"), nr.Props[nameKey])
}

func TestDeleteOperatorRemovesNode(t *testing.T) {
	ctx := newTestContext(t)
	person := mustLabel(t, ctx, "Person")
	id := createTestNode(t, ctx, person, nil)

	child := newSliceOperator([]Row{{"p": NodeRef{ID: id}}})
	op := NewDeleteOperator(&planner.DeleteNode{Vars: []string{"p"}}, child, ctx)
	_ = drainAll(t, op)

	_, _, err := ctx.Storage.GetNode(id, ctx.Epoch+1)
	require.Error(t, err)
}

func TestUnwindOperatorExpandsList(t *testing.T) {
	child := newSliceOperator([]Row{{}})
	node := &planner.UnwindNode{
		List: &query.ListExpr{Items: []query.Expr{
			&query.Literal{Value: int64(1)}, &query.Literal{Value: int64(2)}, &query.Literal{Value: int64(3)},
		}},
		As: "x",
	}
	op := NewUnwindOperator(node, child, nil)
	rows := drainAll(t, op)
	require.Len(t, rows, 3)
	assert.Equal(t, int64(1), rows[0]["x"])
	assert.Equal(t, int64(3), rows[2]["x"])
}
