package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/nexus/pkg/planner"
	"github.com/cuemby/nexus/pkg/query"
)

func ageRow(id uint64, age int64) Row {
	return Row{"p": NodeRef{ID: id}, "age": age}
}

func TestOrderByAscending(t *testing.T) {
	child := newSliceOperator([]Row{ageRow(1, 30), ageRow(2, 10), ageRow(3, 20)})
	node := &planner.OrderByNode{Items: []query.OrderItem{
		{Expr: &query.VarRef{Name: "age"}, Ascending: true},
	}}
	op := NewOrderByOperator(node, child, nil)
	rows := drainAll(t, op)
	require.Len(t, rows, 3)
	assert.Equal(t, int64(10), rows[0]["age"])
	assert.Equal(t, int64(20), rows[1]["age"])
	assert.Equal(t, int64(30), rows[2]["age"])
}

func TestLimitStopsEarly(t *testing.T) {
	child := newSliceOperator([]Row{ageRow(1, 1), ageRow(2, 2), ageRow(3, 3)})
	node := &planner.LimitNode{Expr: &query.Literal{Value: int64(2)}}
	op := NewLimitOperator(node, child, nil)
	rows := drainAll(t, op)
	assert.Len(t, rows, 2)
}

func TestSkipDropsLeadingRows(t *testing.T) {
	child := newSliceOperator([]Row{ageRow(1, 1), ageRow(2, 2), ageRow(3, 3)})
	node := &planner.SkipNode{Expr: &query.Literal{Value: int64(1)}}
	op := NewSkipOperator(node, child, nil)
	rows := drainAll(t, op)
	require.Len(t, rows, 2)
	assert.Equal(t, uint64(2), rows[0]["p"].(NodeRef).ID)
}
