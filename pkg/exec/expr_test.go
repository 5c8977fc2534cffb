package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/nexus/pkg/query"
	"github.com/cuemby/nexus/pkg/storage"
)

func TestEvalPropertyAccess(t *testing.T) {
	ctx := newTestContext(t)
	person := mustLabel(t, ctx, "Person")
	nameKey := mustKey(t, ctx, "name")
	row := Row{"p": NodeRef{ID: 1, Labels: []uint32{person}, Props: storage.PropertyMap{nameKey: storage.StringValue("Alice")}}}

	v, err := Eval(&query.PropertyAccess{Var: "p", Prop: "name"}, row, ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.StringValue("Alice"), v)
}

func TestEvalPropertyAccessMissingPropertyIsNull(t *testing.T) {
	ctx := newTestContext(t)
	person := mustLabel(t, ctx, "Person")
	mustKey(t, ctx, "name")
	row := Row{"p": NodeRef{ID: 1, Labels: []uint32{person}, Props: storage.PropertyMap{}}}

	v, err := Eval(&query.PropertyAccess{Var: "p", Prop: "name"}, row, ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.NullValue(), v)
}

func TestEvalBinaryOpComparison(t *testing.T) {
	ctx := newTestContext(t)
	row := Row{}
	e := &query.BinaryOp{Op: ">", Left: &query.Literal{Value: int64(5)}, Right: &query.Literal{Value: int64(3)}}
	v, err := Eval(e, row, ctx)
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestEvalBinaryOpAndShortCircuits(t *testing.T) {
	ctx := newTestContext(t)
	// RHS would error (unbound var) if evaluated; AND must short-circuit on a false LHS.
	e := &query.BinaryOp{
		Op:   "AND",
		Left: &query.Literal{Value: false},
		Right: &query.VarRef{Name: "nonexistent"},
	}
	v, err := Eval(e, Row{}, ctx)
	require.NoError(t, err)
	assert.Equal(t, false, v)
}

func TestEvalArithmetic(t *testing.T) {
	ctx := newTestContext(t)
	e := &query.BinaryOp{Op: "+", Left: &query.Literal{Value: int64(2)}, Right: &query.Literal{Value: int64(3)}}
	v, err := Eval(e, Row{}, ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(5), v)
}

func TestEvalFuncCallId(t *testing.T) {
	ctx := newTestContext(t)
	row := Row{"n": NodeRef{ID: 42}}
	v, err := Eval(&query.FuncCall{Name: "id", Args: []query.Expr{&query.VarRef{Name: "n"}}}, row, ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}
