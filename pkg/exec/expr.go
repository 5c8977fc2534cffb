package exec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cuemby/nexus/pkg/query"
	"github.com/cuemby/nexus/pkg/storage"
)

// Eval evaluates e against row, resolving property accesses through
// already-bound NodeRef/RelRef values (never touching storage itself: by
// the time a WHERE or RETURN expression runs, every node/relationship it
// can reference has already been materialized into the row by a scan or
// expand operator).
func Eval(e query.Expr, row Row, ctx *Context) (any, error) {
	switch n := e.(type) {
	case *query.Literal:
		return n.Value, nil
	case *query.ParamRef:
		if ctx != nil {
			if v, ok := ctx.Params[n.Name]; ok {
				return v, nil
			}
		}
		return nil, fmt.Errorf("exec: unbound parameter $%s", n.Name)
	case *query.VarRef:
		v, ok := row[n.Name]
		if !ok {
			return nil, fmt.Errorf("exec: unbound variable %q", n.Name)
		}
		return v, nil
	case *query.PropertyAccess:
		return evalPropertyAccess(n, row, ctx)
	case *query.ListExpr:
		items := make([]any, len(n.Items))
		for i, it := range n.Items {
			v, err := Eval(it, row, ctx)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return items, nil
	case *query.NotExpr:
		v, err := Eval(n.Operand, row, ctx)
		if err != nil {
			return nil, err
		}
		return !truthy(v), nil
	case *query.BinaryOp:
		return evalBinaryOp(n, row, ctx)
	case *query.FuncCall:
		return evalFuncCall(n, row, ctx)
	case *query.KnnExpr:
		// a bare KnnExpr only appears pre-optimization inside an ORDER BY;
		// the planner always rewrites it into a KnnNode before exec sees it.
		return nil, fmt.Errorf("exec: KNN expression reached the evaluator unrewritten")
	default:
		return nil, fmt.Errorf("exec: unsupported expression %T", e)
	}
}

func evalPropertyAccess(n *query.PropertyAccess, row Row, ctx *Context) (any, error) {
	bound, ok := row[n.Var]
	if !ok {
		return nil, fmt.Errorf("exec: unbound variable %q", n.Var)
	}
	keyID, ok := ctx.Catalog.GetKeyID(n.Prop)
	if !ok {
		return storage.NullValue(), nil
	}
	var props storage.PropertyMap
	switch b := bound.(type) {
	case NodeRef:
		props = b.Props
	case RelRef:
		props = b.Props
	default:
		return nil, fmt.Errorf("exec: %q is not a node or relationship", n.Var)
	}
	if props == nil {
		return storage.NullValue(), nil
	}
	v, ok := props[keyID]
	if !ok {
		return storage.NullValue(), nil
	}
	return v, nil
}

func evalBinaryOp(n *query.BinaryOp, row Row, ctx *Context) (any, error) {
	left, err := Eval(n.Left, row, ctx)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case "AND":
		if !truthy(left) {
			return false, nil
		}
		right, err := Eval(n.Right, row, ctx)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	case "OR":
		if truthy(left) {
			return true, nil
		}
		right, err := Eval(n.Right, row, ctx)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	case "XOR":
		right, err := Eval(n.Right, row, ctx)
		if err != nil {
			return nil, err
		}
		return truthy(left) != truthy(right), nil
	}
	right, err := Eval(n.Right, row, ctx)
	if err != nil {
		return nil, err
	}
	lv, rv := AsPropertyValue(left), AsPropertyValue(right)
	switch n.Op {
	case "=":
		return valuesEqual(lv, rv), nil
	case "<>":
		return !valuesEqual(lv, rv), nil
	case "<", "<=", ">", ">=":
		cmp, ok := compareValues(lv, rv)
		if !ok {
			return false, nil
		}
		switch n.Op {
		case "<":
			return cmp < 0, nil
		case "<=":
			return cmp <= 0, nil
		case ">":
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	case "+", "-", "*", "/", "%":
		return arith(n.Op, lv, rv)
	default:
		return nil, fmt.Errorf("exec: unsupported operator %q", n.Op)
	}
}

func arith(op string, l, r storage.PropertyValue) (any, error) {
	if l.Kind == storage.KindString && r.Kind == storage.KindString && op == "+" {
		return l.Str + r.Str, nil
	}
	lf, lok := numericOf(l)
	rf, rok := numericOf(r)
	if !lok || !rok {
		return nil, fmt.Errorf("exec: operator %q requires numeric operands", op)
	}
	switch op {
	case "+":
		return lf + rf, nil
	case "-":
		return lf - rf, nil
	case "*":
		return lf * rf, nil
	case "/":
		if rf == 0 {
			return nil, fmt.Errorf("exec: division by zero")
		}
		return lf / rf, nil
	case "%":
		if rf == 0 {
			return nil, fmt.Errorf("exec: modulo by zero")
		}
		return float64(int64(lf) % int64(rf)), nil
	}
	return nil, fmt.Errorf("exec: unsupported arithmetic operator %q", op)
}

func numericOf(v storage.PropertyValue) (float64, bool) {
	switch v.Kind {
	case storage.KindInt:
		return float64(v.Int), true
	case storage.KindFloat:
		return v.Float, true
	default:
		return 0, false
	}
}

func valuesEqual(l, r storage.PropertyValue) bool {
	if l.Kind != r.Kind {
		lf, lok := numericOf(l)
		rf, rok := numericOf(r)
		if lok && rok {
			return lf == rf
		}
		return false
	}
	switch l.Kind {
	case storage.KindNull:
		return true
	case storage.KindBool:
		return l.Bool == r.Bool
	case storage.KindInt:
		return l.Int == r.Int
	case storage.KindFloat:
		return l.Float == r.Float
	case storage.KindString:
		return l.Str == r.Str
	default:
		return false
	}
}

// compareValues orders l against r, returning false if they're not
// order-comparable (different non-numeric kinds).
func compareValues(l, r storage.PropertyValue) (int, bool) {
	lf, lok := numericOf(l)
	rf, rok := numericOf(r)
	if lok && rok {
		switch {
		case lf < rf:
			return -1, true
		case lf > rf:
			return 1, true
		default:
			return 0, true
		}
	}
	if l.Kind == storage.KindString && r.Kind == storage.KindString {
		return strings.Compare(l.Str, r.Str), true
	}
	return 0, false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case storage.PropertyValue:
		if t.Kind == storage.KindBool {
			return t.Bool
		}
		return t.Kind != storage.KindNull
	case nil:
		return false
	default:
		return true
	}
}

func evalFuncCall(n *query.FuncCall, row Row, ctx *Context) (any, error) {
	args := make([]any, len(n.Args))
	for i, a := range n.Args {
		v, err := Eval(a, row, ctx)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	switch strings.ToLower(n.Name) {
	case "id":
		switch t := args[0].(type) {
		case NodeRef:
			return int64(t.ID), nil
		case RelRef:
			return int64(t.ID), nil
		}
		return nil, fmt.Errorf("exec: id() requires a node or relationship")
	case "labels":
		nr, ok := args[0].(NodeRef)
		if !ok {
			return nil, fmt.Errorf("exec: labels() requires a node")
		}
		out := make([]string, 0, len(nr.Labels))
		for _, l := range nr.Labels {
			if name, ok := ctx.Catalog.LabelName(l); ok {
				out = append(out, name)
			}
		}
		sort.Strings(out)
		return out, nil
	case "type":
		rr, ok := args[0].(RelRef)
		if !ok {
			return nil, fmt.Errorf("exec: type() requires a relationship")
		}
		name, _ := ctx.Catalog.TypeName(rr.TypeID)
		return name, nil
	default:
		return nil, fmt.Errorf("exec: unsupported scalar function %q (aggregates are handled by AggregateOperator)", n.Name)
	}
}
