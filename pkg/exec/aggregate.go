package exec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cuemby/nexus/pkg/planner"
	"github.com/cuemby/nexus/pkg/query"
)

// AggregateOperator implements planner.AggregateNode. It's a blocking
// operator: Open drains the entire child stream, grouping by every
// non-aggregate Items expression and folding the aggregate expressions
// per group, since none of count/sum/avg/min/max/collect can be computed
// incrementally without seeing every row in their group first.
type AggregateOperator struct {
	node  *planner.AggregateNode
	child Operator
	ctx   *Context

	groupExprs []int // indexes into node.Items that are grouping keys
	aggExprs   []int // indexes that are aggregate FuncCalls

	results []Row
	pos     int
}

func NewAggregateOperator(node *planner.AggregateNode, child Operator, ctx *Context) *AggregateOperator {
	a := &AggregateOperator{node: node, child: child, ctx: ctx}
	for i, item := range node.Items {
		if fc, ok := item.Expr.(*query.FuncCall); ok && fc.IsAggregate {
			a.aggExprs = append(a.aggExprs, i)
		} else {
			a.groupExprs = append(a.groupExprs, i)
		}
	}
	return a
}

type aggAccumulator struct {
	fn       string
	distinct bool
	seen     map[string]struct{}
	count    int64
	sum      float64
	hasNum   bool
	min, max any
	hasMinMax bool
	collected []any
}

func newAccumulator(fc *query.FuncCall) *aggAccumulator {
	acc := &aggAccumulator{fn: fc.Name, distinct: fc.Distinct}
	if fc.Distinct {
		acc.seen = make(map[string]struct{})
	}
	return acc
}

func (a *aggAccumulator) add(v any) {
	if a.distinct {
		key := fmt.Sprint(v)
		if _, dup := a.seen[key]; dup {
			return
		}
		a.seen[key] = struct{}{}
	}
	a.count++
	switch a.fn {
	case "sum", "avg":
		if f, ok := numericAny(v); ok {
			a.sum += f
			a.hasNum = true
		}
	case "min":
		if !a.hasMinMax || lessAny(v, a.min) {
			a.min, a.hasMinMax = v, true
		}
	case "max":
		if !a.hasMinMax || lessAny(a.max, v) {
			a.max, a.hasMinMax = v, true
		}
	case "collect":
		a.collected = append(a.collected, v)
	}
}

func (a *aggAccumulator) result() any {
	switch a.fn {
	case "count":
		return int64(a.count)
	case "sum":
		return a.sum
	case "avg":
		if a.count == 0 {
			return 0.0
		}
		return a.sum / float64(a.count)
	case "min":
		return a.min
	case "max":
		return a.max
	case "collect":
		return a.collected
	default:
		return nil
	}
}

func numericAny(v any) (float64, bool) {
	pv := AsPropertyValue(v)
	return numericOf(pv)
}

func lessAny(a, b any) bool {
	cmp, ok := compareValues(AsPropertyValue(a), AsPropertyValue(b))
	return ok && cmp < 0
}

type groupState struct {
	keyRow Row
	accs   map[int]*aggAccumulator
}

func (a *AggregateOperator) Open() error {
	if err := a.child.Open(); err != nil {
		return err
	}
	groups := make(map[string]*groupState)
	var order []string
	for {
		row, err := a.child.Next()
		if err == ErrExhausted {
			break
		}
		if err != nil {
			return err
		}
		keyRow := Row{}
		var keyParts []string
		for _, i := range a.groupExprs {
			item := a.node.Items[i]
			v, err := Eval(item.Expr, row, a.ctx)
			if err != nil {
				return err
			}
			name := item.Alias
			if name == "" {
				name = defaultProjectionName(item, i)
			}
			keyRow[name] = v
			keyParts = append(keyParts, name+"="+fmt.Sprint(v))
		}
		key := strings.Join(keyParts, "|")
		gs, ok := groups[key]
		if !ok {
			gs = &groupState{keyRow: keyRow, accs: make(map[int]*aggAccumulator)}
			for _, i := range a.aggExprs {
				gs.accs[i] = newAccumulator(a.node.Items[i].Expr.(*query.FuncCall))
			}
			groups[key] = gs
			order = append(order, key)
		}
		for _, i := range a.aggExprs {
			fc := a.node.Items[i].Expr.(*query.FuncCall)
			if len(fc.Args) == 1 {
				if _, isStar := fc.Args[0].(*query.VarRef); isStar && fc.Args[0].(*query.VarRef).Name == "*" {
					gs.accs[i].add(int64(1))
					continue
				}
				v, err := Eval(fc.Args[0], row, a.ctx)
				if err != nil {
					return err
				}
				gs.accs[i].add(v)
			} else {
				gs.accs[i].add(int64(1))
			}
		}
	}
	sort.Strings(order)
	a.results = make([]Row, 0, len(order))
	for _, key := range order {
		gs := groups[key]
		out := gs.keyRow.Clone()
		for _, i := range a.aggExprs {
			item := a.node.Items[i]
			name := item.Alias
			if name == "" {
				name = defaultProjectionName(item, i)
			}
			out[name] = gs.accs[i].result()
		}
		a.results = append(a.results, out)
	}
	return nil
}

func (a *AggregateOperator) Next() (Row, error) {
	if a.pos >= len(a.results) {
		return nil, ErrExhausted
	}
	row := a.results[a.pos]
	a.pos++
	return row, nil
}

func (a *AggregateOperator) Close() error { return a.child.Close() }
