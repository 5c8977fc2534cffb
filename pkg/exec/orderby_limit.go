package exec

import (
	"fmt"
	"sort"

	"github.com/cuemby/nexus/pkg/planner"
	"github.com/cuemby/nexus/pkg/query"
	"github.com/cuemby/nexus/pkg/storage"
)

// OrderByOperator implements planner.OrderByNode. Like AggregateOperator
// it must see every row before producing its first output, so Open
// drains the child and sorts in place.
type OrderByOperator struct {
	node  *planner.OrderByNode
	child Operator
	ctx   *Context

	rows []Row
	pos  int
	err  error
}

func NewOrderByOperator(node *planner.OrderByNode, child Operator, ctx *Context) *OrderByOperator {
	return &OrderByOperator{node: node, child: child, ctx: ctx}
}

func (o *OrderByOperator) Open() error {
	if err := o.child.Open(); err != nil {
		return err
	}
	for {
		row, err := o.child.Next()
		if err == ErrExhausted {
			break
		}
		if err != nil {
			return err
		}
		o.rows = append(o.rows, row)
	}
	sort.SliceStable(o.rows, func(i, j int) bool {
		if o.err != nil {
			return false
		}
		for _, item := range o.node.Items {
			lv, err := Eval(item.Expr, o.rows[i], o.ctx)
			if err != nil {
				o.err = err
				return false
			}
			rv, err := Eval(item.Expr, o.rows[j], o.ctx)
			if err != nil {
				o.err = err
				return false
			}
			cmp, ok := compareValues(AsPropertyValue(lv), AsPropertyValue(rv))
			if !ok || cmp == 0 {
				continue
			}
			if item.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})
	return o.err
}

func (o *OrderByOperator) Next() (Row, error) {
	if o.pos >= len(o.rows) {
		return nil, ErrExhausted
	}
	row := o.rows[o.pos]
	o.pos++
	return row, nil
}

func (o *OrderByOperator) Close() error { return o.child.Close() }

// SkipOperator implements planner.SkipNode: drops the first N rows.
type SkipOperator struct {
	node    *planner.SkipNode
	child   Operator
	ctx     *Context
	n       int
	skipped bool
}

func NewSkipOperator(node *planner.SkipNode, child Operator, ctx *Context) *SkipOperator {
	return &SkipOperator{node: node, child: child, ctx: ctx}
}

func (s *SkipOperator) Open() error { return s.child.Open() }

func (s *SkipOperator) Next() (Row, error) {
	if !s.skipped {
		s.skipped = true
		n, err := evalIntExpr(s.node.Expr, s.ctx)
		if err != nil {
			return nil, err
		}
		s.n = n
		for i := 0; i < s.n; i++ {
			if _, err := s.child.Next(); err != nil {
				return nil, err
			}
		}
	}
	return s.child.Next()
}

func (s *SkipOperator) Close() error { return s.child.Close() }

// LimitOperator implements planner.LimitNode: stops after N rows.
type LimitOperator struct {
	node    *planner.LimitNode
	child   Operator
	ctx     *Context
	limit   int
	emitted int
	resolved bool
}

func NewLimitOperator(node *planner.LimitNode, child Operator, ctx *Context) *LimitOperator {
	return &LimitOperator{node: node, child: child, ctx: ctx}
}

func (l *LimitOperator) Open() error { return l.child.Open() }

func (l *LimitOperator) Next() (Row, error) {
	if !l.resolved {
		n, err := evalIntExpr(l.node.Expr, l.ctx)
		if err != nil {
			return nil, err
		}
		l.limit = n
		l.resolved = true
	}
	if l.emitted >= l.limit {
		return nil, ErrExhausted
	}
	row, err := l.child.Next()
	if err != nil {
		return nil, err
	}
	l.emitted++
	return row, nil
}

func (l *LimitOperator) Close() error { return l.child.Close() }

// evalIntExpr evaluates a SKIP/LIMIT expression (a literal or parameter
// reference; Cypher forbids anything row-dependent here) to a row count.
func evalIntExpr(e query.Expr, ctx *Context) (int, error) {
	v, err := Eval(e, Row{}, ctx)
	if err != nil {
		return 0, err
	}
	pv := AsPropertyValue(v)
	switch pv.Kind {
	case storage.KindInt:
		return int(pv.Int), nil
	case storage.KindFloat:
		return int(pv.Float), nil
	default:
		return 0, fmt.Errorf("exec: SKIP/LIMIT expression did not evaluate to a number")
	}
}
