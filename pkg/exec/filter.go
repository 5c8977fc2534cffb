package exec

import "github.com/cuemby/nexus/pkg/planner"

// FilterOperator implements planner.FilterNode: pulls rows from its
// child and emits only those for which Predicate evaluates truthy.
type FilterOperator struct {
	node  *planner.FilterNode
	child Operator
	ctx   *Context
}

func NewFilterOperator(node *planner.FilterNode, child Operator, ctx *Context) *FilterOperator {
	return &FilterOperator{node: node, child: child, ctx: ctx}
}

func (f *FilterOperator) Open() error { return f.child.Open() }

func (f *FilterOperator) Next() (Row, error) {
	for {
		row, err := f.child.Next()
		if err != nil {
			return nil, err
		}
		v, err := Eval(f.node.Predicate, row, f.ctx)
		if err != nil {
			return nil, err
		}
		if truthy(v) {
			return row, nil
		}
	}
}

func (f *FilterOperator) Close() error { return f.child.Close() }
