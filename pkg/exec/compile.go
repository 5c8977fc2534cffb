package exec

import (
	"fmt"

	"github.com/cuemby/nexus/pkg/planner"
)

// Compile turns plan's optimized tree into a runnable Operator.
func Compile(plan *planner.Plan, ctx *Context) (Operator, error) {
	return compileNode(plan.Root, ctx)
}

func compileNode(node planner.PlanNode, ctx *Context) (Operator, error) {
	switch n := node.(type) {
	case nil:
		return &emptyOperator{}, nil
	case *planner.ScanNode:
		return NewScanOperator(n, ctx), nil
	case *planner.IndexScanNode:
		return NewIndexScanOperator(n, ctx), nil
	case *planner.KnnNode:
		if n.Input != nil {
			// Build places a KNN ordering above the MATCH pipeline that
			// precedes it, so a KnnNode from Build normally has an Input.
			child, err := compileNode(n.Input, ctx)
			if err != nil {
				return nil, err
			}
			return &chainedKnnOperator{knn: NewKnnOperator(n, ctx), child: child}, nil
		}
		return NewKnnOperator(n, ctx), nil
	case *planner.ExpandNode:
		child, err := compileNode(n.Input, ctx)
		if err != nil {
			return nil, err
		}
		return NewExpandOperator(n, child, ctx), nil
	case *planner.JoinNode:
		left, err := compileNode(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		right, err := compileNode(n.Right, ctx)
		if err != nil {
			return nil, err
		}
		return NewJoinOperator(n, left, right, ctx)
	case *planner.FilterNode:
		child, err := compileNode(n.Input, ctx)
		if err != nil {
			return nil, err
		}
		return NewFilterOperator(n, child, ctx), nil
	case *planner.ProjectNode:
		child, err := compileNode(n.Input, ctx)
		if err != nil {
			return nil, err
		}
		return NewProjectOperator(n, child, ctx), nil
	case *planner.AggregateNode:
		child, err := compileNode(n.Input, ctx)
		if err != nil {
			return nil, err
		}
		return NewAggregateOperator(n, child, ctx), nil
	case *planner.OrderByNode:
		child, err := compileNode(n.Input, ctx)
		if err != nil {
			return nil, err
		}
		return NewOrderByOperator(n, child, ctx), nil
	case *planner.SkipNode:
		child, err := compileNode(n.Input, ctx)
		if err != nil {
			return nil, err
		}
		return NewSkipOperator(n, child, ctx), nil
	case *planner.LimitNode:
		child, err := compileNode(n.Input, ctx)
		if err != nil {
			return nil, err
		}
		return NewLimitOperator(n, child, ctx), nil
	case *planner.CreateNode:
		child, err := compileNode(n.Input, ctx)
		if err != nil {
			return nil, err
		}
		return NewCreateOperator(n, child, ctx), nil
	case *planner.MergeNode:
		child, err := compileNode(n.Input, ctx)
		if err != nil {
			return nil, err
		}
		return NewMergeOperator(n, child, ctx), nil
	case *planner.SetPropsNode:
		child, err := compileNode(n.Input, ctx)
		if err != nil {
			return nil, err
		}
		return NewSetPropsOperator(n, child, ctx), nil
	case *planner.DeleteNode:
		child, err := compileNode(n.Input, ctx)
		if err != nil {
			return nil, err
		}
		return NewDeleteOperator(n, child, ctx), nil
	case *planner.UnwindNode:
		child, err := compileNode(n.Input, ctx)
		if err != nil {
			return nil, err
		}
		return NewUnwindOperator(n, child, ctx), nil
	default:
		return nil, fmt.Errorf("exec: unsupported plan node %T", node)
	}
}

// emptyOperator yields exactly one empty row, the implicit input to a
// CREATE/UNWIND pipeline with no preceding MATCH.
type emptyOperator struct{ done bool }

func (e *emptyOperator) Open() error { e.done = false; return nil }

func (e *emptyOperator) Next() (Row, error) {
	if e.done {
		return nil, ErrExhausted
	}
	e.done = true
	return Row{}, nil
}

func (e *emptyOperator) Close() error { return nil }

// chainedKnnOperator runs a KnnNode that has an upstream child: it opens
// and closes the child along with the KNN search but never reads the
// child's rows, so its output is the KNN search's rows alone and the
// child's label or filter does not narrow the candidates.
type chainedKnnOperator struct {
	knn   *KnnOperator
	child Operator
}

func (c *chainedKnnOperator) Open() error {
	if err := c.child.Open(); err != nil {
		return err
	}
	return c.knn.Open()
}

func (c *chainedKnnOperator) Next() (Row, error) { return c.knn.Next() }

func (c *chainedKnnOperator) Close() error {
	if err := c.knn.Close(); err != nil {
		return err
	}
	return c.child.Close()
}
