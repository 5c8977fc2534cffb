package exec

import (
	"fmt"

	"github.com/cuemby/nexus/pkg/planner"
	"github.com/cuemby/nexus/pkg/query"
)

// ProjectOperator implements planner.ProjectNode: evaluates each Items
// expression against the child row and rebinds it under its alias (or a
// generated name), optionally suppressing duplicate output rows.
type ProjectOperator struct {
	node  *planner.ProjectNode
	child Operator
	ctx   *Context

	seen map[string]struct{}
}

func NewProjectOperator(node *planner.ProjectNode, child Operator, ctx *Context) *ProjectOperator {
	return &ProjectOperator{node: node, child: child, ctx: ctx}
}

func (p *ProjectOperator) Open() error {
	if p.node.Distinct {
		p.seen = make(map[string]struct{})
	}
	return p.child.Open()
}

func (p *ProjectOperator) Next() (Row, error) {
	for {
		in, err := p.child.Next()
		if err != nil {
			return nil, err
		}
		out, err := Project(p.node.Items, in, p.ctx)
		if err != nil {
			return nil, err
		}
		if p.node.Distinct {
			key := fmt.Sprint(out)
			if _, dup := p.seen[key]; dup {
				continue
			}
			p.seen[key] = struct{}{}
		}
		return out, nil
	}
}

func (p *ProjectOperator) Close() error { return p.child.Close() }

// Project evaluates items against row, used both by ProjectOperator and
// by WITH-clause rewrites that reuse the same projection semantics.
func Project(items []query.ReturnItem, row Row, ctx *Context) (Row, error) {
	out := make(Row, len(items))
	for i, item := range items {
		v, err := Eval(item.Expr, row, ctx)
		if err != nil {
			return nil, err
		}
		name := item.Alias
		if name == "" {
			name = defaultProjectionName(item, i)
		}
		out[name] = v
	}
	return out, nil
}

func defaultProjectionName(item query.ReturnItem, idx int) string {
	switch e := item.Expr.(type) {
	case *query.VarRef:
		return e.Name
	case *query.PropertyAccess:
		return e.Var + "." + e.Prop
	default:
		return fmt.Sprintf("col%d", idx)
	}
}
