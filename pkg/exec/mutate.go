package exec

import (
	"fmt"

	"github.com/cuemby/nexus/pkg/planner"
	"github.com/cuemby/nexus/pkg/query"
	"github.com/cuemby/nexus/pkg/storage"
)

func resolveProps(propExprs map[string]query.Expr, row Row, ctx *Context) (storage.PropertyMap, error) {
	out := make(storage.PropertyMap, len(propExprs))
	for name, expr := range propExprs {
		v, err := Eval(expr, row, ctx)
		if err != nil {
			return nil, err
		}
		keyID, err := ctx.Catalog.GetOrCreateKey(name)
		if err != nil {
			return nil, err
		}
		out[keyID] = AsPropertyValue(v)
	}
	return out, nil
}

func createPattern(pattern *query.PathPattern, row Row, ctx *Context) error {
	startID, _, err := createNodeFromPattern(pattern.Start, row, ctx)
	if err != nil {
		return err
	}
	curID := startID
	for _, hop := range pattern.Hops {
		nextID, _, err := createNodeFromPattern(hop.Node, row, ctx)
		if err != nil {
			return err
		}
		typeID, err := relTypeFor(hop.Rel, ctx)
		if err != nil {
			return err
		}
		props, err := resolveProps(hop.Rel.Props, row, ctx)
		if err != nil {
			return err
		}
		source, target := curID, nextID
		if hop.Rel.Direction == query.DirIn {
			source, target = nextID, curID
		}
		relID, err := ctx.Storage.CreateRelationship(source, target, typeID, props, ctx.Epoch)
		if err != nil {
			return err
		}
		if hop.Rel.Var != "" {
			row[hop.Rel.Var] = RelRef{ID: relID, TypeID: typeID, Source: source, Target: target, Props: props}
		}
		curID = nextID
	}
	return nil
}

func createNodeFromPattern(np *query.NodePattern, row Row, ctx *Context) (uint64, uint32, error) {
	var labelID uint32
	if len(np.Labels) > 0 {
		id, err := ctx.Catalog.GetOrCreateLabel(np.Labels[0])
		if err != nil {
			return 0, 0, err
		}
		labelID = id
	}
	props, err := resolveProps(np.Props, row, ctx)
	if err != nil {
		return 0, 0, err
	}
	id, err := ctx.Storage.CreateNode(labelID, props, ctx.Epoch)
	if err != nil {
		return 0, 0, err
	}
	if np.Var != "" {
		row[np.Var] = NodeRef{ID: id, Labels: []uint32{labelID}, Props: props}
	}
	return id, labelID, nil
}

func relTypeFor(rel *query.RelPattern, ctx *Context) (uint32, error) {
	if len(rel.Types) == 0 {
		return 0, fmt.Errorf("exec: CREATE relationship pattern requires exactly one type")
	}
	return ctx.Catalog.GetOrCreateType(rel.Types[0])
}

// CreateOperator implements planner.CreateNode: for every row from
// Input (a single empty row when CREATE has no preceding MATCH),
// materializes every pattern and re-emits the row with new bindings.
type CreateOperator struct {
	node  *planner.CreateNode
	child Operator
	ctx   *Context
}

func NewCreateOperator(node *planner.CreateNode, child Operator, ctx *Context) *CreateOperator {
	return &CreateOperator{node: node, child: child, ctx: ctx}
}

func (c *CreateOperator) Open() error { return c.child.Open() }

func (c *CreateOperator) Next() (Row, error) {
	row, err := c.child.Next()
	if err != nil {
		return nil, err
	}
	row = row.Clone()
	for _, pattern := range c.node.Patterns {
		if err := createPattern(pattern, row, c.ctx); err != nil {
			return nil, err
		}
	}
	return row, nil
}

func (c *CreateOperator) Close() error { return c.child.Close() }

// MergeOperator implements planner.MergeNode: matches Pattern's start
// node by label and literal property equality; creates it (running
// OnCreate) if no match exists, otherwise runs OnMatch against every
// match found.
type MergeOperator struct {
	node  *planner.MergeNode
	child Operator
	ctx   *Context

	rows []Row
	pos  int
}

func NewMergeOperator(node *planner.MergeNode, child Operator, ctx *Context) *MergeOperator {
	return &MergeOperator{node: node, child: child, ctx: ctx}
}

func (m *MergeOperator) Open() error {
	if err := m.child.Open(); err != nil {
		return err
	}
	for {
		base, err := m.child.Next()
		if err == ErrExhausted {
			break
		}
		if err != nil {
			return err
		}
		matches, err := m.findMatches(base)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			row := base.Clone()
			if err := createPattern(m.node.Pattern, row, m.ctx); err != nil {
				return err
			}
			if err := applySetItems(m.node.OnCreate, row, m.ctx); err != nil {
				return err
			}
			m.rows = append(m.rows, row)
			continue
		}
		for _, row := range matches {
			if err := applySetItems(m.node.OnMatch, row, m.ctx); err != nil {
				return err
			}
			m.rows = append(m.rows, row)
		}
	}
	return nil
}

func (m *MergeOperator) findMatches(base Row) ([]Row, error) {
	start := m.node.Pattern.Start
	if len(start.Labels) == 0 {
		return nil, nil
	}
	labelID, ok := m.ctx.Catalog.GetLabelID(start.Labels[0])
	if !ok {
		return nil, nil
	}
	ids := m.ctx.Labels.GetNodesWithLabel(labelID)
	var out []Row
	for _, id := range ids {
		rec, props, err := m.ctx.Storage.GetNode(id, m.ctx.Epoch)
		if err != nil {
			continue
		}
		if !propsMatch(start.Props, props, base, m.ctx) {
			continue
		}
		row := base.Clone()
		if start.Var != "" {
			row[start.Var] = NodeRef{ID: id, Labels: []uint32{rec.PrimaryLabel}, Props: props}
		}
		out = append(out, row)
	}
	return out, nil
}

func propsMatch(wanted map[string]query.Expr, have storage.PropertyMap, row Row, ctx *Context) bool {
	for name, expr := range wanted {
		keyID, ok := ctx.Catalog.GetKeyID(name)
		if !ok {
			return false
		}
		v, ok := have[keyID]
		if !ok {
			return false
		}
		target, err := Eval(expr, row, ctx)
		if err != nil {
			return false
		}
		if !valuesEqual(v, AsPropertyValue(target)) {
			return false
		}
	}
	return true
}

func (m *MergeOperator) Next() (Row, error) {
	if m.pos >= len(m.rows) {
		return nil, ErrExhausted
	}
	row := m.rows[m.pos]
	m.pos++
	return row, nil
}

func (m *MergeOperator) Close() error { return m.child.Close() }

func applySetItems(items []*query.SetItem, row Row, ctx *Context) error {
	for _, item := range items {
		if err := applySetItem(item, row, ctx); err != nil {
			return err
		}
	}
	return nil
}

func applySetItem(item *query.SetItem, row Row, ctx *Context) error {
	bound, ok := row[item.Var]
	if !ok {
		return fmt.Errorf("exec: SET target %q is unbound", item.Var)
	}
	v, err := Eval(item.Value, row, ctx)
	if err != nil {
		return err
	}
	keyID, err := ctx.Catalog.GetOrCreateKey(item.Prop)
	if err != nil {
		return err
	}
	pv := AsPropertyValue(v)
	switch t := bound.(type) {
	case NodeRef:
		if t.Props == nil {
			t.Props = storage.PropertyMap{}
		}
		t.Props[keyID] = pv
		row[item.Var] = t
	case RelRef:
		if t.Props == nil {
			t.Props = storage.PropertyMap{}
		}
		t.Props[keyID] = pv
		row[item.Var] = t
	default:
		return fmt.Errorf("exec: SET target %q is not a node or relationship", item.Var)
	}
	return nil
}

// SetPropsOperator implements planner.SetPropsNode.
type SetPropsOperator struct {
	node  *planner.SetPropsNode
	child Operator
	ctx   *Context
}

func NewSetPropsOperator(node *planner.SetPropsNode, child Operator, ctx *Context) *SetPropsOperator {
	return &SetPropsOperator{node: node, child: child, ctx: ctx}
}

func (s *SetPropsOperator) Open() error { return s.child.Open() }

func (s *SetPropsOperator) Next() (Row, error) {
	row, err := s.child.Next()
	if err != nil {
		return nil, err
	}
	if err := applySetItems(s.node.Items, row, s.ctx); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *SetPropsOperator) Close() error { return s.child.Close() }

// DeleteOperator implements planner.DeleteNode.
type DeleteOperator struct {
	node  *planner.DeleteNode
	child Operator
	ctx   *Context
}

func NewDeleteOperator(node *planner.DeleteNode, child Operator, ctx *Context) *DeleteOperator {
	return &DeleteOperator{node: node, child: child, ctx: ctx}
}

func (d *DeleteOperator) Open() error { return d.child.Open() }

func (d *DeleteOperator) Next() (Row, error) {
	row, err := d.child.Next()
	if err != nil {
		return nil, err
	}
	for _, v := range d.node.Vars {
		bound, ok := row[v]
		if !ok {
			continue
		}
		switch t := bound.(type) {
		case NodeRef:
			if d.node.Detach {
				if err := d.detachNode(t.ID); err != nil {
					return nil, err
				}
			}
			if err := d.ctx.Storage.DeleteNode(t.ID, d.ctx.Epoch); err != nil {
				return nil, err
			}
		case RelRef:
			if err := d.ctx.Storage.DeleteRelationship(t.ID, d.ctx.Epoch); err != nil {
				return nil, err
			}
		}
	}
	return row, nil
}

func (d *DeleteOperator) detachNode(nodeID uint64) error {
	for _, dir := range []storage.Direction{storage.Outgoing, storage.Incoming} {
		entries, err := d.ctx.Storage.GetRelationships(nodeID, dir, nil)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := d.ctx.Storage.DeleteRelationship(e.RelID, d.ctx.Epoch); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *DeleteOperator) Close() error { return d.child.Close() }

// UnwindOperator implements planner.UnwindNode: expands a list
// expression into one output row per element, bound under As.
type UnwindOperator struct {
	node  *planner.UnwindNode
	child Operator
	ctx   *Context

	base  Row
	items []any
	pos   int
}

func NewUnwindOperator(node *planner.UnwindNode, child Operator, ctx *Context) *UnwindOperator {
	return &UnwindOperator{node: node, child: child, ctx: ctx}
}

func (u *UnwindOperator) Open() error { return u.child.Open() }

func (u *UnwindOperator) Next() (Row, error) {
	for {
		if u.pos < len(u.items) {
			row := u.base.Clone()
			row[u.node.As] = u.items[u.pos]
			u.pos++
			return row, nil
		}
		row, err := u.child.Next()
		if err != nil {
			return nil, err
		}
		v, err := Eval(u.node.List, row, u.ctx)
		if err != nil {
			return nil, err
		}
		list, ok := v.([]any)
		if !ok {
			list = nil
		}
		u.base, u.items, u.pos = row, list, 0
	}
}

func (u *UnwindOperator) Close() error { return u.child.Close() }
