package exec

import (
	"github.com/cuemby/nexus/pkg/planner"
	"github.com/cuemby/nexus/pkg/storage"
)

// IndexScanOperator implements planner.IndexScanNode: an equality or
// range lookup against a B-tree property index instead of a full label
// scan plus filter.
type IndexScanOperator struct {
	node *planner.IndexScanNode
	ctx  *Context

	ids []uint64
	pos int
}

func NewIndexScanOperator(node *planner.IndexScanNode, ctx *Context) *IndexScanOperator {
	return &IndexScanOperator{node: node, ctx: ctx}
}

func (s *IndexScanOperator) Open() error {
	value, err := Eval(s.node.Value, Row{}, s.ctx)
	if err != nil {
		return err
	}
	pv := AsPropertyValue(value)
	switch s.node.Op {
	case "=":
		s.ids = s.ctx.Props.Equals(s.node.LabelID, s.node.KeyID, pv)
	case "<=":
		s.ids = s.ctx.Props.Range(s.node.LabelID, s.node.KeyID, nil, &pv)
	case ">=":
		s.ids = s.ctx.Props.Range(s.node.LabelID, s.node.KeyID, &pv, nil)
	case "<":
		s.ids = s.strictExclude(s.ctx.Props.Range(s.node.LabelID, s.node.KeyID, nil, &pv), pv)
	case ">":
		s.ids = s.strictExclude(s.ctx.Props.Range(s.node.LabelID, s.node.KeyID, &pv, nil), pv)
	}
	return nil
}

// strictExclude drops ids whose indexed value equals pv, turning the
// property index's inclusive Range bound into a strict "<" or ">".
func (s *IndexScanOperator) strictExclude(ids []uint64, pv storage.PropertyValue) []uint64 {
	equal := make(map[uint64]struct{})
	for _, id := range s.ctx.Props.Equals(s.node.LabelID, s.node.KeyID, pv) {
		equal[id] = struct{}{}
	}
	out := ids[:0]
	for _, id := range ids {
		if _, skip := equal[id]; !skip {
			out = append(out, id)
		}
	}
	return out
}

func (s *IndexScanOperator) Next() (Row, error) {
	for s.pos < len(s.ids) {
		id := s.ids[s.pos]
		s.pos++
		rec, props, err := s.ctx.Storage.GetNode(id, s.ctx.Epoch)
		if err != nil {
			continue
		}
		return Row{s.node.Var: NodeRef{ID: id, Labels: []uint32{rec.PrimaryLabel}, Props: props}}, nil
	}
	return nil, ErrExhausted
}

func (s *IndexScanOperator) Close() error { return nil }
