package exec

import (
	"fmt"

	"github.com/cuemby/nexus/pkg/planner"
)

// ScanOperator implements planner.ScanNode: either a label-index lookup
// (HasLabel) or a full walk of every allocated node slot.
type ScanOperator struct {
	node *planner.ScanNode
	ctx  *Context

	ids []uint64
	pos int
}

func NewScanOperator(node *planner.ScanNode, ctx *Context) *ScanOperator {
	return &ScanOperator{node: node, ctx: ctx}
}

func (s *ScanOperator) Open() error {
	if s.node.HasLabel {
		s.ids = s.ctx.Labels.GetNodesWithLabel(s.node.LabelID)
		return nil
	}
	count := s.ctx.Storage.NodeCount()
	s.ids = make([]uint64, 0, count)
	for id := uint64(0); id < count; id++ {
		s.ids = append(s.ids, id)
	}
	return nil
}

func (s *ScanOperator) Next() (Row, error) {
	for s.pos < len(s.ids) {
		id := s.ids[s.pos]
		s.pos++
		rec, props, err := s.ctx.Storage.GetNode(id, s.ctx.Epoch)
		if err != nil {
			// tombstoned or not-yet-visible at this epoch: skip, not an error
			continue
		}
		row := Row{s.node.Var: NodeRef{ID: id, Labels: []uint32{rec.PrimaryLabel}, Props: props}}
		return row, nil
	}
	return nil, ErrExhausted
}

func (s *ScanOperator) Close() error { return nil }

// ErrExhausted signals a normal end of the row stream; operators use it
// the way an iterator uses io.EOF.
var ErrExhausted = fmt.Errorf("exec: operator exhausted")
