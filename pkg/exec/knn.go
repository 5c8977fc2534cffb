package exec

import (
	"github.com/cuemby/nexus/pkg/planner"
)

// KnnOperator implements planner.KnnNode: a nearest-neighbor search
// against the vector index for LabelID/KeyID, replacing what would
// otherwise be an OrderBy-by-distance plus Limit.
type KnnOperator struct {
	node *planner.KnnNode
	ctx  *Context

	rows []Row
	pos  int
}

func NewKnnOperator(node *planner.KnnNode, ctx *Context) *KnnOperator {
	return &KnnOperator{node: node, ctx: ctx}
}

func (k *KnnOperator) Open() error {
	idx := k.ctx.vectorIndexFor(k.node.KeyID)
	if idx == nil {
		return nil
	}
	query := make([]float32, len(k.node.Vector))
	for i, f := range k.node.Vector {
		query[i] = float32(f)
	}
	neighbors, err := idx.Search(query, k.node.K, nil)
	if err != nil {
		return err
	}
	k.rows = make([]Row, 0, len(neighbors))
	for rank, n := range neighbors {
		rec, props, err := k.ctx.Storage.GetNode(n.NodeID, k.ctx.Epoch)
		if err != nil {
			continue
		}
		k.rows = append(k.rows, Row{
			k.node.Var:            NodeRef{ID: n.NodeID, Labels: []uint32{rec.PrimaryLabel}, Props: props},
			k.node.Var + ".score": n.Distance,
			k.node.Var + ".rank":  rank + 1,
		})
	}
	return nil
}

func (k *KnnOperator) Next() (Row, error) {
	if k.pos >= len(k.rows) {
		return nil, ErrExhausted
	}
	row := k.rows[k.pos]
	k.pos++
	return row, nil
}

func (k *KnnOperator) Close() error { return nil }
