package exec

import (
	"github.com/cuemby/nexus/pkg/planner"
	"github.com/cuemby/nexus/pkg/query"
	"github.com/cuemby/nexus/pkg/storage"
)

// ExpandOperator implements planner.ExpandNode: for every row from Input,
// follows adjacency from FromVar and emits one row per reachable
// neighbor bound to ToVar (and RelVar, if named). A variable-length
// pattern runs a recursive depth-first walk over simple paths instead of
// a single hop.
type ExpandOperator struct {
	node  *planner.ExpandNode
	child Operator
	ctx   *Context

	pending []Row
	pos     int
}

func NewExpandOperator(node *planner.ExpandNode, child Operator, ctx *Context) *ExpandOperator {
	return &ExpandOperator{node: node, child: child, ctx: ctx}
}

func (e *ExpandOperator) Open() error { return e.child.Open() }

func (e *ExpandOperator) Next() (Row, error) {
	for {
		if e.pos < len(e.pending) {
			row := e.pending[e.pos]
			e.pos++
			return row, nil
		}
		inRow, err := e.child.Next()
		if err != nil {
			return nil, err
		}
		e.pending, e.pos = nil, 0
		fromRef, ok := inRow[e.node.FromVar].(NodeRef)
		if !ok {
			continue
		}
		if e.node.VarLength {
			e.pending = e.expandVarLength(inRow, fromRef)
		} else {
			e.pending = e.expandOneHop(inRow, fromRef)
		}
	}
}

func (e *ExpandOperator) Close() error { return e.child.Close() }

func (e *ExpandOperator) expandOneHop(base Row, from NodeRef) []Row {
	var out []Row
	for _, entry := range e.neighbors(from.ID) {
		row := base.Clone()
		if err := e.bindNeighbor(row, from.ID, entry); err != nil {
			continue
		}
		out = append(out, row)
	}
	return out
}

// expandVarLength enumerates every distinct simple path (no repeated
// node) from `from` whose hop count falls within [MinHops, effectiveMax],
// binding ToVar to the path's endpoint and RelVar (if named) to the
// ordered []RelRef traversed to reach it.
func (e *ExpandOperator) expandVarLength(base Row, from NodeRef) []Row {
	maxHops := e.node.MaxHops
	if maxHops < 0 || maxHops > maxUnboundedHops {
		maxHops = maxUnboundedHops
	}
	var out []Row
	visited := map[uint64]bool{from.ID: true}
	var rels []RelRef

	var walk func(cur NodeRef, depth int)
	walk = func(cur NodeRef, depth int) {
		if depth > 0 && depth >= e.node.MinHops {
			row := base.Clone()
			row[e.node.ToVar] = cur
			if e.node.RelVar != "" {
				row[e.node.RelVar] = append([]RelRef{}, rels...)
			}
			out = append(out, row)
		}
		if depth >= maxHops {
			return
		}
		for _, entry := range e.neighbors(cur.ID) {
			if visited[entry.NeighborID] {
				continue
			}
			nbr, relRef, err := e.loadNeighbor(cur.ID, entry)
			if err != nil {
				continue
			}
			visited[entry.NeighborID] = true
			rels = append(rels, relRef)
			walk(nbr, depth+1)
			rels = rels[:len(rels)-1]
			visited[entry.NeighborID] = false
		}
	}
	walk(from, 0)
	return out
}

func (e *ExpandOperator) neighbors(nodeID uint64) []storage.AdjacencyEntry {
	dirs := directionsFor(e.node.Dir)
	var filter *uint32
	if len(e.node.TypeIDs) == 1 {
		filter = &e.node.TypeIDs[0]
	}
	var out []storage.AdjacencyEntry
	for _, d := range dirs {
		entries, err := e.ctx.Storage.GetRelationships(nodeID, d, filter)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if len(e.node.TypeIDs) > 1 && !containsType(e.node.TypeIDs, entry.TypeID) {
				continue
			}
			out = append(out, entry)
		}
	}
	return out
}

func (e *ExpandOperator) bindNeighbor(row Row, fromID uint64, entry storage.AdjacencyEntry) error {
	nbr, relRef, err := e.loadNeighbor(fromID, entry)
	if err != nil {
		return err
	}
	row[e.node.ToVar] = nbr
	if e.node.RelVar != "" {
		row[e.node.RelVar] = relRef
	}
	return nil
}

// loadNeighbor fetches the neighbor node and builds the RelRef for the
// edge connecting it to fromID, orienting Source/Target by the
// direction the adjacency entry was found in.
func (e *ExpandOperator) loadNeighbor(fromID uint64, entry storage.AdjacencyEntry) (NodeRef, RelRef, error) {
	rec, props, err := e.ctx.Storage.GetNode(entry.NeighborID, e.ctx.Epoch)
	if err != nil {
		return NodeRef{}, RelRef{}, err
	}
	nbr := NodeRef{ID: entry.NeighborID, Labels: []uint32{rec.PrimaryLabel}, Props: props}

	source, target := fromID, entry.NeighborID
	if entry.Direction == storage.Incoming {
		source, target = entry.NeighborID, fromID
	}
	relRef := RelRef{ID: entry.RelID, TypeID: entry.TypeID, Source: source, Target: target}
	if _, props, err := e.ctx.Storage.GetRelationship(entry.RelID); err == nil {
		relRef.Props = props
	}
	return nbr, relRef, nil
}

func directionsFor(d query.Direction) []storage.Direction {
	switch d {
	case query.DirOut:
		return []storage.Direction{storage.Outgoing}
	case query.DirIn:
		return []storage.Direction{storage.Incoming}
	default:
		return []storage.Direction{storage.Outgoing, storage.Incoming}
	}
}

func containsType(types []uint32, t uint32) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}
