package engine

import (
	"fmt"
	"sort"

	"github.com/cuemby/nexus/pkg/planner"
	"github.com/cuemby/nexus/pkg/query"
)

// isWriteQuery reports whether any clause (including nested CALL
// subqueries) mutates the graph, so runQuery knows whether to open a
// write transaction and bypass the result cache.
func isWriteQuery(q *query.Query) bool {
	for _, c := range q.Clauses {
		switch cl := c.(type) {
		case *query.CreateClause, *query.MergeClause, *query.SetClause, *query.DeleteClause:
			return true
		case *query.CallClause:
			if cl.Subquery != nil && isWriteQuery(cl.Subquery) {
				return true
			}
		}
	}
	return false
}

// stringifyParams renders param values into the string form
// cache.FingerprintQuery hashes against. Values are stringified with
// fmt.Sprint rather than round-tripped through a type-specific encoder:
// the fingerprint only needs to distinguish different param values, not
// parse them back.
func stringifyParams(params map[string]any) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = fmt.Sprint(v)
	}
	return out
}

// planScopes collects the label and relationship-type IDs a plan reads,
// so a cached read result can be invalidated precisely: a write to label
// L only needs to evict result-cache entries scoped to L, not the whole
// cache.
func planScopes(plan *planner.Plan) (labelIDs, typeIDs []uint32) {
	labelSet := make(map[uint32]struct{})
	typeSet := make(map[uint32]struct{})
	collectScopes(plan.Root, labelSet, typeSet)

	for id := range labelSet {
		labelIDs = append(labelIDs, id)
	}
	for id := range typeSet {
		typeIDs = append(typeIDs, id)
	}
	sort.Slice(labelIDs, func(i, j int) bool { return labelIDs[i] < labelIDs[j] })
	sort.Slice(typeIDs, func(i, j int) bool { return typeIDs[i] < typeIDs[j] })
	return labelIDs, typeIDs
}

func collectScopes(node planner.PlanNode, labels, types map[uint32]struct{}) {
	switch n := node.(type) {
	case nil:
		return
	case *planner.ScanNode:
		if n.HasLabel {
			labels[n.LabelID] = struct{}{}
		}
	case *planner.IndexScanNode:
		labels[n.LabelID] = struct{}{}
	case *planner.KnnNode:
		if n.LabelID != 0 {
			labels[n.LabelID] = struct{}{}
		}
		collectScopes(n.Input, labels, types)
	case *planner.ExpandNode:
		for _, t := range n.TypeIDs {
			types[t] = struct{}{}
		}
		collectScopes(n.Input, labels, types)
	case *planner.JoinNode:
		collectScopes(n.Left, labels, types)
		collectScopes(n.Right, labels, types)
	case *planner.FilterNode:
		collectScopes(n.Input, labels, types)
	case *planner.ProjectNode:
		collectScopes(n.Input, labels, types)
	case *planner.AggregateNode:
		collectScopes(n.Input, labels, types)
	case *planner.OrderByNode:
		collectScopes(n.Input, labels, types)
	case *planner.SkipNode:
		collectScopes(n.Input, labels, types)
	case *planner.LimitNode:
		collectScopes(n.Input, labels, types)
	case *planner.CreateNode:
		collectScopes(n.Input, labels, types)
	case *planner.MergeNode:
		collectScopes(n.Input, labels, types)
	case *planner.SetPropsNode:
		collectScopes(n.Input, labels, types)
	case *planner.DeleteNode:
		collectScopes(n.Input, labels, types)
	case *planner.UnwindNode:
		collectScopes(n.Input, labels, types)
	}
}
