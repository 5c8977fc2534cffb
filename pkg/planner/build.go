package planner

import (
	"fmt"

	"github.com/cuemby/nexus/pkg/query"
)

// Build walks q's clauses into an unoptimized physical plan tree. Label
// references in MATCH patterns are lookup-only (a MATCH against an
// unknown label simply matches nothing); CREATE/MERGE patterns intern new
// labels/types/keys on first use, per the catalog's idempotent contract.
func Build(q *query.Query, resolver Resolver) (PlanNode, error) {
	var current PlanNode
	for _, clause := range q.Clauses {
		var err error
		current, err = buildClause(clause, current, resolver)
		if err != nil {
			return nil, err
		}
	}
	return current, nil
}

func buildClause(clause query.Clause, current PlanNode, resolver Resolver) (PlanNode, error) {
	switch c := clause.(type) {
	case *query.MatchClause:
		return buildMatch(c, current, resolver)
	case *query.CreateClause:
		return &CreateNode{unaryBase: unaryBase{Input: current}, Patterns: c.Patterns}, nil
	case *query.MergeClause:
		return &MergeNode{unaryBase: unaryBase{Input: current}, Pattern: c.Pattern, OnCreate: c.OnCreate, OnMatch: c.OnMatch}, nil
	case *query.SetClause:
		return &SetPropsNode{unaryBase: unaryBase{Input: current}, Items: c.Items}, nil
	case *query.DeleteClause:
		return &DeleteNode{unaryBase: unaryBase{Input: current}, Vars: c.Vars, Detach: c.Detach}, nil
	case *query.WithClause:
		proj := &ProjectNode{unaryBase: unaryBase{Input: current}, Items: c.Items}
		if c.Where != nil {
			return &FilterNode{unaryBase: unaryBase{Input: proj}, Predicate: c.Where}, nil
		}
		return proj, nil
	case *query.UnwindClause:
		return &UnwindNode{unaryBase: unaryBase{Input: current}, List: c.List, As: c.As}, nil
	case *query.CallClause:
		sub, err := Build(c.Subquery, resolver)
		if err != nil {
			return nil, err
		}
		return sub, nil
	case *query.ReturnClause:
		return buildReturn(c, current, resolver), nil
	default:
		return nil, fmt.Errorf("planner: unsupported clause %T", clause)
	}
}

func buildMatch(c *query.MatchClause, current PlanNode, resolver Resolver) (PlanNode, error) {
	var patternPlan PlanNode
	for _, pat := range c.Patterns {
		sub, err := buildPathPattern(pat, resolver)
		if err != nil {
			return nil, err
		}
		patternPlan = joinOnSharedVars(patternPlan, sub)
	}
	if c.Where != nil {
		patternPlan = &FilterNode{unaryBase: unaryBase{Input: patternPlan}, Predicate: c.Where}
	}
	return joinOnSharedVars(current, patternPlan), nil
}

func buildPathPattern(pat *query.PathPattern, resolver Resolver) (PlanNode, error) {
	var node PlanNode
	scan, err := buildNodeScan(pat.Start, resolver)
	if err != nil {
		return nil, err
	}
	node = scan
	fromVar := pat.Start.Var
	for _, hop := range pat.Hops {
		var typeIDs []uint32
		for _, name := range hop.Rel.Types {
			if id, ok := resolver.GetTypeID(name); ok {
				typeIDs = append(typeIDs, id)
			} else {
				typeIDs = append(typeIDs, noSuchID)
			}
		}
		node = &ExpandNode{
			unaryBase: unaryBase{Input: node},
			RelVar:    hop.Rel.Var,
			FromVar:   fromVar,
			ToVar:     hop.Node.Var,
			Dir:       hop.Rel.Direction,
			TypeIDs:   typeIDs,
			VarLength: hop.Rel.VarLength,
			MinHops:   hop.Rel.MinHops,
			MaxHops:   hop.Rel.MaxHops,
		}
		if len(hop.Node.Labels) > 0 {
			filterScan, err := buildNodeScan(hop.Node, resolver)
			if err != nil {
				return nil, err
			}
			node = joinOnSharedVars(node, filterScan)
		}
		fromVar = hop.Node.Var
	}
	return node, nil
}

// noSuchID is a sentinel TypeId that can never match a real interned
// type, used when a relationship pattern names a type the catalog has
// never seen — the Expand simply produces zero rows rather than erroring.
const noSuchID = ^uint32(0)

func buildNodeScan(np *query.NodePattern, resolver Resolver) (PlanNode, error) {
	if len(np.Labels) == 0 {
		return &ScanNode{Var: np.Var, HasLabel: false}, nil
	}
	labelID, ok := resolver.GetLabelID(np.Labels[0])
	if !ok {
		labelID = noSuchID
	}
	return &ScanNode{Var: np.Var, LabelID: labelID, HasLabel: true}, nil
}

// joinOnSharedVars combines two subplans. A nil side is a no-op; two
// non-nil sides become a JoinNode (algorithm TBD by the optimizer).
func joinOnSharedVars(left, right PlanNode) PlanNode {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	return &JoinNode{Left: left, Right: right, JoinVars: sharedVars(left, right), Algorithm: JoinNestedLoop}
}

func sharedVars(left, right PlanNode) []string {
	rightVars := make(map[string]bool)
	for _, v := range right.Vars() {
		rightVars[v] = true
	}
	var shared []string
	for _, v := range left.Vars() {
		if rightVars[v] {
			shared = append(shared, v)
		}
	}
	return shared
}

func buildReturn(c *query.ReturnClause, current PlanNode, resolver Resolver) PlanNode {
	node := current
	if hasAggregate(c.Items) {
		node = &AggregateNode{unaryBase: unaryBase{Input: node}, Items: c.Items}
	}
	if len(c.OrderBy) == 1 {
		if knn, ok := c.OrderBy[0].Expr.(*query.KnnExpr); ok {
			keyID, _ := resolver.GetKeyID(knn.Prop.Prop)
			node = &KnnNode{unaryBase: unaryBase{Input: node}, Var: knn.Prop.Var, KeyID: keyID, Vector: knn.Vector}
			if c.Limit != nil {
				if lit, ok := c.Limit.(*query.Literal); ok {
					if n, ok := lit.Value.(int64); ok {
						node.(*KnnNode).K = int(n)
					}
				}
			}
			node = &ProjectNode{unaryBase: unaryBase{Input: node}, Items: c.Items, Distinct: c.Distinct}
			return node
		}
	}
	if len(c.OrderBy) > 0 {
		node = &OrderByNode{unaryBase: unaryBase{Input: node}, Items: c.OrderBy}
	}
	if c.Skip != nil {
		node = &SkipNode{unaryBase: unaryBase{Input: node}, Expr: c.Skip}
	}
	if c.Limit != nil {
		node = &LimitNode{unaryBase: unaryBase{Input: node}, Expr: c.Limit}
	}
	return &ProjectNode{unaryBase: unaryBase{Input: node}, Items: c.Items, Distinct: c.Distinct}
}

func hasAggregate(items []query.ReturnItem) bool {
	for _, item := range items {
		if fc, ok := item.Expr.(*query.FuncCall); ok && fc.IsAggregate {
			return true
		}
	}
	return false
}
