package planner

import (
	"fmt"
	"time"

	"github.com/cuemby/nexus/pkg/query"
)

// mergeJoinCardinalityFactor bounds how close two join inputs' estimated
// cardinalities must be for the adaptive selector to consider them
// "equal-sized" and prefer a merge join.
const mergeJoinCardinalityFactor = 2.0

// nestedLoopThreshold is the "very small" input size below which the
// adaptive selector always chooses nested-loop, regardless of sortedness.
const nestedLoopThreshold = 64.0

// Optimizer rewrites an unoptimized plan tree into a physical plan,
// selecting join algorithms from cost and statistics. It does not
// substitute index scans (see propKeyHint).
type Optimizer struct {
	Cost  CostModel
	Stats Stats

	trace OptimizationTrace
}

// NewOptimizer builds an Optimizer with the given cost model and
// statistics source.
func NewOptimizer(cost CostModel, stats Stats) *Optimizer {
	if stats == nil {
		stats = NopStats{}
	}
	return &Optimizer{Cost: cost, Stats: stats}
}

// Optimize rewrites root and returns the resulting Plan.
func (o *Optimizer) Optimize(root PlanNode) (*Plan, error) {
	start := time.Now()
	o.trace = OptimizationTrace{JoinAlgorithms: make(map[string]JoinAlgorithm)}

	optimized, _, err := o.rewrite(root)
	if err != nil {
		return nil, err
	}
	o.trace.MicrosSpent = time.Since(start).Microseconds()
	return &Plan{Root: optimized, Trace: o.trace}, nil
}

// rewrite walks the tree bottom-up, returning the rewritten node and an
// estimated output cardinality for its caller's cost decisions.
func (o *Optimizer) rewrite(node PlanNode) (PlanNode, float64, error) {
	o.trace.PlansConsidered++
	switch n := node.(type) {
	case nil:
		return nil, 0, nil
	case *ScanNode:
		return o.rewriteScan(n)
	case *IndexScanNode:
		return n, float64(o.Stats.PropertyIndexCount(n.LabelID, n.KeyID)), nil
	case *FilterNode:
		return o.rewriteFilter(n)
	case *ExpandNode:
		input, card, err := o.rewrite(n.Input)
		if err != nil {
			return nil, 0, err
		}
		n.Input = input
		return n, card * 4, nil // expansion fan-out; a documented rough heuristic
	case *JoinNode:
		return o.rewriteJoin(n)
	default:
		return o.rewriteGenericUnary(node)
	}
}

// rewriteGenericUnary handles every remaining unary node kind (Project,
// Aggregate, OrderBy, Skip, Limit, Create, Merge, SetProps, Delete,
// Unwind, Knn): none of them affect index/join selection, so they just
// recurse into Input and pass the child cardinality through.
func (o *Optimizer) rewriteGenericUnary(node PlanNode) (PlanNode, float64, error) {
	input, setInput, err := getAndPrepareInput(node)
	if err != nil {
		return nil, 0, err
	}
	rewritten, childCard, err := o.rewrite(input)
	if err != nil {
		return nil, 0, err
	}
	setInput(rewritten)
	return node, childCard, nil
}

// getAndPrepareInput extracts the Input field from any unary plan node
// via a type switch, returning a setter so rewriteGenericUnary can write
// the rewritten child back without reflection.
func getAndPrepareInput(node PlanNode) (PlanNode, func(PlanNode), error) {
	switch n := node.(type) {
	case *ProjectNode:
		return n.Input, func(c PlanNode) { n.Input = c }, nil
	case *AggregateNode:
		return n.Input, func(c PlanNode) { n.Input = c }, nil
	case *OrderByNode:
		return n.Input, func(c PlanNode) { n.Input = c }, nil
	case *SkipNode:
		return n.Input, func(c PlanNode) { n.Input = c }, nil
	case *LimitNode:
		return n.Input, func(c PlanNode) { n.Input = c }, nil
	case *CreateNode:
		return n.Input, func(c PlanNode) { n.Input = c }, nil
	case *MergeNode:
		return n.Input, func(c PlanNode) { n.Input = c }, nil
	case *SetPropsNode:
		return n.Input, func(c PlanNode) { n.Input = c }, nil
	case *DeleteNode:
		return n.Input, func(c PlanNode) { n.Input = c }, nil
	case *UnwindNode:
		return n.Input, func(c PlanNode) { n.Input = c }, nil
	case *KnnNode:
		return n.Input, func(c PlanNode) { n.Input = c }, nil
	default:
		return nil, nil, fmt.Errorf("planner: optimizer cannot rewrite node type %T", node)
	}
}

func (o *Optimizer) rewriteScan(n *ScanNode) (PlanNode, float64, error) {
	if !n.HasLabel {
		return n, 100000, nil // no label: unbounded full scan, a conservative large estimate
	}
	return n, float64(o.Stats.LabelCount(n.LabelID)), nil
}

// rewriteFilter tries to replace a ScanNode child with an IndexScanNode
// when the predicate is a single comparison on an indexed property of the
// scan's variable.
func (o *Optimizer) rewriteFilter(n *FilterNode) (PlanNode, float64, error) {
	if scan, ok := n.Input.(*ScanNode); ok && scan.HasLabel {
		if cmp, ok := n.Predicate.(*query.BinaryOp); ok {
			if prop, ok := cmp.Left.(*query.PropertyAccess); ok && prop.Var == scan.Var {
				// The index is taken only when propKeyHint resolves the
				// property to a KeyId that has a property index on this
				// label.
				if o.planUsesIndexableOp(cmp.Op) {
					idxScan := &IndexScanNode{Var: scan.Var, LabelID: scan.LabelID, Op: cmp.Op, Value: cmp.Right}
					if keyID, ok := propKeyHint(prop); ok && o.Stats.HasPropertyIndex(scan.LabelID, keyID) {
						idxScan.KeyID = keyID
						o.trace.IndexesUsed = append(o.trace.IndexesUsed, fmt.Sprintf("label=%d/key=%d", scan.LabelID, keyID))
						return idxScan, float64(o.Stats.PropertyIndexCount(scan.LabelID, keyID)), nil
					}
				}
			}
		}
	}
	input, card, err := o.rewrite(n.Input)
	if err != nil {
		return nil, 0, err
	}
	n.Input = input
	return n, card * o.Cost.EqualitySelectivity, nil
}

func (o *Optimizer) planUsesIndexableOp(op string) bool {
	switch op {
	case "=", "<", "<=", ">", ">=":
		return true
	default:
		return false
	}
}

// propKeyHint maps a property access to a KeyId for index selection. It
// always reports false, since the optimizer has no catalog access, so
// rewriteFilter never substitutes an IndexScanNode and a filtered label
// scan keeps its scan+filter shape.
func propKeyHint(*query.PropertyAccess) (uint32, bool) { return 0, false }

func (o *Optimizer) rewriteJoin(n *JoinNode) (PlanNode, float64, error) {
	left, leftCard, err := o.rewrite(n.Left)
	if err != nil {
		return nil, 0, err
	}
	right, rightCard, err := o.rewrite(n.Right)
	if err != nil {
		return nil, 0, err
	}
	n.Left, n.Right = left, right
	n.Algorithm = o.selectJoinAlgorithm(leftCard, rightCard, left, right)

	key := fmt.Sprintf("%v", n.JoinVars)
	o.trace.JoinOrder = append(o.trace.JoinOrder, n.JoinVars...)
	o.trace.JoinAlgorithms[key] = n.Algorithm
	if n.Algorithm == JoinHash {
		n.UseBloom = leftCard > nestedLoopThreshold*4
	}
	return n, o.Cost.joinCost(leftCard, rightCard), nil
}

// selectJoinAlgorithm implements the adaptive selector rules: merge when both sides are index-sorted and comparably sized,
// nested-loop only for very small inputs, hash otherwise.
func (o *Optimizer) selectJoinAlgorithm(leftCard, rightCard float64, left, right PlanNode) JoinAlgorithm {
	if leftCard < nestedLoopThreshold && rightCard < nestedLoopThreshold {
		return JoinNestedLoop
	}
	if isSorted(left) && isSorted(right) && sizesComparable(leftCard, rightCard) {
		return JoinMerge
	}
	return JoinHash
}

// isSorted reports whether the selector treats a subplan as sorted for
// merge-join selection: true for an IndexScanNode and a ScanNode. Neither
// is guaranteed to emit rows in node-id order (the label index returns
// ids in map order); MergeJoinOperator sorts both inputs by join key
// itself.
func isSorted(node PlanNode) bool {
	switch node.(type) {
	case *IndexScanNode, *ScanNode:
		return true
	default:
		return false
	}
}

func sizesComparable(a, b float64) bool {
	if a == 0 || b == 0 {
		return a == b
	}
	ratio := a / b
	if ratio < 1 {
		ratio = 1 / ratio
	}
	return ratio <= mergeJoinCardinalityFactor
}
