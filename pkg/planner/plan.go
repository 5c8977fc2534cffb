package planner

import "github.com/cuemby/nexus/pkg/query"

// PlanNode is one node of a physical plan tree. Every node knows the
// variable names it binds, so the join builder can detect which two
// subplans share a variable without re-walking the AST.
type PlanNode interface {
	isPlanNode()
	Vars() []string
}

type unaryBase struct{ Input PlanNode }

func (unaryBase) isPlanNode() {}
func (u unaryBase) Vars() []string {
	if u.Input == nil {
		return nil
	}
	return u.Input.Vars()
}

// ScanNode is NodeByLabel(labelId, var) or, when HasLabel is false, a full
// node-segment scan (no label given in the pattern).
type ScanNode struct {
	Var      string
	LabelID  uint32
	HasLabel bool
}

func (ScanNode) isPlanNode()     {}
func (s ScanNode) Vars() []string { return []string{s.Var} }

// IndexScanNode is IndexScan(indexName, label): a IndexedRef candidate
// chosen by the optimizer in place of ScanNode+Filter when the WHERE
// clause carries an equality or range predicate on an indexed property.
type IndexScanNode struct {
	Var     string
	LabelID uint32
	KeyID   uint32
	Op      string // "=", "<", "<=", ">", ">="
	Value   query.Expr
}

func (IndexScanNode) isPlanNode()       {}
func (s IndexScanNode) Vars() []string  { return []string{s.Var} }

// ExpandNode is Expand(direction, typeFilter?): follows adjacency from
// FromVar to ToVar.
type ExpandNode struct {
	unaryBase
	RelVar            string
	FromVar, ToVar    string
	Dir               query.Direction
	TypeIDs           []uint32
	VarLength         bool
	MinHops, MaxHops  int
}

func (e ExpandNode) Vars() []string {
	v := append(append([]string{}, e.unaryBase.Vars()...), e.ToVar)
	if e.RelVar != "" {
		v = append(v, e.RelVar)
	}
	return v
}

// JoinAlgorithm names which physical join implementation a JoinNode runs
//.
type JoinAlgorithm string

const (
	JoinHash       JoinAlgorithm = "hash"
	JoinMerge      JoinAlgorithm = "merge"
	JoinNestedLoop JoinAlgorithm = "nested_loop"
)

// JoinNode combines two independently-scanned subplans on shared
// variables.
type JoinNode struct {
	Left, Right PlanNode
	JoinVars    []string
	Algorithm   JoinAlgorithm
	UseBloom    bool
}

func (JoinNode) isPlanNode() {}
func (j JoinNode) Vars() []string {
	return append(append([]string{}, j.Left.Vars()...), j.Right.Vars()...)
}

// FilterNode evaluates Predicate over every row from Input.
type FilterNode struct {
	unaryBase
	Predicate query.Expr
}

// ProjectNode produces the ResultSet's columns.
type ProjectNode struct {
	unaryBase
	Items    []query.ReturnItem
	Distinct bool
}

// AggregateNode groups by every non-aggregate item in Items and computes
// the aggregate items per group.
type AggregateNode struct {
	unaryBase
	Items []query.ReturnItem
}

// OrderByNode sorts rows. When an ORDER BY has a single KnnExpr item,
// Build emits a KnnNode instead of an OrderByNode.
type OrderByNode struct {
	unaryBase
	Items []query.OrderItem
}

// SkipNode and LimitNode bound the row stream.
type SkipNode struct {
	unaryBase
	Expr query.Expr
}

type LimitNode struct {
	unaryBase
	Expr query.Expr
}

// KnnNode is KnnSearch(label, vector, k, limit): Build emits this in
// place of an OrderBy+Limit pair ordered by vector distance.
type KnnNode struct {
	unaryBase
	Var     string
	LabelID uint32
	KeyID   uint32
	Vector  []float64
	K       int
}

func (k KnnNode) Vars() []string { return append(k.unaryBase.Vars(), k.Var) }

// CreateNode materializes new nodes/relationships from Patterns.
type CreateNode struct {
	unaryBase
	Patterns []*query.PathPattern
}

// MergeNode matches Pattern, creating it (and running OnCreate/OnMatch
// property sets) if absent.
type MergeNode struct {
	unaryBase
	Pattern  *query.PathPattern
	OnCreate []*query.SetItem
	OnMatch  []*query.SetItem
}

// SetPropsNode assigns properties to already-bound variables.
type SetPropsNode struct {
	unaryBase
	Items []*query.SetItem
}

// DeleteNode removes bound nodes/relationships.
type DeleteNode struct {
	unaryBase
	Vars   []string
	Detach bool
}

// UnwindNode expands a list expression into one row per element.
type UnwindNode struct {
	unaryBase
	List query.Expr
	As   string
}

// Plan is the optimizer's output: a physical plan plus its trace.
type Plan struct {
	Root  PlanNode
	Trace OptimizationTrace
}

// OptimizationTrace reports what the optimizer considered, for
// observability.
type OptimizationTrace struct {
	PlansConsidered int
	MicrosSpent     int64
	IndexesUsed     []string
	JoinOrder       []string
	JoinAlgorithms  map[string]JoinAlgorithm
}
