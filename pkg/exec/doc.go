// Package exec compiles a planner.Plan into a tree of pull-based physical
// operators and drives it to completion, producing a ResultSet.
//
// Each PlanNode kind has a matching Operator: ScanOperator (label lookup
// or full scan) for planner.ScanNode, IndexScanOperator for
// planner.IndexScanNode, ExpandOperator for planner.ExpandNode,
// HashJoinOperator/MergeJoinOperator/NestedLoopJoinOperator for
// planner.JoinNode (chosen by the Algorithm the optimizer assigned), and
// so on through Filter, Project, Aggregate, OrderBy, Skip, Limit, and
// KnnOperator. Rows flow one at a time as Row values (variable name to
// bound Value) rather than in columnar batches: Nexus's row width is
// small and dominated by pointer-ish graph references, so the simpler
// row-oriented model was chosen over a vectorized one.
package exec
