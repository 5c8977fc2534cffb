// Package planner turns a parsed query.Query into a physical plan: a tree
// of PlanNode values the executor (pkg/exec) can run directly. Building
// happens in two passes: Build walks the AST into an
// unoptimized logical tree (one scan/expand chain per MATCH pattern,
// joined where patterns share a variable); Optimize then rewrites that
// tree using catalog/index statistics — picking a join algorithm per
// pattern join — and returns an OptimizationTrace alongside the chosen
// plan for observability. Optimize does not resolve property names to
// key ids, so it never replaces a filtered scan with an index scan.
package planner
