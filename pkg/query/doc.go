// Package query implements the front end of the query pipeline: a hand-written lexer and recursive-descent parser turning a
// Cypher-like textual query into an AST. The AST is consumed by
// pkg/planner to produce a physical plan.
//
// Grammar covered: MATCH with node/relationship patterns (optional
// labels/types/properties, variable-length quantifiers, named paths),
// WHERE, RETURN with projections/aliases and aggregates, ORDER BY
// (including KNN distance ordering), SKIP/LIMIT, CREATE, MERGE, SET,
// DELETE/DETACH DELETE, CALL { subquery } [IN TRANSACTIONS [OF n ROWS]],
// and schema admin statements (CREATE/DROP INDEX, CREATE/DROP CONSTRAINT,
// BEGIN/COMMIT/ROLLBACK). Admin statements parse to their own AST nodes
// but are dispatched by pkg/engine (Database.Query), not by
// pkg/planner/pkg/exec.
package query
