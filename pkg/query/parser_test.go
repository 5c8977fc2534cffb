package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) Statement {
	t.Helper()
	stmt, err := Parse(src)
	require.NoError(t, err, "query: %s", src)
	return stmt
}

func TestParseSimpleMatchReturn(t *testing.T) {
	stmt := mustParse(t, `MATCH (n:Person) WHERE n.age > 30 RETURN n.name AS name LIMIT 10`)
	q, ok := stmt.(*Query)
	require.True(t, ok)
	require.Len(t, q.Clauses, 2)

	m, ok := q.Clauses[0].(*MatchClause)
	require.True(t, ok)
	require.Len(t, m.Patterns, 1)
	assert.Equal(t, "n", m.Patterns[0].Start.Var)
	assert.Equal(t, []string{"Person"}, m.Patterns[0].Start.Labels)
	require.NotNil(t, m.Where)
	cmp, ok := m.Where.(*BinaryOp)
	require.True(t, ok)
	assert.Equal(t, ">", cmp.Op)

	r, ok := q.Clauses[1].(*ReturnClause)
	require.True(t, ok)
	require.Len(t, r.Items, 1)
	assert.Equal(t, "name", r.Items[0].Alias)
	require.NotNil(t, r.Limit)
}

func TestParseRelationshipPatternWithDirectionAndType(t *testing.T) {
	stmt := mustParse(t, `MATCH (a:Person)-[r:KNOWS]->(b:Person) RETURN a, b`)
	q := stmt.(*Query)
	m := q.Clauses[0].(*MatchClause)
	pat := m.Patterns[0]
	require.Len(t, pat.Hops, 1)
	hop := pat.Hops[0]
	assert.Equal(t, DirOut, hop.Rel.Direction)
	assert.Equal(t, []string{"KNOWS"}, hop.Rel.Types)
	assert.Equal(t, "r", hop.Rel.Var)
	assert.Equal(t, "b", hop.Node.Var)
}

func TestParseIncomingRelationship(t *testing.T) {
	stmt := mustParse(t, `MATCH (a)<-[:FOLLOWS]-(b) RETURN a`)
	q := stmt.(*Query)
	m := q.Clauses[0].(*MatchClause)
	hop := m.Patterns[0].Hops[0]
	assert.Equal(t, DirIn, hop.Rel.Direction)
}

func TestParseVariableLengthRelationship(t *testing.T) {
	stmt := mustParse(t, `MATCH (a)-[:KNOWS*1..3]-(b) RETURN a`)
	q := stmt.(*Query)
	m := q.Clauses[0].(*MatchClause)
	rel := m.Patterns[0].Hops[0].Rel
	assert.True(t, rel.VarLength)
	assert.Equal(t, 1, rel.MinHops)
	assert.Equal(t, 3, rel.MaxHops)
	assert.Equal(t, DirEither, rel.Direction)
}

func TestParseNamedPath(t *testing.T) {
	stmt := mustParse(t, `MATCH p = (a)-[*]-(b) RETURN p`)
	q := stmt.(*Query)
	m := q.Clauses[0].(*MatchClause)
	assert.Equal(t, "p", m.Patterns[0].Name)
	assert.Equal(t, -1, m.Patterns[0].Hops[0].Rel.MaxHops)
}

func TestParseCreatePattern(t *testing.T) {
	stmt := mustParse(t, `CREATE (n:Person {name: "alice", age: 30})`)
	q := stmt.(*Query)
	c, ok := q.Clauses[0].(*CreateClause)
	require.True(t, ok)
	np := c.Patterns[0].Start
	assert.Equal(t, []string{"Person"}, np.Labels)
	lit, ok := np.Props["name"].(*Literal)
	require.True(t, ok)
	assert.Equal(t, "alice", lit.Value)
}

func TestParseSetAndDetachDelete(t *testing.T) {
	stmt := mustParse(t, `MATCH (n:Person) SET n.age = 31 DETACH DELETE n`)
	q := stmt.(*Query)
	require.Len(t, q.Clauses, 3)
	set := q.Clauses[1].(*SetClause)
	assert.Equal(t, "n", set.Items[0].Var)
	assert.Equal(t, "age", set.Items[0].Prop)
	del := q.Clauses[2].(*DeleteClause)
	assert.True(t, del.Detach)
	assert.Equal(t, []string{"n"}, del.Vars)
}

func TestParseAggregationAndOrderBy(t *testing.T) {
	stmt := mustParse(t, `MATCH (n:Person) RETURN count(n) AS total ORDER BY total DESC SKIP 5 LIMIT 10`)
	q := stmt.(*Query)
	r := q.Clauses[1].(*ReturnClause)
	fc, ok := r.Items[0].Expr.(*FuncCall)
	require.True(t, ok)
	assert.Equal(t, "count", fc.Name)
	assert.True(t, fc.IsAggregate)
	require.Len(t, r.OrderBy, 1)
	assert.False(t, r.OrderBy[0].Ascending)
	require.NotNil(t, r.Skip)
	require.NotNil(t, r.Limit)
}

func TestParseKnnOrderBy(t *testing.T) {
	stmt := mustParse(t, `MATCH (n:Doc) RETURN n ORDER BY n.embedding <-> [0.1, 0.2, 0.3] LIMIT 5`)
	q := stmt.(*Query)
	r := q.Clauses[1].(*ReturnClause)
	knn, ok := r.OrderBy[0].Expr.(*KnnExpr)
	require.True(t, ok)
	assert.Equal(t, "embedding", knn.Prop.Prop)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, knn.Vector)
}

func TestParseCallSubqueryInTransactions(t *testing.T) {
	stmt := mustParse(t, `CALL { MATCH (n) RETURN n } IN TRANSACTIONS OF 100 ROWS`)
	q := stmt.(*Query)
	call := q.Clauses[0].(*CallClause)
	assert.True(t, call.InTransactions)
	assert.Equal(t, 100, call.BatchRows)
	require.Len(t, call.Subquery.Clauses, 2)
}

func TestParseSchemaAdminStatements(t *testing.T) {
	stmt := mustParse(t, `CREATE INDEX person_name ON :Person(name)`)
	ci, ok := stmt.(*CreateIndexStmt)
	require.True(t, ok)
	assert.Equal(t, "person_name", ci.Name)
	assert.Equal(t, "Person", ci.Label)
	assert.Equal(t, "name", ci.Property)

	stmt2 := mustParse(t, `DROP INDEX person_name`)
	di, ok := stmt2.(*DropIndexStmt)
	require.True(t, ok)
	assert.Equal(t, "person_name", di.Name)

	stmt3 := mustParse(t, `CREATE CONSTRAINT person_email_unique UNIQUE ON :Person(email)`)
	cc, ok := stmt3.(*CreateConstraintStmt)
	require.True(t, ok)
	assert.True(t, cc.Unique)

	stmt4 := mustParse(t, `BEGIN`)
	tc, ok := stmt4.(*TxControlStmt)
	require.True(t, ok)
	assert.Equal(t, "BEGIN", tc.Kind)
}

func TestParseBooleanExpressions(t *testing.T) {
	stmt := mustParse(t, `MATCH (n:Person) WHERE n.age > 18 AND NOT n.banned RETURN n`)
	q := stmt.(*Query)
	m := q.Clauses[0].(*MatchClause)
	and, ok := m.Where.(*BinaryOp)
	require.True(t, ok)
	assert.Equal(t, "AND", and.Op)
	_, ok = and.Right.(*NotExpr)
	assert.True(t, ok)
}

func TestParseMultiHopPath(t *testing.T) {
	stmt := mustParse(t, `MATCH (a:Person)-[:FOLLOWS]->(b:Person)-[:FOLLOWS]->(c:Person) RETURN a, b, c`)
	q := stmt.(*Query)
	m := q.Clauses[0].(*MatchClause)
	require.Len(t, m.Patterns[0].Hops, 2)
	assert.Equal(t, "b", m.Patterns[0].Hops[0].Node.Var)
	assert.Equal(t, "c", m.Patterns[0].Hops[1].Node.Var)
}

func TestParseUnwind(t *testing.T) {
	stmt := mustParse(t, `UNWIND [1, 2, 3] AS x RETURN x`)
	q := stmt.(*Query)
	uw, ok := q.Clauses[0].(*UnwindClause)
	require.True(t, ok)
	assert.Equal(t, "x", uw.As)
}

func TestSyntaxErrorOnUnterminatedString(t *testing.T) {
	_, err := Parse(`MATCH (n) WHERE n.name = "alice RETURN n`)
	require.Error(t, err)
}
