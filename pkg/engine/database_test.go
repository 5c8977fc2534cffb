package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/nexus/pkg/config"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Cache.ResultCacheCapacity = 100
	cfg.Cache.PlanCacheCapacity = 100
	cfg.Cache.RelCacheCapacity = 100

	db, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndMatchRoundTrips(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.Query(ctx, `CREATE (n:Person {name: "alice", age: 30})`, nil)
	require.NoError(t, err)

	result, err := db.Query(ctx, `MATCH (n:Person) WHERE n.age > 20 RETURN n.name AS name`, nil)
	require.NoError(t, err)
	require.NotNil(t, result.Rows)
	require.Equal(t, []string{"name"}, result.Rows.Columns)
	require.Len(t, result.Rows.Rows, 1)
	require.Equal(t, "alice", result.Rows.Rows[0][0])
	require.Equal(t, 1, result.RowCount)
	require.GreaterOrEqual(t, result.ExecutionTimeMS, 0.0)
}

func TestParameterizedCreate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.Query(ctx, `CREATE (n:BenchNode {seq: $seq})`, map[string]any{"seq": 7})
	require.NoError(t, err)
	require.Equal(t, uint64(1), db.NodeCount())
}

func TestCreateAndDetachDeleteMutatesStorage(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.Query(ctx, `CREATE (n:Person {name: "bob", age: 40})`, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(1), db.NodeCount())

	_, err = db.Query(ctx, `MATCH (n:Person) DETACH DELETE n`, nil)
	require.NoError(t, err)

	result, err := db.Query(ctx, `MATCH (n:Person) RETURN n`, nil)
	require.NoError(t, err)
	require.Len(t, result.Rows.Rows, 0)
}

func TestCreatePropertyIndexViaDDL(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	result, err := db.Query(ctx, `CREATE INDEX person_age ON :Person(age)`, nil)
	require.NoError(t, err)
	require.Contains(t, result.Applied, "person_age")

	labelID, err := db.catalog.GetOrCreateLabel("Person")
	require.NoError(t, err)
	keyID, err := db.catalog.GetOrCreateKey("age")
	require.NoError(t, err)
	require.True(t, db.props.Has(labelID, keyID))

	_, err = db.Query(ctx, `DROP INDEX person_age`, nil)
	require.NoError(t, err)
	require.False(t, db.props.Has(labelID, keyID))
}

func TestCreateConstraintIsBookkeepingOnly(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	result, err := db.Query(ctx, `CREATE CONSTRAINT person_email_unique UNIQUE ON :Person(email)`, nil)
	require.NoError(t, err)
	require.Contains(t, result.Applied, "person_email_unique")

	_, err = db.Query(ctx, `DROP CONSTRAINT person_email_unique`, nil)
	require.NoError(t, err)

	_, err = db.Query(ctx, `DROP CONSTRAINT person_email_unique`, nil)
	require.Error(t, err)
}

func TestCompactionPlanReportsNothingOnFreshDatabase(t *testing.T) {
	db := openTestDB(t)
	stats, err := db.CompactionPlan()
	require.NoError(t, err)
	require.Equal(t, uint64(0), stats.NodesReclaimed)
}

func TestMetricsSourceMethods(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.Query(ctx, `CREATE (n:Person {name: "carol"})`, nil)
	require.NoError(t, err)

	require.Equal(t, uint64(1), db.NodeCount())
	require.Equal(t, uint64(0), db.RelationshipCount())
	require.GreaterOrEqual(t, db.ActiveTransactionCount(), 0)
	require.Nil(t, db.ReplicaLag())
	_ = db.ResultCacheStats()
	_ = db.PlanCacheStats()
	_ = db.RelationshipCacheStats()
}
