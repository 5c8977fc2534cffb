package exec

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/nexus/pkg/planner"
)

type sliceOperator struct {
	rows []Row
	pos  int
}

func newSliceOperator(rows []Row) *sliceOperator { return &sliceOperator{rows: rows} }

func (s *sliceOperator) Open() error { s.pos = 0; return nil }

func (s *sliceOperator) Next() (Row, error) {
	if s.pos >= len(s.rows) {
		return nil, ErrExhausted
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

func (s *sliceOperator) Close() error { return nil }

func personRows(ids ...uint64) []Row {
	var out []Row
	for _, id := range ids {
		out = append(out, Row{"a": NodeRef{ID: id}})
	}
	return out
}

func movieRows(ids ...uint64) []Row {
	var out []Row
	for _, id := range ids {
		out = append(out, Row{"a": NodeRef{ID: id}, "m": NodeRef{ID: id + 100}})
	}
	return out
}

func TestNestedLoopJoinMatchesOnSharedVar(t *testing.T) {
	left := newSliceOperator(personRows(1, 2, 3))
	right := newSliceOperator(movieRows(2, 3, 4))
	node := &planner.JoinNode{JoinVars: []string{"a"}, Algorithm: planner.JoinNestedLoop}

	op, err := NewJoinOperator(node, left, right, nil)
	require.NoError(t, err)
	rows := drainAll(t, op)
	require.Len(t, rows, 2)
	for _, row := range rows {
		a := row["a"].(NodeRef).ID
		assert.Contains(t, []uint64{2, 3}, a)
	}
}

func TestHashJoinMatchesOnSharedVar(t *testing.T) {
	left := newSliceOperator(personRows(1, 2, 3))
	right := newSliceOperator(movieRows(2, 3, 4))
	node := &planner.JoinNode{JoinVars: []string{"a"}, Algorithm: planner.JoinHash, UseBloom: true}

	op, err := NewJoinOperator(node, left, right, nil)
	require.NoError(t, err)
	rows := drainAll(t, op)
	assert.Len(t, rows, 2)
}

func TestMergeJoinMatchesOnSharedVar(t *testing.T) {
	left := newSliceOperator(personRows(1, 2, 3))
	right := newSliceOperator(movieRows(2, 3, 4))
	node := &planner.JoinNode{JoinVars: []string{"a"}, Algorithm: planner.JoinMerge}

	op, err := NewJoinOperator(node, left, right, nil)
	require.NoError(t, err)
	rows := drainAll(t, op)
	require.Len(t, rows, 2)
	var ids []uint64
	for _, row := range rows {
		ids = append(ids, row["a"].(NodeRef).ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	assert.Equal(t, []uint64{2, 3}, ids)
}

func TestHashJoinReportsJoinStats(t *testing.T) {
	left := newSliceOperator(personRows(1, 2, 3))
	right := newSliceOperator(movieRows(2, 3, 4))
	node := &planner.JoinNode{JoinVars: []string{"a"}, Algorithm: planner.JoinHash, UseBloom: true}
	ctx := &Context{}

	op, err := NewJoinOperator(node, left, right, ctx)
	require.NoError(t, err)
	rows := drainAll(t, op)
	require.Len(t, rows, 2)

	require.Len(t, ctx.JoinStats, 1)
	stats := ctx.JoinStats[0]
	assert.Equal(t, string(planner.JoinHash), stats.Algorithm)
	assert.Equal(t, 3, stats.Buckets)
	assert.Equal(t, 3, stats.TotalEntries)
	assert.Equal(t, 1, stats.MaxChain)
	assert.Equal(t, 1.0, stats.LoadFactor)
	assert.True(t, stats.BloomEnabled)
	assert.Greater(t, stats.BloomFPEstimate, 0.0)
	// left id 1 has no matching right-side key at all, so the Bloom
	// filter must reject its probe before any map lookup happens.
	assert.Equal(t, 1, stats.ProbeRejections)
}

func TestNestedLoopAndMergeJoinReportAlgorithmInStats(t *testing.T) {
	nlCtx := &Context{}
	nlOp, err := NewJoinOperator(
		&planner.JoinNode{JoinVars: []string{"a"}, Algorithm: planner.JoinNestedLoop},
		newSliceOperator(personRows(1, 2, 3)), newSliceOperator(movieRows(2, 3, 4)), nlCtx)
	require.NoError(t, err)
	drainAll(t, nlOp)
	require.Len(t, nlCtx.JoinStats, 1)
	assert.Equal(t, string(planner.JoinNestedLoop), nlCtx.JoinStats[0].Algorithm)

	mergeCtx := &Context{}
	mergeOp, err := NewJoinOperator(
		&planner.JoinNode{JoinVars: []string{"a"}, Algorithm: planner.JoinMerge},
		newSliceOperator(personRows(1, 2, 3)), newSliceOperator(movieRows(2, 3, 4)), mergeCtx)
	require.NoError(t, err)
	drainAll(t, mergeOp)
	require.Len(t, mergeCtx.JoinStats, 1)
	assert.Equal(t, string(planner.JoinMerge), mergeCtx.JoinStats[0].Algorithm)
}

func TestBloomFilterNoFalseNegatives(t *testing.T) {
	bf := newBloomFilter(100, 0.01)
	keys := [][]byte{[]byte("n1|"), []byte("n2|"), []byte("n3|")}
	for _, k := range keys {
		bf.add(k)
	}
	for _, k := range keys {
		assert.True(t, bf.mayContain(k))
	}
}
