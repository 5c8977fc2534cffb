package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStats struct {
	labelCounts map[uint32]int
	propIndexes map[[2]uint32]int
}

func (f fakeStats) LabelCount(labelID uint32) int {
	if n, ok := f.labelCounts[labelID]; ok {
		return n
	}
	return 1000
}

func (f fakeStats) HasPropertyIndex(labelID, keyID uint32) bool {
	_, ok := f.propIndexes[[2]uint32{labelID, keyID}]
	return ok
}

func (f fakeStats) PropertyIndexCount(labelID, keyID uint32) int {
	return f.propIndexes[[2]uint32{labelID, keyID}]
}

func (fakeStats) HasVectorIndex(uint32) bool { return false }

func TestOptimizeSmallJoinPrefersNestedLoop(t *testing.T) {
	stats := fakeStats{labelCounts: map[uint32]int{1: 10, 2: 10}}
	opt := NewOptimizer(DefaultCostModel(), stats)

	root := &JoinNode{
		Left:     &ScanNode{Var: "a", LabelID: 1, HasLabel: true},
		Right:    &ScanNode{Var: "b", LabelID: 2, HasLabel: true},
		JoinVars: []string{"a", "b"},
	}
	plan, err := opt.Optimize(root)
	require.NoError(t, err)

	join, ok := plan.Root.(*JoinNode)
	require.True(t, ok)
	assert.Equal(t, JoinNestedLoop, join.Algorithm)
}

func TestOptimizeLargeComparableSortedJoinPrefersMerge(t *testing.T) {
	stats := fakeStats{labelCounts: map[uint32]int{1: 5000, 2: 6000}}
	opt := NewOptimizer(DefaultCostModel(), stats)

	root := &JoinNode{
		Left:     &ScanNode{Var: "a", LabelID: 1, HasLabel: true},
		Right:    &ScanNode{Var: "b", LabelID: 2, HasLabel: true},
		JoinVars: []string{"a", "b"},
	}
	plan, err := opt.Optimize(root)
	require.NoError(t, err)

	join := plan.Root.(*JoinNode)
	assert.Equal(t, JoinMerge, join.Algorithm)
}

func TestOptimizeSkewedLargeJoinPrefersHash(t *testing.T) {
	stats := fakeStats{labelCounts: map[uint32]int{1: 500000, 2: 200}}
	opt := NewOptimizer(DefaultCostModel(), stats)

	root := &JoinNode{
		Left:     &ScanNode{Var: "a", LabelID: 1, HasLabel: true},
		Right:    &ScanNode{Var: "b", LabelID: 2, HasLabel: true},
		JoinVars: []string{"a", "b"},
	}
	plan, err := opt.Optimize(root)
	require.NoError(t, err)

	join := plan.Root.(*JoinNode)
	assert.Equal(t, JoinHash, join.Algorithm)
}

func TestOptimizeTracksPlansConsideredAndJoinOrder(t *testing.T) {
	opt := NewOptimizer(DefaultCostModel(), NopStats{})
	root := &ProjectNode{unaryBase: unaryBase{Input: &ScanNode{Var: "n", HasLabel: false}}}

	plan, err := opt.Optimize(root)
	require.NoError(t, err)
	assert.Greater(t, plan.Trace.PlansConsidered, 0)
	assert.GreaterOrEqual(t, plan.Trace.MicrosSpent, int64(0))
}

func TestOptimizeNopStatsFallsBackToDefaults(t *testing.T) {
	opt := NewOptimizer(DefaultCostModel(), nil)
	root := &ScanNode{Var: "n", LabelID: 1, HasLabel: true}
	plan, err := opt.Optimize(root)
	require.NoError(t, err)
	_, ok := plan.Root.(*ScanNode)
	assert.True(t, ok)
}
