package index

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelIndexAddGetRemove(t *testing.T) {
	li := NewLabelIndex()
	li.AddNode(1, 10)
	li.AddNode(1, 20)
	li.AddNode(2, 10)

	nodes := li.GetNodesWithLabel(1)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	require.Equal(t, []uint64{10, 20}, nodes)
	assert.Equal(t, 1, li.Count(2))

	li.RemoveNode(1, 10)
	assert.False(t, li.HasLabel(1, 10))
	assert.True(t, li.HasLabel(1, 20))
}

func TestLabelIndexRemoveLastNodeClearsLabel(t *testing.T) {
	li := NewLabelIndex()
	li.AddNode(5, 1)
	li.RemoveNode(5, 1)
	assert.Equal(t, 0, li.Count(5))
	assert.Nil(t, li.GetNodesWithLabel(5))
}
