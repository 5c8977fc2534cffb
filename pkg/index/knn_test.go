package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorIndexSearchOrdersByDistance(t *testing.T) {
	vi := NewVectorIndex(2, MetricL2)
	require.NoError(t, vi.AddVector(1, 0, []float32{0, 0}))
	require.NoError(t, vi.AddVector(2, 0, []float32{1, 0}))
	require.NoError(t, vi.AddVector(3, 0, []float32{10, 10}))

	results, err := vi.Search([]float32{0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, uint64(1), results[0].NodeID)
	assert.Equal(t, uint64(2), results[1].NodeID)
}

func TestVectorIndexDimensionMismatch(t *testing.T) {
	vi := NewVectorIndex(3, MetricCosine)
	err := vi.AddVector(1, 0, []float32{1, 2})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = vi.Search([]float32{1, 2}, 1, nil)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestVectorIndexRestrictsToCandidates(t *testing.T) {
	vi := NewVectorIndex(1, MetricL2)
	require.NoError(t, vi.AddVector(1, 0, []float32{0}))
	require.NoError(t, vi.AddVector(2, 0, []float32{100}))

	results, err := vi.Search([]float32{0}, 5, map[uint64]struct{}{2: {}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, uint64(2), results[0].NodeID)
}

func TestVectorIndexRemove(t *testing.T) {
	vi := NewVectorIndex(1, MetricL2)
	require.NoError(t, vi.AddVector(1, 0, []float32{1}))
	vi.RemoveVector(1)
	assert.Equal(t, 0, vi.Len())
}

func TestCosineDistanceIdenticalVectorsIsZero(t *testing.T) {
	vi := NewVectorIndex(2, MetricCosine)
	require.NoError(t, vi.AddVector(1, 0, []float32{3, 4}))

	results, err := vi.Search([]float32{3, 4}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0, results[0].Distance, 1e-9)
}
