package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/nexus/pkg/index"
	"github.com/cuemby/nexus/pkg/planner"
	"github.com/cuemby/nexus/pkg/storage"
)

func TestKnnOperatorReturnsNearestNeighbors(t *testing.T) {
	ctx := newTestContext(t)
	person := mustLabel(t, ctx, "Person")
	embKey := mustKey(t, ctx, "embedding")

	vi := index.NewVectorIndex(2, index.MetricL2)
	ctx.Vectors = map[uint32]*index.VectorIndex{embKey: vi}

	near := createTestNode(t, ctx, person, storage.PropertyMap{})
	far := createTestNode(t, ctx, person, storage.PropertyMap{})
	require.NoError(t, vi.AddVector(near, person, []float32{1, 1}))
	require.NoError(t, vi.AddVector(far, person, []float32{100, 100}))

	op := NewKnnOperator(&planner.KnnNode{Var: "p", KeyID: embKey, Vector: []float64{1, 1}, K: 1}, ctx)
	rows := drainAll(t, op)
	require.Len(t, rows, 1)
	assert.Equal(t, near, rows[0]["p"].(NodeRef).ID)
}
