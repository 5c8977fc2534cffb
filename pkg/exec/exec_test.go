package exec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/nexus/pkg/catalog"
	"github.com/cuemby/nexus/pkg/index"
	"github.com/cuemby/nexus/pkg/storage"
)

// newTestContext wires a fresh in-process GraphStorage, catalog, and
// label/property indexes together the way pkg/engine will, so exec's
// tests exercise the real storage/index code paths rather than fakes.
func newTestContext(t *testing.T) *Context {
	t.Helper()
	dir := t.TempDir()
	labels := index.NewLabelIndex()
	gs, err := storage.Open(dir, storage.WithLabelIndex(labels))
	require.NoError(t, err)
	t.Cleanup(func() { _ = gs.Close() })

	cat, err := catalog.New(catalog.NewMemStore())
	require.NoError(t, err)

	return &Context{
		Storage: gs,
		Catalog: cat,
		Labels:  labels,
		Props:   index.NewPropertyIndex(32),
		Epoch:   1,
		Params:  map[string]any{},
	}
}

func mustLabel(t *testing.T, ctx *Context, name string) uint32 {
	t.Helper()
	id, err := ctx.Catalog.GetOrCreateLabel(name)
	require.NoError(t, err)
	return id
}

func mustKey(t *testing.T, ctx *Context, name string) uint32 {
	t.Helper()
	id, err := ctx.Catalog.GetOrCreateKey(name)
	require.NoError(t, err)
	return id
}

func createTestNode(t *testing.T, ctx *Context, labelID uint32, props storage.PropertyMap) uint64 {
	t.Helper()
	id, err := ctx.Storage.CreateNode(labelID, props, ctx.Epoch)
	require.NoError(t, err)
	return id
}

func drainAll(t *testing.T, op Operator) []Row {
	t.Helper()
	require.NoError(t, op.Open())
	defer op.Close()
	var rows []Row
	for {
		row, err := op.Next()
		if err == ErrExhausted {
			break
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
	return rows
}
