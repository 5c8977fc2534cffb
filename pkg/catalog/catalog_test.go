package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New(NewMemStore())
	require.NoError(t, err)
	return c
}

func TestGetOrCreateLabelIsIdempotent(t *testing.T) {
	c := newTestCatalog(t)

	id1, err := c.GetOrCreateLabel("Person")
	require.NoError(t, err)

	id2, err := c.GetOrCreateLabel("Person")
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
}

func TestNamespacesAreIndependent(t *testing.T) {
	c := newTestCatalog(t)

	labelID, err := c.GetOrCreateLabel("name")
	require.NoError(t, err)
	keyID, err := c.GetOrCreateKey("name")
	require.NoError(t, err)

	// Same string, different namespaces: IDs need not (and here, don't
	// necessarily) collide, and resolving one never crosses into the other.
	_, ok := c.GetTypeID("name")
	assert.False(t, ok)

	name, ok := c.LabelName(labelID)
	require.True(t, ok)
	assert.Equal(t, "name", name)

	name, ok = c.KeyName(keyID)
	require.True(t, ok)
	assert.Equal(t, "name", name)
}

func TestLookupOnlyNeverAllocates(t *testing.T) {
	c := newTestCatalog(t)

	_, ok := c.GetLabelID("Missing")
	assert.False(t, ok)
	assert.Empty(t, c.Labels())
}

func TestIDsSurviveRestart(t *testing.T) {
	store := NewMemStore()

	c1, err := New(store)
	require.NoError(t, err)
	id1, err := c1.GetOrCreateLabel("Person")
	require.NoError(t, err)

	c2, err := New(store)
	require.NoError(t, err)
	id2, ok := c2.GetLabelID("Person")
	require.True(t, ok)
	assert.Equal(t, id1, id2)

	id3, err := c2.GetOrCreateType("FOLLOWS")
	require.NoError(t, err)
	assert.NotZero(t, id3)
}

func TestMonotonicAllocation(t *testing.T) {
	c := newTestCatalog(t)

	a, err := c.GetOrCreateLabel("A")
	require.NoError(t, err)
	b, err := c.GetOrCreateLabel("B")
	require.NoError(t, err)

	assert.Less(t, a, b)
}
