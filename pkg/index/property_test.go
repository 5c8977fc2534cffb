package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/nexus/pkg/storage"
)

func TestPropertyIndexEquals(t *testing.T) {
	pi := NewPropertyIndex(32)
	pi.Add(1, 2, storage.IntValue(30), 100)
	pi.Add(1, 2, storage.IntValue(30), 101)
	pi.Add(1, 2, storage.IntValue(40), 102)

	got := pi.Equals(1, 2, storage.IntValue(30))
	require.Len(t, got, 2)
	assert.Contains(t, got, uint64(100))
	assert.Contains(t, got, uint64(101))
}

func TestPropertyIndexRange(t *testing.T) {
	pi := NewPropertyIndex(32)
	for i := int64(0); i < 10; i++ {
		pi.Add(1, 2, storage.IntValue(i), uint64(i))
	}
	min := storage.IntValue(3)
	max := storage.IntValue(6)
	got := pi.Range(1, 2, &min, &max)
	require.Equal(t, []uint64{3, 4, 5, 6}, got)
}

func TestPropertyIndexRemove(t *testing.T) {
	pi := NewPropertyIndex(32)
	pi.Add(1, 2, storage.StringValue("alice"), 1)
	pi.Remove(1, 2, storage.StringValue("alice"), 1)
	assert.Equal(t, 0, pi.Len(1, 2))
}

func TestPropertyIndexIgnoresNonScalar(t *testing.T) {
	pi := NewPropertyIndex(32)
	pi.Add(1, 2, storage.ArrayValue(nil), 1)
	assert.Equal(t, 0, pi.Len(1, 2))
}
