package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUBasicGetPut(t *testing.T) {
	c := NewLRU[string, int](2, 0)
	c.Put("a", 1)
	c.Put("b", 2)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[string, int](2, 0)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a") // touch a, making b the LRU entry
	c.Put("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b should have been evicted")

	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestLRUTTLExpiry(t *testing.T) {
	c := NewLRU[string, int](10, 10*time.Millisecond)
	c.Put("a", 1)

	_, ok := c.Get("a")
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get("a")
	assert.False(t, ok, "entry should have expired")
}

func TestLRURemoveMatching(t *testing.T) {
	c := NewLRU[int, string](10, 0)
	c.Put(1, "odd")
	c.Put(2, "even")
	c.Put(3, "odd")

	n := c.RemoveMatching(func(k int, v string) bool { return v == "odd" })
	assert.Equal(t, 2, n)

	_, ok := c.Get(2)
	assert.True(t, ok)
	_, ok = c.Get(1)
	assert.False(t, ok)
}

func TestLRUStats(t *testing.T) {
	c := NewLRU[string, int](10, 0)
	c.Put("a", 1)
	c.Get("a")
	c.Get("missing")

	s := c.Stats()
	assert.Equal(t, uint64(1), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.Equal(t, 1, s.Size)
}

func TestLRUClear(t *testing.T) {
	c := NewLRU[string, int](10, 0)
	c.Put("a", 1)
	c.Clear()
	_, ok := c.Get("a")
	assert.False(t, ok)
}
