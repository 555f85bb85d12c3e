package atlas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCache_GetPut(t *testing.T) {
	c := NewCache(10)

	_, ok := c.Get("pets", "abc")
	assert.False(t, ok)

	c.Put("pets", "abc", 42)
	v, ok := c.Get("pets", "abc")
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = c.Get("pets", "def")
	assert.False(t, ok, "different fingerprint misses")
}

func TestCache_Eviction(t *testing.T) {
	c := NewCache(2)
	c.Put("a", "1", 1)
	c.Put("b", "1", 2)
	c.Get("a", "1")
	c.Put("c", "1", 3)

	_, ok := c.Get("b", "1")
	assert.False(t, ok, "least recently used evicted")
	_, ok = c.Get("a", "1")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Stats().Entries)
}

func TestCache_Invalidate(t *testing.T) {
	c := NewCache(10)
	c.Put("pets", "1", 1)
	c.Put("pets", "2", 2)
	c.Put("population", "1", 3)

	c.Invalidate("pets")
	_, ok := c.Get("pets", "1")
	assert.False(t, ok)
	_, ok = c.Get("population", "1")
	assert.True(t, ok)
}

func TestCache_Stats(t *testing.T) {
	c := NewCache(10)
	c.Put("a", "1", 1)
	c.Get("a", "1")
	c.Get("a", "2")

	s := c.Stats()
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.InDelta(t, 0.5, s.HitRate, 1e-9)
	assert.Equal(t, 10, s.MaxEntries)
}

func TestCache_Nil(t *testing.T) {
	var c *Cache
	c.Put("a", "1", 1)
	_, ok := c.Get("a", "1")
	assert.False(t, ok)
	assert.Equal(t, CacheStats{}, c.Stats())
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("x"), "csv")
	assert.Len(t, a, 64)
	assert.Equal(t, a, Fingerprint([]byte("x"), "csv"))
	assert.NotEqual(t, a, Fingerprint([]byte("x"), "xlsx"))
	assert.NotEqual(t, a, Fingerprint([]byte("y"), "csv"))
}
