package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCacheExpiresEntries(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache[string, int]().WithNow(func() time.Time { return now })

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, 0)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)

	v, ok = c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())
}

func TestTTLCacheSweepsOnWrite(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache[int, string]().WithNow(func() time.Time { return now })
	c.sweepEvery = 3

	c.Set(1, "x", time.Second)
	c.Set(2, "y", time.Second)
	c.Set(3, "z", time.Second)
	now = now.Add(2 * time.Second)
	c.Set(4, "w", time.Second)

	assert.Equal(t, 1, c.Len())
	c.Delete(4)
	assert.Equal(t, 0, c.Len())
}
