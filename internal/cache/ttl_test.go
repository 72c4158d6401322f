package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLGetSet(t *testing.T) {
	c := NewTTL[string](time.Minute)
	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set("k", "v")
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestTTLLazyExpiry(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewTTL[int](10 * time.Minute)
	c.SetClock(func() time.Time { return now })

	c.Set("k", 42)

	now = now.Add(9 * time.Minute)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, got)

	now = now.Add(time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)
	// Expired entry was evicted on read.
	assert.Zero(t, c.Len())
}

func TestTTLZeroNeverExpires(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewTTL[int](0)
	c.SetClock(func() time.Time { return now })

	c.Set("k", 1)
	now = now.Add(1000 * time.Hour)
	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestTTLConcurrentAccess(t *testing.T) {
	c := NewTTL[int](time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set("shared", j)
				c.Get("shared")
			}
		}()
	}
	wg.Wait()
	_, ok := c.Get("shared")
	assert.True(t, ok)
}
