package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheBasicOperations(t *testing.T) {
	c := New(time.Minute, 2*time.Minute)

	t.Run("set and get", func(t *testing.T) {
		c.Set(KeyMap, "value")
		v, ok := c.Get(KeyMap)
		assert.True(t, ok)
		assert.Equal(t, "value", v)
	})

	t.Run("missing", func(t *testing.T) {
		_, ok := c.Get("nonexistent")
		assert.False(t, ok)
	})

	t.Run("delete", func(t *testing.T) {
		c.Set(KeyBoosts, 1)
		c.Delete(KeyBoosts)
		_, ok := c.Get(KeyBoosts)
		assert.False(t, ok)
	})

	t.Run("clear", func(t *testing.T) {
		c.Set(KeyState, 1)
		c.Clear()
		assert.Equal(t, 0, c.ItemCount())
	})
}

func TestCacheTTL(t *testing.T) {
	c := New(time.Minute, 2*time.Minute)
	c.SetWithTTL("expiring", "value", 20*time.Millisecond)

	_, ok := c.Get("expiring")
	assert.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := c.Get("expiring")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestGetOrCompute(t *testing.T) {
	c := New(time.Minute, 2*time.Minute)

	calls := 0
	compute := func() any {
		calls++
		return calls
	}

	assert.Equal(t, 1, c.GetOrCompute(KeyBoosts, compute))
	assert.Equal(t, 1, c.GetOrCompute(KeyBoosts, compute))
	assert.Equal(t, 1, calls)

	c.Clear()
	assert.Equal(t, 2, c.GetOrCompute(KeyBoosts, compute))

	stats := c.GetStats()
	assert.Equal(t, 1, stats.ItemCount)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New(time.Minute, 2*time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Set(KeyMap, j)
				c.Get(KeyMap)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, c.ItemCount())
}
