package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_GetSet(t *testing.T) {
	c := NewLRU[string](4, nil)
	defer c.Close()

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", "1")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	c.Set("a", "2")
	v, _ = c.Get("a")
	assert.Equal(t, "2", v)
	assert.Equal(t, 1, c.Size())
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	var evictedKeys []string
	c := NewLRU[int](2, func(key string, _ int) {
		evictedKeys = append(evictedKeys, key)
	})
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, []string{"b"}, evictedKeys)
	assert.Equal(t, int64(1), c.Stats().Evictions())
}

func TestLRU_SetIfAbsent(t *testing.T) {
	c := NewLRU[int](4, nil)
	defer c.Close()

	assert.True(t, c.SetIfAbsent("a", 1))
	assert.False(t, c.SetIfAbsent("a", 2))

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestLRU_DeleteAndClear(t *testing.T) {
	c := NewLRU[int](4, nil)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.Equal(t, 1, c.Size())

	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestLRU_ConcurrentAccess(t *testing.T) {
	c := NewLRU[int](64, nil)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d", j%16)
				c.Set(key, n)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 16, c.Size())
}

func TestTTL_ExpiresEntries(t *testing.T) {
	c := NewTTL[string](30*time.Millisecond, nil)
	defer c.Close()

	c.Set("a", "1")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	time.Sleep(50 * time.Millisecond)

	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestTTL_SetIfAbsent(t *testing.T) {
	c := NewTTL[struct{}](30*time.Millisecond, nil)
	defer c.Close()

	assert.True(t, c.SetIfAbsent("uid-1", struct{}{}))
	assert.False(t, c.SetIfAbsent("uid-1", struct{}{}))

	// After expiry the key can be claimed again.
	time.Sleep(50 * time.Millisecond)
	assert.True(t, c.SetIfAbsent("uid-1", struct{}{}))
}

func TestTTL_BackgroundSweep(t *testing.T) {
	var mu sync.Mutex
	evicted := 0
	c := NewTTL[int](20*time.Millisecond, func(string, int) {
		mu.Lock()
		evicted++
		mu.Unlock()
	})
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return evicted == 2
	}, time.Second, 10*time.Millisecond)
}

func TestTTL_DeleteSizeClear(t *testing.T) {
	c := NewTTL[int](time.Minute, nil)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	assert.Equal(t, 2, c.Size())

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.Equal(t, 1, c.Size())

	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestTTL_CloseIdempotent(t *testing.T) {
	c := NewTTL[int](time.Minute, nil)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestStatistics(t *testing.T) {
	s := NewStatistics()
	s.Hit()
	s.Hit()
	s.Hit()
	s.Miss()
	s.Set()
	s.Eviction()

	assert.Equal(t, int64(3), s.Hits())
	assert.Equal(t, int64(1), s.Misses())
	assert.Equal(t, int64(1), s.Sets())
	assert.Equal(t, int64(1), s.Evictions())
	assert.InDelta(t, 0.75, s.HitRate(), 0.001)
	assert.GreaterOrEqual(t, s.Uptime(), time.Duration(0))
}

func TestStatistics_HitRateNoLookups(t *testing.T) {
	s := NewStatistics()
	assert.Zero(t, s.HitRate())
}
