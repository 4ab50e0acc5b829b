package cache_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/timewarp/internal/cache"
)

func byLen(v []int) int64 { return int64(len(v)) }

func TestLRU_GetPut(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU[string, []int](10, byLen)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Put("a", []int{1, 2})

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, got)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(2), stats.CurrentSize)
	assert.InDelta(t, 0.5, stats.HitRate(), 1e-9)
}

func TestLRU_ReturnsSameValue(t *testing.T) {
	t.Parallel()

	type snapshot struct{ id string }

	c := cache.NewLRU[string, *snapshot](4, nil)
	snap := &snapshot{id: "abc"}

	c.Put("abc", snap)

	first, _ := c.Get("abc")
	second, _ := c.Get("abc")

	assert.Same(t, snap, first)
	assert.Same(t, first, second)
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU[int, []int](3, byLen)

	c.Put(1, []int{1})
	c.Put(2, []int{2})
	c.Put(3, []int{3})
	c.Put(4, []int{4})

	assert.Equal(t, 3, c.Len())

	_, ok := c.Get(1)
	assert.False(t, ok, "oldest entry evicted")

	for _, key := range []int{2, 3, 4} {
		_, ok = c.Get(key)
		assert.True(t, ok, key)
	}

	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestLRU_PrefersEvictingLargeColdEntries(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU[string, []int](10, byLen)

	c.Put("big", make([]int, 6))
	c.Put("small", []int{1})

	for range 3 {
		c.Get("small")
	}

	c.Put("new", make([]int, 4))

	_, bigOK := c.Get("big")
	_, smallOK := c.Get("small")
	_, newOK := c.Get("new")

	assert.False(t, bigOK)
	assert.True(t, smallOK)
	assert.True(t, newOK)
}

func TestLRU_SkipsOversizedValues(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU[string, []int](2, byLen)

	c.Put("huge", []int{1, 2, 3})

	assert.Zero(t, c.Len())
}

func TestLRU_ReplaceUpdatesSize(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU[string, []int](10, byLen)

	c.Put("a", []int{1, 2, 3})
	c.Put("a", []int{1})

	assert.Equal(t, int64(1), c.Stats().CurrentSize)
	assert.Equal(t, 1, c.Len())
}

func TestLRU_Clear(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU[string, []int](10, byLen)
	c.Put("a", []int{1})
	c.Clear()

	assert.Zero(t, c.Len())
	assert.Zero(t, c.Stats().CurrentSize)
}

func TestLRU_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU[string, int](64, nil)

	var wg sync.WaitGroup

	for worker := range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range 200 {
				key := fmt.Sprintf("k%d", (worker*200+i)%100)
				c.Put(key, i)
				c.Get(key)
			}
		}()
	}

	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 64)
}
