// Package cache provides a size-aware LRU cache used to keep fetched commit
// snapshots alive while the user scrubs the timeline.
package cache

import (
	"sync"
	"sync/atomic"
)

// DefaultMaxSize is the default capacity in size units.
const DefaultMaxSize = 1 << 20

// evictionSampleSize is how many tail entries are compared when choosing a
// victim. Sampling keeps eviction O(1).
const evictionSampleSize = 5

// LRU is a concurrency-safe cache bounded by the total size of its values.
// Eviction looks at the least recently used entries and drops the one with
// the lowest access count per unit of size.
type LRU[K comparable, V any] struct {
	mu          sync.Mutex
	entries     map[K]*entry[K, V]
	head        *entry[K, V] // Most recently used.
	tail        *entry[K, V] // Least recently used.
	sizeOf      func(V) int64
	maxSize     int64
	currentSize int64

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

type entry[K comparable, V any] struct {
	key         K
	value       V
	size        int64
	accessCount int64
	prev        *entry[K, V]
	next        *entry[K, V]
}

// evictionCost is higher for entries that are cheaper to keep.
func (e *entry[K, V]) evictionCost() float64 {
	if e.size <= 1 {
		return float64(e.accessCount)
	}

	return float64(e.accessCount) / float64(e.size)
}

// NewLRU creates a cache holding at most maxSize units as measured by
// sizeOf. A nil sizeOf counts every value as one unit.
func NewLRU[K comparable, V any](maxSize int64, sizeOf func(V) int64) *LRU[K, V] {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	if sizeOf == nil {
		sizeOf = func(V) int64 { return 1 }
	}

	return &LRU[K, V]{
		entries: make(map[K]*entry[K, V]),
		sizeOf:  sizeOf,
		maxSize: maxSize,
	}
}

// Get returns the cached value for key.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)

		var zero V

		return zero, false
	}

	c.hits.Add(1)

	e.accessCount++
	c.moveToFront(e)

	return e.value, true
}

// Put stores value under key, replacing any previous value. Values larger
// than the whole cache are not stored.
func (c *LRU[K, V]) Put(key K, value V) {
	size := max(c.sizeOf(value), 1)
	if size > c.maxSize {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.currentSize += size - e.size
		e.value = value
		e.size = size
		e.accessCount++
		c.moveToFront(e)
		c.evictOverflow(e)

		return
	}

	e := &entry[K, V]{key: key, value: value, size: size, accessCount: 1}

	c.entries[key] = e
	c.currentSize += size
	c.addToFront(e)
	c.evictOverflow(e)
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Clear drops every entry. Counters are kept.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*entry[K, V])
	c.head = nil
	c.tail = nil
	c.currentSize = 0
}

// Stats holds cache counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Entries     int
	CurrentSize int64
	MaxSize     int64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

// Stats returns a snapshot of the counters.
func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
		Entries:     len(c.entries),
		CurrentSize: c.currentSize,
		MaxSize:     c.maxSize,
	}
}

// evictOverflow evicts until the cache fits, never evicting keep.
func (c *LRU[K, V]) evictOverflow(keep *entry[K, V]) {
	for c.currentSize > c.maxSize {
		victim := c.pickVictim(keep)
		if victim == nil {
			return
		}

		c.removeFromList(victim)
		delete(c.entries, victim.key)
		c.currentSize -= victim.size
		c.evictions.Add(1)
	}
}

func (c *LRU[K, V]) pickVictim(keep *entry[K, V]) *entry[K, V] {
	var victim *entry[K, V]

	count := 0

	for e := c.tail; e != nil && count < evictionSampleSize; e = e.prev {
		if e == keep {
			continue
		}

		if victim == nil || e.evictionCost() < victim.evictionCost() {
			victim = e
		}

		count++
	}

	return victim
}

func (c *LRU[K, V]) moveToFront(e *entry[K, V]) {
	if e == c.head {
		return
	}

	c.removeFromList(e)
	c.addToFront(e)
}

func (c *LRU[K, V]) addToFront(e *entry[K, V]) {
	e.prev = nil
	e.next = c.head

	if c.head != nil {
		c.head.prev = e
	}

	c.head = e

	if c.tail == nil {
		c.tail = e
	}
}

func (c *LRU[K, V]) removeFromList(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}

	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}

	e.prev = nil
	e.next = nil
}
