package cache

import (
	"container/list"
	"sync"
)

type lruEntry[V any] struct {
	key   string
	value V
}

// LRU is a thread-safe least-recently-used cache bounded by entry count.
type LRU[V any] struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	order   *list.List
	stats   *Statistics
	evictFn EvictCallback[V]
}

// NewLRU creates an LRU cache holding at most maxSize entries. The
// optional evict callback fires for every evicted entry.
func NewLRU[V any](maxSize int, evictFn EvictCallback[V]) *LRU[V] {
	if maxSize <= 0 {
		maxSize = 128
	}
	return &LRU[V]{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		stats:   NewStatistics(),
		evictFn: evictFn,
	}
}

// Get retrieves a value by key and marks it as recently used.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, exists := c.items[key]
	if !exists {
		c.stats.Miss()
		var zero V
		return zero, false
	}

	c.order.MoveToFront(element)
	c.stats.Hit()
	return element.Value.(*lruEntry[V]).value, true
}

// Set stores a value, evicting the least recently used entry when full.
func (c *LRU[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value)
}

// SetIfAbsent stores the value only when the key is not present.
func (c *LRU[V]) SetIfAbsent(key string, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; exists {
		return false
	}
	c.set(key, value)
	return true
}

func (c *LRU[V]) set(key string, value V) {
	c.stats.Set()

	if element, exists := c.items[key]; exists {
		element.Value.(*lruEntry[V]).value = value
		c.order.MoveToFront(element)
		return
	}

	c.items[key] = c.order.PushFront(&lruEntry[V]{key: key, value: value})

	for c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		entry := oldest.Value.(*lruEntry[V])
		c.order.Remove(oldest)
		delete(c.items, entry.key)
		c.stats.Eviction()
		if c.evictFn != nil {
			c.evictFn(entry.key, entry.value)
		}
	}
}

// Delete removes an entry by key.
func (c *LRU[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, exists := c.items[key]
	if !exists {
		return false
	}
	c.order.Remove(element)
	delete(c.items, key)
	return true
}

// Size returns the current number of entries.
func (c *LRU[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear removes all entries.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Stats returns cache statistics.
func (c *LRU[V]) Stats() *Statistics {
	return c.stats
}

// Close is a no-op; LRU caches hold no background resources.
func (c *LRU[V]) Close() error {
	return nil
}
