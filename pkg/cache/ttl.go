package cache

import (
	"sync"
	"time"
)

type ttlEntry[V any] struct {
	value     V
	expiresAt time.Time
}

func (e *ttlEntry[V]) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// TTL is a thread-safe cache whose entries expire after a fixed duration.
// A background goroutine sweeps expired entries; expiry is also enforced
// lazily on access, so a cache without the sweeper still behaves
// correctly.
type TTL[V any] struct {
	mu       sync.Mutex
	ttl      time.Duration
	items    map[string]*ttlEntry[V]
	stats    *Statistics
	evictFn  EvictCallback[V]
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewTTL creates a TTL cache with the given per-entry lifetime and starts
// its cleanup goroutine. Close must be called to stop the goroutine.
func NewTTL[V any](ttl time.Duration, evictFn EvictCallback[V]) *TTL[V] {
	if ttl <= 0 {
		ttl = time.Second
	}
	c := &TTL[V]{
		ttl:     ttl,
		items:   make(map[string]*ttlEntry[V]),
		stats:   NewStatistics(),
		evictFn: evictFn,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

func (c *TTL[V]) cleanupLoop() {
	defer close(c.done)

	interval := c.ttl / 2
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.sweep(now)
		}
	}
}

func (c *TTL[V]) sweep(now time.Time) {
	c.mu.Lock()
	var evicted []struct {
		key   string
		value V
	}
	for key, entry := range c.items {
		if entry.expired(now) {
			delete(c.items, key)
			c.stats.Eviction()
			if c.evictFn != nil {
				evicted = append(evicted, struct {
					key   string
					value V
				}{key, entry.value})
			}
		}
	}
	c.mu.Unlock()

	for _, e := range evicted {
		c.evictFn(e.key, e.value)
	}
}

// Get retrieves a value by key. Expired entries count as misses.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.items[key]
	if !exists || entry.expired(time.Now()) {
		if exists {
			delete(c.items, key)
			c.stats.Eviction()
		}
		c.stats.Miss()
		var zero V
		return zero, false
	}
	c.stats.Hit()
	return entry.value, true
}

// Set stores a value, resetting its lifetime.
func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Set()
	c.items[key] = &ttlEntry[V]{value: value, expiresAt: time.Now().Add(c.ttl)}
}

// SetIfAbsent stores the value only when the key has no live entry. An
// expired entry counts as absent.
func (c *TTL[V]) SetIfAbsent(key string, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if entry, exists := c.items[key]; exists && !entry.expired(now) {
		return false
	}
	c.stats.Set()
	c.items[key] = &ttlEntry[V]{value: value, expiresAt: now.Add(c.ttl)}
	return true
}

// Delete removes an entry by key.
func (c *TTL[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists {
		return false
	}
	delete(c.items, key)
	return true
}

// Size returns the number of live entries, excluding expired ones.
func (c *TTL[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	count := 0
	for _, entry := range c.items {
		if !entry.expired(now) {
			count++
		}
	}
	return count
}

// Clear removes all entries.
func (c *TTL[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*ttlEntry[V])
}

// Stats returns cache statistics.
func (c *TTL[V]) Stats() *Statistics {
	return c.stats
}

// Close stops the cleanup goroutine and waits for it to exit.
func (c *TTL[V]) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
	return nil
}
