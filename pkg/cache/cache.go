// Package cache provides generic, thread-safe cache implementations.
//
// Two eviction policies are offered:
//   - LRU: least-recently-used eviction bounded by entry count, used for
//     compiled regex patterns in the expression engine
//   - TTL: time-based expiry, used for the duplicate-alarm suppression
//     window
//
// Statistics are always collected for observability.
package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Cache is the contract all cache implementations satisfy. Caches are
// parameterized by value type V and keyed by string.
type Cache[V any] interface {
	// Get retrieves a value by key.
	Get(key string) (V, bool)

	// Set stores a value with the given key, replacing any existing entry.
	Set(key string, value V)

	// SetIfAbsent stores the value only when the key has no live entry.
	// It reports whether the value was stored. This is the atomic
	// check-and-claim primitive duplicate suppression relies on.
	SetIfAbsent(key string, value V) bool

	// Delete removes an entry by key, reporting whether it existed.
	Delete(key string) bool

	// Size returns the current number of live entries.
	Size() int

	// Clear removes all entries.
	Clear()

	// Stats returns cache statistics.
	Stats() *Statistics

	// Close releases any resources such as background goroutines.
	Close() error
}

// EvictCallback is called when an entry is evicted from the cache.
type EvictCallback[V any] func(key string, value V)

// Statistics tracks cache performance counters. All methods are safe for
// concurrent use.
type Statistics struct {
	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	evictions atomic.Int64

	mu        sync.RWMutex
	startTime time.Time
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{startTime: time.Now()}
}

// Hit records a cache hit.
func (s *Statistics) Hit() { s.hits.Add(1) }

// Miss records a cache miss.
func (s *Statistics) Miss() { s.misses.Add(1) }

// Set records a store operation.
func (s *Statistics) Set() { s.sets.Add(1) }

// Eviction records an eviction.
func (s *Statistics) Eviction() { s.evictions.Add(1) }

// Hits returns the number of cache hits.
func (s *Statistics) Hits() int64 { return s.hits.Load() }

// Misses returns the number of cache misses.
func (s *Statistics) Misses() int64 { return s.misses.Load() }

// Sets returns the number of store operations.
func (s *Statistics) Sets() int64 { return s.sets.Load() }

// Evictions returns the number of evictions.
func (s *Statistics) Evictions() int64 { return s.evictions.Load() }

// HitRate returns the fraction of lookups that hit, 0 when no lookups.
func (s *Statistics) HitRate() float64 {
	hits := s.hits.Load()
	total := hits + s.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Uptime returns how long the cache has existed.
func (s *Statistics) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startTime)
}
