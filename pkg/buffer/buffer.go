// Package buffer provides a bounded, thread-safe ring buffer with
// configurable overflow behavior. Stream fan-out uses it to decouple a
// shared input from subscribers that drain at different speeds.
package buffer

import (
	"sync/atomic"
	"time"
)

// OverflowPolicy controls what happens when a write hits a full buffer.
type OverflowPolicy int

const (
	// DropOldest discards the oldest buffered item to make room.
	DropOldest OverflowPolicy = iota
	// DropNewest discards the item being written.
	DropNewest
	// Block waits until a reader frees space.
	Block
)

func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "drop-oldest"
	case DropNewest:
		return "drop-newest"
	case Block:
		return "block"
	default:
		return "unknown"
	}
}

// DropCallback is invoked with each item discarded by an overflow policy.
type DropCallback[T any] func(item T)

// Buffer is a bounded FIFO queue safe for concurrent use.
type Buffer[T any] interface {
	// Write enqueues an item, applying the overflow policy when full.
	Write(item T) error

	// Read dequeues one item, reporting false when the buffer is empty.
	Read() (T, bool)

	// ReadBatch dequeues up to max items.
	ReadBatch(max int) []T

	// Size returns the number of buffered items.
	Size() int

	// Capacity returns the maximum number of items.
	Capacity() int

	// Stats returns buffer statistics.
	Stats() *Statistics

	// Close rejects further writes and wakes blocked writers.
	Close() error
}

// Statistics tracks buffer activity. All methods are safe for concurrent
// use.
type Statistics struct {
	writes    atomic.Int64
	reads     atomic.Int64
	drops     atomic.Int64
	overflows atomic.Int64
	size      atomic.Int64
	startTime time.Time
}

// NewStatistics creates a statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{startTime: time.Now()}
}

// Write records a successful enqueue.
func (s *Statistics) Write() { s.writes.Add(1) }

// Read records a successful dequeue.
func (s *Statistics) Read() { s.reads.Add(1) }

// Drop records a discarded item.
func (s *Statistics) Drop() { s.drops.Add(1) }

// Overflow records a write that found the buffer full.
func (s *Statistics) Overflow() { s.overflows.Add(1) }

// UpdateSize records the current buffer depth.
func (s *Statistics) UpdateSize(size int64) { s.size.Store(size) }

// Writes returns the number of enqueued items.
func (s *Statistics) Writes() int64 { return s.writes.Load() }

// Reads returns the number of dequeued items.
func (s *Statistics) Reads() int64 { return s.reads.Load() }

// Drops returns the number of discarded items.
func (s *Statistics) Drops() int64 { return s.drops.Load() }

// Overflows returns the number of writes that found the buffer full.
func (s *Statistics) Overflows() int64 { return s.overflows.Load() }

// CurrentSize returns the last recorded buffer depth.
func (s *Statistics) CurrentSize() int64 { return s.size.Load() }

// Uptime returns how long the buffer has existed.
func (s *Statistics) Uptime() time.Duration { return time.Since(s.startTime) }
