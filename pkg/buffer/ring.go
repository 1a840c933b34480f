package buffer

import (
	"sync"

	"github.com/c360/alarmstreams/errors"
)

// ring is the circular-array Buffer implementation.
type ring[T any] struct {
	mu       sync.RWMutex
	items    []T
	capacity int
	size     int
	head     int // next write position
	tail     int // next read position
	policy   OverflowPolicy
	onDrop   DropCallback[T]
	stats    *Statistics

	notFull *sync.Cond
	closed  bool
}

// NewRing creates a ring buffer with the given capacity and overflow
// policy. onDrop may be nil.
func NewRing[T any](capacity int, policy OverflowPolicy, onDrop DropCallback[T]) Buffer[T] {
	if capacity <= 0 {
		capacity = 1
	}
	r := &ring[T]{
		items:    make([]T, capacity),
		capacity: capacity,
		policy:   policy,
		onDrop:   onDrop,
		stats:    NewStatistics(),
	}
	r.notFull = sync.NewCond(&r.mu)
	return r
}

func (r *ring[T]) Write(item T) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.WrapInvalid(errors.ErrShuttingDown, "Buffer", "Write", "write to closed buffer")
	}

	if r.size == r.capacity {
		switch r.policy {
		case DropOldest:
			dropped := r.items[r.tail]
			r.tail = (r.tail + 1) % r.capacity
			r.size--
			r.stats.Overflow()
			r.stats.Drop()
			if r.onDrop != nil {
				// outside the lock, callbacks may re-enter the buffer
				defer r.onDrop(dropped)
			}

		case DropNewest:
			r.stats.Overflow()
			r.stats.Drop()
			if r.onDrop != nil {
				defer r.onDrop(item)
			}
			return nil

		case Block:
			for r.size == r.capacity && !r.closed {
				r.notFull.Wait()
			}
			if r.closed {
				return errors.WrapInvalid(errors.ErrShuttingDown, "Buffer", "Write", "buffer closed while blocked")
			}
		}
	}

	r.items[r.head] = item
	r.head = (r.head + 1) % r.capacity
	r.size++
	r.stats.Write()
	r.stats.UpdateSize(int64(r.size))
	return nil
}

func (r *ring[T]) Read() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	if r.size == 0 {
		return zero, false
	}

	item := r.items[r.tail]
	r.items[r.tail] = zero
	r.tail = (r.tail + 1) % r.capacity
	r.size--
	r.stats.Read()
	r.stats.UpdateSize(int64(r.size))
	r.notFull.Signal()
	return item, true
}

func (r *ring[T]) ReadBatch(max int) []T {
	if max <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == 0 {
		return nil
	}

	count := max
	if count > r.size {
		count = r.size
	}

	var zero T
	result := make([]T, count)
	for i := range result {
		result[i] = r.items[r.tail]
		r.items[r.tail] = zero
		r.tail = (r.tail + 1) % r.capacity
		r.size--
		r.stats.Read()
	}
	r.stats.UpdateSize(int64(r.size))
	r.notFull.Broadcast()
	return result
}

func (r *ring[T]) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

func (r *ring[T]) Capacity() int {
	return r.capacity
}

func (r *ring[T]) Stats() *Statistics {
	return r.stats
}

func (r *ring[T]) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	r.notFull.Broadcast()
	return nil
}
