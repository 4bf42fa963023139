// Package lockfree provides lock-free data structures for feeding work to
// pool workers
package lockfree

import (
	"runtime"
	"sync/atomic"
)

// MPMCQueue is a bounded lock-free multi-producer multi-consumer queue.
// Each cell carries a sequence number that tells producers and consumers
// whether it is free to write or ready to read, so neither side takes a lock.
type MPMCQueue[T any] struct {
	buffer   []cell[T]
	capacity uint64
	mask     uint64

	// Separate enqueue and dequeue indices on different cache lines
	enqueuePos atomic.Uint64
	_padding1  [7]uint64 //nolint:unused

	dequeuePos atomic.Uint64
	_padding2  [7]uint64 //nolint:unused
}

type cell[T any] struct {
	sequence atomic.Uint64
	value    T
}

// NewMPMCQueue creates a queue holding at least capacity items.
// Capacity will be rounded up to the next power of 2 for efficient masking.
func NewMPMCQueue[T any](capacity int) *MPMCQueue[T] {
	size := uint64(1)
	for size < uint64(capacity) {
		size <<= 1
	}

	q := &MPMCQueue[T]{
		buffer:   make([]cell[T], size),
		capacity: size,
		mask:     size - 1,
	}
	for i := uint64(0); i < size; i++ {
		q.buffer[i].sequence.Store(i)
	}
	return q
}

// Enqueue adds item to the queue. It returns false if the queue is full.
func (q *MPMCQueue[T]) Enqueue(item T) bool {
	for {
		pos := q.enqueuePos.Load()
		c := &q.buffer[pos&q.mask]
		diff := int64(c.sequence.Load()) - int64(pos)

		switch {
		case diff == 0:
			if q.enqueuePos.CompareAndSwap(pos, pos+1) {
				c.value = item
				// Publishing the sequence hands the cell to consumers.
				c.sequence.Store(pos + 1)
				return true
			}
		case diff < 0:
			return false
		}

		runtime.Gosched()
	}
}

// Dequeue removes the oldest item. It returns false if the queue is empty.
func (q *MPMCQueue[T]) Dequeue() (T, bool) {
	for {
		pos := q.dequeuePos.Load()
		c := &q.buffer[pos&q.mask]
		diff := int64(c.sequence.Load()) - int64(pos+1)

		switch {
		case diff == 0:
			if q.dequeuePos.CompareAndSwap(pos, pos+1) {
				item := c.value
				var zero T
				c.value = zero
				c.sequence.Store(pos + q.capacity)
				return item, true
			}
		case diff < 0:
			var zero T
			return zero, false
		}

		runtime.Gosched()
	}
}

// Len returns the number of queued items. It is an approximation while
// producers or consumers are active.
func (q *MPMCQueue[T]) Len() int {
	enq := q.enqueuePos.Load()
	deq := q.dequeuePos.Load()
	if enq < deq {
		return 0
	}
	return int(enq - deq)
}

// Cap returns the queue capacity after rounding.
func (q *MPMCQueue[T]) Cap() int {
	return int(q.capacity)
}

// AtomicCounter provides a lock-free counter for statistics and metrics collection
// with atomic operations for thread-safe updates.
type AtomicCounter struct {
	value atomic.Uint64
}

// NewAtomicCounter creates a new atomic counter initialized to zero.
func NewAtomicCounter() *AtomicCounter {
	return &AtomicCounter{}
}

// Increment atomically increments the counter by one.
func (c *AtomicCounter) Increment() {
	c.value.Add(1)
}

// Add atomically adds the given delta value to the counter.
func (c *AtomicCounter) Add(delta uint64) {
	c.value.Add(delta)
}

// Get returns the current value of the counter atomically.
func (c *AtomicCounter) Get() uint64 {
	return c.value.Load()
}

// Reset atomically resets the counter to zero.
func (c *AtomicCounter) Reset() {
	c.value.Store(0)
}
