// Package buffer provides a fixed-capacity, concurrency-safe history
// buffer with overwrite-oldest eviction.
package buffer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Record is the constraint for buffered items. Both readings and alerts
// satisfy it.
type Record interface {
	RecordID() int64
	RecordTime() time.Time
}

// RingBuffer is a thread-safe circular buffer over any timestamped record.
// It uses a simple mutex-based approach for correctness. The lock is held
// only long enough to copy data out; no internal storage or indices ever
// escape to callers.
type RingBuffer[T Record] struct {
	mu       sync.RWMutex
	data     []T
	head     int64 // Next write position
	tail     int64 // Oldest data position
	count    int64 // Current number of elements
	capacity int64

	// Statistics
	addCount   atomic.Int64
	evictCount atomic.Int64
}

// New creates a new RingBuffer with the given capacity.
func New[T Record](capacity int) *RingBuffer[T] {
	if capacity <= 0 {
		capacity = 1024
	}
	return &RingBuffer[T]{
		data:     make([]T, capacity),
		capacity: int64(capacity),
	}
}

// Add inserts an item at the logical head. If the buffer is full, the
// oldest element is evicted first. Add never fails.
func (rb *RingBuffer[T]) Add(item T) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.count >= rb.capacity {
		// Overwrite oldest
		rb.tail++
		rb.count--
		rb.evictCount.Add(1)
	}

	idx := rb.head % rb.capacity
	rb.data[idx] = item
	rb.head++
	rb.count++
	rb.addCount.Add(1)
}

// Count returns the current number of elements in the buffer.
func (rb *RingBuffer[T]) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return int(rb.count)
}

// Cap returns the capacity of the buffer.
func (rb *RingBuffer[T]) Cap() int {
	return int(rb.capacity)
}

// GetAll returns a snapshot copy of all elements, oldest to newest.
func (rb *RingBuffer[T]) GetAll() []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.count == 0 {
		return nil
	}

	result := make([]T, rb.count)
	for i := int64(0); i < rb.count; i++ {
		result[i] = rb.data[(rb.tail+i)%rb.capacity]
	}
	return result
}

// GetLatest returns a snapshot copy of the last min(n, Count()) elements,
// oldest to newest within that subset.
func (rb *RingBuffer[T]) GetLatest(n int) []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.count == 0 || n <= 0 {
		return nil
	}

	take := int64(n)
	if take > rb.count {
		take = rb.count
	}

	result := make([]T, take)
	start := rb.head - take
	for i := int64(0); i < take; i++ {
		idx := (start + i) % rb.capacity
		if idx < 0 {
			idx += rb.capacity
		}
		result[i] = rb.data[idx]
	}
	return result
}

// GetRange returns a snapshot copy of all elements whose timestamp lies
// in [from, to], order preserved.
func (rb *RingBuffer[T]) GetRange(from, to time.Time) []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.count == 0 {
		return nil
	}

	var result []T
	for i := int64(0); i < rb.count; i++ {
		item := rb.data[(rb.tail+i)%rb.capacity]
		ts := item.RecordTime()
		if !ts.Before(from) && !ts.After(to) {
			result = append(result, item)
		}
	}
	return result
}

// GetAfter returns a snapshot copy of all elements whose ID is strictly
// greater than id, oldest to newest. The persistence flusher uses this to
// advance its high-water mark.
func (rb *RingBuffer[T]) GetAfter(id int64) []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.count == 0 {
		return nil
	}

	var result []T
	for i := int64(0); i < rb.count; i++ {
		item := rb.data[(rb.tail+i)%rb.capacity]
		if item.RecordID() > id {
			result = append(result, item)
		}
	}
	return result
}

// Stats returns buffer statistics.
func (rb *RingBuffer[T]) Stats() Stats {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	return Stats{
		Capacity:   int(rb.capacity),
		Count:      int(rb.count),
		UsageRatio: float64(rb.count) / float64(rb.capacity),
		AddCount:   rb.addCount.Load(),
		EvictCount: rb.evictCount.Load(),
	}
}

// Stats holds buffer statistics.
type Stats struct {
	Capacity   int
	Count      int
	UsageRatio float64
	AddCount   int64
	EvictCount int64
}
