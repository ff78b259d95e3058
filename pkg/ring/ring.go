// Package ring provides a fixed-capacity wait-free queue for a single
// producer and a single consumer.
//
// Push and Pop never block and never allocate, which lets the audio
// callback hand data to ordinary worker goroutines without taking a
// lock. There is no wake mechanism: a consumer that finds the queue
// empty is expected to sleep briefly and poll again.
package ring

import "sync/atomic"

// Buffer is a single-producer single-consumer queue with a fixed
// capacity. Push must only be called from one goroutine and Pop from
// one (possibly different) goroutine.
type Buffer[T any] struct {
	buf  []T
	mask uint64

	// head and tail increase monotonically; the element count is
	// tail-head. tail is written by the producer with release
	// semantics and observed by the consumer with acquire semantics,
	// which also publishes the element written before the bump.
	head      atomic.Uint64
	tail      atomic.Uint64
	abandoned atomic.Bool
}

// New creates a buffer holding up to capacity elements. Capacity is
// rounded up to the next power of two.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	n := 1
	for n < capacity {
		n <<= 1
	}
	return &Buffer[T]{
		buf:  make([]T, n),
		mask: uint64(n - 1),
	}
}

// Cap returns the fixed capacity of the buffer.
func (b *Buffer[T]) Cap() int {
	return len(b.buf)
}

// Push appends v if there is room, returning false when the buffer is
// full. Producer side only.
func (b *Buffer[T]) Push(v T) bool {
	tail := b.tail.Load()
	if tail-b.head.Load() == uint64(len(b.buf)) {
		return false
	}
	b.buf[tail&b.mask] = v
	b.tail.Store(tail + 1)
	return true
}

// Pop removes and returns the oldest element, reporting false when the
// buffer is empty. Consumer side only.
func (b *Buffer[T]) Pop() (T, bool) {
	head := b.head.Load()
	if head == b.tail.Load() {
		var zero T
		return zero, false
	}
	v := b.buf[head&b.mask]
	b.head.Store(head + 1)
	return v, true
}

// Abandon signals that the producer is gone and no further elements
// will arrive. Elements already queued remain poppable.
func (b *Buffer[T]) Abandon() {
	b.abandoned.Store(true)
}

// Abandoned reports whether the producer has abandoned the buffer.
func (b *Buffer[T]) Abandoned() bool {
	return b.abandoned.Load()
}
