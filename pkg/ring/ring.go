// Package ring provides a fixed-capacity buffer that overwrites its oldest
// element on overflow.
//
// This is a leaf package with no internal dependencies. The trace recorder
// uses it to keep a bounded history of HTTP exchanges, but it is generic and
// carries no knowledge of what it stores.
package ring

import "sync"

// DefaultCapacity is used when a Buffer is created with a non-positive capacity.
const DefaultCapacity = 100

// Buffer is a fixed-capacity FIFO buffer. When full, Push discards the oldest
// element. It is safe for concurrent use; Snapshot returns a copy that is
// unaffected by later pushes.
type Buffer[T any] struct {
	mu    sync.RWMutex
	items []T
	start int // index of the oldest element
	count int
}

// New creates a Buffer with the given capacity.
// Capacities <= 0 fall back to DefaultCapacity.
func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Push appends item, silently evicting the oldest element if the buffer is full.
func (b *Buffer[T]) Push(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos := (b.start + b.count) % len(b.items)
	b.items[pos] = item
	if b.count < len(b.items) {
		b.count++
	} else {
		// Full: the slot we just wrote was the oldest element.
		b.start = (b.start + 1) % len(b.items)
	}
}

// Snapshot returns the current elements in insertion order, oldest first.
// The returned slice is a copy and never aliases internal storage.
func (b *Buffer[T]) Snapshot() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]T, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.items[(b.start+i)%len(b.items)]
	}
	return out
}

// Len returns the number of elements currently stored.
func (b *Buffer[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Cap returns the fixed capacity.
func (b *Buffer[T]) Cap() int {
	return len(b.items)
}
