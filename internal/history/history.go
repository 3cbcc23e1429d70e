// Package history provides the fixed-capacity append logs backing the
// session's transcript, code snapshot, and feedback views.
package history

import "sync"

// Order controls where new entries are inserted and which end is evicted.
type Order int

const (
	// OldestOut appends at the tail and evicts the oldest entry once the
	// buffer is full, keeping entries in chronological order.
	OldestOut Order = iota
	// NewestFirst inserts at the head and drops everything beyond the
	// newest N entries.
	NewestFirst
)

// Buffer is a bounded history log. Entries are never mutated after
// insertion; readers get a copied snapshot.
type Buffer[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	order    Order
}

// NewAppend returns a chronological buffer that evicts its oldest entry
// beyond capacity.
func NewAppend[T any](capacity int) *Buffer[T] {
	return &Buffer[T]{capacity: capacity, order: OldestOut}
}

// NewPrepend returns a newest-first buffer that drops its tail beyond
// capacity.
func NewPrepend[T any](capacity int) *Buffer[T] {
	return &Buffer[T]{capacity: capacity, order: NewestFirst}
}

// Push inserts an entry, evicting per the buffer's order if over capacity.
func (b *Buffer[T]) Push(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.order {
	case NewestFirst:
		b.items = append(b.items, item)
		copy(b.items[1:], b.items)
		b.items[0] = item
		if len(b.items) > b.capacity {
			b.items = b.items[:b.capacity]
		}
	default:
		b.items = append(b.items, item)
		if len(b.items) > b.capacity {
			b.items = append(b.items[:0], b.items[len(b.items)-b.capacity:]...)
		}
	}
}

// All returns a copy of the buffer contents in storage order.
func (b *Buffer[T]) All() []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := make([]T, len(b.items))
	copy(snapshot, b.items)
	return snapshot
}

// Len returns the current number of entries.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Clear empties the buffer. Only an explicit session reset calls this.
func (b *Buffer[T]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = nil
}
