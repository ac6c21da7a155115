package outcomelog

import (
	"sync"
	"sync/atomic"
)

// Ring is a fixed-size rolling buffer. Once full, each Push overwrites the oldest item.
// Safe for concurrent use.
type Ring[T any] struct {
	mu    sync.Mutex
	items []T
	idx   int
	count int

	pushed int64
}

// New returns a ring holding at most size items. A non-positive size falls back to 200.
func New[T any](size int) *Ring[T] {
	if size <= 0 {
		size = 200
	}
	return &Ring[T]{items: make([]T, size)}
}

func (r *Ring[T]) Push(item T) {
	atomic.AddInt64(&r.pushed, 1)

	r.mu.Lock()
	r.items[r.idx] = item
	r.idx = (r.idx + 1) % len(r.items)
	if r.count < len(r.items) {
		r.count++
	}
	r.mu.Unlock()
}

// Items returns a copy of the buffered items, oldest first.
func (r *Ring[T]) Items() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.itemsLocked(nil)
}

// Filter returns the buffered items, oldest first, for which keep returns true.
func (r *Ring[T]) Filter(keep func(T) bool) []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.itemsLocked(keep)
}

// Retain drops every buffered item for which keep returns false, preserving order.
func (r *Ring[T]) Retain(keep func(T) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.itemsLocked(keep)
	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	copy(r.items, kept)
	r.count = len(kept)
	r.idx = r.count % len(r.items)
}

func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func (r *Ring[T]) Cap() int {
	return len(r.items)
}

// Pushed is the number of items ever pushed, including overwritten ones.
func (r *Ring[T]) Pushed() int64 {
	return atomic.LoadInt64(&r.pushed)
}

func (r *Ring[T]) itemsLocked(keep func(T) bool) []T {
	res := make([]T, 0, r.count)
	start := (r.idx - r.count) % len(r.items)
	if start < 0 {
		start += len(r.items)
	}
	for i := 0; i < r.count; i++ {
		item := r.items[(start+i)%len(r.items)]
		if keep != nil && !keep(item) {
			continue
		}
		res = append(res, item)
	}
	return res
}
