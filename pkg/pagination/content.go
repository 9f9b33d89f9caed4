package pagination

import "sync"

// Content is the shared, lock-guarded item list a UI renders from.
// Share the pointer to share the list. It only ever grows.
type Content[T any] struct {
	mu    sync.RWMutex
	items []T
}

// NewContent creates a content container holding items.
func NewContent[T any](items ...T) *Content[T] {
	c := &Content[T]{}
	if len(items) > 0 {
		c.items = append(make([]T, 0, len(items)), items...)
	}
	return c
}

// Len returns the number of items loaded so far.
func (c *Content[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Items returns a snapshot copy of the loaded items.
func (c *Content[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// At returns the item at index i.
func (c *Content[T]) At(i int) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.items) {
		var zero T
		return zero, false
	}
	return c.items[i], true
}

// Append adds items to the end of the list.
func (c *Content[T]) Append(items ...T) {
	if len(items) == 0 {
		return
	}
	c.mu.Lock()
	c.items = append(c.items, items...)
	c.mu.Unlock()
}

// Range calls fn for each item in order while holding the read lock.
// Iteration stops when fn returns false. fn must not call Append.
func (c *Content[T]) Range(fn func(i int, item T) bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i, item := range c.items {
		if !fn(i, item) {
			return
		}
	}
}
