// Package syncx holds small generic wrappers for state shared between the
// session engine, its watchdog, and the control surface.
package syncx

import "sync"

// RWGuard is a value readable from many goroutines and replaced as a whole.
// T should be a value type or treated as immutable once stored.
type RWGuard[T any] struct {
	mu sync.RWMutex
	v  T
}

// NewGuard creates a guard holding initial.
func NewGuard[T any](initial T) *RWGuard[T] {
	return &RWGuard[T]{v: initial}
}

// Get returns the current value.
func (g *RWGuard[T]) Get() T {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.v
}

// Set replaces the value.
func (g *RWGuard[T]) Set(v T) {
	g.mu.Lock()
	g.v = v
	g.mu.Unlock()
}

// Swap replaces the value and returns the previous one.
func (g *RWGuard[T]) Swap(v T) (old T) {
	g.mu.Lock()
	defer g.mu.Unlock()
	old, g.v = g.v, v
	return old
}

// Modify replaces the value with fn(current) under the write lock and returns
// the new value. fn must not call back into g.
func (g *RWGuard[T]) Modify(fn func(T) T) T {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.v = fn(g.v)
	return g.v
}
