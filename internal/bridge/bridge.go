// Package bridge hands values from background goroutines to a single
// consumer such as the TUI event loop.
//
// A Bridge is one cell, not a queue: publishing overwrites whatever the
// consumer has not drained yet, so the consumer only ever sees the newest value.
package bridge

import (
	"context"
	"sync"
	"sync/atomic"
)

// Bridge is a single-slot handoff. The zero value is not usable; call New.
type Bridge[T any] struct {
	mu      sync.Mutex
	value   T
	pending bool

	ready chan struct{}

	published   atomic.Int64
	overwritten atomic.Int64
}

// New creates an empty bridge.
func New[T any]() *Bridge[T] {
	return &Bridge[T]{ready: make(chan struct{}, 1)}
}

// Publish stores v, replacing any undrained value. It never blocks.
func (b *Bridge[T]) Publish(v T) {
	b.mu.Lock()
	if b.pending {
		b.overwritten.Add(1)
	}
	b.value = v
	b.pending = true
	b.mu.Unlock()

	b.published.Add(1)
	select {
	case b.ready <- struct{}{}:
	default:
	}
}

// Drain takes the pending value. ok is false when nothing was published
// since the last drain.
func (b *Bridge[T]) Drain() (v T, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.pending {
		return v, false
	}
	v = b.value
	var zero T
	b.value = zero
	b.pending = false
	return v, true
}

// Pending reports whether a value is waiting to be drained.
func (b *Bridge[T]) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

// Ready is signalled after a Publish. A signal may be stale (the value was
// already drained), so always follow it with Drain.
func (b *Bridge[T]) Ready() <-chan struct{} {
	return b.ready
}

// Wait blocks until a value is available or ctx is done.
func (b *Bridge[T]) Wait(ctx context.Context) (T, bool) {
	for {
		if v, ok := b.Drain(); ok {
			return v, true
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, false
		case <-b.ready:
		}
	}
}

// Published returns how many values were ever published.
func (b *Bridge[T]) Published() int64 {
	return b.published.Load()
}

// Overwritten returns how many published values were replaced before the
// consumer drained them.
func (b *Bridge[T]) Overwritten() int64 {
	return b.overwritten.Load()
}
