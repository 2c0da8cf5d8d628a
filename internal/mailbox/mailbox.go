// Package mailbox provides a single-slot handoff between a producer and
// one consumer goroutine.
package mailbox

import (
	"context"
	"sync"
)

// Mailbox is a single-slot buffer. It is NOT a queue: it holds at most one
// pending item, and PutWith merges into it.
type Mailbox[T any] struct {
	mu   sync.Mutex
	cond *sync.Cond
	item *T
}

// New creates an empty mailbox.
func New[T any]() *Mailbox[T] {
	m := &Mailbox[T]{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// PutWith stores merge(pending, v) when an item is pending, v otherwise,
// and reports whether a pending item was there. A nil merge keeps the
// latest item. It never blocks.
func (m *Mailbox[T]) PutWith(v T, merge func(pending, v T) T) (merged bool) {
	m.mu.Lock()
	merged = m.item != nil
	if merged && merge != nil {
		v = merge(*m.item, v)
	}
	m.item = &v
	m.mu.Unlock()
	m.cond.Signal()
	return merged
}

// TakeContext blocks until an item is available, then returns it and
// clears the slot. It gives up when ctx is done.
func (m *Mailbox[T]) TakeContext(ctx context.Context) (T, bool) {
	stop := context.AfterFunc(ctx, func() {
		m.mu.Lock()
		m.cond.Broadcast()
		m.mu.Unlock()
	})
	defer stop()

	m.mu.Lock()
	defer m.mu.Unlock()

	for m.item == nil {
		if ctx.Err() != nil {
			var zero T
			return zero, false
		}
		m.cond.Wait()
	}

	v := *m.item
	m.item = nil
	return v, true
}

// Pending reports whether an item is waiting.
func (m *Mailbox[T]) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.item != nil
}
