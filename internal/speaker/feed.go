package speaker

import (
	"context"
	"sync"
)

// Feed is a channel-backed Source fed by the control surface: the injected
// agent posts mutation records, Push queues them, the tracker drains them.
// Pushes never block; when the tracker falls behind, mutations are dropped
// (this is advisory metadata, not pipeline input).
type Feed struct {
	mu     sync.Mutex
	closed bool
	ch     chan Mutation
}

// NewFeed creates a feed with a small buffer.
func NewFeed() *Feed {
	return &Feed{ch: make(chan Mutation, 64)}
}

// Push queues a mutation without blocking. Pushes after Close are dropped.
func (f *Feed) Push(mut Mutation) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	select {
	case f.ch <- mut:
	default:
	}
}

// Subscribe returns the mutation stream. The feed supports one consumer.
func (f *Feed) Subscribe(_ context.Context) <-chan Mutation {
	return f.ch
}

// Close ends the stream, stopping the consuming tracker.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.closed {
		f.closed = true
		close(f.ch)
	}
}
