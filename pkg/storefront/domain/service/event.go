package service

import (
	"context"
	"sync"
)

type Event interface {
	Type() string
}

type EventDispatcher interface {
	Dispatch(event Event) error
}

type eventBufferKey struct{}

// EventBuffer holds events raised inside a unit of work. The owner of the
// unit publishes them once it has committed and drops them otherwise.
type EventBuffer struct {
	mu     sync.Mutex
	events []Event
}

// WithEventBuffer returns a context whose domain events are collected into
// the returned buffer instead of being dispatched.
func WithEventBuffer(ctx context.Context) (context.Context, *EventBuffer) {
	buf := &EventBuffer{}
	return context.WithValue(ctx, eventBufferKey{}, buf), buf
}

func (b *EventBuffer) add(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

// Reset drops everything collected so far, e.g. before a retried attempt.
func (b *EventBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}

// Drain returns the collected events in the order they were raised and
// empties the buffer.
func (b *EventBuffer) Drain() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.events
	b.events = nil
	return events
}

func dispatch(ctx context.Context, dispatcher EventDispatcher, e Event) {
	if buf, ok := ctx.Value(eventBufferKey{}).(*EventBuffer); ok {
		buf.add(e)
		return
	}
	_ = dispatcher.Dispatch(e)
}
