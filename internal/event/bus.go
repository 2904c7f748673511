package event

import (
	"context"
	"sync"
)

// Listener receives a published event. Listeners run synchronously on the
// publisher's goroutine and may mutate the event payload.
type Listener func(ctx context.Context, evt Event)

// Bus is a synchronous in-process dispatcher. Listeners registered for a type
// run in registration order, followed by catch-all listeners. The zero value
// is not usable; call NewBus.
type Bus struct {
	mu        sync.RWMutex
	listeners map[Type][]Listener
	all       []Listener
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[Type][]Listener)}
}

// Subscribe registers a listener for a single event type.
func (b *Bus) Subscribe(t Type, l Listener) {
	if l == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[t] = append(b.listeners[t], l)
}

// SubscribeAll registers a listener for every event type.
func (b *Bus) SubscribeAll(l Listener) {
	if l == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, l)
}

// Publish delivers evt to all matching listeners in order and reports whether
// a listener cancelled it. Events that are not Cancelable always return
// false.
func (b *Bus) Publish(ctx context.Context, evt Event) bool {
	if evt == nil {
		return false
	}

	b.mu.RLock()
	typed := make([]Listener, len(b.listeners[evt.EventType()]))
	copy(typed, b.listeners[evt.EventType()])
	all := make([]Listener, len(b.all))
	copy(all, b.all)
	b.mu.RUnlock()

	for _, l := range typed {
		l(ctx, evt)
	}
	for _, l := range all {
		l(ctx, evt)
	}

	if c, ok := evt.(Cancelable); ok {
		return c.Cancelled()
	}
	return false
}

var _ Dispatcher = (*Bus)(nil)
