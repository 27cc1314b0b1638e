// Package event provides a small synchronous event dispatcher. Editor
// services fire on a Bus so that screens can refresh after a change.
package event

import (
	"sync"
)

// Handler is a function that receives an event payload.
type Handler func(payload interface{})

// Bus holds listeners keyed by event name. The zero value is ready to use.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// New returns an empty Bus.
func New() *Bus { return &Bus{} }

// Listen registers a handler for the given event name.
func (b *Bus) Listen(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers == nil {
		b.handlers = map[string][]Handler{}
	}
	b.handlers[event] = append(b.handlers[event], handler)
}

func (b *Bus) snapshot(event string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hs := make([]Handler, len(b.handlers[event]))
	copy(hs, b.handlers[event])
	return hs
}

// Fire dispatches an event synchronously to all registered listeners, in
// registration order. A nil Bus drops the event.
func (b *Bus) Fire(event string, payload interface{}) {
	if b == nil {
		return
	}
	for _, h := range b.snapshot(event) {
		h(payload)
	}
}
