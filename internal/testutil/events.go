package testutil

import (
	"sync"

	"github.com/starford/excalibur/internal/sse"
)

// Events records published events.
type Events struct {
	mu     sync.Mutex
	events []sse.Event
}

// Publish implements the publisher interfaces.
func (e *Events) Publish(event sse.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

// All returns the recorded events in publish order.
func (e *Events) All() []sse.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sse.Event(nil), e.events...)
}

// OfType returns the recorded events with the given type.
func (e *Events) OfType(typ string) []sse.Event {
	var out []sse.Event
	for _, ev := range e.All() {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}
