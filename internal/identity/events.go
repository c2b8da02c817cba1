package identity

import "sync"

// eventBufferSize is the per-subscriber event buffer. A subscriber that
// falls this far behind misses events rather than blocking the provider.
const eventBufferSize = 16

// EventHub broadcasts session-change events to subscribers.
//
// Subscribers receive events on a buffered channel; delivery is best-effort
// and never blocks the emitting operation. All methods are safe for
// concurrent use.
type EventHub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewEventHub creates an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{
		subs: make(map[chan Event]struct{}),
	}
}

// Subscribe registers a new subscriber. The cancel func removes the
// subscription and closes the channel; calling it more than once is safe.
func (h *EventHub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, eventBufferSize)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}

	return ch, cancel
}

// Broadcast delivers an event to every subscriber without blocking.
func (h *EventHub) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber buffer full; drop rather than stall the exchange.
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (h *EventHub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
