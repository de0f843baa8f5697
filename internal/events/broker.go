// Package events is the single notification channel for queue and library
// facts. Consumers that used to want a global event target subscribe here
// instead; there is exactly one way to hear about a completion.
package events

import (
	"sync"
)

// Broker manages event distribution
type Broker struct {
	subscribers map[EventType][]chan Event
	mu          sync.RWMutex
	bufferSize  int
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return NewBrokerBuffered(16)
}

// NewBrokerBuffered creates a broker with the given per-subscriber buffer.
func NewBrokerBuffered(size int) *Broker {
	if size < 1 {
		size = 16
	}
	return &Broker{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  size,
	}
}

// Subscribe creates a subscription to specific event types.
// With no types given it subscribes to everything.
func (b *Broker) Subscribe(eventTypes ...EventType) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)

	if len(eventTypes) == 0 {
		eventTypes = []EventType{"*"} // wildcard
	}

	for _, eventType := range eventTypes {
		b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	}

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broker) Unsubscribe(ch <-chan Event, eventTypes ...EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(eventTypes) == 0 {
		eventTypes = make([]EventType, 0, len(b.subscribers))
		for eventType := range b.subscribers {
			eventTypes = append(eventTypes, eventType)
		}
	}

	var found chan Event
	for _, eventType := range eventTypes {
		if c := b.removeChannel(eventType, ch); c != nil {
			found = c
		}
	}
	if found != nil {
		close(found)
	}
}

// Publish sends an event to all subscribers.
// Delivery is non-blocking: a subscriber whose buffer is full misses the
// event. Queue correctness never depends on delivery; snapshots do.
func (b *Broker) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers[event.Type] {
		select {
		case ch <- event:
		default:
		}
	}

	for _, ch := range b.subscribers["*"] {
		select {
		case ch <- event:
		default:
		}
	}
}

// removeChannel removes a channel from a specific event type's subscriber
// list and returns it, or nil when the channel was not subscribed there.
// The caller owns closing it.
func (b *Broker) removeChannel(eventType EventType, target <-chan Event) chan Event {
	var found chan Event
	subscribers := b.subscribers[eventType]
	for i, ch := range subscribers {
		if ch == target {
			b.subscribers[eventType] = append(subscribers[:i], subscribers[i+1:]...)
			found = ch
			break
		}
	}

	if len(b.subscribers[eventType]) == 0 {
		delete(b.subscribers, eventType)
	}
	return found
}

// Clear removes all subscriptions
func (b *Broker) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	closed := make(map[chan Event]bool)
	for _, subscribers := range b.subscribers {
		for _, ch := range subscribers {
			if !closed[ch] {
				closed[ch] = true
				close(ch)
			}
		}
	}

	b.subscribers = make(map[EventType][]chan Event)
}
