package event

import (
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Handler is a function that handles an event.
type Handler func(Event)

// Bus is a simple synchronous pub-sub event bus.
// It allows components to communicate without direct dependencies.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]Handler // eventType -> token -> handler
	types  map[uint64]string             // token -> eventType, for unsubscribe
	nextID atomic.Uint64
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subs:  make(map[string]map[uint64]Handler),
		types: make(map[uint64]string),
	}
}

// Subscribe registers a handler for a specific event type.
// Returns a subscription token that can be used to unsubscribe.
func (b *Bus) Subscribe(eventType string, handler Handler) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	token := b.nextID.Add(1)
	if b.subs[eventType] == nil {
		b.subs[eventType] = make(map[uint64]Handler)
	}
	b.subs[eventType][token] = handler
	b.types[token] = eventType
	return token
}

// SubscribeAll registers a handler for all event types.
// The handler will be called for every published event.
// Returns a subscription token that can be used to unsubscribe.
func (b *Bus) SubscribeAll(handler Handler) uint64 {
	return b.Subscribe("*", handler)
}

// Unsubscribe removes a subscription by token.
// Returns true if the subscription was found and removed.
func (b *Bus) Unsubscribe(token uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	eventType, ok := b.types[token]
	if !ok {
		return false
	}
	delete(b.types, token)
	delete(b.subs[eventType], token)
	if len(b.subs[eventType]) == 0 {
		delete(b.subs, eventType)
	}
	return true
}

// Publish dispatches an event to all registered handlers.
// Specific handlers (subscribed to this event type) are called first,
// followed by wildcard handlers (subscribed via SubscribeAll).
// If a handler panics, the panic is logged, recovered, and publishing
// continues to remaining handlers.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	specific := collectHandlers(b.subs[event.EventType()])
	wildcard := collectHandlers(b.subs["*"])
	b.mu.RUnlock()

	for _, h := range specific {
		b.safeCall(h, event)
	}
	for _, h := range wildcard {
		b.safeCall(h, event)
	}
}

// collectHandlers copies handlers out of a subscription map so they can be
// invoked without holding the bus lock. Must be called with b.mu held.
func collectHandlers(m map[uint64]Handler) []Handler {
	if len(m) == 0 {
		return nil
	}
	handlers := make([]Handler, 0, len(m))
	for _, h := range m {
		handlers = append(handlers, h)
	}
	return handlers
}

// safeCall invokes a handler and recovers from any panics.
// Panics are logged with stack traces to aid debugging while ensuring
// one misbehaving handler cannot block event delivery to other handlers.
func (b *Bus) safeCall(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: event handler panicked for event %s: %v\n%s",
				event.EventType(), r, debug.Stack())
		}
	}()
	handler(event)
}

// Clear removes all subscriptions.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string]map[uint64]Handler)
	b.types = make(map[uint64]string)
}

// SubscriptionCount returns the total number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.types)
}
