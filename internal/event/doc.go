// Package event provides a pub-sub event bus and a tick-drained callback
// queue for decoupled communication inside the attune engine.
//
// The engine's components (cache, scheduler, window, optimizer) publish
// events without knowing who will receive them; the host UI and the metrics
// recorder subscribe without knowing who produces. Worker goroutines never
// call back into the host directly; they enqueue deliveries on the
// [Dispatcher], which the host drains on its own loop.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//   - [Dispatcher]: Bounded FIFO queue of callbacks drained on the host tick
//
// # Event Categories
//
// Task events:
//   - [TaskStateChangedEvent]: Emitted on every task status transition
//   - [TaskProgressEvent]: Emitted when running work reports progress
//
// Cache events:
//   - [CacheEvictedEvent]: Emitted on capacity eviction, expiry, or invalidation
//
// Window events:
//   - [WindowRecomputedEvent]: Emitted when the materialization range changes
//
// Optimizer events:
//   - [RuleFiredEvent]: Emitted when an optimization rule's action runs
//
// # Thread Safety
//
// [Bus] and [Dispatcher] are safe for concurrent use. Bus handlers are called
// synchronously on the publishing goroutine; anything that must run on the
// host loop belongs on the Dispatcher instead. Handler and callback panics
// are recovered and logged so one misbehaving consumer cannot wedge the
// engine.
package event
