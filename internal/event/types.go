// Package event defines event types for decoupling the attune engine's
// components. The cache, scheduler, window, and optimizer publish events
// here so the host UI and the metrics recorder can observe engine activity
// without direct dependencies.
package event

import "time"

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "task.state_changed", "cache.evicted")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Task Events
// -----------------------------------------------------------------------------

// TaskStateChangedEvent is emitted when a scheduled task changes status.
type TaskStateChangedEvent struct {
	baseEvent
	TaskID string // Identifier returned by Submit
	Status string // New status name
	Error  string // Error message for failed tasks, empty otherwise
}

// NewTaskStateChangedEvent creates a TaskStateChangedEvent.
func NewTaskStateChangedEvent(taskID, status, errMsg string) TaskStateChangedEvent {
	return TaskStateChangedEvent{
		baseEvent: newBaseEvent("task.state_changed"),
		TaskID:    taskID,
		Status:    status,
		Error:     errMsg,
	}
}

// TaskProgressEvent is emitted when running work reports progress.
type TaskProgressEvent struct {
	baseEvent
	TaskID  string // Identifier returned by Submit
	Percent int    // Completion percentage, 0..100
}

// NewTaskProgressEvent creates a TaskProgressEvent.
func NewTaskProgressEvent(taskID string, percent int) TaskProgressEvent {
	return TaskProgressEvent{
		baseEvent: newBaseEvent("task.progress"),
		TaskID:    taskID,
		Percent:   percent,
	}
}

// -----------------------------------------------------------------------------
// Cache Events
// -----------------------------------------------------------------------------

// CacheEvictedEvent is emitted when a cache entry is removed for any
// reason other than an explicit Remove call.
type CacheEvictedEvent struct {
	baseEvent
	Key    string // Evicted entry key
	Reason string // "capacity", "expired", "tag", or "dependency"
}

// NewCacheEvictedEvent creates a CacheEvictedEvent.
func NewCacheEvictedEvent(key, reason string) CacheEvictedEvent {
	return CacheEvictedEvent{
		baseEvent: newBaseEvent("cache.evicted"),
		Key:       key,
		Reason:    reason,
	}
}

// -----------------------------------------------------------------------------
// Window Events
// -----------------------------------------------------------------------------

// WindowRecomputedEvent is emitted when the windowed renderer recomputes
// its materialization range.
type WindowRecomputedEvent struct {
	baseEvent
	Start        int // First materialized index (inclusive)
	End          int // One past the last materialized index
	Materialized int // Items created during this recompute
	Destroyed    int // Items destroyed during this recompute
}

// NewWindowRecomputedEvent creates a WindowRecomputedEvent.
func NewWindowRecomputedEvent(start, end, materialized, destroyed int) WindowRecomputedEvent {
	return WindowRecomputedEvent{
		baseEvent:    newBaseEvent("window.recomputed"),
		Start:        start,
		End:          end,
		Materialized: materialized,
		Destroyed:    destroyed,
	}
}

// -----------------------------------------------------------------------------
// Optimizer Events
// -----------------------------------------------------------------------------

// RuleFiredEvent is emitted when an optimization rule's action runs.
type RuleFiredEvent struct {
	baseEvent
	Rule   string // Rule name
	Reason string // Human-readable explanation of why it fired
}

// NewRuleFiredEvent creates a RuleFiredEvent.
func NewRuleFiredEvent(rule, reason string) RuleFiredEvent {
	return RuleFiredEvent{
		baseEvent: newBaseEvent("optimizer.rule_fired"),
		Rule:      rule,
		Reason:    reason,
	}
}
