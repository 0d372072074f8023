package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// Sentinel errors returned by scheduler operations.
var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrTimeout         = errors.New("task timed out")
	ErrCancelled       = errors.New("task cancelled")
	ErrWaitTimeout     = errors.New("wait timed out")
	ErrSchedulerClosed = errors.New("scheduler closed")
)

// Status represents the current state of a scheduled task.
type Status string

const (
	// StatusPending indicates the task is queued and waiting for a worker.
	StatusPending Status = "pending"

	// StatusRunning indicates the task is actively executing.
	StatusRunning Status = "running"

	// StatusCompleted indicates the task finished successfully.
	StatusCompleted Status = "completed"

	// StatusFailed indicates the task's work returned an error, panicked,
	// or timed out.
	StatusFailed Status = "failed"

	// StatusCancelled indicates the task was cancelled before or during
	// execution.
	StatusCancelled Status = "cancelled"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if this status represents a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Priority orders pending tasks: higher priorities are dispatched first.
type Priority int

const (
	PriorityLow    Priority = 0
	PriorityNormal Priority = 1
	PriorityHigh   Priority = 2
)

// String returns a human-readable priority name.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ProgressFunc reports work progress as a percentage in [0, 100].
type ProgressFunc func(percent int)

// Work is a unit of work executed on a pool worker. It should observe
// ctx.Done() at safe points and return ctx.Err() when cancelled.
type Work func(ctx context.Context, progress ProgressFunc) (any, error)

// task is the scheduler's internal record for one submission. Fields other
// than progress are guarded by the scheduler's mutex.
type task struct {
	id       string
	identity string
	priority Priority
	seq      uint64 // submission order, breaks priority ties
	work     Work
	timeout  time.Duration

	status      Status
	progress    atomic.Int64
	result      any
	err         error
	submittedAt time.Time
	startedAt   time.Time
	completedAt time.Time

	cancel context.CancelFunc // set when running

	onProgress func(percent int)
	onComplete func(result any)
	onError    func(err error)
}

// TaskInfo is a point-in-time copy of a task's observable state.
type TaskInfo struct {
	ID          string        `json:"id"`
	Identity    string        `json:"identity,omitempty"`
	Priority    Priority      `json:"priority"`
	Status      Status        `json:"status"`
	Progress    int           `json:"progress"`
	SubmittedAt time.Time     `json:"submitted_at"`
	StartedAt   time.Time     `json:"started_at,omitzero"`
	CompletedAt time.Time     `json:"completed_at,omitzero"`
	Duration    time.Duration `json:"duration_ns,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// info builds a TaskInfo snapshot. Caller must hold the scheduler's mutex.
func (t *task) info() TaskInfo {
	ti := TaskInfo{
		ID:          t.id,
		Identity:    t.identity,
		Priority:    t.priority,
		Status:      t.status,
		Progress:    int(t.progress.Load()),
		SubmittedAt: t.submittedAt,
		StartedAt:   t.startedAt,
		CompletedAt: t.completedAt,
	}
	if !t.startedAt.IsZero() && !t.completedAt.IsZero() {
		ti.Duration = t.completedAt.Sub(t.startedAt)
	}
	if t.err != nil {
		ti.Error = t.err.Error()
	}
	return ti
}

// SubmitOption configures a task at submission time.
type SubmitOption func(*task)

// WithPriority sets the task's dispatch priority. Default is PriorityNormal.
func WithPriority(p Priority) SubmitOption {
	return func(t *task) { t.priority = p }
}

// WithTimeout bounds the task's execution. On expiry the task is marked
// failed with ErrTimeout and its context is cancelled; the worker goroutine
// is abandoned rather than interrupted.
func WithTimeout(d time.Duration) SubmitOption {
	return func(t *task) { t.timeout = d }
}

// WithIdentity sets the task's deduplication key. While a task with the same
// identity is non-terminal, submitting again returns the existing task's ID
// instead of scheduling a second execution. Identity equality is exact string
// equality; callers are responsible for encoding the work's arguments into
// the key.
func WithIdentity(key string) SubmitOption {
	return func(t *task) { t.identity = key }
}

// WithOnProgress registers a progress callback, delivered via the dispatcher.
func WithOnProgress(fn func(percent int)) SubmitOption {
	return func(t *task) { t.onProgress = fn }
}

// WithOnComplete registers a completion callback, delivered via the
// dispatcher with the task's result.
func WithOnComplete(fn func(result any)) SubmitOption {
	return func(t *task) { t.onComplete = fn }
}

// WithOnError registers an error callback, delivered via the dispatcher when
// the task fails.
func WithOnError(fn func(err error)) SubmitOption {
	return func(t *task) { t.onError = fn }
}
