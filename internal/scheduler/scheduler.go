package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/attunedev/attune/internal/event"
	"github.com/attunedev/attune/internal/logging"
)

// Defaults applied when Config leaves a field zero.
const (
	defaultWorkers            = 4
	defaultWaitPollInterval   = 10 * time.Millisecond
	defaultCompletedRetention = 1000
)

// Config configures a Scheduler. The zero value is usable.
type Config struct {
	// Workers is the initial worker pool size. Zero means defaultWorkers.
	Workers int

	// DefaultTimeout bounds tasks submitted without WithTimeout.
	// Zero means no timeout.
	DefaultTimeout time.Duration

	// WaitPollInterval is the poll period used by Wait.
	WaitPollInterval time.Duration

	// CompletedRetention caps how many terminal tasks are kept for
	// Status/Result queries. The oldest are dropped past the cap.
	CompletedRetention int

	// Logger, when non-nil, receives scheduler diagnostics.
	Logger *logging.Logger

	// Bus, when non-nil, receives task state and progress events.
	Bus *event.Bus

	// Dispatcher, when non-nil, carries progress/completion/error
	// callbacks to the host loop. Without one, callbacks run on worker
	// goroutines.
	Dispatcher *event.Dispatcher
}

// Scheduler runs submitted work on a bounded worker pool.
// Safe for concurrent use.
type Scheduler struct {
	mu   sync.Mutex
	cond *sync.Cond // signals pending queue activity

	tasks      map[string]*task
	identities map[string]string // identity key -> non-terminal task ID
	pending    pendingHeap
	terminal   []string // terminal task IDs, oldest first
	seq        uint64
	closed     bool

	submitted    uint64
	deduplicated uint64

	gate       *workerGate
	ctx        context.Context
	cancelBase context.CancelFunc
	wg         sync.WaitGroup

	defaultTimeout time.Duration
	pollInterval   time.Duration
	retention      int

	logger     *logging.Logger
	bus        *event.Bus
	dispatcher *event.Dispatcher
}

// New creates a Scheduler and starts its dispatch loop.
func New(cfg Config) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.WaitPollInterval <= 0 {
		cfg.WaitPollInterval = defaultWaitPollInterval
	}
	if cfg.CompletedRetention <= 0 {
		cfg.CompletedRetention = defaultCompletedRetention
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NopLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		tasks:          make(map[string]*task),
		identities:     make(map[string]string),
		gate:           newWorkerGate(cfg.Workers),
		ctx:            ctx,
		cancelBase:     cancel,
		defaultTimeout: cfg.DefaultTimeout,
		pollInterval:   cfg.WaitPollInterval,
		retention:      cfg.CompletedRetention,
		logger:         cfg.Logger.WithComponent("scheduler"),
		bus:            cfg.Bus,
		dispatcher:     cfg.Dispatcher,
	}
	s.cond = sync.NewCond(&s.mu)

	s.wg.Add(1)
	go s.dispatch()
	return s
}

// Submit schedules work for execution and returns its task ID.
//
// If the submission carries an identity (WithIdentity) and a task with the
// same identity is still non-terminal, no new task is created and the
// existing task's ID is returned: at most one execution per identity is in
// flight at a time.
func (s *Scheduler) Submit(work Work, opts ...SubmitOption) (string, error) {
	if work == nil {
		return "", errors.New("work must not be nil")
	}

	t := &task{
		work:     work,
		priority: PriorityNormal,
		timeout:  s.defaultTimeout,
		status:   StatusPending,
	}
	for _, opt := range opts {
		opt(t)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrSchedulerClosed
	}
	if t.identity != "" {
		if existing, ok := s.identities[t.identity]; ok {
			s.deduplicated++
			s.mu.Unlock()
			s.logger.Debug("submission deduplicated", "identity", t.identity, "task_id", existing)
			return existing, nil
		}
	}

	s.seq++
	t.seq = s.seq
	t.id = fmt.Sprintf("task-%d", s.seq)
	t.submittedAt = time.Now()
	s.tasks[t.id] = t
	if t.identity != "" {
		s.identities[t.identity] = t.id
	}
	heap.Push(&s.pending, t)
	s.submitted++
	s.cond.Signal()
	s.mu.Unlock()

	s.publishState(t.id, StatusPending, nil)
	s.logger.Debug("task submitted", "task_id", t.id, "priority", t.priority.String())
	return t.id, nil
}

// Cancel requests cancellation of a task. Pending tasks transition to
// cancelled immediately. For running tasks the task's context is cancelled
// and the work body decides when to stop; the transition happens when it
// returns. Returns false if the task is unknown or already terminal.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok || t.status.IsTerminal() {
		s.mu.Unlock()
		return false
	}

	if t.status == StatusPending {
		s.terminalizeLocked(t, StatusCancelled, nil, ErrCancelled)
		s.mu.Unlock()
		s.publishState(id, StatusCancelled, ErrCancelled)
		s.logger.Info("pending task cancelled", "task_id", id)
		return true
	}

	cancel := t.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.logger.Info("cancellation requested", "task_id", id)
	return true
}

// Status returns the task's current status.
func (s *Scheduler) Status(id string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t.status, nil
}

// Progress returns the task's last reported progress percentage.
func (s *Scheduler) Progress(id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return int(t.progress.Load()), nil
}

// Result returns the task's result. For a completed task it returns the
// work's return value; for a failed task it returns the captured error; for
// a cancelled task it returns ErrCancelled. A non-terminal task yields
// (nil, nil) — use Wait to block for a result.
func (s *Scheduler) Result(id string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	switch t.status {
	case StatusCompleted:
		return t.result, nil
	case StatusFailed, StatusCancelled:
		return nil, t.err
	default:
		return nil, nil
	}
}

// Info returns a snapshot of the task's observable state.
func (s *Scheduler) Info(id string) (TaskInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return TaskInfo{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t.info(), nil
}

// Wait blocks until the task reaches a terminal state, then returns its
// result as Result does. A positive timeout bounds the wait and yields
// ErrWaitTimeout on expiry; zero waits indefinitely. Wait polls rather than
// subscribing, so it must never be called from the host loop that drains
// the dispatcher.
func (s *Scheduler) Wait(id string, timeout time.Duration) (any, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		s.mu.Lock()
		t, ok := s.tasks[id]
		if !ok {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
		}
		if t.status.IsTerminal() {
			defer s.mu.Unlock()
			if t.status == StatusCompleted {
				return t.result, nil
			}
			return nil, t.err
		}
		s.mu.Unlock()

		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: task %s after %s", ErrWaitTimeout, id, timeout)
		}
		time.Sleep(s.pollInterval)
	}
}

// ClearCompleted removes all terminal tasks and returns how many were
// removed.
func (s *Scheduler) ClearCompleted() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, t := range s.tasks {
		if t.status.IsTerminal() {
			delete(s.tasks, id)
			count++
		}
	}
	s.terminal = s.terminal[:0]
	return count
}

// SetWorkers resizes the worker pool. Shrinking never interrupts running
// work; the pool drains to the new size as tasks finish.
func (s *Scheduler) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	s.gate.Resize(n)
	s.logger.Info("worker pool resized", "workers", n)
}

// Workers returns the current worker pool size.
func (s *Scheduler) Workers() int {
	return s.gate.Limit()
}

// Statistics is a snapshot of the scheduler's state counts.
type Statistics struct {
	Workers      int    `json:"workers"`
	Running      int    `json:"running"`
	Pending      int    `json:"pending"`
	Completed    int    `json:"completed"`
	Failed       int    `json:"failed"`
	Cancelled    int    `json:"cancelled"`
	Submitted    uint64 `json:"submitted"`
	Deduplicated uint64 `json:"deduplicated"`
}

// Statistics returns a snapshot of current task counts.
func (s *Scheduler) Statistics() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Statistics{
		Workers:      s.gate.Limit(),
		Submitted:    s.submitted,
		Deduplicated: s.deduplicated,
	}
	for _, t := range s.tasks {
		switch t.status {
		case StatusPending:
			st.Pending++
		case StatusRunning:
			st.Running++
		case StatusCompleted:
			st.Completed++
		case StatusFailed:
			st.Failed++
		case StatusCancelled:
			st.Cancelled++
		}
	}
	return st
}

// Stop cancels all pending tasks, signals running tasks to stop via their
// contexts, and waits for in-flight work to return. Submit fails with
// ErrSchedulerClosed afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true

	var cancelled []string
	for _, t := range s.tasks {
		if t.status == StatusPending {
			s.terminalizeLocked(t, StatusCancelled, nil, ErrCancelled)
			cancelled = append(cancelled, t.id)
		}
	}
	s.cond.Broadcast()
	s.mu.Unlock()

	for _, id := range cancelled {
		s.publishState(id, StatusCancelled, ErrCancelled)
	}
	s.cancelBase()
	s.wg.Wait()
	s.logger.Info("scheduler stopped", "cancelled_pending", len(cancelled))
}

// dispatch hands pending tasks to workers in priority order. The gate is
// acquired before the queue is consulted so that tasks submitted while the
// pool is saturated still compete on priority for the next free slot.
func (s *Scheduler) dispatch() {
	defer s.wg.Done()
	for {
		if err := s.gate.Acquire(s.ctx); err != nil {
			return
		}
		t := s.nextPending()
		if t == nil {
			s.gate.Release()
			return
		}
		s.wg.Add(1)
		go s.run(t)
	}
}

// nextPending blocks until a pending task is available or the scheduler is
// closed. Tasks cancelled while queued are skipped.
func (s *Scheduler) nextPending() *task {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if s.closed {
			return nil
		}
		for len(s.pending) > 0 {
			t := heap.Pop(&s.pending).(*task)
			if t.status == StatusPending {
				return t
			}
		}
		s.cond.Wait()
	}
}

type outcome struct {
	value any
	err   error
}

// run executes one task on the worker slot held by the caller.
func (s *Scheduler) run(t *task) {
	defer s.wg.Done()
	defer s.gate.Release()

	s.mu.Lock()
	if t.status != StatusPending {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	t.status = StatusRunning
	t.startedAt = time.Now()
	t.cancel = cancel
	s.mu.Unlock()

	s.publishState(t.id, StatusRunning, nil)

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("work panicked: %v", r)}
			}
		}()
		v, err := t.work(ctx, s.progressFunc(t))
		done <- outcome{value: v, err: err}
	}()

	var timeoutC <-chan time.Time
	if t.timeout > 0 {
		timer := time.NewTimer(t.timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	select {
	case out := <-done:
		s.finalize(t, out.value, out.err)
	case <-timeoutC:
		// The worker goroutine is abandoned; its context is cancelled so
		// cooperative work winds down on its own.
		cancel()
		s.finalize(t, nil, fmt.Errorf("%w after %s", ErrTimeout, t.timeout))
	}
}

// progressFunc builds the reporter handed to the work body. Reports update
// the task record, publish a progress event, and queue the progress
// callback for host-side delivery.
func (s *Scheduler) progressFunc(t *task) ProgressFunc {
	return func(percent int) {
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		t.progress.Store(int64(percent))
		if s.bus != nil {
			s.bus.Publish(event.NewTaskProgressEvent(t.id, percent))
		}
		if t.onProgress != nil {
			p := percent
			s.deliver(func() { t.onProgress(p) })
		}
	}
}

// finalize records a task's terminal state and emits events/callbacks.
// Later outcomes for an already-terminal task (an abandoned worker finally
// returning after a timeout) are ignored.
func (s *Scheduler) finalize(t *task, value any, err error) {
	var status Status
	switch {
	case err == nil:
		status = StatusCompleted
	case errors.Is(err, context.Canceled), errors.Is(err, ErrCancelled):
		status = StatusCancelled
		err = ErrCancelled
	default:
		status = StatusFailed
	}

	s.mu.Lock()
	if t.status.IsTerminal() {
		s.mu.Unlock()
		return
	}
	s.terminalizeLocked(t, status, value, err)

	// Callbacks are queued before the terminal status becomes observable
	// outside the lock, so a caller that sees the task finish and then
	// drains the dispatcher is guaranteed the delivery is already there.
	// Without a dispatcher, delivery runs after unlock to keep callbacks
	// free to call back into the scheduler.
	var inline []func()
	queue := func(fn func()) {
		if s.dispatcher != nil {
			s.dispatcher.Enqueue(fn)
		} else {
			inline = append(inline, fn)
		}
	}
	switch status {
	case StatusCompleted:
		if cb := t.onComplete; cb != nil {
			queue(func() { cb(value) })
		}
	case StatusFailed:
		if cb := t.onError; cb != nil {
			failure := err
			queue(func() { cb(failure) })
		}
	}
	s.mu.Unlock()

	s.publishState(t.id, status, err)
	for _, fn := range inline {
		fn()
	}
	switch status {
	case StatusCompleted:
		s.logger.Debug("task completed", "task_id", t.id)
	case StatusFailed:
		s.logger.Warn("task failed", "task_id", t.id, "error", err)
	case StatusCancelled:
		s.logger.Info("task cancelled", "task_id", t.id)
	}
}

// terminalizeLocked moves a task to a terminal status and updates the
// identity map and retention list. Caller must hold s.mu.
func (s *Scheduler) terminalizeLocked(t *task, status Status, value any, err error) {
	t.status = status
	t.completedAt = time.Now()
	if status == StatusCompleted {
		t.result = value
		t.progress.Store(100)
	} else {
		t.err = err
	}
	if t.identity != "" {
		delete(s.identities, t.identity)
	}

	s.terminal = append(s.terminal, t.id)
	for len(s.terminal) > s.retention {
		oldest := s.terminal[0]
		s.terminal = s.terminal[1:]
		delete(s.tasks, oldest)
	}
}

// deliver queues fn on the dispatcher, or runs it inline when no dispatcher
// is configured.
func (s *Scheduler) deliver(fn func()) {
	if s.dispatcher != nil {
		s.dispatcher.Enqueue(fn)
		return
	}
	fn()
}

func (s *Scheduler) publishState(id string, status Status, err error) {
	if s.bus == nil {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	s.bus.Publish(event.NewTaskStateChangedEvent(id, status.String(), msg))
}
