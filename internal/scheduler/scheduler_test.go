package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/attunedev/attune/internal/event"
)

// noop is a work body that returns immediately.
func noop(ctx context.Context, progress ProgressFunc) (any, error) {
	return nil, nil
}

// blocker returns a work body that signals started and then blocks until
// release is closed.
func blocker(started chan<- struct{}, release <-chan struct{}) Work {
	return func(ctx context.Context, progress ProgressFunc) (any, error) {
		close(started)
		<-release
		return "blocked", nil
	}
}

func TestScheduler_SubmitAndWait(t *testing.T) {
	s := New(Config{Workers: 2})
	defer s.Stop()

	id, err := s.Submit(func(ctx context.Context, progress ProgressFunc) (any, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	v, err := s.Wait(id, time.Second)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if v != 42 {
		t.Errorf("Wait = %v, want 42", v)
	}

	status, err := s.Status(id)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status != StatusCompleted {
		t.Errorf("Status = %v, want %v", status, StatusCompleted)
	}

	// Progress reaches 100 on completion even if never reported.
	if p, _ := s.Progress(id); p != 100 {
		t.Errorf("Progress = %d, want 100", p)
	}
}

func TestScheduler_WorkError(t *testing.T) {
	s := New(Config{Workers: 1})
	defer s.Stop()

	boom := errors.New("boom")
	id, _ := s.Submit(func(ctx context.Context, progress ProgressFunc) (any, error) {
		return nil, boom
	})

	_, err := s.Wait(id, time.Second)
	if !errors.Is(err, boom) {
		t.Errorf("Wait error = %v, want %v", err, boom)
	}

	status, _ := s.Status(id)
	if status != StatusFailed {
		t.Errorf("Status = %v, want %v", status, StatusFailed)
	}
}

func TestScheduler_WorkPanic(t *testing.T) {
	s := New(Config{Workers: 1})
	defer s.Stop()

	id, _ := s.Submit(func(ctx context.Context, progress ProgressFunc) (any, error) {
		panic("kaboom")
	})

	_, err := s.Wait(id, time.Second)
	if err == nil {
		t.Fatal("Wait should surface the panic as an error")
	}

	status, _ := s.Status(id)
	if status != StatusFailed {
		t.Errorf("Status = %v, want %v", status, StatusFailed)
	}
}

func TestScheduler_UnknownTask(t *testing.T) {
	s := New(Config{Workers: 1})
	defer s.Stop()

	if _, err := s.Status("task-999"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Status error = %v, want ErrTaskNotFound", err)
	}
	if _, err := s.Result("task-999"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Result error = %v, want ErrTaskNotFound", err)
	}
	if _, err := s.Wait("task-999", time.Second); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Wait error = %v, want ErrTaskNotFound", err)
	}
	if s.Cancel("task-999") {
		t.Error("Cancel should return false for an unknown task")
	}
}

func TestScheduler_NilWork(t *testing.T) {
	s := New(Config{Workers: 1})
	defer s.Stop()

	if _, err := s.Submit(nil); err == nil {
		t.Error("Submit should reject nil work")
	}
}

func TestScheduler_PriorityOrdering(t *testing.T) {
	s := New(Config{Workers: 1})
	defer s.Stop()

	started := make(chan struct{})
	release := make(chan struct{})
	s.Submit(blocker(started, release))
	<-started // Pool is now saturated.

	order := make(chan string, 2)
	record := func(name string) Work {
		return func(ctx context.Context, progress ProgressFunc) (any, error) {
			order <- name
			return nil, nil
		}
	}

	lowID, _ := s.Submit(record("low"), WithPriority(PriorityLow))
	highID, _ := s.Submit(record("high"), WithPriority(PriorityHigh))

	close(release)

	if _, err := s.Wait(lowID, time.Second); err != nil {
		t.Fatalf("Wait(low) failed: %v", err)
	}
	if _, err := s.Wait(highID, time.Second); err != nil {
		t.Fatalf("Wait(high) failed: %v", err)
	}

	first := <-order
	if first != "high" {
		t.Errorf("first executed = %q, want %q", first, "high")
	}
}

func TestScheduler_IdentityDedup(t *testing.T) {
	s := New(Config{Workers: 2})
	defer s.Stop()

	started := make(chan struct{})
	release := make(chan struct{})
	id1, _ := s.Submit(blocker(started, release), WithIdentity("load:users"))
	<-started

	// Same identity while in flight: same task, no second execution.
	id2, _ := s.Submit(noop, WithIdentity("load:users"))
	if id2 != id1 {
		t.Errorf("duplicate submission returned %q, want %q", id2, id1)
	}
	if got := s.Statistics().Deduplicated; got != 1 {
		t.Errorf("Deduplicated = %d, want 1", got)
	}

	close(release)
	if _, err := s.Wait(id1, time.Second); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	// After the first reaches a terminal state the identity is free again.
	id3, _ := s.Submit(noop, WithIdentity("load:users"))
	if id3 == id1 {
		t.Error("post-terminal submission should create a new task")
	}
}

func TestScheduler_AtMostOnePerIdentity(t *testing.T) {
	s := New(Config{Workers: 4})
	defer s.Stop()

	var executions atomic.Int64
	release := make(chan struct{})
	work := func(ctx context.Context, progress ProgressFunc) (any, error) {
		executions.Add(1)
		<-release
		return "shared", nil
	}

	ids := make([]string, 8)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], _ = s.Submit(work, WithIdentity("dup"))
		}(i)
	}
	wg.Wait()
	close(release)

	// Every caller holds the same handle and observes the same result.
	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("got divergent task IDs: %q vs %q", id, ids[0])
		}
	}
	v, err := s.Wait(ids[0], time.Second)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if v != "shared" {
		t.Errorf("Wait = %v, want %q", v, "shared")
	}
	if got := executions.Load(); got != 1 {
		t.Errorf("executions = %d, want 1", got)
	}
}

func TestScheduler_CancelPending(t *testing.T) {
	s := New(Config{Workers: 1})
	defer s.Stop()

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	s.Submit(blocker(started, release))
	<-started

	id, _ := s.Submit(noop)
	if !s.Cancel(id) {
		t.Fatal("Cancel should return true for a pending task")
	}

	status, _ := s.Status(id)
	if status != StatusCancelled {
		t.Errorf("Status = %v, want %v", status, StatusCancelled)
	}
	if _, err := s.Result(id); !errors.Is(err, ErrCancelled) {
		t.Errorf("Result error = %v, want ErrCancelled", err)
	}
}

func TestScheduler_CancelRunning(t *testing.T) {
	s := New(Config{Workers: 1})
	defer s.Stop()

	started := make(chan struct{})
	id, _ := s.Submit(func(ctx context.Context, progress ProgressFunc) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	<-started

	if !s.Cancel(id) {
		t.Fatal("Cancel should return true for a running task")
	}

	_, err := s.Wait(id, time.Second)
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("Wait error = %v, want ErrCancelled", err)
	}
	status, _ := s.Status(id)
	if status != StatusCancelled {
		t.Errorf("Status = %v, want %v", status, StatusCancelled)
	}
}

func TestScheduler_CancellationMonotonicity(t *testing.T) {
	s := New(Config{Workers: 1})
	defer s.Stop()

	id, _ := s.Submit(noop)
	if _, err := s.Wait(id, time.Second); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	// Terminal status never changes; further cancels are refused.
	if s.Cancel(id) {
		t.Error("Cancel should return false for a terminal task")
	}
	status, _ := s.Status(id)
	if status != StatusCompleted {
		t.Errorf("Status = %v, want %v after refused cancel", status, StatusCompleted)
	}
}

func TestScheduler_Timeout(t *testing.T) {
	s := New(Config{Workers: 1})
	defer s.Stop()

	id, _ := s.Submit(func(ctx context.Context, progress ProgressFunc) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, WithTimeout(25*time.Millisecond))

	_, err := s.Wait(id, time.Second)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Wait error = %v, want ErrTimeout", err)
	}
	status, _ := s.Status(id)
	if status != StatusFailed {
		t.Errorf("Status = %v, want %v", status, StatusFailed)
	}
}

func TestScheduler_TimeoutOutcomeSticks(t *testing.T) {
	s := New(Config{Workers: 1})
	defer s.Stop()

	returned := make(chan struct{})
	id, _ := s.Submit(func(ctx context.Context, progress ProgressFunc) (any, error) {
		defer close(returned)
		<-ctx.Done()
		// An abandoned worker returning success must not overwrite the
		// timeout outcome.
		return "late", nil
	}, WithTimeout(25*time.Millisecond))

	if _, err := s.Wait(id, time.Second); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Wait error = %v, want ErrTimeout", err)
	}

	<-returned
	time.Sleep(20 * time.Millisecond)
	status, _ := s.Status(id)
	if status != StatusFailed {
		t.Errorf("Status = %v, want %v after late return", status, StatusFailed)
	}
}

func TestScheduler_WaitTimeout(t *testing.T) {
	s := New(Config{Workers: 1})
	defer s.Stop()

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	id, _ := s.Submit(blocker(started, release))
	<-started

	_, err := s.Wait(id, 30*time.Millisecond)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Errorf("Wait error = %v, want ErrWaitTimeout", err)
	}

	// The task itself is unaffected by a caller giving up.
	status, _ := s.Status(id)
	if status != StatusRunning {
		t.Errorf("Status = %v, want %v", status, StatusRunning)
	}
}

func TestScheduler_CallbacksDeliveredViaDispatcher(t *testing.T) {
	d := event.NewDispatcher(64)
	s := New(Config{Workers: 1, Dispatcher: d})
	defer s.Stop()

	var mu sync.Mutex
	var got []int
	var completed any

	id, _ := s.Submit(func(ctx context.Context, progress ProgressFunc) (any, error) {
		progress(30)
		progress(60)
		return "ok", nil
	},
		WithOnProgress(func(p int) {
			mu.Lock()
			got = append(got, p)
			mu.Unlock()
		}),
		WithOnComplete(func(r any) {
			mu.Lock()
			completed = r
			mu.Unlock()
		}),
	)

	if _, err := s.Wait(id, time.Second); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	// Nothing is delivered until the host drains.
	mu.Lock()
	if len(got) != 0 || completed != nil {
		mu.Unlock()
		t.Fatal("callbacks ran before Drain")
	}
	mu.Unlock()

	d.Drain(0)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != 30 || got[1] != 60 {
		t.Errorf("progress deliveries = %v, want [30 60]", got)
	}
	if completed != "ok" {
		t.Errorf("completion delivery = %v, want %q", completed, "ok")
	}
}

func TestScheduler_ErrorCallback(t *testing.T) {
	d := event.NewDispatcher(64)
	s := New(Config{Workers: 1, Dispatcher: d})
	defer s.Stop()

	boom := errors.New("boom")
	var delivered error
	id, _ := s.Submit(func(ctx context.Context, progress ProgressFunc) (any, error) {
		return nil, boom
	}, WithOnError(func(err error) { delivered = err }))

	s.Wait(id, time.Second)
	d.Drain(0)

	if !errors.Is(delivered, boom) {
		t.Errorf("error callback got %v, want %v", delivered, boom)
	}
}

func TestScheduler_ClearCompleted(t *testing.T) {
	s := New(Config{Workers: 2})
	defer s.Stop()

	id1, _ := s.Submit(noop)
	id2, _ := s.Submit(noop)
	s.Wait(id1, time.Second)
	s.Wait(id2, time.Second)

	if got := s.ClearCompleted(); got != 2 {
		t.Errorf("ClearCompleted = %d, want 2", got)
	}
	if _, err := s.Status(id1); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Status after clear = %v, want ErrTaskNotFound", err)
	}
	if got := s.ClearCompleted(); got != 0 {
		t.Errorf("second ClearCompleted = %d, want 0", got)
	}
}

func TestScheduler_Statistics(t *testing.T) {
	s := New(Config{Workers: 3})
	defer s.Stop()

	started := make(chan struct{})
	release := make(chan struct{})
	id, _ := s.Submit(blocker(started, release))
	<-started

	st := s.Statistics()
	if st.Workers != 3 {
		t.Errorf("Workers = %d, want 3", st.Workers)
	}
	if st.Running != 1 {
		t.Errorf("Running = %d, want 1", st.Running)
	}
	if st.Submitted != 1 {
		t.Errorf("Submitted = %d, want 1", st.Submitted)
	}

	close(release)
	if _, err := s.Wait(id, time.Second); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	st = s.Statistics()
	if st.Completed != 1 {
		t.Errorf("Completed = %d, want 1", st.Completed)
	}
	if st.Running != 0 {
		t.Errorf("Running = %d, want 0", st.Running)
	}
}

func TestScheduler_SetWorkers(t *testing.T) {
	s := New(Config{Workers: 2})
	defer s.Stop()

	s.SetWorkers(8)
	if got := s.Workers(); got != 8 {
		t.Errorf("Workers = %d, want 8", got)
	}

	// Clamped to at least one worker.
	s.SetWorkers(0)
	if got := s.Workers(); got != 1 {
		t.Errorf("Workers = %d, want 1", got)
	}
}

func TestScheduler_Stop(t *testing.T) {
	s := New(Config{Workers: 1})

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	s.Submit(blocker(started, release))
	<-started

	pendingID, _ := s.Submit(noop)

	go func() {
		// Unblock the running task so Stop can drain.
		time.Sleep(20 * time.Millisecond)
		release <- struct{}{}
	}()
	s.Stop()

	status, _ := s.Status(pendingID)
	if status != StatusCancelled {
		t.Errorf("pending task status = %v, want %v", status, StatusCancelled)
	}
	if _, err := s.Submit(noop); !errors.Is(err, ErrSchedulerClosed) {
		t.Errorf("Submit after Stop = %v, want ErrSchedulerClosed", err)
	}

	// Stop is idempotent.
	s.Stop()
}

func TestScheduler_Info(t *testing.T) {
	s := New(Config{Workers: 1})
	defer s.Stop()

	id, _ := s.Submit(noop, WithIdentity("job"), WithPriority(PriorityHigh))
	if _, err := s.Wait(id, time.Second); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	info, err := s.Info(id)
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.ID != id {
		t.Errorf("ID = %q, want %q", info.ID, id)
	}
	if info.Identity != "job" {
		t.Errorf("Identity = %q, want %q", info.Identity, "job")
	}
	if info.Priority != PriorityHigh {
		t.Errorf("Priority = %v, want %v", info.Priority, PriorityHigh)
	}
	if info.Status != StatusCompleted {
		t.Errorf("Status = %v, want %v", info.Status, StatusCompleted)
	}
	if info.CompletedAt.IsZero() {
		t.Error("CompletedAt should be set for a terminal task")
	}
}
