// Package scheduler executes submitted work closures on a bounded,
// resizable worker pool with cooperative cancellation, per-task timeouts,
// and at-most-one in-flight execution per submission identity.
//
// Work is submitted as a closure taking a context and a progress reporter:
//
//	id, _ := s.Submit(func(ctx context.Context, progress scheduler.ProgressFunc) (any, error) {
//		for i := 0; i < 10; i++ {
//			if ctx.Err() != nil {
//				return nil, ctx.Err()
//			}
//			progress((i + 1) * 10)
//		}
//		return "done", nil
//	}, scheduler.WithIdentity("load:users"), scheduler.WithTimeout(5*time.Second))
//
//	v, err := s.Wait(id, time.Second)
//
// Each task moves through pending -> running -> completed, failed, or
// cancelled. Terminal states are final: no operation transitions a task out
// of one, and Cancel on a terminal task returns false.
//
// Callbacks registered at submission (progress, completion, error) are never
// invoked on worker goroutines. They are enqueued on an [event.Dispatcher]
// that the host drains on its own loop, so callers can touch UI state from
// callbacks safely.
//
// Cancellation is cooperative: Cancel cancels the task's context, and the
// work body is expected to observe ctx.Done() at safe points. A timeout
// likewise cancels the context and marks the task failed with [ErrTimeout];
// the worker goroutine is abandoned, not interrupted, so treat a timeout as
// "stop waiting", not "stop executing".
//
// The Scheduler is safe for concurrent use.
package scheduler
