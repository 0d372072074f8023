package scheduler

import (
	"context"
	"sync"
)

// workerGate bounds the number of concurrently executing tasks. The limit
// is resizable at runtime so the optimizer can shrink or grow the pool
// under load; a limit of 0 means unlimited.
type workerGate struct {
	mu    sync.Mutex
	cond  *sync.Cond
	limit int
	inUse int
}

func newWorkerGate(limit int) *workerGate {
	if limit < 0 {
		limit = 0
	}
	g := &workerGate{limit: limit}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Acquire blocks until a worker slot is free or ctx is cancelled.
func (g *workerGate) Acquire(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.limit == 0 {
		g.inUse++
		return nil
	}

	// Cond.Wait cannot observe ctx directly, so a helper goroutine
	// broadcasts on cancellation to wake blocked waiters.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			g.cond.Broadcast()
		case <-stop:
		}
	}()

	for g.limit > 0 && g.inUse >= g.limit {
		if err := ctx.Err(); err != nil {
			return err
		}
		g.cond.Wait()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	g.inUse++
	return nil
}

// Release frees a slot and wakes one waiter.
func (g *workerGate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inUse > 0 {
		g.inUse--
	}
	g.cond.Signal()
}

// Resize changes the slot limit. Shrinking never interrupts running work;
// the pool drains down to the new limit as slots are released. Growing
// wakes all waiters so they can re-check.
func (g *workerGate) Resize(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if n < 0 {
		n = 0
	}
	g.limit = n
	g.cond.Broadcast()
}

// Limit returns the current slot limit (0 = unlimited).
func (g *workerGate) Limit() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.limit
}

// InUse returns the number of slots currently held.
func (g *workerGate) InUse() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inUse
}
