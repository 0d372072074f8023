package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestWorkerGate_AcquireRelease(t *testing.T) {
	g := newWorkerGate(2)
	ctx := context.Background()

	if err := g.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	if err := g.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	if got := g.InUse(); got != 2 {
		t.Errorf("InUse = %d, want 2", got)
	}

	g.Release()
	if got := g.InUse(); got != 1 {
		t.Errorf("InUse after Release = %d, want 1", got)
	}
}

func TestWorkerGate_BlocksAtLimit(t *testing.T) {
	g := newWorkerGate(1)
	ctx := context.Background()

	if err := g.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		g.Acquire(ctx)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("Acquire should block while the gate is full")
	case <-time.After(30 * time.Millisecond):
	}

	g.Release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("Acquire should proceed after Release")
	}
}

func TestWorkerGate_ContextCancellation(t *testing.T) {
	g := newWorkerGate(1)
	g.Acquire(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- g.Acquire(ctx)
	}()

	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("Acquire error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled Acquire did not return")
	}

	if got := g.InUse(); got != 1 {
		t.Errorf("InUse = %d, want 1 (failed acquire must not hold a slot)", got)
	}
}

func TestWorkerGate_ResizeWakesWaiters(t *testing.T) {
	g := newWorkerGate(1)
	ctx := context.Background()
	g.Acquire(ctx)

	acquired := make(chan struct{})
	go func() {
		g.Acquire(ctx)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("Acquire should block at the old limit")
	case <-time.After(30 * time.Millisecond):
	}

	g.Resize(2)

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("Acquire should proceed after the limit grew")
	}
	if got := g.Limit(); got != 2 {
		t.Errorf("Limit = %d, want 2", got)
	}
}

func TestWorkerGate_Unlimited(t *testing.T) {
	g := newWorkerGate(0)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		if err := g.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d failed: %v", i, err)
		}
	}
	if got := g.InUse(); got != 100 {
		t.Errorf("InUse = %d, want 100", got)
	}
}

func TestWorkerGate_NegativeLimitClamped(t *testing.T) {
	g := newWorkerGate(-5)
	if got := g.Limit(); got != 0 {
		t.Errorf("Limit = %d, want 0", got)
	}

	g.Resize(-1)
	if got := g.Limit(); got != 0 {
		t.Errorf("Limit after Resize = %d, want 0", got)
	}
}
