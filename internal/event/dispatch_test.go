package event

import (
	"sync"
	"testing"
)

func TestDispatcher_EnqueueAndDrain(t *testing.T) {
	d := NewDispatcher(0)

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		d.Enqueue(func() { order = append(order, i) })
	}

	if got := d.Len(); got != 5 {
		t.Fatalf("Len() = %d, want 5", got)
	}

	ran := d.Drain(0)
	if ran != 5 {
		t.Errorf("Drain(0) = %d, want 5", ran)
	}
	if got := d.Len(); got != 0 {
		t.Errorf("Len() after drain = %d, want 0", got)
	}

	// Delivery preserves enqueue order
	for i, v := range order {
		if v != i {
			t.Errorf("order[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestDispatcher_DrainBatchLimit(t *testing.T) {
	d := NewDispatcher(0)

	ran := 0
	for i := 0; i < 10; i++ {
		d.Enqueue(func() { ran++ })
	}

	if got := d.Drain(3); got != 3 {
		t.Errorf("Drain(3) = %d, want 3", got)
	}
	if ran != 3 {
		t.Errorf("ran %d callbacks, want 3", ran)
	}
	if got := d.Len(); got != 7 {
		t.Errorf("Len() = %d, want 7", got)
	}
}

func TestDispatcher_NilCallback(t *testing.T) {
	d := NewDispatcher(0)

	d.Enqueue(nil)

	if got := d.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0 after enqueueing nil", got)
	}
}

func TestDispatcher_OverflowDropsOldest(t *testing.T) {
	d := NewDispatcher(2)

	var ran []int
	d.Enqueue(func() { ran = append(ran, 1) })
	d.Enqueue(func() { ran = append(ran, 2) })
	d.Enqueue(func() { ran = append(ran, 3) }) // Drops callback 1

	if got := d.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d, want 1", got)
	}

	d.Drain(0)

	if len(ran) != 2 || ran[0] != 2 || ran[1] != 3 {
		t.Errorf("ran = %v, want [2 3]", ran)
	}
}

func TestDispatcher_PanickingCallback(t *testing.T) {
	d := NewDispatcher(0)

	var after bool
	d.Enqueue(func() { panic("boom") })
	d.Enqueue(func() { after = true })

	// Must not panic, and the second callback must still run.
	if got := d.Drain(0); got != 2 {
		t.Errorf("Drain(0) = %d, want 2", got)
	}
	if !after {
		t.Error("callback after panicking callback was not run")
	}
}

func TestDispatcher_ConcurrentEnqueue(t *testing.T) {
	d := NewDispatcher(0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				d.Enqueue(func() {})
			}
		}()
	}
	wg.Wait()

	if got := d.Drain(0); got != 800 {
		t.Errorf("Drain(0) = %d, want 800", got)
	}
}
