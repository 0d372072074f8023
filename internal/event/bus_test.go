package event

import (
	"sync"
	"testing"
)

func TestBus_SubscribeAndPublish(t *testing.T) {
	bus := NewBus()

	var received []Event
	bus.Subscribe("task.state_changed", func(e Event) {
		received = append(received, e)
	})

	bus.Publish(NewTaskStateChangedEvent("t1", "running", ""))

	if len(received) != 1 {
		t.Fatalf("received %d events, want 1", len(received))
	}
	evt, ok := received[0].(TaskStateChangedEvent)
	if !ok {
		t.Fatalf("received event has type %T, want TaskStateChangedEvent", received[0])
	}
	if evt.TaskID != "t1" {
		t.Errorf("TaskID = %q, want %q", evt.TaskID, "t1")
	}
	if evt.Status != "running" {
		t.Errorf("Status = %q, want %q", evt.Status, "running")
	}
	if evt.Timestamp().IsZero() {
		t.Error("event timestamp should be set")
	}
}

func TestBus_TypeFiltering(t *testing.T) {
	bus := NewBus()

	var taskEvents, cacheEvents int
	bus.Subscribe("task.progress", func(Event) { taskEvents++ })
	bus.Subscribe("cache.evicted", func(Event) { cacheEvents++ })

	bus.Publish(NewTaskProgressEvent("t1", 50))
	bus.Publish(NewCacheEvictedEvent("k1", "capacity"))
	bus.Publish(NewCacheEvictedEvent("k2", "expired"))

	if taskEvents != 1 {
		t.Errorf("task handler called %d times, want 1", taskEvents)
	}
	if cacheEvents != 2 {
		t.Errorf("cache handler called %d times, want 2", cacheEvents)
	}
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus()

	var all int
	bus.SubscribeAll(func(Event) { all++ })

	bus.Publish(NewTaskProgressEvent("t1", 10))
	bus.Publish(NewRuleFiredEvent("memory_reclaim", "heap above threshold"))
	bus.Publish(NewWindowRecomputedEvent(0, 20, 20, 0))

	if all != 3 {
		t.Errorf("wildcard handler called %d times, want 3", all)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	var calls int
	token := bus.Subscribe("cache.evicted", func(Event) { calls++ })

	bus.Publish(NewCacheEvictedEvent("k1", "capacity"))

	if !bus.Unsubscribe(token) {
		t.Error("Unsubscribe returned false for a live subscription")
	}
	if bus.Unsubscribe(token) {
		t.Error("Unsubscribe returned true for an already-removed subscription")
	}

	bus.Publish(NewCacheEvictedEvent("k2", "capacity"))

	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
}

func TestBus_PanickingHandler(t *testing.T) {
	bus := NewBus()

	var called bool
	bus.Subscribe("task.progress", func(Event) { panic("boom") })
	bus.Subscribe("task.progress", func(Event) { called = true })

	// Must not panic, and the second handler must still run.
	bus.Publish(NewTaskProgressEvent("t1", 99))

	if !called {
		t.Error("handler after panicking handler was not called")
	}
}

func TestBus_ClearAndCount(t *testing.T) {
	bus := NewBus()

	bus.Subscribe("a", func(Event) {})
	bus.Subscribe("b", func(Event) {})
	bus.SubscribeAll(func(Event) {})

	if got := bus.SubscriptionCount(); got != 3 {
		t.Errorf("SubscriptionCount() = %d, want 3", got)
	}

	bus.Clear()

	if got := bus.SubscriptionCount(); got != 0 {
		t.Errorf("SubscriptionCount() after Clear = %d, want 0", got)
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	count := 0
	bus.Subscribe("task.progress", func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Publish(NewTaskProgressEvent("t1", j))
			}
		}()
	}
	wg.Wait()

	if count != 1000 {
		t.Errorf("handler called %d times, want 1000", count)
	}
}
