package event

import (
	"log"
	"runtime/debug"
	"sync"
)

// Default capacity for the pending-callback queue.
const defaultDispatcherCapacity = 4096

// Dispatcher is the single inbound queue for callbacks that must run on the
// host's cooperative loop: task progress, completion, and error deliveries.
// Worker goroutines enqueue; the host drains on its tick. Callbacks for a
// given producer are delivered in the order they were enqueued.
type Dispatcher struct {
	mu       sync.Mutex
	pending  []func()
	capacity int
	dropped  uint64
}

// NewDispatcher creates a Dispatcher with the given capacity.
// A capacity of 0 or less uses the default.
func NewDispatcher(capacity int) *Dispatcher {
	if capacity <= 0 {
		capacity = defaultDispatcherCapacity
	}
	return &Dispatcher{
		pending:  make([]func(), 0, 64),
		capacity: capacity,
	}
}

// Enqueue appends a callback for later delivery. When the queue is full the
// oldest callback is dropped so producers never block; the drop is counted
// and visible via Dropped.
func (d *Dispatcher) Enqueue(fn func()) {
	if fn == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.pending) >= d.capacity {
		d.pending = d.pending[1:]
		d.dropped++
	}
	d.pending = append(d.pending, fn)
}

// Drain runs up to max queued callbacks on the calling goroutine and returns
// how many ran. A max of 0 or less drains everything currently queued.
// Callbacks enqueued while draining are left for the next tick.
func (d *Dispatcher) Drain(max int) int {
	d.mu.Lock()
	n := len(d.pending)
	if max > 0 && max < n {
		n = max
	}
	batch := d.pending[:n]
	d.pending = append([]func(){}, d.pending[n:]...)
	d.mu.Unlock()

	for _, fn := range batch {
		d.safeRun(fn)
	}
	return n
}

// safeRun invokes a callback and recovers from any panics so one bad
// callback cannot stop the host's drain loop.
func (d *Dispatcher) safeRun(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: dispatched callback panicked: %v\n%s", r, debug.Stack())
		}
	}()
	fn()
}

// Len returns the number of callbacks waiting for delivery.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Dropped returns how many callbacks have been discarded due to overflow.
func (d *Dispatcher) Dropped() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}
