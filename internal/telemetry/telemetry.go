// Package telemetry reads process-level resource usage for the optimizer's
// sampling loop: heap statistics from the Go runtime and CPU utilization
// from the operating system via getrusage.
package telemetry

import (
	"runtime"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Sample is one point-in-time read of process resource usage.
type Sample struct {
	// HeapAllocBytes is the size of live heap objects.
	HeapAllocBytes uint64 `json:"heap_alloc_bytes"`

	// HeapSysBytes is the heap memory obtained from the OS.
	HeapSysBytes uint64 `json:"heap_sys_bytes"`

	// NumGC is the cumulative garbage collection count.
	NumGC uint32 `json:"num_gc"`

	// Goroutines is the current goroutine count.
	Goroutines int `json:"goroutines"`

	// CPUPercent is process CPU utilization since the previous sample,
	// as a percentage of one core. Zero on the first sample.
	CPUPercent float64 `json:"cpu_percent"`

	// CapturedAt is when the sample was taken.
	CapturedAt time.Time `json:"captured_at"`
}

// Collector produces Samples. CPU utilization is computed from the delta in
// consumed CPU time between consecutive calls, so a Collector should be
// sampled on a steady interval by a single loop.
//
// Safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	lastWall time.Time
	lastCPU  time.Duration
}

// NewCollector creates a Collector primed with the current CPU counters, so
// the first Sample after a warm-up interval is already meaningful.
func NewCollector() *Collector {
	c := &Collector{}
	if cpu, err := processCPUTime(); err == nil {
		c.lastWall = time.Now()
		c.lastCPU = cpu
	}
	return c
}

// Sample captures current resource usage.
func (c *Collector) Sample() Sample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	s := Sample{
		HeapAllocBytes: ms.HeapAlloc,
		HeapSysBytes:   ms.HeapSys,
		NumGC:          ms.NumGC,
		Goroutines:     runtime.NumGoroutine(),
		CapturedAt:     time.Now(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cpu, err := processCPUTime()
	if err != nil {
		return s
	}
	if !c.lastWall.IsZero() {
		wall := s.CapturedAt.Sub(c.lastWall)
		if wall > 0 && cpu >= c.lastCPU {
			s.CPUPercent = float64(cpu-c.lastCPU) / float64(wall) * 100
		}
	}
	c.lastWall = s.CapturedAt
	c.lastCPU = cpu
	return s
}

// processCPUTime returns the process's cumulative user+system CPU time.
func processCPUTime() (time.Duration, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, err
	}
	return timevalDuration(ru.Utime) + timevalDuration(ru.Stime), nil
}

func timevalDuration(tv unix.Timeval) time.Duration {
	return time.Duration(tv.Sec)*time.Second + time.Duration(tv.Usec)*time.Microsecond
}
