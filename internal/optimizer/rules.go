package optimizer

import (
	"fmt"
	"runtime"
	"time"

	"github.com/attunedev/attune/internal/cache"
	"github.com/attunedev/attune/internal/window"
)

// Floors the corrective actions never shrink below.
const (
	minCacheBytes = 64 << 10
	minBuffer     = 1
)

// defaultRules builds the built-in rule set. sweepEvery is the periodic
// sweep cadence in samples.
func defaultRules(sweepEvery int) []*Rule {
	return []*Rule{
		{
			Name:     "memory-reclaim",
			Priority: 100,
			Cooldown: 30 * time.Second,
			Predicate: func(s MetricsSnapshot, th Thresholds) (bool, string) {
				if s.HeapAllocBytes <= th.MemoryHighBytes {
					return false, ""
				}
				return true, fmt.Sprintf("heap %d bytes exceeds threshold %d", s.HeapAllocBytes, th.MemoryHighBytes)
			},
			Action: func(o *Optimizer) error {
				o.reclaimMemory()
				return nil
			},
		},
		{
			Name:     "cache-retune",
			Priority: 80,
			Cooldown: time.Minute,
			Predicate: func(s MetricsSnapshot, th Thresholds) (bool, string) {
				// A near-empty lookup history says nothing about the
				// policy; wait for real traffic.
				if s.CacheLookups < 50 {
					return false, ""
				}
				if s.CacheHitRate >= th.HitRateLow || s.CacheBytes <= th.CacheLargeBytes {
					return false, ""
				}
				return true, fmt.Sprintf("hit rate %.2f below %.2f with %d bytes cached", s.CacheHitRate, th.HitRateLow, s.CacheBytes)
			},
			Action: func(o *Optimizer) error {
				return o.retuneCache()
			},
		},
		{
			Name:     "ui-latency",
			Priority: 60,
			Cooldown: 30 * time.Second,
			Predicate: func(s MetricsSnapshot, th Thresholds) (bool, string) {
				if s.UITurnaround <= th.UITurnaroundHigh {
					return false, ""
				}
				return true, fmt.Sprintf("ui turnaround %s exceeds %s", s.UITurnaround, th.UITurnaroundHigh)
			},
			Action: func(o *Optimizer) error {
				o.shrinkBuffers()
				o.setSmoothScroll(false)
				return nil
			},
		},
		{
			Name:     "render-latency",
			Priority: 50,
			Cooldown: 30 * time.Second,
			Predicate: func(s MetricsSnapshot, th Thresholds) (bool, string) {
				if s.RenderTime <= th.RenderHigh {
					return false, ""
				}
				return true, fmt.Sprintf("render time %s exceeds %s", s.RenderTime, th.RenderHigh)
			},
			Action: func(o *Optimizer) error {
				o.shrinkBuffers()
				o.setSmoothScroll(false)
				return nil
			},
		},
		{
			Name:     "periodic-sweep",
			Priority: 10,
			Cooldown: 0,
			Predicate: func(s MetricsSnapshot, th Thresholds) (bool, string) {
				if sweepEvery <= 0 || s.Sample == 0 || s.Sample%uint64(sweepEvery) != 0 {
					return false, ""
				}
				return true, fmt.Sprintf("scheduled sweep at sample %d", s.Sample)
			},
			Action: func(o *Optimizer) error {
				o.sweep()
				return nil
			},
		},
	}
}

// reclaimMemory drops expired cache entries, halves renderer buffers, and
// asks the runtime for a collection.
func (o *Optimizer) reclaimMemory() {
	if o.cache != nil {
		if n := o.cache.SweepExpired(); n > 0 {
			o.logger.Info("reclaimed expired cache entries", "count", n)
		}
	}
	o.shrinkBuffers()
	runtime.GC()
}

// retuneCache halves the cache budget and, for a recency-based policy that
// is not hitting, switches to frequency-based eviction.
func (o *Optimizer) retuneCache() error {
	if o.cache == nil {
		return nil
	}
	st := o.cache.Statistics()
	if st.MaxBytes > 0 {
		newMax := st.MaxBytes / 2
		if newMax < minCacheBytes {
			newMax = minCacheBytes
		}
		if newMax < st.MaxBytes {
			o.cache.SetMaxBytes(newMax)
			o.logger.Info("cache budget reduced", "max_bytes", newMax)
		}
	}
	if st.Policy == string(cache.PolicyLRU) {
		if err := o.cache.SetPolicy(cache.PolicyLFU); err != nil {
			return err
		}
	}
	return nil
}

// shrinkBuffers halves each registered renderer's buffer.
func (o *Optimizer) shrinkBuffers() {
	for _, r := range o.renderersSnapshot() {
		buf := r.Stats().Buffer / 2
		if buf < minBuffer {
			buf = minBuffer
		}
		r.Configure(window.Overrides{Buffer: &buf})
	}
}

// setSmoothScroll flips smooth scrolling on every registered renderer.
func (o *Optimizer) setSmoothScroll(on bool) {
	for _, r := range o.renderersSnapshot() {
		r.Configure(window.Overrides{SmoothScroll: &on})
	}
}

// sweep reclaims terminal bookkeeping: expired cache entries and finished
// task records.
func (o *Optimizer) sweep() {
	if o.cache != nil {
		o.cache.SweepExpired()
	}
	if o.scheduler != nil {
		o.scheduler.ClearCompleted()
	}
}

// suggest derives diagnostics from one snapshot against thresholds.
func suggest(s MetricsSnapshot, th Thresholds) []Suggestion {
	var out []Suggestion

	if s.HeapAllocBytes > th.MemoryHighBytes {
		out = append(out, Suggestion{
			Category:    "memory",
			Priority:    "high",
			Title:       "Heap usage above threshold",
			Description: fmt.Sprintf("Live heap is %d MiB against a %d MiB threshold.", s.HeapAllocBytes>>20, th.MemoryHighBytes>>20),
			Actions: []string{
				"reduce the cache byte budget",
				"lower renderer buffer sizes",
				"run a manual optimization pass",
			},
		})
	}
	if s.CacheLookups >= 50 && s.CacheHitRate < th.HitRateLow && s.CacheBytes > th.CacheLargeBytes {
		out = append(out, Suggestion{
			Category:    "cache",
			Priority:    "medium",
			Title:       "Large cache with a low hit rate",
			Description: fmt.Sprintf("Hit rate %.0f%% over %d lookups while holding %d KiB.", s.CacheHitRate*100, s.CacheLookups, s.CacheBytes>>10),
			Actions: []string{
				"shrink the cache budget",
				"switch to LFU eviction",
				"review key and TTL choices",
			},
		})
	}
	if s.UITurnaround > th.UITurnaroundHigh {
		out = append(out, Suggestion{
			Category:    "ui",
			Priority:    "high",
			Title:       "Host loop turnaround is slow",
			Description: fmt.Sprintf("Average turnaround %s exceeds %s.", s.UITurnaround, th.UITurnaroundHigh),
			Actions: []string{
				"shrink renderer buffers",
				"disable smooth scrolling",
				"move heavy work into scheduled tasks",
			},
		})
	}
	if s.RenderTime > th.RenderHigh {
		out = append(out, Suggestion{
			Category:    "render",
			Priority:    "medium",
			Title:       "Renders are slow",
			Description: fmt.Sprintf("Average render %s exceeds %s.", s.RenderTime, th.RenderHigh),
			Actions: []string{
				"reduce the materialization buffer",
				"simplify the render callback",
			},
		})
	}
	if s.PendingTasks > 0 && s.PendingTasks > 4*max(s.RunningTasks, 1) {
		out = append(out, Suggestion{
			Category:    "scheduler",
			Priority:    "low",
			Title:       "Task queue is backing up",
			Description: fmt.Sprintf("%d tasks pending against %d running.", s.PendingTasks, s.RunningTasks),
			Actions: []string{
				"increase the worker pool size",
				"deduplicate submissions with identity keys",
			},
		})
	}
	return out
}
