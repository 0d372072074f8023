package optimizer

import "time"

// MetricsSnapshot is a point-in-time read of engine health, captured once
// per sampling interval. Immutable once captured.
type MetricsSnapshot struct {
	CapturedAt time.Time `json:"captured_at"`
	Sample     uint64    `json:"sample"`

	HeapAllocBytes uint64  `json:"heap_alloc_bytes"`
	HeapSysBytes   uint64  `json:"heap_sys_bytes"`
	CPUPercent     float64 `json:"cpu_percent"`
	Goroutines     int     `json:"goroutines"`

	// UITurnaround is the average host-loop turnaround over the interval:
	// how long a tick took to drain callbacks and redraw.
	UITurnaround time.Duration `json:"ui_turnaround_ns"`

	// RenderTime is the average tracked render duration over the interval.
	RenderTime time.Duration `json:"render_time_ns"`

	ActiveWidgets int `json:"active_widgets"`
	RunningTasks  int `json:"running_tasks"`
	PendingTasks  int `json:"pending_tasks"`

	CacheHitRate float64 `json:"cache_hit_rate"`
	CacheBytes   int64   `json:"cache_bytes"`
	CacheEntries int     `json:"cache_entries"`
	CacheLookups uint64  `json:"cache_lookups"`
}

// Thresholds are the trip points the default rules and Suggestions evaluate
// snapshots against.
type Thresholds struct {
	// MemoryHighBytes trips the memory reclaim rule.
	MemoryHighBytes uint64 `json:"memory_high_bytes"`

	// HitRateLow and CacheLargeBytes together trip the cache re-tune
	// rule: a large cache that rarely hits is wasted budget.
	HitRateLow      float64 `json:"hit_rate_low"`
	CacheLargeBytes int64   `json:"cache_large_bytes"`

	// UITurnaroundHigh trips the buffer shrink rule.
	UITurnaroundHigh time.Duration `json:"ui_turnaround_high_ns"`

	// RenderHigh trips the smoothing drop rule.
	RenderHigh time.Duration `json:"render_high_ns"`
}

// DefaultThresholds returns the built-in trip points.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MemoryHighBytes:  256 << 20,
		HitRateLow:       0.4,
		CacheLargeBytes:  4 << 20,
		UITurnaroundHigh: 100 * time.Millisecond,
		RenderHigh:       33 * time.Millisecond,
	}
}

// Rule is one corrective behavior: a predicate over the latest snapshot and
// an action to run when it trips. Rules are data; the sampling loop never
// changes when rules are added.
type Rule struct {
	// Name identifies the rule in logs, events, and reports.
	Name string

	// Priority orders evaluation: higher runs first within a cycle.
	Priority int

	// Cooldown is the minimum time between firings. A rule whose
	// predicate stays true fires at most once per cooldown window.
	Cooldown time.Duration

	// Predicate inspects the latest snapshot and reports whether the rule
	// should fire, with a human-readable reason.
	Predicate func(s MetricsSnapshot, th Thresholds) (bool, string)

	// Action performs the correction. A panic or error in one action is
	// logged and never blocks other rules or future cycles.
	Action func(o *Optimizer) error

	lastFired time.Time
	fired     uint64
}

// RuleStatus describes one rule in a Report.
type RuleStatus struct {
	Name       string    `json:"name"`
	Priority   int       `json:"priority"`
	CooldownMs int64     `json:"cooldown_ms"`
	Fired      uint64    `json:"fired"`
	LastFired  time.Time `json:"last_fired,omitzero"`
}

// Averages are rolling means over the history ring.
type Averages struct {
	HeapAllocBytes uint64  `json:"heap_alloc_bytes"`
	CPUPercent     float64 `json:"cpu_percent"`
	UITurnaroundMs float64 `json:"ui_turnaround_ms"`
	RenderTimeMs   float64 `json:"render_time_ms"`
	CacheHitRate   float64 `json:"cache_hit_rate"`
}

// Report is the optimizer's JSON-serializable self-description: the history
// ring, rolling averages, rule states, and the active thresholds.
type Report struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Thresholds  Thresholds        `json:"thresholds"`
	Averages    Averages          `json:"averages"`
	Rules       []RuleStatus      `json:"rules"`
	History     []MetricsSnapshot `json:"history"`
}

// Suggestion is a human-facing diagnostic produced by Suggestions. It is
// meant for display, not for programmatic branching.
type Suggestion struct {
	Category    string   `json:"category"`
	Priority    string   `json:"priority"` // "high", "medium", or "low"
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Actions     []string `json:"actions"`
}

// OptimizeResult reports what ManualOptimize did.
type OptimizeResult struct {
	Ran     []string      `json:"ran"`
	Failed  []string      `json:"failed,omitempty"`
	Elapsed time.Duration `json:"elapsed_ns"`
}
