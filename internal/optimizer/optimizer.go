package optimizer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/attunedev/attune/internal/cache"
	"github.com/attunedev/attune/internal/event"
	"github.com/attunedev/attune/internal/logging"
	"github.com/attunedev/attune/internal/scheduler"
	"github.com/attunedev/attune/internal/telemetry"
	"github.com/attunedev/attune/internal/window"
)

// Defaults applied when Config leaves a field zero.
const (
	defaultSampleInterval = 2 * time.Second
	defaultHistorySize    = 120
	defaultSweepEvery     = 30
)

// Config configures an Optimizer. Cache, Scheduler, and Collector are
// optional; rules that have nothing to act on simply never trip.
type Config struct {
	// SampleInterval is the period of the Start sampling loop.
	SampleInterval time.Duration

	// HistorySize bounds the snapshot history ring.
	HistorySize int

	// SweepEverySamples is how often the periodic sweep rule runs,
	// counted in samples.
	SweepEverySamples int

	// Thresholds are the rule trip points. Zero fields take defaults.
	Thresholds Thresholds

	Cache     *cache.Cache
	Scheduler *scheduler.Scheduler
	Collector *telemetry.Collector

	// Logger, when non-nil, receives optimizer diagnostics.
	Logger *logging.Logger

	// Bus, when non-nil, receives RuleFiredEvent publications.
	Bus *event.Bus

	// OnSample, when non-nil, is invoked with every captured snapshot
	// after rule evaluation. Used to feed external observers such as a
	// metrics recorder. Must not block.
	OnSample func(MetricsSnapshot)
}

// Optimizer samples engine health on an interval and applies corrective
// rules. Safe for concurrent use.
type Optimizer struct {
	mu        sync.Mutex
	rules     []*Rule
	history   []MetricsSnapshot
	histCap   int
	samples   uint64
	renderers []*window.Renderer

	uiSum       time.Duration
	uiCount     int
	renderSum   time.Duration
	renderCount int

	thresholds Thresholds
	interval   time.Duration
	running    bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	cache     *cache.Cache
	scheduler *scheduler.Scheduler
	collector *telemetry.Collector
	logger    *logging.Logger
	bus       *event.Bus
	onSample  func(MetricsSnapshot)
}

// New creates an Optimizer with the default rule set installed.
func New(cfg Config) *Optimizer {
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = defaultSampleInterval
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = defaultHistorySize
	}
	if cfg.SweepEverySamples <= 0 {
		cfg.SweepEverySamples = defaultSweepEvery
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NopLogger()
	}
	th := cfg.Thresholds
	def := DefaultThresholds()
	if th.MemoryHighBytes == 0 {
		th.MemoryHighBytes = def.MemoryHighBytes
	}
	if th.HitRateLow == 0 {
		th.HitRateLow = def.HitRateLow
	}
	if th.CacheLargeBytes == 0 {
		th.CacheLargeBytes = def.CacheLargeBytes
	}
	if th.UITurnaroundHigh == 0 {
		th.UITurnaroundHigh = def.UITurnaroundHigh
	}
	if th.RenderHigh == 0 {
		th.RenderHigh = def.RenderHigh
	}

	o := &Optimizer{
		history:    make([]MetricsSnapshot, 0, cfg.HistorySize),
		histCap:    cfg.HistorySize,
		thresholds: th,
		interval:   cfg.SampleInterval,
		cache:      cfg.Cache,
		scheduler:  cfg.Scheduler,
		collector:  cfg.Collector,
		logger:     cfg.Logger.WithComponent("optimizer"),
		bus:        cfg.Bus,
		onSample:   cfg.OnSample,
	}
	for _, r := range defaultRules(cfg.SweepEverySamples) {
		o.AddRule(r)
	}
	return o
}

// AddRule installs a rule. Rules are evaluated in priority order, highest
// first; ties keep insertion order.
func (o *Optimizer) AddRule(r *Rule) error {
	if r == nil || r.Name == "" || r.Predicate == nil || r.Action == nil {
		return fmt.Errorf("rule must have a name, predicate, and action")
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	o.rules = append(o.rules, r)
	sort.SliceStable(o.rules, func(i, j int) bool {
		return o.rules[i].Priority > o.rules[j].Priority
	})
	return nil
}

// Start runs the sampling loop until ctx is cancelled or Stop is called.
// Hosts that prefer to drive sampling from their own tick can skip Start
// and call SampleNow instead.
func (o *Optimizer) Start(ctx context.Context) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	o.running = true
	o.cancel = cancel
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(o.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.SampleNow()
			}
		}
	}()
	o.logger.Info("sampling started", "interval", o.interval.String())
}

// Stop halts the sampling loop.
func (o *Optimizer) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	cancel := o.cancel
	o.running = false
	o.mu.Unlock()

	cancel()
	o.wg.Wait()
	o.logger.Info("sampling stopped")
}

// RegisterRenderer puts a windowed renderer under the optimizer's control:
// its materialized count feeds snapshots and buffer-shrinking rules act
// on it.
func (o *Optimizer) RegisterRenderer(r *window.Renderer) {
	if r == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.renderers = append(o.renderers, r)
}

// TrackRenderTime records one render duration. The component name labels
// debug logs only; snapshots aggregate across components.
func (o *Optimizer) TrackRenderTime(component string, d time.Duration) {
	o.mu.Lock()
	o.renderSum += d
	o.renderCount++
	slow := d > o.thresholds.RenderHigh
	o.mu.Unlock()

	if slow {
		o.logger.Debug("slow render", "component", component, "duration", d.String())
	}
}

// TrackUITurnaround records how long one host-loop turn took.
func (o *Optimizer) TrackUITurnaround(d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.uiSum += d
	o.uiCount++
}

// SampleNow captures one snapshot, appends it to history, and evaluates the
// rule set against it. Returns the captured snapshot.
func (o *Optimizer) SampleNow() MetricsSnapshot {
	s := o.capture()
	o.evaluate(s)
	if o.onSample != nil {
		o.onSample(s)
	}
	return s
}

// capture reads component statistics into a snapshot. Only public
// statistics snapshots are read, never other components' locks.
func (o *Optimizer) capture() MetricsSnapshot {
	s := MetricsSnapshot{CapturedAt: time.Now()}

	if o.collector != nil {
		t := o.collector.Sample()
		s.CapturedAt = t.CapturedAt
		s.HeapAllocBytes = t.HeapAllocBytes
		s.HeapSysBytes = t.HeapSysBytes
		s.CPUPercent = t.CPUPercent
		s.Goroutines = t.Goroutines
	}
	if o.cache != nil {
		cs := o.cache.Statistics()
		s.CacheHitRate = cs.HitRate
		s.CacheBytes = cs.UsedBytes
		s.CacheEntries = cs.Entries
		s.CacheLookups = cs.Hits + cs.Misses
	}
	if o.scheduler != nil {
		ss := o.scheduler.Statistics()
		s.RunningTasks = ss.Running
		s.PendingTasks = ss.Pending
	}
	for _, r := range o.renderersSnapshot() {
		s.ActiveWidgets += r.Stats().Materialized
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.samples++
	s.Sample = o.samples
	if o.uiCount > 0 {
		s.UITurnaround = o.uiSum / time.Duration(o.uiCount)
	}
	if o.renderCount > 0 {
		s.RenderTime = o.renderSum / time.Duration(o.renderCount)
	}
	o.uiSum, o.uiCount = 0, 0
	o.renderSum, o.renderCount = 0, 0

	if len(o.history) == o.histCap {
		copy(o.history, o.history[1:])
		o.history[len(o.history)-1] = s
	} else {
		o.history = append(o.history, s)
	}
	return s
}

// evaluate runs the rule set against a snapshot in priority order. A firing
// is gated by the rule's cooldown; action failures are contained per rule.
func (o *Optimizer) evaluate(s MetricsSnapshot) {
	o.mu.Lock()
	rules := append([]*Rule(nil), o.rules...)
	th := o.thresholds
	o.mu.Unlock()

	for _, r := range rules {
		fire, reason := o.safePredicate(r, s, th)
		if !fire {
			continue
		}

		now := time.Now()
		o.mu.Lock()
		if !r.lastFired.IsZero() && now.Sub(r.lastFired) < r.Cooldown {
			o.mu.Unlock()
			continue
		}
		r.lastFired = now
		r.fired++
		o.mu.Unlock()

		o.logger.Info("rule fired", "rule", r.Name, "reason", reason)
		if o.bus != nil {
			o.bus.Publish(event.NewRuleFiredEvent(r.Name, reason))
		}
		o.runAction(r)
	}
}

func (o *Optimizer) safePredicate(r *Rule, s MetricsSnapshot, th Thresholds) (fire bool, reason string) {
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Warn("rule predicate panicked", "rule", r.Name, "panic", fmt.Sprint(rec))
			fire = false
		}
	}()
	return r.Predicate(s, th)
}

// runAction executes a rule's action, containing panics and errors so one
// misbehaving rule never stops later rules or future cycles.
func (o *Optimizer) runAction(r *Rule) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("action panicked: %v", rec)
			o.logger.Warn("rule action panicked", "rule", r.Name, "panic", fmt.Sprint(rec))
		}
	}()
	if err := r.Action(o); err != nil {
		o.logger.Warn("rule action failed", "rule", r.Name, "error", err)
		return err
	}
	return nil
}

// ConfigureThresholds replaces the trip points. Zero fields keep their
// current value.
func (o *Optimizer) ConfigureThresholds(th Thresholds) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if th.MemoryHighBytes > 0 {
		o.thresholds.MemoryHighBytes = th.MemoryHighBytes
	}
	if th.HitRateLow > 0 {
		o.thresholds.HitRateLow = th.HitRateLow
	}
	if th.CacheLargeBytes > 0 {
		o.thresholds.CacheLargeBytes = th.CacheLargeBytes
	}
	if th.UITurnaroundHigh > 0 {
		o.thresholds.UITurnaroundHigh = th.UITurnaroundHigh
	}
	if th.RenderHigh > 0 {
		o.thresholds.RenderHigh = th.RenderHigh
	}
}

// Thresholds returns the active trip points.
func (o *Optimizer) Thresholds() Thresholds {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.thresholds
}

// Report assembles the optimizer's self-description: history, rolling
// averages, and per-rule state.
func (o *Optimizer) Report() Report {
	o.mu.Lock()
	defer o.mu.Unlock()

	rep := Report{
		GeneratedAt: time.Now(),
		Thresholds:  o.thresholds,
		History:     append([]MetricsSnapshot(nil), o.history...),
		Rules:       make([]RuleStatus, 0, len(o.rules)),
	}
	for _, r := range o.rules {
		rep.Rules = append(rep.Rules, RuleStatus{
			Name:       r.Name,
			Priority:   r.Priority,
			CooldownMs: r.Cooldown.Milliseconds(),
			Fired:      r.fired,
			LastFired:  r.lastFired,
		})
	}

	if n := len(o.history); n > 0 {
		var heap uint64
		var cpu, hit float64
		var ui, render time.Duration
		for _, s := range o.history {
			heap += s.HeapAllocBytes
			cpu += s.CPUPercent
			hit += s.CacheHitRate
			ui += s.UITurnaround
			render += s.RenderTime
		}
		rep.Averages = Averages{
			HeapAllocBytes: heap / uint64(n),
			CPUPercent:     cpu / float64(n),
			UITurnaroundMs: float64(ui.Milliseconds()) / float64(n),
			RenderTimeMs:   float64(render.Milliseconds()) / float64(n),
			CacheHitRate:   hit / float64(n),
		}
	}
	return rep
}

// Suggestions derives human-facing diagnostics from the most recent
// snapshot. Pure over captured state: no component is touched and nothing
// is mutated, so it is safe to call from any goroutine at any time.
func (o *Optimizer) Suggestions() []Suggestion {
	o.mu.Lock()
	if len(o.history) == 0 {
		o.mu.Unlock()
		return nil
	}
	s := o.history[len(o.history)-1]
	th := o.thresholds
	o.mu.Unlock()

	return suggest(s, th)
}

// ManualOptimize runs every rule's action once, synchronously and
// regardless of predicates or cooldowns. Firing times are stamped so the
// sampling loop does not immediately repeat the same corrections.
func (o *Optimizer) ManualOptimize() OptimizeResult {
	start := time.Now()

	o.mu.Lock()
	rules := append([]*Rule(nil), o.rules...)
	o.mu.Unlock()

	var res OptimizeResult
	for _, r := range rules {
		if err := o.runAction(r); err != nil {
			res.Failed = append(res.Failed, r.Name)
			continue
		}
		o.mu.Lock()
		r.lastFired = time.Now()
		r.fired++
		o.mu.Unlock()
		res.Ran = append(res.Ran, r.Name)
	}
	res.Elapsed = time.Since(start)
	o.logger.Info("manual optimization complete",
		"ran", len(res.Ran), "failed", len(res.Failed), "elapsed", res.Elapsed.String())
	return res
}

// History returns the snapshot history, oldest first.
func (o *Optimizer) History() []MetricsSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]MetricsSnapshot(nil), o.history...)
}

func (o *Optimizer) renderersSnapshot() []*window.Renderer {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*window.Renderer(nil), o.renderers...)
}
