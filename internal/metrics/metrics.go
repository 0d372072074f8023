// Package metrics publishes Prometheus metrics for engine activity. The
// Recorder subscribes to the engine's event bus for counters and takes
// gauge readings from optimizer snapshots; the host exposes Handler over
// HTTP when scraping is wanted.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/attunedev/attune/internal/event"
	"github.com/attunedev/attune/internal/optimizer"
)

// Recorder publishes Prometheus metrics for engine activity.
type Recorder struct {
	gatherer prometheus.Gatherer
	handler  http.Handler

	taskTransitions *prometheus.CounterVec
	cacheEvictions  *prometheus.CounterVec
	windowChurn     *prometheus.CounterVec
	ruleFirings     *prometheus.CounterVec
	renderLatency   prometheus.Histogram

	cacheBytes   prometheus.Gauge
	cacheEntries prometheus.Gauge
	cacheHitRate prometheus.Gauge
	tasksRunning prometheus.Gauge
	tasksPending prometheus.Gauge
	widgets      prometheus.Gauge
	heapBytes    prometheus.Gauge
}

// NewRecorder constructs a Prometheus-backed Recorder. Metric names are
// prefixed with namespace, falling back to "attune" when it is empty. When
// reg is nil a dedicated registry is created so multiple recorders can
// coexist without conflicting with the global default registerer.
func NewRecorder(namespace string, reg *prometheus.Registry) *Recorder {
	if namespace == "" {
		namespace = "attune"
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	taskTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "task_transitions_total",
		Help:      "Task status transitions observed on the event bus.",
	}, []string{"status"})

	cacheEvictions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "removals_total",
		Help:      "Cache entries removed, by reason.",
	}, []string{"reason"})

	windowChurn := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "window",
		Name:      "items_total",
		Help:      "Windowed renderer item materializations and destructions.",
	}, []string{"op"})

	ruleFirings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "optimizer",
		Name:      "rule_firings_total",
		Help:      "Optimization rule firings, by rule name.",
	}, []string{"rule"})

	renderLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ui",
		Name:      "render_duration_seconds",
		Help:      "Latency distribution for tracked renders.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.016, 0.033, 0.05, 0.1, 0.25, 0.5},
	})

	newGauge := func(subsystem, name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		})
	}
	cacheBytes := newGauge("cache", "used_bytes", "Bytes currently held by the cache.")
	cacheEntries := newGauge("cache", "entries", "Entries currently held by the cache.")
	cacheHitRate := newGauge("cache", "hit_rate", "Cache hit rate over all lookups.")
	tasksRunning := newGauge("scheduler", "tasks_running", "Tasks currently executing.")
	tasksPending := newGauge("scheduler", "tasks_pending", "Tasks queued for a worker.")
	widgets := newGauge("window", "materialized_items", "Items currently materialized across renderers.")
	heapBytes := newGauge("runtime", "heap_alloc_bytes", "Live heap as seen by the optimizer.")

	reg.MustRegister(
		taskTransitions, cacheEvictions, windowChurn, ruleFirings, renderLatency,
		cacheBytes, cacheEntries, cacheHitRate, tasksRunning, tasksPending, widgets, heapBytes,
	)

	return &Recorder{
		gatherer:        reg,
		handler:         promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		taskTransitions: taskTransitions,
		cacheEvictions:  cacheEvictions,
		windowChurn:     windowChurn,
		ruleFirings:     ruleFirings,
		renderLatency:   renderLatency,
		cacheBytes:      cacheBytes,
		cacheEntries:    cacheEntries,
		cacheHitRate:    cacheHitRate,
		tasksRunning:    tasksRunning,
		tasksPending:    tasksPending,
		widgets:         widgets,
		heapBytes:       heapBytes,
	}
}

// Handler exposes the Prometheus HTTP handler for the recorder's registry.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics unavailable", http.StatusServiceUnavailable)
		})
	}
	return r.handler
}

// Gatherer returns the underlying Prometheus gatherer for tests and
// advanced integrations.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.gatherer
}

// Observe subscribes the recorder to engine events on the bus. Counters
// update as events arrive; call it once during host construction.
func (r *Recorder) Observe(bus *event.Bus) {
	if r == nil || bus == nil {
		return
	}
	bus.Subscribe("task.state_changed", func(e event.Event) {
		if se, ok := e.(event.TaskStateChangedEvent); ok {
			r.taskTransitions.WithLabelValues(se.Status).Inc()
		}
	})
	bus.Subscribe("cache.evicted", func(e event.Event) {
		if ce, ok := e.(event.CacheEvictedEvent); ok {
			r.cacheEvictions.WithLabelValues(ce.Reason).Inc()
		}
	})
	bus.Subscribe("window.recomputed", func(e event.Event) {
		if we, ok := e.(event.WindowRecomputedEvent); ok {
			r.windowChurn.WithLabelValues("materialized").Add(float64(we.Materialized))
			r.windowChurn.WithLabelValues("destroyed").Add(float64(we.Destroyed))
		}
	})
	bus.Subscribe("optimizer.rule_fired", func(e event.Event) {
		if re, ok := e.(event.RuleFiredEvent); ok {
			r.ruleFirings.WithLabelValues(re.Rule).Inc()
		}
	})
}

// ObserveRender records one render duration.
func (r *Recorder) ObserveRender(d time.Duration) {
	if r == nil {
		return
	}
	r.renderLatency.Observe(d.Seconds())
}

// RecordSnapshot updates the engine gauges from an optimizer snapshot.
// Call it once per sampling cycle.
func (r *Recorder) RecordSnapshot(s optimizer.MetricsSnapshot) {
	if r == nil {
		return
	}
	r.cacheBytes.Set(float64(s.CacheBytes))
	r.cacheEntries.Set(float64(s.CacheEntries))
	r.cacheHitRate.Set(s.CacheHitRate)
	r.tasksRunning.Set(float64(s.RunningTasks))
	r.tasksPending.Set(float64(s.PendingTasks))
	r.widgets.Set(float64(s.ActiveWidgets))
	r.heapBytes.Set(float64(s.HeapAllocBytes))
}
