package cmd

import (
	"fmt"
	"time"

	"github.com/attunedev/attune/internal/cache"
	"github.com/attunedev/attune/internal/config"
	"github.com/attunedev/attune/internal/event"
	"github.com/attunedev/attune/internal/logging"
	"github.com/attunedev/attune/internal/metrics"
	"github.com/attunedev/attune/internal/optimizer"
	"github.com/attunedev/attune/internal/scheduler"
	"github.com/attunedev/attune/internal/telemetry"
)

// dispatcherCapacity bounds the host callback queue shared by the demo
// and report commands.
const dispatcherCapacity = 1024

// engine bundles one fully wired instance of the attune components.
type engine struct {
	cfg        *config.Config
	logger     *logging.Logger
	bus        *event.Bus
	dispatcher *event.Dispatcher
	cache      *cache.Cache
	scheduler  *scheduler.Scheduler
	collector  *telemetry.Collector
	optimizer  *optimizer.Optimizer
	recorder   *metrics.Recorder
}

// buildEngine constructs the engine from configuration. The caller owns
// shutdown via close.
func buildEngine(cfg *config.Config) (*engine, error) {
	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	bus := event.NewBus()
	dispatcher := event.NewDispatcher(dispatcherCapacity)

	c := cache.New(cache.Config{
		MaxBytes:           cfg.Cache.MaxBytes,
		Policy:             cache.PolicyType(cfg.Cache.Policy),
		DefaultTTL:         cfg.Cache.DefaultTTL(),
		FallbackEntryBytes: cfg.Cache.FallbackEntryBytes,
		Logger:             logger,
		Bus:                bus,
	})

	s := scheduler.New(scheduler.Config{
		Workers:            cfg.Scheduler.Workers,
		DefaultTimeout:     cfg.Scheduler.DefaultTimeout(),
		WaitPollInterval:   cfg.Scheduler.WaitPollInterval(),
		CompletedRetention: cfg.Scheduler.CompletedRetention,
		Logger:             logger,
		Bus:                bus,
		Dispatcher:         dispatcher,
	})

	collector := telemetry.NewCollector()

	var recorder *metrics.Recorder
	var onSample func(optimizer.MetricsSnapshot)
	if cfg.Metrics.Enabled {
		recorder = metrics.NewRecorder(cfg.Metrics.Namespace, nil)
		recorder.Observe(bus)
		onSample = recorder.RecordSnapshot
	}

	o := optimizer.New(optimizer.Config{
		SampleInterval:    cfg.Optimizer.SampleInterval(),
		HistorySize:       cfg.Optimizer.HistorySize,
		SweepEverySamples: cfg.Optimizer.SweepEverySamples,
		Thresholds:        thresholdsFromConfig(cfg.Optimizer.Thresholds),
		Cache:             c,
		Scheduler:         s,
		Collector:         collector,
		Logger:            logger,
		Bus:               bus,
		OnSample:          onSample,
	})

	return &engine{
		cfg:        cfg,
		logger:     logger,
		bus:        bus,
		dispatcher: dispatcher,
		cache:      c,
		scheduler:  s,
		collector:  collector,
		optimizer:  o,
		recorder:   recorder,
	}, nil
}

// close shuts the engine down in dependency order and drains any
// callbacks still queued.
func (e *engine) close() {
	e.optimizer.Stop()
	e.scheduler.Stop()
	e.dispatcher.Drain(0)
	_ = e.logger.Close()
}

func buildLogger(lc config.LoggingConfig) (*logging.Logger, error) {
	if !lc.Enabled {
		return logging.NopLogger(), nil
	}
	return logging.NewLoggerWithRotation(lc.Dir, logging.ParseLevel(lc.Level), logging.Rotation{
		MaxSizeMB:  lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
		Compress:   lc.Compress,
	})
}

func thresholdsFromConfig(tc config.ThresholdConfig) optimizer.Thresholds {
	return optimizer.Thresholds{
		MemoryHighBytes:  uint64(tc.MemoryHighBytes),
		HitRateLow:       tc.HitRateLow,
		CacheLargeBytes:  tc.CacheLargeBytes,
		UITurnaroundHigh: time.Duration(tc.UITurnaroundHighMs * float64(time.Millisecond)),
		RenderHigh:       time.Duration(tc.RenderHighMs * float64(time.Millisecond)),
	}
}
