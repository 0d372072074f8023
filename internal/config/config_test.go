package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify default cache config
	if cfg.Cache.MaxBytes != 8*1024*1024 {
		t.Errorf("Cache.MaxBytes = %d, want %d", cfg.Cache.MaxBytes, 8*1024*1024)
	}
	if cfg.Cache.Policy != "lru" {
		t.Errorf("Cache.Policy = %q, want %q", cfg.Cache.Policy, "lru")
	}
	if cfg.Cache.DefaultTTLSeconds != 0 {
		t.Errorf("Cache.DefaultTTLSeconds = %d, want 0", cfg.Cache.DefaultTTLSeconds)
	}
	if cfg.Cache.FallbackEntryBytes != 1024 {
		t.Errorf("Cache.FallbackEntryBytes = %d, want 1024", cfg.Cache.FallbackEntryBytes)
	}

	// Verify default scheduler config
	if cfg.Scheduler.Workers != 4 {
		t.Errorf("Scheduler.Workers = %d, want 4", cfg.Scheduler.Workers)
	}
	if cfg.Scheduler.WaitPollIntervalMs != 10 {
		t.Errorf("Scheduler.WaitPollIntervalMs = %d, want 10", cfg.Scheduler.WaitPollIntervalMs)
	}
	if cfg.Scheduler.CompletedRetention != 1000 {
		t.Errorf("Scheduler.CompletedRetention = %d, want 1000", cfg.Scheduler.CompletedRetention)
	}

	// Verify default window config
	if cfg.Window.ItemHeight != 1 {
		t.Errorf("Window.ItemHeight = %d, want 1", cfg.Window.ItemHeight)
	}
	if cfg.Window.BufferItems != 10 {
		t.Errorf("Window.BufferItems = %d, want 10", cfg.Window.BufferItems)
	}
	if cfg.Window.MinVisible != 1 {
		t.Errorf("Window.MinVisible = %d, want 1", cfg.Window.MinVisible)
	}
	if cfg.Window.MaxVisible != 200 {
		t.Errorf("Window.MaxVisible = %d, want 200", cfg.Window.MaxVisible)
	}
	if !cfg.Window.SmoothScroll {
		t.Error("Window.SmoothScroll should be true by default")
	}

	// Verify default optimizer config
	if cfg.Optimizer.SampleIntervalMs != 2000 {
		t.Errorf("Optimizer.SampleIntervalMs = %d, want 2000", cfg.Optimizer.SampleIntervalMs)
	}
	if cfg.Optimizer.HistorySize != 120 {
		t.Errorf("Optimizer.HistorySize = %d, want 120", cfg.Optimizer.HistorySize)
	}
	if cfg.Optimizer.SweepEverySamples != 30 {
		t.Errorf("Optimizer.SweepEverySamples = %d, want 30", cfg.Optimizer.SweepEverySamples)
	}
	if cfg.Optimizer.Thresholds.HitRateLow != 0.4 {
		t.Errorf("Optimizer.Thresholds.HitRateLow = %f, want 0.4", cfg.Optimizer.Thresholds.HitRateLow)
	}

	// Verify default logging config
	if !cfg.Logging.Enabled {
		t.Error("Logging.Enabled should be true by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}

	// Verify default metrics config
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be false by default")
	}
	if cfg.Metrics.Namespace != "attune" {
		t.Errorf("Metrics.Namespace = %q, want %q", cfg.Metrics.Namespace, "attune")
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()

	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("Default() should validate cleanly, got %d errors: %v", len(errs), ValidationErrors(errs))
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	cfg.Cache.DefaultTTLSeconds = 30
	cfg.Scheduler.DefaultTimeoutSeconds = 60
	cfg.Scheduler.WaitPollIntervalMs = 25
	cfg.Optimizer.SampleIntervalMs = 500

	if got := cfg.Cache.DefaultTTL(); got != 30*time.Second {
		t.Errorf("DefaultTTL() = %v, want %v", got, 30*time.Second)
	}
	if got := cfg.Scheduler.DefaultTimeout(); got != time.Minute {
		t.Errorf("DefaultTimeout() = %v, want %v", got, time.Minute)
	}
	if got := cfg.Scheduler.WaitPollInterval(); got != 25*time.Millisecond {
		t.Errorf("WaitPollInterval() = %v, want %v", got, 25*time.Millisecond)
	}
	if got := cfg.Optimizer.SampleInterval(); got != 500*time.Millisecond {
		t.Errorf("SampleInterval() = %v, want %v", got, 500*time.Millisecond)
	}
}

func TestLoadFromViper(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	SetDefaults()
	viper.Set("cache.policy", "lfu")
	viper.Set("scheduler.workers", 8)
	viper.Set("window.buffer_items", 5)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Cache.Policy != "lfu" {
		t.Errorf("Cache.Policy = %q, want %q", cfg.Cache.Policy, "lfu")
	}
	if cfg.Scheduler.Workers != 8 {
		t.Errorf("Scheduler.Workers = %d, want 8", cfg.Scheduler.Workers)
	}
	if cfg.Window.BufferItems != 5 {
		t.Errorf("Window.BufferItems = %d, want 5", cfg.Window.BufferItems)
	}

	// Unset keys fall back to defaults
	if cfg.Cache.MaxBytes != Default().Cache.MaxBytes {
		t.Errorf("Cache.MaxBytes = %d, want default %d", cfg.Cache.MaxBytes, Default().Cache.MaxBytes)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	SetDefaults()
	viper.Set("cache.policy", "clock")

	if _, err := Load(); err == nil {
		t.Error("Load should fail for an unknown cache policy")
	}
}

func TestIsValidCachePolicy(t *testing.T) {
	tests := []struct {
		policy string
		want   bool
	}{
		{"lru", true},
		{"lfu", true},
		{"fifo", true},
		{"LRU", false},
		{"clock", false},
		{"", false},
	}

	for _, tc := range tests {
		if got := IsValidCachePolicy(tc.policy); got != tc.want {
			t.Errorf("IsValidCachePolicy(%q) = %v, want %v", tc.policy, got, tc.want)
		}
	}
}
