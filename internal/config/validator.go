package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "cache.max_bytes")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateCache()...)
	errors = append(errors, c.validateScheduler()...)
	errors = append(errors, c.validateWindow()...)
	errors = append(errors, c.validateOptimizer()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateCache validates the CacheConfig
func (c *Config) validateCache() []ValidationError {
	var errors []ValidationError

	if c.Cache.MaxBytes <= 0 {
		errors = append(errors, ValidationError{
			Field:   "cache.max_bytes",
			Value:   c.Cache.MaxBytes,
			Message: "must be positive",
		})
	}

	if c.Cache.Policy != "" && !IsValidCachePolicy(c.Cache.Policy) {
		errors = append(errors, ValidationError{
			Field:   "cache.policy",
			Value:   c.Cache.Policy,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidCachePolicies(), ", ")),
		})
	}

	if c.Cache.DefaultTTLSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "cache.default_ttl_seconds",
			Value:   c.Cache.DefaultTTLSeconds,
			Message: "must be non-negative",
		})
	}

	if c.Cache.FallbackEntryBytes <= 0 {
		errors = append(errors, ValidationError{
			Field:   "cache.fallback_entry_bytes",
			Value:   c.Cache.FallbackEntryBytes,
			Message: "must be positive",
		})
	}

	return errors
}

// validateScheduler validates the SchedulerConfig
func (c *Config) validateScheduler() []ValidationError {
	var errors []ValidationError

	const maxWorkers = 256
	if c.Scheduler.Workers < 1 {
		errors = append(errors, ValidationError{
			Field:   "scheduler.workers",
			Value:   c.Scheduler.Workers,
			Message: "must be at least 1",
		})
	}
	if c.Scheduler.Workers > maxWorkers {
		errors = append(errors, ValidationError{
			Field:   "scheduler.workers",
			Value:   c.Scheduler.Workers,
			Message: fmt.Sprintf("exceeds maximum of %d", maxWorkers),
		})
	}

	if c.Scheduler.DefaultTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "scheduler.default_timeout_seconds",
			Value:   c.Scheduler.DefaultTimeoutSeconds,
			Message: "must be non-negative",
		})
	}

	const minPollInterval = 1    // 1ms minimum
	const maxPollInterval = 1000 // 1 second maximum
	if c.Scheduler.WaitPollIntervalMs < minPollInterval {
		errors = append(errors, ValidationError{
			Field:   "scheduler.wait_poll_interval_ms",
			Value:   c.Scheduler.WaitPollIntervalMs,
			Message: fmt.Sprintf("must be at least %dms", minPollInterval),
		})
	}
	if c.Scheduler.WaitPollIntervalMs > maxPollInterval {
		errors = append(errors, ValidationError{
			Field:   "scheduler.wait_poll_interval_ms",
			Value:   c.Scheduler.WaitPollIntervalMs,
			Message: fmt.Sprintf("exceeds maximum of %dms", maxPollInterval),
		})
	}

	if c.Scheduler.CompletedRetention < 0 {
		errors = append(errors, ValidationError{
			Field:   "scheduler.completed_retention",
			Value:   c.Scheduler.CompletedRetention,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateWindow validates the WindowConfig
func (c *Config) validateWindow() []ValidationError {
	var errors []ValidationError

	if c.Window.ItemHeight < 1 {
		errors = append(errors, ValidationError{
			Field:   "window.item_height",
			Value:   c.Window.ItemHeight,
			Message: "must be at least 1",
		})
	}

	if c.Window.BufferItems < 0 {
		errors = append(errors, ValidationError{
			Field:   "window.buffer_items",
			Value:   c.Window.BufferItems,
			Message: "must be non-negative",
		})
	}

	if c.Window.MinVisible < 1 {
		errors = append(errors, ValidationError{
			Field:   "window.min_visible",
			Value:   c.Window.MinVisible,
			Message: "must be at least 1",
		})
	}

	if c.Window.MaxVisible < c.Window.MinVisible {
		errors = append(errors, ValidationError{
			Field:   "window.max_visible",
			Value:   c.Window.MaxVisible,
			Message: fmt.Sprintf("must be at least min_visible (%d)", c.Window.MinVisible),
		})
	}

	return errors
}

// validateOptimizer validates the OptimizerConfig
func (c *Config) validateOptimizer() []ValidationError {
	var errors []ValidationError

	const minSampleInterval = 100 // 100ms minimum; faster sampling costs more than it observes

	if c.Optimizer.SampleIntervalMs < minSampleInterval {
		errors = append(errors, ValidationError{
			Field:   "optimizer.sample_interval_ms",
			Value:   c.Optimizer.SampleIntervalMs,
			Message: fmt.Sprintf("must be at least %dms", minSampleInterval),
		})
	}

	if c.Optimizer.HistorySize < 1 {
		errors = append(errors, ValidationError{
			Field:   "optimizer.history_size",
			Value:   c.Optimizer.HistorySize,
			Message: "must be at least 1",
		})
	}

	if c.Optimizer.SweepEverySamples < 1 {
		errors = append(errors, ValidationError{
			Field:   "optimizer.sweep_every_samples",
			Value:   c.Optimizer.SweepEverySamples,
			Message: "must be at least 1",
		})
	}

	if c.Optimizer.Thresholds.HitRateLow < 0 || c.Optimizer.Thresholds.HitRateLow > 1 {
		errors = append(errors, ValidationError{
			Field:   "optimizer.thresholds.hit_rate_low",
			Value:   c.Optimizer.Thresholds.HitRateLow,
			Message: "must be between 0 and 1",
		})
	}

	if c.Optimizer.Thresholds.MemoryHighBytes < 0 {
		errors = append(errors, ValidationError{
			Field:   "optimizer.thresholds.memory_high_bytes",
			Value:   c.Optimizer.Thresholds.MemoryHighBytes,
			Message: "must be non-negative",
		})
	}

	if c.Optimizer.Thresholds.CacheLargeBytes < 0 {
		errors = append(errors, ValidationError{
			Field:   "optimizer.thresholds.cache_large_bytes",
			Value:   c.Optimizer.Thresholds.CacheLargeBytes,
			Message: "must be non-negative",
		})
	}

	if c.Optimizer.Thresholds.UITurnaroundHighMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "optimizer.thresholds.ui_turnaround_high_ms",
			Value:   c.Optimizer.Thresholds.UITurnaroundHighMs,
			Message: "must be non-negative",
		})
	}

	if c.Optimizer.Thresholds.RenderHighMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "optimizer.thresholds.render_high_ms",
			Value:   c.Optimizer.Thresholds.RenderHighMs,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative",
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
