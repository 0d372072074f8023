package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete engine configuration
type Config struct {
	Cache     CacheConfig     `mapstructure:"cache"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Window    WindowConfig    `mapstructure:"window"`
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// CacheConfig controls the bounded cache
type CacheConfig struct {
	// MaxBytes is the byte budget for all cached values combined
	MaxBytes int64 `mapstructure:"max_bytes"`
	// Policy selects the eviction policy
	// Options: "lru", "lfu", "fifo"
	Policy string `mapstructure:"policy"`
	// DefaultTTLSeconds applies to entries stored without an explicit TTL (0 = no expiry)
	DefaultTTLSeconds int `mapstructure:"default_ttl_seconds"`
	// FallbackEntryBytes is the size charged for a value whose serialized
	// size cannot be computed
	FallbackEntryBytes int64 `mapstructure:"fallback_entry_bytes"`
}

// SchedulerConfig controls the background task scheduler
type SchedulerConfig struct {
	// Workers is the number of concurrent worker goroutines
	Workers int `mapstructure:"workers"`
	// DefaultTimeoutSeconds is applied to tasks submitted without a timeout (0 = none)
	DefaultTimeoutSeconds int `mapstructure:"default_timeout_seconds"`
	// WaitPollIntervalMs is the polling granularity for Wait calls
	WaitPollIntervalMs int `mapstructure:"wait_poll_interval_ms"`
	// CompletedRetention is how many terminal tasks to keep in the table
	// before the oldest are reclaimed (0 = unbounded)
	CompletedRetention int `mapstructure:"completed_retention"`
}

// WindowConfig controls the windowed list renderer
type WindowConfig struct {
	// ItemHeight is the fixed per-item extent in rows (ignored when the
	// caller supplies a height function)
	ItemHeight int `mapstructure:"item_height"`
	// BufferItems is the number of extra items materialized on each side
	// of the visible range
	BufferItems int `mapstructure:"buffer_items"`
	// MinVisible is the lower clamp on items per screen
	MinVisible int `mapstructure:"min_visible"`
	// MaxVisible is the upper clamp on items per screen
	MaxVisible int `mapstructure:"max_visible"`
	// SmoothScroll enables fractional scroll animation in hosts that support it
	SmoothScroll bool `mapstructure:"smooth_scroll"`
}

// OptimizerConfig controls the autonomic optimizer
type OptimizerConfig struct {
	// SampleIntervalMs is how often a metrics snapshot is captured
	SampleIntervalMs int `mapstructure:"sample_interval_ms"`
	// HistorySize is the number of snapshots kept in the ring
	HistorySize int `mapstructure:"history_size"`
	// SweepEverySamples runs the periodic sweep rule every N samples
	SweepEverySamples int `mapstructure:"sweep_every_samples"`
	// Thresholds gate the default optimization rules
	Thresholds ThresholdConfig `mapstructure:"thresholds"`
}

// ThresholdConfig holds the trigger points for the default optimization rules
type ThresholdConfig struct {
	// MemoryHighBytes triggers memory reclamation when heap use exceeds it
	MemoryHighBytes int64 `mapstructure:"memory_high_bytes"`
	// HitRateLow triggers cache re-tuning when the hit rate falls below it (0..1)
	HitRateLow float64 `mapstructure:"hit_rate_low"`
	// CacheLargeBytes is the cache size above which a low hit rate is worth acting on
	CacheLargeBytes int64 `mapstructure:"cache_large_bytes"`
	// UITurnaroundHighMs triggers buffer shrinking when UI turnaround exceeds it
	UITurnaroundHighMs float64 `mapstructure:"ui_turnaround_high_ms"`
	// RenderHighMs triggers smoothing drop when render latency exceeds it
	RenderHighMs float64 `mapstructure:"render_high_ms"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Enabled turns file logging on or off
	Enabled bool `mapstructure:"enabled"`
	// Level is the minimum log level: "debug", "info", "warn", "error"
	Level string `mapstructure:"level"`
	// Dir is the directory for the engine log file (empty = stderr)
	Dir string `mapstructure:"dir"`
	// MaxSizeMB rotates the log file when it exceeds this size (0 = no rotation)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated log files to keep
	MaxBackups int `mapstructure:"max_backups"`
	// Compress gzips rotated log files
	Compress bool `mapstructure:"compress"`
}

// MetricsConfig controls the Prometheus metrics surface
type MetricsConfig struct {
	// Enabled turns metric recording on or off
	Enabled bool `mapstructure:"enabled"`
	// Addr is the listen address for the metrics endpoint (empty = not served)
	Addr string `mapstructure:"addr"`
	// Namespace prefixes all published metric names
	Namespace string `mapstructure:"namespace"`
}

// DefaultTTL returns the cache default TTL as a time.Duration (0 means no expiry)
func (c *CacheConfig) DefaultTTL() time.Duration {
	return time.Duration(c.DefaultTTLSeconds) * time.Second
}

// DefaultTimeout returns the scheduler default timeout as a time.Duration (0 means none)
func (c *SchedulerConfig) DefaultTimeout() time.Duration {
	return time.Duration(c.DefaultTimeoutSeconds) * time.Second
}

// WaitPollInterval returns the Wait polling granularity as a time.Duration
func (c *SchedulerConfig) WaitPollInterval() time.Duration {
	return time.Duration(c.WaitPollIntervalMs) * time.Millisecond
}

// SampleInterval returns the optimizer sampling interval as a time.Duration
func (c *OptimizerConfig) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalMs) * time.Millisecond
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			MaxBytes:           8 * 1024 * 1024, // 8MB
			Policy:             "lru",
			DefaultTTLSeconds:  0, // No expiry unless set per entry
			FallbackEntryBytes: 1024,
		},
		Scheduler: SchedulerConfig{
			Workers:               4,
			DefaultTimeoutSeconds: 0, // No timeout unless set per task
			WaitPollIntervalMs:    10,
			CompletedRetention:    1000,
		},
		Window: WindowConfig{
			ItemHeight:   1,
			BufferItems:  10,
			MinVisible:   1,
			MaxVisible:   200,
			SmoothScroll: true,
		},
		Optimizer: OptimizerConfig{
			SampleIntervalMs:  2000,
			HistorySize:       120, // 4 minutes at the default interval
			SweepEverySamples: 30,
			Thresholds: ThresholdConfig{
				MemoryHighBytes:    256 * 1024 * 1024, // 256MB
				HitRateLow:         0.4,
				CacheLargeBytes:    4 * 1024 * 1024, // 4MB
				UITurnaroundHighMs: 100,
				RenderHighMs:       33, // Two 60fps frames
			},
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			Dir:        "",
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   false,
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Addr:      "",
			Namespace: "attune",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Cache defaults
	viper.SetDefault("cache.max_bytes", defaults.Cache.MaxBytes)
	viper.SetDefault("cache.policy", defaults.Cache.Policy)
	viper.SetDefault("cache.default_ttl_seconds", defaults.Cache.DefaultTTLSeconds)
	viper.SetDefault("cache.fallback_entry_bytes", defaults.Cache.FallbackEntryBytes)

	// Scheduler defaults
	viper.SetDefault("scheduler.workers", defaults.Scheduler.Workers)
	viper.SetDefault("scheduler.default_timeout_seconds", defaults.Scheduler.DefaultTimeoutSeconds)
	viper.SetDefault("scheduler.wait_poll_interval_ms", defaults.Scheduler.WaitPollIntervalMs)
	viper.SetDefault("scheduler.completed_retention", defaults.Scheduler.CompletedRetention)

	// Window defaults
	viper.SetDefault("window.item_height", defaults.Window.ItemHeight)
	viper.SetDefault("window.buffer_items", defaults.Window.BufferItems)
	viper.SetDefault("window.min_visible", defaults.Window.MinVisible)
	viper.SetDefault("window.max_visible", defaults.Window.MaxVisible)
	viper.SetDefault("window.smooth_scroll", defaults.Window.SmoothScroll)

	// Optimizer defaults
	viper.SetDefault("optimizer.sample_interval_ms", defaults.Optimizer.SampleIntervalMs)
	viper.SetDefault("optimizer.history_size", defaults.Optimizer.HistorySize)
	viper.SetDefault("optimizer.sweep_every_samples", defaults.Optimizer.SweepEverySamples)
	viper.SetDefault("optimizer.thresholds.memory_high_bytes", defaults.Optimizer.Thresholds.MemoryHighBytes)
	viper.SetDefault("optimizer.thresholds.hit_rate_low", defaults.Optimizer.Thresholds.HitRateLow)
	viper.SetDefault("optimizer.thresholds.cache_large_bytes", defaults.Optimizer.Thresholds.CacheLargeBytes)
	viper.SetDefault("optimizer.thresholds.ui_turnaround_high_ms", defaults.Optimizer.Thresholds.UITurnaroundHighMs)
	viper.SetDefault("optimizer.thresholds.render_high_ms", defaults.Optimizer.Thresholds.RenderHighMs)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	viper.SetDefault("metrics.addr", defaults.Metrics.Addr)
	viper.SetDefault("metrics.namespace", defaults.Metrics.Namespace)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "attune")
	}
	// Fall back to ~/.config/attune
	home, err := os.UserHomeDir()
	if err != nil {
		return ".attune"
	}
	return filepath.Join(home, ".config", "attune")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidCachePolicies returns the list of valid cache eviction policy names
func ValidCachePolicies() []string {
	return []string{"lru", "lfu", "fifo"}
}

// IsValidCachePolicy checks if the given policy name is valid
func IsValidCachePolicy(policy string) bool {
	for _, valid := range ValidCachePolicies() {
		if policy == valid {
			return true
		}
	}
	return false
}
