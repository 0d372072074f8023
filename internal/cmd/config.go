package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/attunedev/attune/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify attune configuration",
	Long: `View or modify attune configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  attune config set cache.policy lfu
  attune config set scheduler.workers 8
  attune config set optimizer.sample_interval_ms 2000

Valid keys:
  cache.max_bytes             - Byte budget for the cache
  cache.policy                - Eviction policy: lru, lfu, fifo
  cache.default_ttl_seconds   - Default TTL for cached entries (0 = no expiry)
  scheduler.workers           - Number of worker goroutines
  scheduler.default_timeout_seconds - Default task timeout (0 = none)
  window.item_height          - Rows per list item
  window.buffer_items         - Extra items materialized on each side
  window.smooth_scroll        - Fractional scroll animation (true/false)
  optimizer.sample_interval_ms - Metrics sampling interval
  optimizer.history_size      - Snapshots kept in the history ring
  logging.enabled             - File logging on or off (true/false)
  logging.level               - Log level: debug, info, warn, error
  metrics.enabled             - Metric recording on or off (true/false)
  metrics.addr                - Listen address for /metrics`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/attune/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintln(out)

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Config file: (none - using defaults)\n")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "cache:")
	fmt.Fprintf(out, "  max_bytes: %d\n", cfg.Cache.MaxBytes)
	fmt.Fprintf(out, "  policy: %s\n", cfg.Cache.Policy)
	fmt.Fprintf(out, "  default_ttl_seconds: %d\n", cfg.Cache.DefaultTTLSeconds)
	fmt.Fprintf(out, "  fallback_entry_bytes: %d\n", cfg.Cache.FallbackEntryBytes)

	fmt.Fprintln(out, "scheduler:")
	fmt.Fprintf(out, "  workers: %d\n", cfg.Scheduler.Workers)
	fmt.Fprintf(out, "  default_timeout_seconds: %d\n", cfg.Scheduler.DefaultTimeoutSeconds)
	fmt.Fprintf(out, "  wait_poll_interval_ms: %d\n", cfg.Scheduler.WaitPollIntervalMs)
	fmt.Fprintf(out, "  completed_retention: %d\n", cfg.Scheduler.CompletedRetention)

	fmt.Fprintln(out, "window:")
	fmt.Fprintf(out, "  item_height: %d\n", cfg.Window.ItemHeight)
	fmt.Fprintf(out, "  buffer_items: %d\n", cfg.Window.BufferItems)
	fmt.Fprintf(out, "  min_visible: %d\n", cfg.Window.MinVisible)
	fmt.Fprintf(out, "  max_visible: %d\n", cfg.Window.MaxVisible)
	fmt.Fprintf(out, "  smooth_scroll: %v\n", cfg.Window.SmoothScroll)

	fmt.Fprintln(out, "optimizer:")
	fmt.Fprintf(out, "  sample_interval_ms: %d\n", cfg.Optimizer.SampleIntervalMs)
	fmt.Fprintf(out, "  history_size: %d\n", cfg.Optimizer.HistorySize)
	fmt.Fprintf(out, "  sweep_every_samples: %d\n", cfg.Optimizer.SweepEverySamples)

	fmt.Fprintln(out, "logging:")
	fmt.Fprintf(out, "  enabled: %v\n", cfg.Logging.Enabled)
	fmt.Fprintf(out, "  level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "  dir: %s\n", cfg.Logging.Dir)
	fmt.Fprintf(out, "  max_size_mb: %d\n", cfg.Logging.MaxSizeMB)
	fmt.Fprintf(out, "  max_backups: %d\n", cfg.Logging.MaxBackups)
	fmt.Fprintf(out, "  compress: %v\n", cfg.Logging.Compress)

	fmt.Fprintln(out, "metrics:")
	fmt.Fprintf(out, "  enabled: %v\n", cfg.Metrics.Enabled)
	fmt.Fprintf(out, "  addr: %s\n", cfg.Metrics.Addr)

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	// Validate the key exists
	validKeys := map[string]string{
		"cache.max_bytes":                   "int",
		"cache.policy":                      "string",
		"cache.default_ttl_seconds":         "int",
		"cache.fallback_entry_bytes":        "int",
		"scheduler.workers":                 "int",
		"scheduler.default_timeout_seconds": "int",
		"scheduler.wait_poll_interval_ms":   "int",
		"scheduler.completed_retention":     "int",
		"window.item_height":                "int",
		"window.buffer_items":               "int",
		"window.min_visible":                "int",
		"window.max_visible":                "int",
		"window.smooth_scroll":              "bool",
		"optimizer.sample_interval_ms":      "int",
		"optimizer.history_size":            "int",
		"optimizer.sweep_every_samples":     "int",
		"logging.enabled":                   "bool",
		"logging.level":                     "string",
		"logging.dir":                       "string",
		"logging.max_size_mb":               "int",
		"logging.max_backups":               "int",
		"logging.compress":                  "bool",
		"metrics.enabled":                   "bool",
		"metrics.addr":                      "string",
	}

	keyType, ok := validKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'attune config set --help' to see valid keys", key)
	}

	// Validate the value based on type
	var typedValue interface{}
	switch keyType {
	case "string":
		if key == "cache.policy" && !config.IsValidCachePolicy(value) {
			return fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.Join(config.ValidCachePolicies(), ", "))
		}
		if key == "logging.level" && !isValidLogLevel(value) {
			return fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.Join(config.ValidLogLevels(), ", "))
		}
		typedValue = value
	case "bool":
		if value != "true" && value != "false" {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = value == "true"
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if intVal < 0 {
			return fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		typedValue = intVal
	}

	// Ensure config directory exists
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set the value in viper
	viper.Set(key, typedValue)

	// Write to config file
	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", configFile)

	return nil
}

func isValidLogLevel(level string) bool {
	for _, l := range config.ValidLogLevels() {
		if level == l {
			return true
		}
	}
	return false
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'attune config set' to modify values", configFile)
	}

	// Create config directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Generate a commented config file
	configContent := `# attune configuration

# Bounded cache settings
cache:
  # Byte budget for all cached values combined (default: 8 MB)
  max_bytes: 8388608
  # Eviction policy: lru, lfu, fifo
  policy: lru
  # Default TTL in seconds for entries stored without one (0 = no expiry)
  default_ttl_seconds: 0
  # Size charged for a value whose serialized size cannot be computed
  fallback_entry_bytes: 1024

# Task scheduler settings
scheduler:
  # Number of concurrent worker goroutines
  workers: 4
  # Default task timeout in seconds (0 = none)
  default_timeout_seconds: 0
  # Polling granularity for Wait calls in milliseconds
  wait_poll_interval_ms: 10
  # Terminal tasks kept before the oldest are reclaimed (0 = unbounded)
  completed_retention: 1000

# Windowed list renderer settings
window:
  # Rows per list item
  item_height: 1
  # Extra items materialized on each side of the visible range
  buffer_items: 10
  # Clamp on items per screen
  min_visible: 1
  max_visible: 200
  # Fractional scroll animation in hosts that support it
  smooth_scroll: true

# Autonomic optimizer settings
optimizer:
  # How often a metrics snapshot is captured, in milliseconds
  sample_interval_ms: 2000
  # Number of snapshots kept in the history ring
  history_size: 120
  # Run the periodic sweep rule every N samples
  sweep_every_samples: 30
  # Trigger points for the built-in optimization rules
  thresholds:
    memory_high_bytes: 268435456
    hit_rate_low: 0.4
    cache_large_bytes: 4194304
    ui_turnaround_high_ms: 100
    render_high_ms: 33

# Logging settings
logging:
  enabled: true
  # Levels: debug, info, warn, error
  level: info
  # Directory for the engine log file (empty = stderr)
  dir: ""
  # Rotate the log file when it exceeds this size (0 = no rotation)
  max_size_mb: 10
  # Rotated log files to keep
  max_backups: 3
  # Gzip rotated log files
  compress: false

# Prometheus metrics settings
metrics:
  enabled: false
  # Listen address for the /metrics endpoint (empty = not served)
  addr: ""
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	fmt.Fprintln(cmd.OutOrStdout(), "Edit this file to customize attune's behavior.")

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()
	out := cmd.OutOrStdout()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Fprintf(out, "  2. $HOME/.config/attune/config.yaml\n")
	fmt.Fprintf(out, "  3. ./config.yaml (current directory)\n")
	fmt.Fprintln(out, "\nEnvironment variables: ATTUNE_* (e.g., ATTUNE_CACHE_POLICY)")

	return nil
}
