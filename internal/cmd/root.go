// Package cmd wires the attune CLI: an interactive demo of the engine and
// an offline report of what the optimizer would do.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/attunedev/attune/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "attune",
	Short: "Adaptive resource management engine",
	Long: `Attune is a client-side resource management engine: a byte-budgeted
cache, a bounded task scheduler, a windowed list renderer, and an
autonomic optimizer that watches the other three and retunes them.

The demo command runs an interactive showcase; report samples the engine
and prints the optimizer's view of it.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/attune/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/attune")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("ATTUNE")
	// Replace dots with underscores for nested keys in env vars
	// e.g., ATTUNE_CACHE_MAX_BYTES for cache.max_bytes
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
