package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/attunedev/attune/internal/config"
	"github.com/attunedev/attune/internal/optimizer"
)

var (
	reportSamples  int
	reportInterval time.Duration
	reportOptimize bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Sample the engine and print an optimizer report as JSON",
	Long: `Report builds the engine, captures a burst of metrics snapshots, and
prints the optimizer's report and suggestions as JSON. With --optimize
it also runs every optimization rule once and includes the result.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().IntVar(&reportSamples, "samples", 5, "number of snapshots to capture")
	reportCmd.Flags().DurationVar(&reportInterval, "interval", 200*time.Millisecond, "delay between snapshots")
	reportCmd.Flags().BoolVar(&reportOptimize, "optimize", false, "run all optimization rules before reporting")
	rootCmd.AddCommand(reportCmd)
}

type reportOutput struct {
	Report      optimizer.Report          `json:"report"`
	Suggestions []optimizer.Suggestion    `json:"suggestions"`
	Optimize    *optimizer.OptimizeResult `json:"optimize,omitempty"`
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportSamples < 1 {
		return fmt.Errorf("--samples must be at least 1, got %d", reportSamples)
	}

	cfg := config.Get()
	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.close()

	for i := 0; i < reportSamples; i++ {
		if i > 0 {
			select {
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			case <-time.After(reportInterval):
			}
		}
		eng.optimizer.SampleNow()
	}

	out := reportOutput{
		Report:      eng.optimizer.Report(),
		Suggestions: eng.optimizer.Suggestions(),
	}
	if reportOptimize {
		result := eng.optimizer.ManualOptimize()
		out.Optimize = &result
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
