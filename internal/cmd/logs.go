package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/attunedev/attune/internal/config"
	"github.com/attunedev/attune/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View engine logs",
	Long: `View and filter the engine log.

Reads engine.log from the configured log directory, applies any filters,
and prints the entries. Use --export to write the filtered entries to a
file in json, text, or csv format.

Examples:
  # Show the last 50 entries
  attune logs

  # Warnings and errors only
  attune logs --level warn

  # Everything the scheduler logged about one task
  attune logs --component scheduler --task task-42

  # Entries from the last ten minutes
  attune logs --since 10m

  # Export the cache's log lines as CSV
  attune logs --component cache --export cache.csv --format csv`,
	RunE: runLogs,
}

var (
	logsDir       string
	logsTail      int
	logsLevel     string
	logsSince     string
	logsComponent string
	logsTask      string
	logsRule      string
	logsContains  string
	logsExport    string
	logsFormat    string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVar(&logsDir, "dir", "", "Log directory (default: configured logging.dir)")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show entries since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsComponent, "component", "", "Filter by engine component (cache/scheduler/window/optimizer)")
	logsCmd.Flags().StringVar(&logsTask, "task", "", "Filter by task ID")
	logsCmd.Flags().StringVar(&logsRule, "rule", "", "Filter by optimization rule name")
	logsCmd.Flags().StringVar(&logsContains, "grep", "", "Filter by message substring")
	logsCmd.Flags().StringVar(&logsExport, "export", "", "Write filtered entries to this file instead of printing")
	logsCmd.Flags().StringVar(&logsFormat, "format", "json", "Export format: json, text, csv")
}

func runLogs(cmd *cobra.Command, args []string) error {
	dir := logsDir
	if dir == "" {
		dir = config.Get().Logging.Dir
	}
	if dir == "" {
		return fmt.Errorf("no log directory configured; set logging.dir or pass --dir")
	}

	entries, err := logging.AggregateLogs(dir)
	if err != nil {
		return err
	}

	filter := logging.LogFilter{
		Component:       logsComponent,
		TaskID:          logsTask,
		Rule:            logsRule,
		MessageContains: logsContains,
	}
	if logsLevel != "" {
		filter.Level = logging.ParseLevel(logsLevel)
	}
	if logsSince != "" {
		d, err := time.ParseDuration(logsSince)
		if err != nil {
			return fmt.Errorf("invalid duration format: %w", err)
		}
		filter.StartTime = time.Now().Add(-d)
	}

	entries = logging.FilterLogs(entries, filter)

	if logsExport != "" {
		if err := logging.ExportLogEntries(entries, logsExport, logsFormat); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", len(entries), logsExport)
		return nil
	}

	if logsTail > 0 && len(entries) > logsTail {
		entries = entries[len(entries)-logsTail:]
	}

	out := cmd.OutOrStdout()
	for _, e := range entries {
		fmt.Fprintln(out, formatLogEntry(e))
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No matching log entries found.")
	}
	return nil
}

// formatLogEntry renders one entry for terminal output.
func formatLogEntry(e logging.LogEntry) string {
	var sb strings.Builder

	sb.WriteString("[")
	sb.WriteString(e.Timestamp.Format("15:04:05.000"))
	sb.WriteString("] [")
	sb.WriteString(strings.ToUpper(e.Level))
	sb.WriteString("] ")
	sb.WriteString(e.Message)

	if e.Component != "" {
		sb.WriteString(" component=")
		sb.WriteString(e.Component)
	}
	if e.TaskID != "" {
		sb.WriteString(" task=")
		sb.WriteString(e.TaskID)
	}
	if e.Rule != "" {
		sb.WriteString(" rule=")
		sb.WriteString(e.Rule)
	}
	for k, v := range e.Attrs {
		sb.WriteString(" ")
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(fmt.Sprintf("%v", v))
	}

	return sb.String()
}
