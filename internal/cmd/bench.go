package cmd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/attunedev/attune/internal/cache"
	"github.com/attunedev/attune/internal/config"
	"github.com/attunedev/attune/internal/scheduler"
	"github.com/attunedev/attune/internal/window"
)

var (
	benchTasks   int
	benchEntries int
	benchScrolls int
	benchJSON    bool
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Drive a synthetic workload and print engine statistics",
	Long: `Bench runs a short synthetic workload against every component: tasks
through the scheduler that write their results into the cache, repeated
lookups to exercise the eviction policy, and a scroll sweep over a
windowed list. It then prints the accumulated statistics.`,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().IntVar(&benchTasks, "tasks", 200, "number of tasks to submit")
	benchCmd.Flags().IntVar(&benchEntries, "entries", 500, "number of cache entries to write and re-read")
	benchCmd.Flags().IntVar(&benchScrolls, "scrolls", 100, "number of scroll steps over the list")
	benchCmd.Flags().BoolVar(&benchJSON, "json", false, "output statistics as JSON")
	rootCmd.AddCommand(benchCmd)
}

type benchOutput struct {
	Elapsed   time.Duration        `json:"elapsed_ns"`
	Cache     cache.Statistics     `json:"cache"`
	Scheduler scheduler.Statistics `json:"scheduler"`
	Window    window.Stats         `json:"window"`
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.close()

	start := time.Now()

	// Scheduler workload: each task digests its payload and caches the
	// result on completion, the same shape the interactive browser uses.
	ids := make([]string, 0, benchTasks)
	for i := 0; i < benchTasks; i++ {
		payload := fmt.Sprintf("bench-%d", i)
		key := "bench:" + payload
		id, err := eng.scheduler.Submit(func(ctx context.Context, progress scheduler.ProgressFunc) (any, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			sum := sha256.Sum256([]byte(payload))
			progress(100)
			return hex.EncodeToString(sum[:]), nil
		},
			scheduler.WithIdentity(key),
			scheduler.WithTimeout(5*time.Second),
			scheduler.WithOnComplete(func(result any) {
				eng.cache.Put(key, result, cache.WithTags("bench"))
			}),
		)
		if err != nil {
			return fmt.Errorf("submit task %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	for _, id := range ids {
		if _, err := eng.scheduler.Wait(id, 30*time.Second); err != nil {
			return fmt.Errorf("wait for task %s: %w", id, err)
		}
	}
	eng.dispatcher.Drain(0)

	// Cache workload: overfill the budget so the eviction policy has to
	// work, then sweep lookups to accumulate hits and misses.
	for i := 0; i < benchEntries; i++ {
		eng.cache.Put(fmt.Sprintf("entry:%d", i), strings.Repeat("x", 4096))
	}
	for i := 0; i < benchEntries; i++ {
		eng.cache.Get(fmt.Sprintf("entry:%d", i))
	}

	// Window workload: bind a synthetic list and sweep the viewport
	// across it.
	items := make([]any, 10000)
	for i := range items {
		items[i] = i
	}
	renderer := window.New(window.Config{
		ItemHeight: cfg.Window.ItemHeight,
		Buffer:     cfg.Window.BufferItems,
		Logger:     eng.logger,
		Bus:        eng.bus,
	})
	renderer.Bind(items, func(index int, item any) any { return item })
	renderer.SetViewport(40)
	step := len(items) / max(benchScrolls, 1)
	for i := 0; i < benchScrolls; i++ {
		renderer.ScrollTo(i * step)
	}
	eng.dispatcher.Drain(0)

	out := benchOutput{
		Elapsed:   time.Since(start),
		Cache:     eng.cache.Statistics(),
		Scheduler: eng.scheduler.Statistics(),
		Window:    renderer.Stats(),
	}

	if benchJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	return printBenchText(cmd, out)
}

func printBenchText(cmd *cobra.Command, out benchOutput) error {
	w := cmd.OutOrStdout()
	rule := strings.Repeat("-", 50)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Workload completed in %s\n", out.Elapsed.Round(time.Millisecond))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "CACHE")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Entries:       %d (%d / %d bytes, policy %s)\n",
		out.Cache.Entries, out.Cache.UsedBytes, out.Cache.MaxBytes, out.Cache.Policy)
	fmt.Fprintf(w, "Hits/Misses:   %d / %d (hit rate %.1f%%)\n",
		out.Cache.Hits, out.Cache.Misses, out.Cache.HitRate*100)
	fmt.Fprintf(w, "Evictions:     %d\n", out.Cache.Evictions)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "SCHEDULER")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Workers:       %d\n", out.Scheduler.Workers)
	fmt.Fprintf(w, "Submitted:     %d (%d deduplicated)\n", out.Scheduler.Submitted, out.Scheduler.Deduplicated)
	fmt.Fprintf(w, "Completed:     %d (%d failed, %d cancelled)\n",
		out.Scheduler.Completed, out.Scheduler.Failed, out.Scheduler.Cancelled)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "WINDOW")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Items:         %d (%d materialized, range %d-%d)\n",
		out.Window.TotalItems, out.Window.Materialized, out.Window.Start, out.Window.End)
	fmt.Fprintf(w, "Churn:         %d materialized / %d destroyed over %d recomputes\n",
		out.Window.MaterializedTotal, out.Window.DestroyedTotal, out.Window.Recomputes)

	return nil
}
