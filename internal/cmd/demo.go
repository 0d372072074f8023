package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/attunedev/attune/internal/config"
	"github.com/attunedev/attune/internal/tui"
	"github.com/attunedev/attune/internal/window"
)

var (
	demoItems       int
	demoMetricsAddr string
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the interactive browser backed by the full engine",
	Long: `Demo starts the terminal UI over a synthetic dataset with every
engine component wired in: list rows are windowed through the renderer,
detail loads run on the scheduler and land in the cache, and the
optimizer samples the whole system in the background.

When metrics are enabled, Prometheus metrics are served at /metrics on
the configured address for the lifetime of the session.`,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().IntVar(&demoItems, "items", 10000, "number of synthetic records to browse")
	demoCmd.Flags().StringVar(&demoMetricsAddr, "metrics-addr", "", "listen address for /metrics (overrides config)")
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	eng.optimizer.Start(ctx)

	app := tui.New(tui.Deps{
		Cache:      eng.cache,
		Scheduler:  eng.scheduler,
		Optimizer:  eng.optimizer,
		Dispatcher: eng.dispatcher,
		Bus:        eng.bus,
		Metrics:    eng.recorder,
		Logger:     eng.logger,
		Items:      demoItems,
		WindowCfg: window.Config{
			ItemHeight:   cfg.Window.ItemHeight,
			Buffer:       cfg.Window.BufferItems,
			MinVisible:   cfg.Window.MinVisible,
			MaxVisible:   cfg.Window.MaxVisible,
			SmoothScroll: cfg.Window.SmoothScroll,
		},
	})

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer cancel()
		return app.Run()
	})

	addr := demoMetricsAddr
	if addr == "" {
		addr = cfg.Metrics.Addr
	}
	if cfg.Metrics.Enabled && addr != "" && eng.recorder != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", eng.recorder.Handler())
		srv := &http.Server{Addr: addr, Handler: mux}

		group.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		group.Go(func() error {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return group.Wait()
}
