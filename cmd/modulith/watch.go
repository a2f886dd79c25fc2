package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"modulith/internal/core/app"
	"modulith/internal/core/config"
	"modulith/internal/data/moments"
	"modulith/internal/shared/observability"
)

func (c *cli) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-verify on every source change",
		Long: `Analyze the project, then rebuild and re-verify the whole model after
every debounced batch of source changes. Each successful run publishes an
AnalysisCompleted event that regenerates the documentation; failed
deliveries are resubmitted from the ledger. Editing the config file
restarts the loop with the new settings.

When observability.metrics_address is set, /metrics and /health are served
on that address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runWatch(cmd.Context())
		},
	}
}

func (c *cli) runWatch(ctx context.Context) error {
	for {
		runCtx, cancel := context.WithCancel(ctx)
		reloaded := make(chan *config.Config, 1)

		var cw *config.Watcher
		if path := c.cfg.Path(); path != "" {
			cw = config.NewWatcher(path, func(cfg *config.Config) {
				select {
				case reloaded <- cfg:
				default:
				}
				cancel()
			})
			if err := cw.Start(runCtx); err != nil {
				slog.Warn("config watcher unavailable", "error", err)
				cw = nil
			}
		}

		err := c.watchOnce(runCtx)
		if cw != nil {
			cw.Stop()
		}
		cancel()

		select {
		case cfg := <-reloaded:
			c.cfg = cfg
			slog.Info("restarting watch with reloaded configuration")
			continue
		default:
		}
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}

func (c *cli) watchOnce(ctx context.Context) error {
	a, err := c.newApp()
	if err != nil {
		return err
	}
	l, err := a.OpenLedger(ctx)
	if err != nil {
		return err
	}
	defer l.Close()

	d, err := a.Dispatcher(l)
	if err != nil {
		return err
	}

	if addr := c.cfg.Observability.MetricsAddress; addr != "" {
		health := app.NewHealthService(a, l)
		srv := observability.NewServer(addr, health.Probe)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(stopCtx)
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.NewResubmitter(d).Run(gctx)
	})
	g.Go(func() error {
		return moments.New(d, moments.Options{Granularity: moments.Days}).Run(gctx)
	})
	g.Go(func() error {
		return a.Watch(gctx, func(result *app.Result, err error) {
			if err != nil {
				slog.Error("analysis failed", "error", err)
				return
			}
			renderViolations(c.out, result)
			if err := d.Publish(gctx, app.NewAnalysisCompleted(result)); err != nil {
				slog.Warn("analysis event delivery incomplete", "error", err)
			}
		})
	})
	return g.Wait()
}
