package app

import (
	"context"
	"log/slog"

	"modulith/internal/data/events"
	"modulith/internal/data/ledger"
)

// LedgerConfig maps the [ledger] section onto store settings.
func (a *App) LedgerConfig() ledger.Config {
	l := a.Config.Ledger
	path := a.Paths.LedgerPath
	if path == "" {
		path = l.Path
	}
	return ledger.Config{
		Driver:               l.Driver,
		DSN:                  l.DSN,
		Path:                 path,
		BusyTimeout:          l.BusyTimeout,
		SchemaInitialization: l.InitializeSchema(),
	}
}

// OpenLedger opens the configured publication store.
func (a *App) OpenLedger(ctx context.Context) (*ledger.Ledger, error) {
	store, err := ledger.OpenStore(ctx, a.LedgerConfig())
	if err != nil {
		return nil, err
	}
	slog.Debug("ledger opened", "driver", a.Config.Ledger.Driver)
	return ledger.New(store), nil
}

// NewResubmitter builds a resubmitter throttled by the [ledger] settings.
func (a *App) NewResubmitter(d *events.Dispatcher) *events.Resubmitter {
	l := a.Config.Ledger
	return events.NewResubmitter(d, events.ResubmitterOptions{
		Rate:     l.ResubmitRate,
		Burst:    l.ResubmitBurst,
		Interval: l.ResubmitInterval,
		MinAge:   l.ResubmitMinAge,
		Clock:    a.clock,
	})
}

// CleanupLedger removes publications completed before the retention window.
func (a *App) CleanupLedger(ctx context.Context, l *ledger.Ledger) (int64, error) {
	cutoff := a.clock().Add(-a.Config.Ledger.Retention)
	n, err := l.DeleteCompletedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	slog.Info("ledger cleanup finished", "deleted", n, "before", cutoff)
	return n, nil
}
