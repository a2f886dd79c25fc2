package events

import (
	"context"
	"log/slog"
	"time"

	"modulith/internal/shared/observability"
	"modulith/internal/shared/util"
)

type ResubmitterOptions struct {
	// Rate is the redelivery rate per listener in events per second.
	// Zero disables throttling.
	Rate  float64
	Burst int
	// Interval between Run iterations. Defaults to one minute.
	Interval time.Duration
	// MinAge skips publications younger than this, leaving in-flight
	// deliveries alone.
	MinAge time.Duration
	Clock  func() time.Time
	Logger *slog.Logger
}

type ResubmitResult struct {
	Attempted int
	Succeeded int
	Failed    int
	Skipped   int
}

// Resubmitter redelivers incomplete publications: at least once, never
// stopping at the first failure.
type Resubmitter struct {
	dispatcher *Dispatcher
	limiters   *util.LimiterRegistry
	interval   time.Duration
	minAge     time.Duration
	clock      func() time.Time
	logger     *slog.Logger
}

func NewResubmitter(d *Dispatcher, opts ResubmitterOptions) *Resubmitter {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Resubmitter{
		dispatcher: d,
		limiters:   util.NewLimiterRegistry(opts.Rate, opts.Burst, 10*opts.Interval),
		interval:   opts.Interval,
		minAge:     opts.MinAge,
		clock:      opts.Clock,
		logger:     opts.Logger,
	}
}

// ResubmitIncomplete makes one pass over the incomplete publications.
// Only a failure to read the ledger or a cancelled context aborts the pass.
func (r *Resubmitter) ResubmitIncomplete(ctx context.Context) (ResubmitResult, error) {
	var result ResubmitResult
	pubs, err := r.dispatcher.Ledger().FindIncomplete(ctx)
	if err != nil {
		return result, err
	}

	cutoff := r.clock().Add(-r.minAge)
	for _, p := range pubs {
		if r.minAge > 0 && p.PublishedAt.After(cutoff) {
			result.Skipped++
			continue
		}
		if err := r.limiters.Get(p.ListenerID).Wait(ctx, 1); err != nil {
			return result, err
		}

		result.Attempted++
		if err := r.dispatcher.Deliver(ctx, p); err != nil {
			result.Failed++
			observability.ResubmissionsTotal.WithLabelValues("failure").Inc()
			r.logger.WarnContext(ctx, "publication resubmission failed",
				"publication_id", p.ID.String(),
				"listener_id", p.ListenerID,
				"error", err,
			)
			continue
		}
		result.Succeeded++
		observability.ResubmissionsTotal.WithLabelValues("success").Inc()
	}
	return result, nil
}

// Run resubmits on every interval until ctx is cancelled.
func (r *Resubmitter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		result, err := r.ResubmitIncomplete(ctx)
		if err != nil && ctx.Err() == nil {
			r.logger.ErrorContext(ctx, "resubmission pass failed", "error", err)
		} else if result.Attempted > 0 {
			r.logger.InfoContext(ctx, "resubmission pass finished",
				"attempted", result.Attempted,
				"succeeded", result.Succeeded,
				"failed", result.Failed,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
