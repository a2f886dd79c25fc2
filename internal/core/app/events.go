package app

import (
	"context"
	"time"

	"modulith/internal/data/events"
	"modulith/internal/data/ledger"
	"modulith/internal/data/moments"
)

const (
	ListenerDocsWriter    = "docs.writer"
	ListenerLedgerCleanup = "ledger.cleanup"
)

// AnalysisCompleted is published after every successful analysis in watch
// mode.
type AnalysisCompleted struct {
	Modules    int       `json:"modules"`
	Types      int       `json:"types"`
	Violations int       `json:"violations"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

func (AnalysisCompleted) EventType() string { return "modulith.AnalysisCompleted" }

func NewAnalysisCompleted(r *Result) AnalysisCompleted {
	return AnalysisCompleted{
		Modules:    len(r.Model.Modules()),
		Types:      r.Types,
		Violations: r.Violations.Len(),
		AnalyzedAt: r.AnalyzedAt,
	}
}

// Dispatcher returns a dispatcher over l with the built-in listeners
// registered: documentation is regenerated after each analysis and
// completed publications are pruned once a day.
func (a *App) Dispatcher(l *ledger.Ledger) (*events.Dispatcher, error) {
	d := events.NewDispatcher(l)
	if err := events.On(d, ListenerDocsWriter, a.onAnalysisCompleted); err != nil {
		return nil, err
	}
	err := events.On(d, ListenerLedgerCleanup, func(ctx context.Context, _ moments.DayHasPassed) error {
		_, err := a.CleanupLedger(ctx, l)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// onAnalysisCompleted renders docs for the latest analysis. A redelivered
// publication in a fresh process analyzes first.
func (a *App) onAnalysisCompleted(ctx context.Context, _ AnalysisCompleted) error {
	result := a.Last()
	if result == nil {
		var err error
		if result, err = a.Analyze(ctx); err != nil {
			return err
		}
	}
	_, err := a.WriteDocs(ctx, result)
	return err
}
