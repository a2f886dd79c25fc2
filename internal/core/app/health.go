package app

import (
	"context"
	"fmt"
	"time"

	"modulith/internal/core/errors"
	"modulith/internal/data/ledger"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app    *App
	ledger *ledger.Ledger
}

// NewHealthService reports on app and, when l is not nil, on the ledger.
func NewHealthService(app *App, l *ledger.Ledger) *HealthService {
	return &HealthService{app: app, ledger: l}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  s.app.clock().UTC(),
		Components: make(map[string]string),
	}

	if last := s.app.Last(); last == nil {
		status.Status = "degraded"
		status.Components["model"] = "not analyzed yet"
	} else {
		status.Components["model"] = fmt.Sprintf("ok (%d modules, %d violations)", len(last.Model.Modules()), last.Violations.Len())
	}

	if s.ledger != nil {
		n, err := s.ledger.CountIncomplete(ctx)
		if err != nil {
			status.Status = "down"
			status.Components["ledger"] = err.Error()
		} else {
			status.Components["ledger"] = fmt.Sprintf("ok (%d incomplete)", n)
		}
	}
	return status
}

// Probe adapts Check to the observability server's health hook.
func (s *HealthService) Probe(ctx context.Context) error {
	status := s.Check(ctx)
	if status.Status == "down" {
		return errors.Newf(errors.CodeStorage, "unhealthy: %v", status.Components)
	}
	return nil
}
