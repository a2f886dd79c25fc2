package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists publications. Complete must be a conditional update that
// leaves already completed rows untouched and reports whether a row changed;
// FindIncomplete returns the oldest
// publication first with insertion order breaking ties.
type Store interface {
	Insert(ctx context.Context, p Publication) error
	Complete(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	FindIncomplete(ctx context.Context) ([]Publication, error)
	FindByID(ctx context.Context, id uuid.UUID) (Publication, bool, error)
	// DeleteCompletedBefore removes completed publications whose completion
	// lies before t and returns the number removed.
	DeleteCompletedBefore(ctx context.Context, t time.Time) (int64, error)
	Close() error
}
