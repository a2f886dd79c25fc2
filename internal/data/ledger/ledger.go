package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"modulith/internal/core/errors"
	"modulith/internal/shared/observability"
)

// Ledger records publications through a Store. Store failures are wrapped
// with errors.CodeStorage and never retried here.
type Ledger struct {
	store      Store
	clock      func() time.Time
	serializer Serializer
}

type Option func(*Ledger)

func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		if clock != nil {
			l.clock = clock
		}
	}
}

func WithSerializer(s Serializer) Option {
	return func(l *Ledger) {
		if s != nil {
			l.serializer = s
		}
	}
}

func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:      store,
		clock:      func() time.Time { return time.Now().UTC() },
		serializer: JSONSerializer{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) Store() Store {
	return l.store
}

// MarkPublished durably records that event is about to be delivered to
// listenerID.
func (l *Ledger) MarkPublished(ctx context.Context, event any, listenerID string) (Publication, error) {
	ctx, span := observability.Tracer().Start(ctx, "ledger.MarkPublished",
		trace.WithAttributes(attribute.String("listener_id", listenerID)))
	defer span.End()

	serialized, err := l.serializer.Serialize(event)
	if err != nil {
		return Publication{}, errors.Wrap(err, errors.CodeValidationError, "serialize event")
	}
	p := Publication{
		ID:              uuid.New(),
		EventType:       EventTypeOf(event),
		SerializedEvent: serialized,
		ListenerID:      listenerID,
		PublishedAt:     l.clock(),
	}
	if err := l.store.Insert(ctx, p); err != nil {
		span.RecordError(err)
		return Publication{}, storageError(err, "mark published", p.ID)
	}
	observability.PublicationsPublishedTotal.Inc()
	return p, nil
}

// MarkCompleted sets the completion time of id. Completing an already
// completed or unknown publication is a no-op.
func (l *Ledger) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	ctx, span := observability.Tracer().Start(ctx, "ledger.MarkCompleted",
		trace.WithAttributes(attribute.String("publication_id", id.String())))
	defer span.End()

	changed, err := l.store.Complete(ctx, id, l.clock())
	if err != nil {
		span.RecordError(err)
		return storageError(err, "mark completed", id)
	}
	if changed {
		observability.PublicationsCompletedTotal.Inc()
	}
	return nil
}

// FindIncomplete returns publications without completion, oldest first.
func (l *Ledger) FindIncomplete(ctx context.Context) ([]Publication, error) {
	pubs, err := l.store.FindIncomplete(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorage, "find incomplete publications")
	}
	observability.PublicationsIncomplete.Set(float64(len(pubs)))
	return pubs, nil
}

func (l *Ledger) CountIncomplete(ctx context.Context) (int, error) {
	pubs, err := l.FindIncomplete(ctx)
	if err != nil {
		return 0, err
	}
	return len(pubs), nil
}

func (l *Ledger) FindByID(ctx context.Context, id uuid.UUID) (Publication, error) {
	p, ok, err := l.store.FindByID(ctx, id)
	if err != nil {
		return Publication{}, storageError(err, "find publication", id)
	}
	if !ok {
		return Publication{}, errors.AddContext(errors.Newf(errors.CodeNotFound, "publication %s not found", id), errors.CtxPublication, id.String())
	}
	return p, nil
}

// DeleteCompletedBefore removes completed publications older than t.
func (l *Ledger) DeleteCompletedBefore(ctx context.Context, t time.Time) (int64, error) {
	n, err := l.store.DeleteCompletedBefore(ctx, t)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeStorage, "delete completed publications")
	}
	return n, nil
}

func (l *Ledger) Close() error {
	return l.store.Close()
}

func storageError(err error, op string, id uuid.UUID) error {
	wrapped := errors.AddContext(errors.Wrap(err, errors.CodeStorage, op), errors.CtxOperation, op)
	return errors.AddContext(wrapped, errors.CtxPublication, id.String())
}
