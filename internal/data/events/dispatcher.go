// Package events delivers application events to registered listeners and
// records every delivery in the publication ledger.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"modulith/internal/core/errors"
	"modulith/internal/data/ledger"
)

type Handler func(ctx context.Context, p ledger.Publication) error

type Listener struct {
	ID        string
	EventType string
	Handle    Handler
}

// Dispatcher is safe for concurrent use.
type Dispatcher struct {
	ledger *ledger.Ledger

	mu        sync.RWMutex
	listeners map[string]Listener
}

func NewDispatcher(l *ledger.Ledger) *Dispatcher {
	return &Dispatcher{ledger: l, listeners: make(map[string]Listener)}
}

func (d *Dispatcher) Ledger() *ledger.Ledger {
	return d.ledger
}

func (d *Dispatcher) Register(l Listener) error {
	if l.ID == "" || l.EventType == "" || l.Handle == nil {
		return errors.New(errors.CodeValidationError, "listener requires an id, an event type and a handler")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.listeners[l.ID]; exists {
		return errors.Newf(errors.CodeValidationError, "listener %q already registered", l.ID)
	}
	d.listeners[l.ID] = l
	return nil
}

// On registers a typed listener for events of type E. Payloads are decoded
// from the ledger's JSON form, so redelivered publications reach the handler
// exactly like fresh ones.
func On[E any](d *Dispatcher, id string, handle func(ctx context.Context, event E) error) error {
	var zero E
	return d.Register(Listener{
		ID:        id,
		EventType: ledger.EventTypeOf(zero),
		Handle: func(ctx context.Context, p ledger.Publication) error {
			var event E
			if err := p.Decode(&event); err != nil {
				return err
			}
			return handle(ctx, event)
		},
	})
}

func (d *Dispatcher) Listener(id string) (Listener, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	l, ok := d.listeners[id]
	return l, ok
}

// listenersFor returns matching listeners ordered by ID.
func (d *Dispatcher) listenersFor(eventType string) []Listener {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Listener
	for _, l := range d.listeners {
		if l.EventType == eventType {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Publish records one publication per matching listener and delivers it.
// Failed deliveries stay incomplete in the ledger; their errors are
// returned joined.
func (d *Dispatcher) Publish(ctx context.Context, event any) error {
	eventType := ledger.EventTypeOf(event)
	var errs []error
	for _, l := range d.listenersFor(eventType) {
		p, err := d.ledger.MarkPublished(ctx, event, l.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := d.deliver(ctx, l, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Deliver hands an existing publication to its listener and completes it on
// success.
func (d *Dispatcher) Deliver(ctx context.Context, p ledger.Publication) error {
	l, ok := d.Listener(p.ListenerID)
	if !ok {
		return errors.AddContext(errors.Newf(errors.CodeNotFound, "no listener %q registered", p.ListenerID), errors.CtxPublication, p.ID.String())
	}
	return d.deliver(ctx, l, p)
}

func (d *Dispatcher) deliver(ctx context.Context, l Listener, p ledger.Publication) error {
	if err := l.Handle(ctx, p); err != nil {
		slog.Warn("event listener failed",
			"listener_id", l.ID,
			"publication_id", p.ID.String(),
			"error", err,
		)
		return fmt.Errorf("listener %s: %w", l.ID, err)
	}
	return d.ledger.MarkCompleted(ctx, p.ID)
}
