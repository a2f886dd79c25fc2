// Package moments publishes time-passage events (hour, day, week, month)
// through the event dispatcher.
package moments

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"modulith/internal/core/errors"
)

type Granularity string

const (
	Hours Granularity = "hours"
	Days  Granularity = "days"
)

// HourHasPassed carries the start of the hour that just ended.
type HourHasPassed struct {
	Time time.Time
}

// DayHasPassed carries the midnight starting the day that just ended.
type DayHasPassed struct {
	Date time.Time
}

// WeekHasPassed names the ISO week that just ended.
type WeekHasPassed struct {
	Year      int
	Week      int
	StartDate time.Time
}

type MonthHasPassed struct {
	Year  int
	Month time.Month
}

type Publisher interface {
	Publish(ctx context.Context, event any) error
}

type Options struct {
	Granularity Granularity
	Location    *time.Location
	Clock       func() time.Time
	// TickInterval is the Run polling period. Defaults to one minute.
	TickInterval time.Duration
}

// Moments emits one event per calendar boundary crossed since the previous
// tick. Safe for concurrent use.
type Moments struct {
	publisher Publisher
	opts      Options

	mu    sync.Mutex
	shift time.Duration
	last  time.Time
}

func New(p Publisher, opts Options) *Moments {
	if opts.Granularity == "" {
		opts.Granularity = Hours
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Minute
	}
	m := &Moments{publisher: p, opts: opts}
	m.last = m.nowLocked()
	return m
}

func (m *Moments) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nowLocked()
}

func (m *Moments) nowLocked() time.Time {
	return m.opts.Clock().Add(m.shift).In(m.opts.Location)
}

// ShiftBy moves the clock forward by d and publishes every boundary the
// shift crosses.
func (m *Moments) ShiftBy(ctx context.Context, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shift += d
	return m.tickLocked(ctx)
}

// Tick publishes the boundaries crossed since the previous tick.
func (m *Moments) Tick(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tickLocked(ctx)
}

func (m *Moments) tickLocked(ctx context.Context) error {
	now := m.nowLocked()
	from := m.last
	if !now.After(from) {
		return nil
	}
	m.last = now

	var errs []error
	for _, event := range m.eventsBetween(from, now) {
		if err := m.publisher.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// eventsBetween lists the events for boundaries in (from, to].
func (m *Moments) eventsBetween(from, to time.Time) []any {
	loc := m.opts.Location
	from, to = from.In(loc), to.In(loc)

	var events []any
	if m.opts.Granularity == Hours {
		start := time.Date(from.Year(), from.Month(), from.Day(), from.Hour(), 0, 0, 0, loc)
		for h := start.Add(time.Hour); !h.After(to); h = h.Add(time.Hour) {
			events = append(events, HourHasPassed{Time: h.Add(-time.Hour)})
			if h.Hour() == 0 {
				events = append(events, dayEvents(h)...)
			}
		}
		return events
	}
	for d := nextMidnight(from); !d.After(to); d = nextMidnight(d) {
		events = append(events, dayEvents(d)...)
	}
	return events
}

func nextMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
}

// dayEvents returns the events due at midnight.
func dayEvents(midnight time.Time) []any {
	loc := midnight.Location()
	previous := time.Date(midnight.Year(), midnight.Month(), midnight.Day()-1, 0, 0, 0, 0, loc)
	events := []any{DayHasPassed{Date: previous}}
	if midnight.Weekday() == time.Monday {
		year, week := previous.ISOWeek()
		events = append(events, WeekHasPassed{
			Year:      year,
			Week:      week,
			StartDate: time.Date(midnight.Year(), midnight.Month(), midnight.Day()-7, 0, 0, 0, 0, loc),
		})
	}
	if midnight.Day() == 1 {
		events = append(events, MonthHasPassed{Year: previous.Year(), Month: previous.Month()})
	}
	return events
}

// Run ticks every TickInterval until ctx is cancelled. Failed deliveries
// are logged; the ledger keeps them for resubmission.
func (m *Moments) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.opts.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := m.Tick(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("time event delivery incomplete", "error", err)
			}
		}
	}
}
