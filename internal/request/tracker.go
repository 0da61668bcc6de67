// Package request tracks the loading, error and result state of one user action at a
// time. Every request is tagged with a generation; a response that arrives after a
// newer request started is discarded instead of overwriting the view.
package request

import (
	"context"
	"sync"

	"github.com/musickatta/katta-admin/internal/telemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Status is the coarse state of a tracked request.
type Status int

const (
	Idle Status = iota
	Loading
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Ticket identifies one request generation.
type Ticket uint64

// Snapshot is a consistent view of a tracker.
type Snapshot[T any] struct {
	Status Status
	Value  T
	Err    error
	// Generation is the ticket of the request the snapshot belongs to.
	Generation Ticket
}

// Loading reports whether the triggering control should be disabled.
func (s Snapshot[T]) Loading() bool { return s.Status == Loading }

// Tracker holds the state of the latest request for a view. It is safe for
// concurrent use.
type Tracker[T any] struct {
	name string

	mu      sync.Mutex
	current Snapshot[T]
}

// NewTracker creates an idle tracker. name labels discarded responses in logs and metrics.
func NewTracker[T any](name string) *Tracker[T] {
	return &Tracker[T]{name: name}
}

// Begin starts a new request generation and marks the tracker as loading. The previous
// value is kept so the view can keep showing it.
func (t *Tracker[T]) Begin() Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current.Generation++
	t.current.Status = Loading
	t.current.Err = nil
	return t.current.Generation
}

// Resolve applies the outcome of the request identified by ticket. It returns false and
// leaves the state untouched when a newer request has begun since.
func (t *Tracker[T]) Resolve(ctx context.Context, ticket Ticket, value T, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ticket != t.current.Generation {
		log.Ctx(ctx).Debug().
			Str("tracker", t.name).
			Uint64("ticket", uint64(ticket)).
			Uint64("current", uint64(t.current.Generation)).
			Msg("discarding stale response")
		telemetry.GetMetrics().StaleResponsesTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("tracker", t.name)))
		return false
	}

	if err != nil {
		t.current.Status = Failed
		t.current.Err = err
		return true
	}

	t.current.Status = Succeeded
	t.current.Value = value
	t.current.Err = nil
	return true
}

// Reset returns the tracker to idle and invalidates any request in flight.
func (t *Tracker[T]) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current = Snapshot[T]{Generation: t.current.Generation + 1}
}

// Snapshot returns the current state.
func (t *Tracker[T]) Snapshot() Snapshot[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Do runs fn as a new generation and resolves it. The returned snapshot is the tracker
// state after resolution, which belongs to a newer request if this one went stale.
func (t *Tracker[T]) Do(ctx context.Context, fn func(context.Context) (T, error)) (Snapshot[T], bool) {
	ticket := t.Begin()
	value, err := fn(ctx)
	applied := t.Resolve(ctx, ticket, value, err)
	return t.Snapshot(), applied
}
