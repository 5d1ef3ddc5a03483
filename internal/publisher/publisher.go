package publisher

import (
	"context"
	"time"

	"github.com/ryosukesatoh/daily-fact/internal/fetcher"
)

// EventKind names a state transition of the controller.
type EventKind string

const (
	EventRecordLoaded     EventKind = "record_loaded"
	EventFactReady        EventKind = "fact_ready"
	EventFetchFailed      EventKind = "fetch_failed"
	EventNoRecord         EventKind = "no_record"
	EventGenerationFailed EventKind = "generation_failed"
)

// Event is delivered to every publisher after a transition.
// Record is an owned copy; it is the zero value for fetch_failed and no_record.
type Event struct {
	Kind   EventKind
	Record fetcher.Record
	Err    error
	Cycle  string
	At     time.Time
}

// HasRecord reports whether the event carries a record.
func (e Event) HasRecord() bool {
	return e.Record.ID != ""
}

// Publisher receives controller events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Refresher is the part of the controller a consumer may drive.
type Refresher interface {
	Refresh(ctx context.Context) error
	CurrentRecord() (fetcher.Record, bool)
}

// Multi fans an event out to several publishers.
// Every publisher is attempted; the returned slice holds one error per
// failing publisher.
type Multi []Publisher

func (m Multi) PublishAll(ctx context.Context, ev Event) []error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Func adapts a function to the Publisher interface.
type Func func(ctx context.Context, ev Event) error

func (f Func) Publish(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}
