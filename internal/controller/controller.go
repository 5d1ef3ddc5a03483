// Package controller holds the active record and drives fact generation for it.
//
// At most one record is active. Loading a record makes it active with a
// Pending fact and issues exactly one generation call for its ID. A result
// is applied only if its ID is still active when the call completes; results
// for records that were replaced in the meantime are dropped.
//
// Transitions are reported to publishers in the order they were applied, from
// a single delivery goroutine, so a slow publisher never holds up Refresh or
// a generation result.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ryosukesatoh/daily-fact/internal/fetcher"
	"github.com/ryosukesatoh/daily-fact/internal/generator"
	"github.com/ryosukesatoh/daily-fact/internal/publisher"
)

// ErrClosed is returned by Refresh after Close.
var ErrClosed = errors.New("controller: closed")

// State is the observable phase of the controller.
type State int

const (
	Idle State = iota
	LoadedPending
	LoadedReady
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case LoadedPending:
		return "loaded_pending"
	case LoadedReady:
		return "loaded_ready"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type requestStatus int

const (
	inFlight requestStatus = iota + 1
	done
	failed
)

// request tracks the generation call for one record ID. token identifies
// the call so a superseded call cannot overwrite a newer one's outcome.
type request struct {
	status requestStatus
	token  uint64
}

const (
	defaultGenerationTimeout = 60 * time.Second
	defaultPublishTimeout    = 30 * time.Second
)

// Option configures a Controller.
type Option func(*Controller)

// WithGenerationTimeout bounds each generation call.
func WithGenerationTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.genTimeout = d
		}
	}
}

// WithPublishTimeout bounds the delivery of one event to the publishers.
func WithPublishTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pubTimeout = d
		}
	}
}

// WithPublishers registers consumers of state transitions.
func WithPublishers(pubs ...publisher.Publisher) Option {
	return func(c *Controller) {
		c.publishers = append(c.publishers, pubs...)
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

type Controller struct {
	fetcher    fetcher.Fetcher
	generator  generator.Generator
	publishers publisher.Multi
	logger     *log.Logger
	genTimeout time.Duration
	pubTimeout time.Duration
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	outbox *outbox

	mu       sync.RWMutex
	closed   bool
	active   *fetcher.Record
	requests map[string]request
	token    uint64
	seq      uint64
	applied  uint64
}

func New(f fetcher.Fetcher, g generator.Generator, logger *log.Logger, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		fetcher:    f,
		generator:  g,
		logger:     logger.With("component", "controller"),
		genTimeout: defaultGenerationTimeout,
		pubTimeout: defaultPublishTimeout,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
		requests:   make(map[string]request),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.outbox = newOutbox(c.deliver)
	return c
}

// Refresh fetches the latest record and makes it active.
//
// A fetch error or an empty feed is reported to the publishers and leaves the
// current state untouched; the fetch error is also returned. A fetch that
// completes after a newer Refresh has already been applied is discarded.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	cycle := uuid.NewString()
	logger := c.logger.With("cycle", cycle)
	logger.Debug("fetching latest record")

	rec, err := c.fetcher.FetchLatest(ctx)

	c.mu.Lock()
	if err != nil {
		c.publish(publisher.Event{Kind: publisher.EventFetchFailed, Err: err, Cycle: cycle})
		c.mu.Unlock()
		logger.Warn("fetch failed, keeping current record", "err", err)
		return fmt.Errorf("controller: failed to fetch latest record: %w", err)
	}
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if seq < c.applied {
		c.mu.Unlock()
		logger.Debug("discarding out-of-order fetch result", "seq", seq)
		return nil
	}
	c.applied = seq

	if rec == nil {
		c.publish(publisher.Event{Kind: publisher.EventNoRecord, Cycle: cycle})
		c.mu.Unlock()
		logger.Info("feed returned no entries")
		return nil
	}

	next, start := c.load(*rec)
	snapshot := next.WithFact(next.Fact)
	c.publish(publisher.Event{Kind: publisher.EventRecordLoaded, Record: snapshot, Cycle: cycle})
	c.mu.Unlock()

	logger.Info("record loaded", "id", snapshot.ID, "state", stateOf(&snapshot))
	if start != nil {
		start(cycle)
	}
	return nil
}

// load makes rec the active record. It must be called with mu held.
// The returned start func, if non-nil, issues the generation call and must be
// invoked after mu is released.
func (c *Controller) load(rec fetcher.Record) (fetcher.Record, func(cycle string)) {
	next := rec.WithFact(fetcher.Pending())
	if prev := c.active; prev != nil && prev.ID == next.ID && prev.Fact.IsReady() {
		next = next.WithFact(prev.Fact)
	}
	c.active = &next

	for id := range c.requests {
		if id != next.ID {
			delete(c.requests, id)
		}
	}

	if next.Fact.IsReady() {
		return next, nil
	}
	if req, ok := c.requests[next.ID]; ok && req.status != failed {
		// Same ID reloaded while its call is still running: reuse it.
		return next, nil
	}
	return next, c.track(next.ID, next.Abstract)
}

// track records a new in-flight call for id. It must be called with mu held.
func (c *Controller) track(id, abstract string) func(cycle string) {
	c.token++
	token := c.token
	c.requests[id] = request{status: inFlight, token: token}
	c.wg.Add(1)
	return func(cycle string) {
		go c.generate(id, abstract, cycle, token)
	}
}

// Enrich issues a generation call for id if it is the active record and no
// call for it is in flight or has succeeded. It reports whether a call was
// issued.
func (c *Controller) Enrich(id string) bool {
	c.mu.Lock()
	if c.closed || c.active == nil || c.active.ID != id || c.active.Fact.IsReady() {
		c.mu.Unlock()
		return false
	}
	if req, ok := c.requests[id]; ok && req.status != failed {
		c.mu.Unlock()
		return false
	}
	start := c.track(id, c.active.Abstract)
	c.mu.Unlock()

	cycle := uuid.NewString()
	c.logger.Info("re-triggering fact generation", "id", id, "cycle", cycle)
	start(cycle)
	return true
}

func (c *Controller) generate(id, abstract, cycle string, token uint64) {
	defer c.wg.Done()
	logger := c.logger.With("cycle", cycle, "id", id)

	ctx, cancel := context.WithTimeout(c.ctx, c.genTimeout)
	defer cancel()

	logger.Debug("generating fact")
	fact, err := c.generator.Generate(ctx, abstract)

	c.mu.Lock()
	req, tracked := c.requests[id]
	if c.active == nil || c.active.ID != id || !tracked || req.token != token {
		c.mu.Unlock()
		logger.Debug("discarding stale generation result")
		return
	}

	if err != nil {
		c.requests[id] = request{status: failed, token: token}
		if c.closed {
			c.mu.Unlock()
			logger.Debug("generation abandoned on close")
			return
		}
		var genErr *generator.GenerationError
		if !errors.As(err, &genErr) {
			err = &generator.GenerationError{Err: err}
		}
		snapshot := c.active.WithFact(c.active.Fact)
		c.publish(publisher.Event{Kind: publisher.EventGenerationFailed, Record: snapshot, Err: err, Cycle: cycle})
		c.mu.Unlock()

		logger.Warn("fact generation failed", "err", err)
		return
	}

	c.requests[id] = request{status: done, token: token}
	next := c.active.WithFact(fetcher.Ready(fact))
	c.active = &next
	c.publish(publisher.Event{Kind: publisher.EventFactReady, Record: next.WithFact(next.Fact), Cycle: cycle})
	c.mu.Unlock()

	logger.Info("fact ready")
}

// publish queues ev for delivery. It must be called with mu held so events
// are queued in transition order.
func (c *Controller) publish(ev publisher.Event) {
	ev.At = c.now()
	c.outbox.push(ev)
}

// deliver hands ev to every publisher, bounded by the publish timeout.
func (c *Controller) deliver(ev publisher.Event) {
	ctx, cancel := context.WithTimeout(c.ctx, c.pubTimeout)
	defer cancel()
	for _, err := range c.publishers.PublishAll(ctx, ev) {
		c.logger.Error("publisher failed", "event", ev.Kind, "cycle", ev.Cycle, "err", err)
	}
}

// CurrentRecord returns a copy of the active record.
func (c *Controller) CurrentRecord() (fetcher.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.active == nil {
		return fetcher.Record{}, false
	}
	return c.active.WithFact(c.active.Fact), true
}

func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return stateOf(c.active)
}

func stateOf(rec *fetcher.Record) State {
	switch {
	case rec == nil:
		return Idle
	case rec.Fact.IsReady():
		return LoadedReady
	default:
		return LoadedPending
	}
}

// Wait blocks until every issued generation call has completed and every
// event queued so far has been delivered.
func (c *Controller) Wait() {
	c.wg.Wait()
	c.outbox.flush()
}

// Close abandons in-flight generation calls and waits for them to return.
// Events already queued are still handed to the publishers, with a cancelled
// context.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
	c.outbox.close()
}
