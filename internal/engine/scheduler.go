package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/slotguard/internal/calendar"
	"github.com/roach88/slotguard/internal/conflict"
	"github.com/roach88/slotguard/internal/dispatch"
	"github.com/roach88/slotguard/internal/notify"
	"github.com/roach88/slotguard/internal/store"
)

// Config holds Scheduler dependencies. Zero values select defaults.
type Config struct {
	// Workers is the dispatcher pool size (default dispatch.DefaultWorkers).
	Workers int

	// MaxSuggestions caps Suggest when the caller passes 0
	// (default conflict.DefaultSuggestions).
	MaxSuggestions int

	// Notifier receives committed changes (default notify.Nop).
	Notifier notify.Notifier

	// Clock stamps notifications (default NewClock()).
	Clock *Clock

	// RequestIDs correlates requests with notifications
	// (default UUIDv7Generator).
	RequestIDs RequestIDGenerator

	// Report is a cron spec for periodic metrics logging. Empty disables it.
	Report string

	Logger *slog.Logger
}

// Scheduler is the entry point for calendar operations.
//
// Thread-safety model:
//   - every method is safe from any goroutine
//   - synchronous methods run on the caller's goroutine
//   - *Async methods queue work for the dispatcher pool
type Scheduler struct {
	store      *store.Store
	dispatcher *dispatch.Dispatcher
	notifier   notify.Notifier
	clock      *Clock
	ids        RequestIDGenerator
	reporter   *Reporter
	logger     *slog.Logger

	maxSuggestions int
}

var _ dispatch.Handler = (*Scheduler)(nil)

// New builds a Scheduler. Workers are not running until Start.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must be >= 0, got %d", cfg.Workers)
	}
	if cfg.MaxSuggestions < 0 {
		return nil, fmt.Errorf("max suggestions must be >= 0, got %d", cfg.MaxSuggestions)
	}

	s := &Scheduler{
		store:          store.New(),
		notifier:       cfg.Notifier,
		clock:          cfg.Clock,
		ids:            cfg.RequestIDs,
		logger:         cfg.Logger,
		maxSuggestions: cfg.MaxSuggestions,
	}
	if s.notifier == nil {
		s.notifier = notify.Nop{}
	}
	if s.clock == nil {
		s.clock = NewClock()
	}
	if s.ids == nil {
		s.ids = UUIDv7Generator{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.maxSuggestions == 0 {
		s.maxSuggestions = conflict.DefaultSuggestions
	}

	s.dispatcher = dispatch.New(s,
		dispatch.WithWorkers(cfg.Workers),
		dispatch.WithLogger(s.logger))

	if cfg.Report != "" {
		r, err := NewReporter(s, cfg.Report, s.logger)
		if err != nil {
			return nil, err
		}
		s.reporter = r
	}
	return s, nil
}

// Start launches the dispatcher workers and the metrics reporter.
func (s *Scheduler) Start() error {
	if err := s.dispatcher.Start(); err != nil {
		return fmt.Errorf("start dispatcher: %w", err)
	}
	if s.reporter != nil {
		s.reporter.Start()
	}
	s.logger.Info("scheduler started", "workers", s.dispatcher.Stats().Workers)
	return nil
}

// Close stops accepting async work and waits until every queued request
// has run or ctx ends. Synchronous methods keep working after Close.
func (s *Scheduler) Close(ctx context.Context) error {
	if s.reporter != nil {
		s.reporter.Stop()
	}
	if err := s.dispatcher.Stop(ctx); err != nil {
		return fmt.Errorf("stop dispatcher: %w", err)
	}
	s.logger.Info("scheduler stopped", "completed", s.dispatcher.Stats().Completed)
	return nil
}

// Add inserts e unless it overlaps an event of the same owner. The error
// is non-nil only when e fails validation.
func (s *Scheduler) Add(e calendar.Event) (bool, error) {
	reply, err := s.handleEvent(dispatch.OpAdd, e)
	return reply.Accepted, err
}

// AddWithResult is Add that also returns the overlaps behind a rejection.
func (s *Scheduler) AddWithResult(e calendar.Event) (bool, conflict.Result, error) {
	reply, err := s.handleEvent(dispatch.OpAdd, e)
	return reply.Accepted, reply.Conflict, err
}

// Remove deletes the event with id and reports whether one existed.
func (s *Scheduler) Remove(id int64) bool {
	return s.Handle(context.Background(), s.request(dispatch.Request{Kind: dispatch.OpRemove, ID: id})).Found
}

// Replace removes the event with e.ID and adds e in its place. It returns
// false if no event had e.ID, or if e was rejected by a conflict, in which
// case the previous event stays removed.
func (s *Scheduler) Replace(e calendar.Event) (bool, error) {
	reply, err := s.handleEvent(dispatch.OpReplace, e)
	return reply.Accepted, err
}

// ReplaceWithResult is Replace that also reports whether an event was
// removed and the overlaps that rejected e.
func (s *Scheduler) ReplaceWithResult(e calendar.Event) (accepted, removed bool, res conflict.Result, err error) {
	reply, err := s.handleEvent(dispatch.OpReplace, e)
	return reply.Accepted, reply.Found, reply.Conflict, err
}

// Query returns the owner's events sorted by start.
func (s *Scheduler) Query(owner string) []calendar.Event {
	return s.Handle(context.Background(), s.request(dispatch.Request{Kind: dispatch.OpQuery, Owner: owner})).Events
}

// QueryAll returns every event in storage order.
func (s *Scheduler) QueryAll() []calendar.Event {
	return s.Handle(context.Background(), s.request(dispatch.Request{Kind: dispatch.OpQueryAll})).Events
}

// AddBatch adds events in order, first wins, and returns one flag per
// event. If any event fails validation none are added.
func (s *Scheduler) AddBatch(events []calendar.Event) ([]bool, error) {
	if err := validateAll(events); err != nil {
		return nil, err
	}
	req := s.request(dispatch.Request{Kind: dispatch.OpAddBatch, Events: events})
	return s.Handle(context.Background(), req).Batch, nil
}

// AddAsync queues an add.
func (s *Scheduler) AddAsync(e calendar.Event) (*dispatch.Pending, error) {
	return s.submitEvent(dispatch.OpAdd, e)
}

// RemoveAsync queues a remove.
func (s *Scheduler) RemoveAsync(id int64) (*dispatch.Pending, error) {
	return s.submit(dispatch.Request{Kind: dispatch.OpRemove, ID: id})
}

// ReplaceAsync queues a replace.
func (s *Scheduler) ReplaceAsync(e calendar.Event) (*dispatch.Pending, error) {
	return s.submitEvent(dispatch.OpReplace, e)
}

// QueryAsync queues a query for owner.
func (s *Scheduler) QueryAsync(owner string) (*dispatch.Pending, error) {
	return s.submit(dispatch.Request{Kind: dispatch.OpQuery, Owner: owner})
}

// QueryAllAsync queues a full snapshot.
func (s *Scheduler) QueryAllAsync() (*dispatch.Pending, error) {
	return s.submit(dispatch.Request{Kind: dispatch.OpQueryAll})
}

// AddBatchAsync queues a batch add.
func (s *Scheduler) AddBatchAsync(events []calendar.Event) (*dispatch.Pending, error) {
	if err := validateAll(events); err != nil {
		return nil, err
	}
	return s.submit(dispatch.Request{Kind: dispatch.OpAddBatch, Events: events})
}

// Check reports the overlaps e would have with the current events without
// changing anything.
func (s *Scheduler) Check(e calendar.Event) (conflict.Result, error) {
	if err := e.Validate(); err != nil {
		return conflict.Result{}, invalidEventError(e.ID, err)
	}
	return conflict.CheckAgainst(e.Slot(), calendar.Slots(s.store.Snapshot())), nil
}

// Suggest proposes up to max conflict-free alternatives for e among the
// owner's current events. max <= 0 uses the configured default. The
// returned events keep e's fields apart from the interval.
func (s *Scheduler) Suggest(e calendar.Event, max int) ([]calendar.Event, error) {
	if err := e.Validate(); err != nil {
		return nil, invalidEventError(e.ID, err)
	}
	if max <= 0 {
		max = s.maxSuggestions
	}

	var existing []conflict.TimeSlot
	for _, ev := range s.store.Snapshot() {
		if ev.Owner == e.Owner {
			existing = append(existing, ev.Slot())
		}
	}

	slots := conflict.SuggestAlternatives(e.Slot(), existing, max)
	out := make([]calendar.Event, len(slots))
	for i, slot := range slots {
		out[i] = e.WithSlot(slot)
	}
	return out, nil
}

// Detect runs full conflict detection over a snapshot of the store.
func (s *Scheduler) Detect(alg conflict.Algorithm) (conflict.Result, error) {
	return conflict.Detect(alg, calendar.Slots(s.store.Snapshot()))
}

// Snapshot returns every event in storage order without counting a
// request.
func (s *Scheduler) Snapshot() []calendar.Event {
	return s.store.Snapshot()
}

// Get returns the event with id.
func (s *Scheduler) Get(id int64) (calendar.Event, bool) {
	return s.store.Get(id)
}

// Metrics combines store counters with dispatcher activity.
type Metrics struct {
	store.Metrics `yaml:",inline"`
	Events        int            `json:"events" yaml:"events"`
	Dispatch      dispatch.Stats `json:"dispatch" yaml:"dispatch"`
}

// Metrics returns a point-in-time view of scheduler counters.
func (s *Scheduler) Metrics() Metrics {
	return Metrics{
		Metrics:  s.store.Metrics(),
		Events:   s.store.Len(),
		Dispatch: s.dispatcher.Stats(),
	}
}

// TotalRequests counts every store operation since construction.
func (s *Scheduler) TotalRequests() uint64 { return s.store.TotalRequests() }

// SuccessfulAdds counts committed inserts since construction.
func (s *Scheduler) SuccessfulAdds() uint64 { return s.store.SuccessfulAdds() }

// ConflictCount counts conflict rejections since construction.
func (s *Scheduler) ConflictCount() uint64 { return s.store.ConflictCount() }

func (s *Scheduler) request(req dispatch.Request) dispatch.Request {
	if req.RequestID == "" {
		req.RequestID = s.ids.Generate()
	}
	return req
}

func (s *Scheduler) handleEvent(kind dispatch.OpKind, e calendar.Event) (dispatch.Reply, error) {
	if err := e.Validate(); err != nil {
		return dispatch.Reply{}, invalidEventError(e.ID, err)
	}
	return s.Handle(context.Background(), s.request(dispatch.Request{Kind: kind, Event: e})), nil
}

func (s *Scheduler) submitEvent(kind dispatch.OpKind, e calendar.Event) (*dispatch.Pending, error) {
	if err := e.Validate(); err != nil {
		return nil, invalidEventError(e.ID, err)
	}
	return s.submit(dispatch.Request{Kind: kind, Event: e})
}

func (s *Scheduler) submit(req dispatch.Request) (*dispatch.Pending, error) {
	p, err := s.dispatcher.Submit(s.request(req))
	if errors.Is(err, dispatch.ErrClosed) {
		return nil, closedError()
	}
	if err != nil {
		return nil, fmt.Errorf("submit %s: %w", req.Kind, err)
	}
	return p, nil
}

func validateAll(events []calendar.Event) error {
	for i, e := range events {
		if err := e.Validate(); err != nil {
			se := invalidEventError(e.ID, err)
			se.Message = fmt.Sprintf("batch element %d: %s", i, se.Message)
			return se
		}
	}
	return nil
}
