package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/slotguard/internal/calendar"
	"github.com/roach88/slotguard/internal/conflict"
	"github.com/roach88/slotguard/internal/dispatch"
	"github.com/roach88/slotguard/internal/engine"
	"github.com/roach88/slotguard/internal/notify"
	"github.com/roach88/slotguard/internal/testutil"
)

// stepTimeout bounds the wait for an async step.
const stepTimeout = 5 * time.Second

// Harness is the test execution engine.
// It runs scenarios against a fresh Scheduler with deterministic request
// IDs and trace sequence numbers.
type Harness struct {
	sched    *engine.Scheduler
	recorder *notify.Recorder
	clock    *testutil.DeterministicClock
	logger   *slog.Logger

	// traced is the number of broadcasts already copied into the trace.
	traced int
}

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger sets the logger for harness failures such as a scheduler that
// does not drain (default slog.Default()). Scheduler logs stay discarded.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh Scheduler for isolation.
//
// Execution flow:
// 1. Start a Scheduler with a notification recorder
// 2. Add the setup events as one batch
// 3. Execute flow steps, checking expect clauses
// 4. Capture final state, metrics and notifications
// 5. Evaluate assertions
//
// The returned error reports a scenario that could not be executed; failed
// expectations are reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	workers := scenario.Workers
	if workers == 0 {
		workers = 1
	}

	rec := notify.NewRecorder()
	sched, err := engine.New(engine.Config{
		Workers:    workers,
		Notifier:   rec,
		Clock:      engine.NewClock(),
		RequestIDs: testutil.NewSequentialIDGenerator("req"),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	if err := sched.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), stepTimeout)
		defer cancel()
		closeScheduler(ctx, sched, cfg.logger)
	}()

	h := &Harness{
		sched:    sched,
		recorder: rec,
		clock:    testutil.NewDeterministicClock(),
		logger:   cfg.logger,
	}

	ctx := context.Background()

	if err := h.executeSetup(scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult()
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	result.State = sched.Snapshot()
	result.Metrics = sched.Metrics().Metrics
	result.Notifications = rec.Broadcasts()

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

// closeScheduler drains the scheduler's dispatcher, logging when ctx ends
// first.
func closeScheduler(ctx context.Context, sched *engine.Scheduler, logger *slog.Logger) {
	if err := sched.Close(ctx); err != nil {
		logger.Error("error stopping scheduler", "error", err)
	}
}

// executeSetup adds the setup events as one batch. Every event must be
// accepted; setup notifications are discarded.
func (h *Harness) executeSetup(setup []calendar.Event) error {
	if len(setup) == 0 {
		return nil
	}

	accepted, err := h.sched.AddBatch(setup)
	if err != nil {
		return err
	}
	for i, ok := range accepted {
		if !ok {
			return fmt.Errorf("setup[%d]: event %d conflicts with an earlier setup event", i, setup[i].ID)
		}
	}

	h.recorder.Reset()
	h.logger.Debug("setup completed", "events", len(setup))
	return nil
}

// executeFlow runs all flow steps and validates expect clauses.
//
// Each step is traced, followed by the notifications it caused.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		out, err := h.execute(ctx, step)
		if err != nil {
			return fmt.Errorf("flow step %d (%s): %w", i, step.Op, err)
		}

		h.checkExpect(i, step, out, result)

		result.addRequestTrace(i, step.Op, stepArgs(step), out.canonical(), h.clock.Next())
		msgs := h.recorder.Broadcasts()
		for _, msg := range msgs[h.traced:] {
			result.addNotificationTrace(msg, h.clock.Next())
		}
		h.traced = len(msgs)

		h.logger.Debug("flow step completed",
			"step", i,
			"op", step.Op,
			"async", step.Async,
			"error", out.errCode,
		)
	}
	return nil
}

// stepOutcome is what a flow step observed. Which fields are set depends
// on the op.
type stepOutcome struct {
	op       Op
	accepted bool
	found    bool
	conflict conflict.Result
	events   []calendar.Event
	batch    []bool
	slots    []calendar.Event
	detected conflict.Result
	errCode  string
}

func (h *Harness) execute(ctx context.Context, step FlowStep) (stepOutcome, error) {
	if step.Async {
		return h.executeAsync(ctx, step)
	}

	out := stepOutcome{op: step.Op}
	var err error
	switch step.Op {
	case OpAdd:
		out.accepted, out.conflict, err = h.sched.AddWithResult(*step.Event)
	case OpReplace:
		out.accepted, out.found, out.conflict, err = h.sched.ReplaceWithResult(*step.Event)
	case OpRemove:
		out.found = h.sched.Remove(step.ID)
	case OpQuery:
		out.events = h.sched.Query(step.Owner)
	case OpQueryAll:
		out.events = h.sched.QueryAll()
	case OpBatch:
		out.batch, err = h.sched.AddBatch(step.Events)
	case OpSuggest:
		out.slots, err = h.sched.Suggest(*step.Event, step.Max)
	case OpDetect:
		alg, perr := conflict.ParseAlgorithm(step.Algorithm)
		if perr != nil {
			return out, perr
		}
		out.detected, err = h.sched.Detect(alg)
	default:
		return out, fmt.Errorf("unknown op %q", step.Op)
	}
	return settle(out, err)
}

func (h *Harness) executeAsync(ctx context.Context, step FlowStep) (stepOutcome, error) {
	out := stepOutcome{op: step.Op}

	var p *dispatch.Pending
	var err error
	switch step.Op {
	case OpAdd:
		p, err = h.sched.AddAsync(*step.Event)
	case OpReplace:
		p, err = h.sched.ReplaceAsync(*step.Event)
	case OpRemove:
		p, err = h.sched.RemoveAsync(step.ID)
	case OpQuery:
		p, err = h.sched.QueryAsync(step.Owner)
	case OpQueryAll:
		p, err = h.sched.QueryAllAsync()
	case OpBatch:
		p, err = h.sched.AddBatchAsync(step.Events)
	default:
		return out, fmt.Errorf("%s cannot run async", step.Op)
	}
	if err != nil {
		return settle(out, err)
	}

	ctx, cancel := context.WithTimeout(ctx, stepTimeout)
	defer cancel()
	reply, err := p.Wait(ctx)
	if err != nil {
		return out, fmt.Errorf("wait for reply: %w", err)
	}

	out.accepted = reply.Accepted
	out.found = reply.Found
	out.conflict = reply.Conflict
	out.events = reply.Events
	out.batch = reply.Batch
	return out, nil
}

// settle turns engine errors into an outcome error code. Other errors
// abort the scenario.
func settle(out stepOutcome, err error) (stepOutcome, error) {
	if err == nil {
		return out, nil
	}
	var se *engine.Error
	if errors.As(err, &se) {
		out.errCode = string(se.Code)
		return out, nil
	}
	return out, err
}

// checkExpect compares the fields set in step.Expect with out.
func (h *Harness) checkExpect(index int, step FlowStep, out stepOutcome, result *Result) {
	e := step.Expect
	if e == nil {
		return
	}
	fail := func(format string, args ...any) {
		result.AddError(fmt.Sprintf("flow[%d] %s: ", index, step.Op) + fmt.Sprintf(format, args...))
	}

	if e.Error != "" || out.errCode != "" {
		if e.Error != out.errCode {
			fail("expected error %q, got %q", e.Error, out.errCode)
		}
		return
	}

	if e.Accepted != nil && *e.Accepted != out.accepted {
		fail("expected accepted=%t, got %t", *e.Accepted, out.accepted)
	}
	if e.Found != nil && *e.Found != out.found {
		fail("expected found=%t, got %t", *e.Found, out.found)
	}
	if e.IDs != nil {
		if got := calendar.IDs(out.events); !slices.Equal(e.IDs, got) {
			fail("expected ids %v, got %v", e.IDs, got)
		}
	}
	if e.Batch != nil && !slices.Equal(e.Batch, out.batch) {
		fail("expected batch %v, got %v", e.Batch, out.batch)
	}

	res := out.conflict
	if step.Op == OpDetect {
		res = out.detected
	}
	if e.Pairs != nil {
		want, got := conflict.Normalize(e.Pairs), conflict.Normalize(res.Pairs)
		if !slices.Equal(want, got) {
			fail("expected pairs %v, got %v", want, got)
		}
	}
	if e.Total != nil && *e.Total != res.Total {
		fail("expected total=%d, got %d", *e.Total, res.Total)
	}
	if e.Starts != nil {
		got := make([]int64, len(out.slots))
		for i, s := range out.slots {
			got[i] = s.Start
		}
		if !slices.Equal(e.Starts, got) {
			fail("expected suggestion starts %v, got %v", e.Starts, got)
		}
	}
}

// stepArgs renders the step input for the trace.
func stepArgs(step FlowStep) map[string]any {
	args := map[string]any{}
	switch step.Op {
	case OpAdd, OpReplace:
		args = eventArgs(*step.Event)
	case OpSuggest:
		args = eventArgs(*step.Event)
		args["max"] = step.Max
	case OpRemove:
		args["id"] = step.ID
	case OpQuery:
		args["owner"] = step.Owner
	case OpBatch:
		args["ids"] = int64List(calendar.IDs(step.Events))
	case OpDetect:
		alg, _ := conflict.ParseAlgorithm(step.Algorithm)
		args["algorithm"] = string(alg)
	}
	if step.Async {
		args["async"] = true
	}
	return args
}

func eventArgs(e calendar.Event) map[string]any {
	return map[string]any{
		"id":    e.ID,
		"start": e.Start,
		"end":   e.End,
		"owner": e.Owner,
	}
}

// canonical renders the outcome for the trace.
func (o stepOutcome) canonical() map[string]any {
	if o.errCode != "" {
		return map[string]any{"error": o.errCode}
	}

	switch o.op {
	case OpAdd:
		return map[string]any{
			"accepted": o.accepted,
			"pairs":    pairList(o.conflict.Pairs),
		}
	case OpReplace:
		return map[string]any{
			"accepted": o.accepted,
			"found":    o.found,
			"pairs":    pairList(o.conflict.Pairs),
		}
	case OpRemove:
		return map[string]any{"found": o.found}
	case OpQuery, OpQueryAll:
		return map[string]any{"ids": int64List(calendar.IDs(o.events))}
	case OpBatch:
		flags := make([]any, len(o.batch))
		for i, ok := range o.batch {
			flags[i] = ok
		}
		return map[string]any{"batch": flags}
	case OpSuggest:
		slots := make([]any, len(o.slots))
		for i, s := range o.slots {
			slots[i] = map[string]any{"start": s.Start, "end": s.End}
		}
		return map[string]any{"slots": slots}
	case OpDetect:
		// Discovery order differs between algorithms; the trace does not.
		return map[string]any{
			"total": o.detected.Total,
			"pairs": pairList(conflict.Normalize(o.detected.Pairs)),
		}
	default:
		return map[string]any{}
	}
}

func pairList(pairs []conflict.Pair) []any {
	out := make([]any, len(pairs))
	for i, p := range pairs {
		out[i] = []any{p.A, p.B}
	}
	return out
}

func int64List(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
