package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/slotguard/internal/calendar"
	"github.com/roach88/slotguard/internal/calfile"
	"github.com/roach88/slotguard/internal/dispatch"
	"github.com/roach88/slotguard/internal/engine"
	"github.com/roach88/slotguard/internal/journal"
	"github.com/roach88/slotguard/internal/notify"
)

// shutdownTimeout bounds draining the dispatcher on exit.
const shutdownTimeout = 10 * time.Second

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	Workers  int
	Batch    bool
	Database string
}

// Rejection explains why an event was not stored.
type Rejection struct {
	ID      int64  `json:"id"`
	Owner   string `json:"owner"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LoadResult summarizes a load run.
type LoadResult struct {
	File      string         `json:"file"`
	Mode      string         `json:"mode"` // "concurrent" or "batch"
	Workers   int            `json:"workers"`
	Accepted  []int64        `json:"accepted"`
	Rejected  []Rejection    `json:"rejected"`
	Metrics   engine.Metrics `json:"metrics"`
	Delivered uint64         `json:"delivered"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <events-file>",
		Short: "Submit events through the scheduler",
		Long: `Submit every event in a file to the scheduler and report which were
stored and which were rejected as double bookings.

By default each event is queued separately and the worker pool runs them
concurrently, so when two events conflict either may win. With --batch the
file is added as one batch in file order and the earlier event wins.

Committed changes are recorded in the journal when --db (or journal in the
config file) is set.

Examples:
  slotguard load events.yaml
  slotguard load events.yaml --workers 8
  slotguard load events.ics --batch --db ./journal.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "dispatcher workers (default from config)")
	cmd.Flags().BoolVar(&opts.Batch, "batch", false, "add all events as one first-wins batch")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite change journal")

	return cmd
}

func runLoad(opts *LoadOptions, path string, cmd *cobra.Command) error {
	if opts.Workers < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--workers must be >= 0, got %d", opts.Workers))
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	logger := newLogger(opts.RootOptions, cfg, cmd.ErrOrStderr())
	f := newFormatter(opts.RootOptions, cmd)

	events, err := calfile.Load(path, calfile.WithDefaultOwner(cfg.DefaultOwner))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load events", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	hub := notify.NewHub(
		notify.WithInterval(cfg.SyncInterval),
		notify.WithHubLogger(logger),
		notify.WithSink(func(clientID string, msg notify.Message) {
			f.VerboseLog("%s <- %s", clientID, msg)
		}),
	)
	client := hub.RegisterNew()
	logger.Debug("hub client registered", "client", client)

	notifiers := notify.Multi{hub}
	clock := engine.NewClock()

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Journal
	}
	if dbPath != "" {
		j, err := journal.Open(dbPath, journal.WithLogger(logger))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		last, err := j.LastSeq(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		clock = engine.NewClockAt(last)
		notifiers = append(notifiers, j)
	}

	workers := opts.Workers
	if workers == 0 {
		workers = cfg.Workers
	}
	sched, err := engine.New(engine.Config{
		Workers:        workers,
		MaxSuggestions: cfg.MaxSuggestions,
		Notifier:       notifiers,
		Clock:          clock,
		Report:         cfg.Report,
		Logger:         logger,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create scheduler", err)
	}

	if err := hub.Start(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to start hub", err)
	}
	if err := sched.Start(); err != nil {
		hub.Stop()
		return WrapExitError(ExitCommandError, "failed to start scheduler", err)
	}

	result := LoadResult{
		File:     filepath.Base(path),
		Mode:     "concurrent",
		Workers:  workers,
		Accepted: []int64{},
		Rejected: []Rejection{},
	}
	if opts.Batch {
		result.Mode = "batch"
		err = loadBatch(ctx, sched, events, &result)
	} else {
		err = loadConcurrent(ctx, sched, events, &result)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if closeErr := sched.Close(closeCtx); closeErr != nil {
		logger.Error("error stopping scheduler", "error", closeErr)
	}
	hub.Stop()

	if err != nil {
		return WrapExitError(ExitFailure, "load interrupted", err)
	}

	result.Metrics = sched.Metrics()
	result.Delivered = hub.Delivered()

	return f.Success(result, func(w io.Writer) { writeLoadText(w, result) })
}

// loadConcurrent queues every event before waiting on any of them.
func loadConcurrent(ctx context.Context, sched *engine.Scheduler, events []calendar.Event, result *LoadResult) error {
	pending := make([]*dispatch.Pending, len(events))
	for i, e := range events {
		p, err := sched.AddAsync(e)
		if err != nil {
			return fmt.Errorf("submit event %d: %w", e.ID, err)
		}
		pending[i] = p
	}

	for i, p := range pending {
		reply, err := p.Wait(ctx)
		if err != nil {
			return fmt.Errorf("wait for event %d: %w", events[i].ID, err)
		}
		req := dispatch.Request{Kind: dispatch.OpAdd, Event: events[i]}
		record(result, events[i], engine.ReplyError(req, reply))
	}
	return nil
}

func loadBatch(ctx context.Context, sched *engine.Scheduler, events []calendar.Event, result *LoadResult) error {
	p, err := sched.AddBatchAsync(events)
	if err != nil {
		return fmt.Errorf("submit batch: %w", err)
	}
	reply, err := p.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait for batch: %w", err)
	}

	for i, ok := range reply.Batch {
		var rejectErr error
		if !ok {
			rejectErr = &engine.Error{
				Code:    engine.ErrCodeConflict,
				Message: "overlaps an earlier event of " + events[i].Owner,
				EventID: events[i].ID,
			}
		}
		record(result, events[i], rejectErr)
	}
	return nil
}

func record(result *LoadResult, e calendar.Event, err error) {
	if err == nil {
		result.Accepted = append(result.Accepted, e.ID)
		return
	}
	rej := Rejection{ID: e.ID, Owner: e.Owner, Message: err.Error()}
	var se *engine.Error
	if errors.As(err, &se) {
		rej.Code = string(se.Code)
		rej.Message = se.Message
	}
	result.Rejected = append(result.Rejected, rej)
}

func writeLoadText(w io.Writer, r LoadResult) {
	fmt.Fprintf(w, "Loaded %s (%s, %d workers): %d accepted, %d rejected\n",
		r.File, r.Mode, r.Workers, len(r.Accepted), len(r.Rejected))
	for _, rej := range r.Rejected {
		fmt.Fprintf(w, "  ✗ %d (%s): %s %s\n", rej.ID, rej.Owner, rej.Code, rej.Message)
	}
	m := r.Metrics
	fmt.Fprintf(w, "Metrics: events=%d total_requests=%d successful_adds=%d conflicts=%d\n",
		m.Events, m.TotalRequests, m.SuccessfulAdds, m.Conflicts)
}
