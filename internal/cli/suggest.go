package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/slotguard/internal/calendar"
	"github.com/roach88/slotguard/internal/calfile"
	"github.com/roach88/slotguard/internal/engine"
)

// SuggestOptions holds flags for the suggest command.
type SuggestOptions struct {
	*RootOptions
	Owner string
	Start string
	End   string
	Title string
	ID    int64
	Max   int
}

// Slot is an interval rendered for output.
type Slot struct {
	Start     int64  `json:"start"`
	End       int64  `json:"end"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func slotOf(e calendar.Event) Slot {
	return Slot{
		Start:     e.Start,
		End:       e.End,
		StartTime: e.StartTime().Format(time.RFC3339),
		EndTime:   e.EndTime().Format(time.RFC3339),
	}
}

// SuggestResult is the answer to a booking request.
type SuggestResult struct {
	Owner       string  `json:"owner"`
	Requested   Slot    `json:"requested"`
	Free        bool    `json:"free"`
	ConflictIDs []int64 `json:"conflict_ids"`
	Suggestions []Slot  `json:"suggestions"`
}

// NewSuggestCommand creates the suggest command.
func NewSuggestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SuggestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "suggest <events-file>",
		Short: "Propose free slots for a booking",
		Long: `Check whether a booking fits an owner's calendar and propose
alternative slots of the same length that do not overlap any existing event.

Existing events are loaded from the file through the scheduler; events that
conflict with an earlier one in the file are skipped.

--start and --end accept RFC 3339 times or Unix milliseconds.

Examples:
  slotguard suggest events.yaml --owner alice --start 2026-03-02T09:00:00Z --end 2026-03-02T10:00:00Z
  slotguard suggest events.yaml --owner alice --start 1772442000000 --end 1772445600000 --max 5`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuggest(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Owner, "owner", "", "owner of the booking (required)")
	cmd.Flags().StringVar(&opts.Start, "start", "", "booking start (required)")
	cmd.Flags().StringVar(&opts.End, "end", "", "booking end (required)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "booking title")
	cmd.Flags().Int64Var(&opts.ID, "id", 0, "booking id")
	cmd.Flags().IntVar(&opts.Max, "max", 0, "maximum number of suggestions (default from config)")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func runSuggest(opts *SuggestOptions, path string, cmd *cobra.Command) error {
	start, err := parseTimestamp(opts.Start)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --start", err)
	}
	end, err := parseTimestamp(opts.End)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --end", err)
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	logger := newLogger(opts.RootOptions, cfg, cmd.ErrOrStderr())

	events, err := calfile.Load(path, calfile.WithDefaultOwner(cfg.DefaultOwner))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load events", err)
	}

	// Only synchronous methods are used, so the workers are never started.
	sched, err := engine.New(engine.Config{
		MaxSuggestions: cfg.MaxSuggestions,
		Logger:         logger,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create scheduler", err)
	}
	accepted, err := sched.AddBatch(events)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load events", err)
	}
	for i, ok := range accepted {
		if !ok {
			logger.Warn("skipping conflicting event", "event", events[i].ID, "owner", events[i].Owner)
		}
	}

	req := calendar.Event{ID: opts.ID, Title: opts.Title, Start: start, End: end, Owner: opts.Owner}
	res, err := sched.Check(req)
	if engine.IsInvalidEvent(err) {
		return WrapExitError(ExitCommandError, "invalid booking", err)
	}
	if err != nil {
		return err
	}
	suggestions, err := sched.Suggest(req, opts.Max)
	if err != nil {
		return WrapExitError(ExitCommandError, "suggest failed", err)
	}

	result := SuggestResult{
		Owner:       req.Owner,
		Requested:   slotOf(req),
		Free:        !res.HasConflict,
		ConflictIDs: make([]int64, 0, len(res.Pairs)),
		Suggestions: make([]Slot, 0, len(suggestions)),
	}
	for _, p := range res.Pairs {
		result.ConflictIDs = append(result.ConflictIDs, p.B)
	}
	for _, s := range suggestions {
		result.Suggestions = append(result.Suggestions, slotOf(s))
	}

	return newFormatter(opts.RootOptions, cmd).Success(result, func(w io.Writer) {
		writeSuggestText(w, result)
	})
}

func writeSuggestText(w io.Writer, r SuggestResult) {
	if r.Free {
		fmt.Fprintf(w, "✓ %s - %s is free for %s\n", r.Requested.StartTime, r.Requested.EndTime, r.Owner)
	} else {
		ids := make([]string, len(r.ConflictIDs))
		for i, id := range r.ConflictIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		fmt.Fprintf(w, "✗ %s - %s conflicts with %s for %s\n",
			r.Requested.StartTime, r.Requested.EndTime, strings.Join(ids, ", "), r.Owner)
	}

	if len(r.Suggestions) == 0 {
		fmt.Fprintln(w, "No alternative slots.")
		return
	}
	fmt.Fprintln(w, "Alternatives:")
	for i, s := range r.Suggestions {
		fmt.Fprintf(w, "  %d. %s - %s\n", i+1, s.StartTime, s.EndTime)
	}
}

// parseTimestamp accepts Unix milliseconds or an RFC 3339 time.
func parseTimestamp(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("%q is neither Unix milliseconds nor RFC 3339", s)
	}
	return t.UnixMilli(), nil
}
