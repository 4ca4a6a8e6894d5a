package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/slotguard/internal/calendar"
	"github.com/roach88/slotguard/internal/calfile"
	"github.com/roach88/slotguard/internal/conflict"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Algorithm string
}

// CheckResult is the conflict report for an events file.
type CheckResult struct {
	File      string         `json:"file"`
	Algorithm string         `json:"algorithm"`
	Events    int            `json:"events"`
	Conflicts int            `json:"conflicts"`
	Pairs     []ConflictPair `json:"pairs"`
}

// ConflictPair describes one double booking.
type ConflictPair struct {
	A         int64  `json:"a"`
	B         int64  `json:"b"`
	Owner     string `json:"owner"`
	OverlapMS int64  `json:"overlap_ms"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <events-file>",
		Short: "Report double bookings in an events file",
		Long: `Report every pair of events that share an owner and overlap.

Intervals are half-open, so an event ending at 10:00 does not conflict
with one starting at 10:00. Events of different owners never conflict.

Exit codes:
  0 - No conflicts
  1 - Conflicts found
  2 - Command error (unreadable file, invalid events, etc.)

Examples:
  slotguard check events.yaml
  slotguard check calendar.ics --algo tree
  slotguard check events.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Algorithm, "algo", string(conflict.Sweep), "detection algorithm (pairwise|sweep|tree)")

	return cmd
}

func runCheck(opts *CheckOptions, path string, cmd *cobra.Command) error {
	alg, err := conflict.ParseAlgorithm(opts.Algorithm)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --algo", err)
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	events, err := calfile.Load(path, calfile.WithDefaultOwner(cfg.DefaultOwner))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load events", err)
	}

	res, err := conflict.Detect(alg, calendar.Slots(events))
	if err != nil {
		return WrapExitError(ExitCommandError, "detection failed", err)
	}

	f := newFormatter(opts.RootOptions, cmd)
	f.VerboseLog("checked %d events with %s in %s", len(events), alg, res.Elapsed)

	result := CheckResult{
		File:      filepath.Base(path),
		Algorithm: string(alg),
		Events:    len(events),
		Conflicts: res.Total,
		Pairs:     describePairs(events, res.Pairs),
	}
	text := func(w io.Writer) { writeCheckText(w, result, events) }

	if result.Conflicts == 0 {
		return f.Success(result, text)
	}
	if err := f.Failure(CodeConflicts, fmt.Sprintf("%d conflict(s)", result.Conflicts), result, text); err != nil {
		return err
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d conflict(s) in %s", result.Conflicts, result.File))
}

// describePairs orders pairs as (lower id, higher id) and adds the owner
// and overlap length.
func describePairs(events []calendar.Event, pairs []conflict.Pair) []ConflictPair {
	byID := make(map[int64]calendar.Event, len(events))
	for _, e := range events {
		if _, ok := byID[e.ID]; !ok {
			byID[e.ID] = e
		}
	}

	out := make([]ConflictPair, 0, len(pairs))
	for _, p := range conflict.Normalize(pairs) {
		a, b := byID[p.A], byID[p.B]
		out = append(out, ConflictPair{
			A:         p.A,
			B:         p.B,
			Owner:     a.Owner,
			OverlapMS: min(a.End, b.End) - max(a.Start, b.Start),
		})
	}
	return out
}

func writeCheckText(w io.Writer, r CheckResult, events []calendar.Event) {
	titles := make(map[int64]string, len(events))
	for _, e := range events {
		if _, ok := titles[e.ID]; !ok {
			titles[e.ID] = e.Title
		}
	}

	if r.Conflicts == 0 {
		fmt.Fprintf(w, "✓ %s: %d events, no conflicts (%s)\n", r.File, r.Events, r.Algorithm)
		return
	}
	fmt.Fprintf(w, "✗ %s: %d events, %d conflict(s) (%s)\n", r.File, r.Events, r.Conflicts, r.Algorithm)
	for _, p := range r.Pairs {
		fmt.Fprintf(w, "  %s: %d %q overlaps %d %q by %s\n",
			p.Owner, p.A, titles[p.A], p.B, titles[p.B],
			time.Duration(p.OverlapMS)*time.Millisecond)
	}
}
