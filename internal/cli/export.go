package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/slotguard/internal/calfile"
	"github.com/roach88/slotguard/internal/engine"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output  string
	Resolve bool

	// Now stamps DTSTAMP (for testing). If nil, defaults to time.Now.
	Now func() time.Time
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <events-file>",
		Short: "Write events as iCalendar",
		Long: `Convert an events file (YAML, JSON or ICS) to an iCalendar document.

With --resolve the events are first added through the scheduler in file
order and only the ones that do not double book their owner are exported.

Examples:
  slotguard export events.yaml -o calendar.ics
  slotguard export events.yaml --resolve > clean.ics`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&opts.Resolve, "resolve", false, "drop events that conflict with an earlier one")

	return cmd
}

func runExport(opts *ExportOptions, path string, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	logger := newLogger(opts.RootOptions, cfg, cmd.ErrOrStderr())

	events, err := calfile.Load(path, calfile.WithDefaultOwner(cfg.DefaultOwner))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load events", err)
	}

	if opts.Resolve {
		sched, err := engine.New(engine.Config{Logger: logger})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create scheduler", err)
		}
		if _, err := sched.AddBatch(events); err != nil {
			return WrapExitError(ExitCommandError, "failed to resolve events", err)
		}
		kept := sched.Snapshot()
		logger.Info("resolved conflicts", "events", len(events), "kept", len(kept))
		events = kept
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	var w io.Writer = cmd.OutOrStdout()
	if opts.Output != "" {
		out, err := os.Create(opts.Output)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create output", err)
		}
		defer out.Close()
		w = out
	}

	if err := calfile.ExportICS(w, events, now()); err != nil {
		return WrapExitError(ExitCommandError, "failed to export", err)
	}

	if opts.Output != "" {
		f := newFormatter(opts.RootOptions, cmd)
		summary := map[string]any{"file": opts.Output, "events": len(events)}
		return f.Success(summary, func(w io.Writer) {
			fmt.Fprintf(w, "✓ wrote %d events to %s\n", len(events), opts.Output)
		})
	}
	return nil
}
