package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/slotguard/internal/journal"
	"github.com/roach88/slotguard/internal/notify"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database string
	Owner    string
	EventID  int64
	Kind     string
	Limit    int
}

// JournalResult holds the records returned by the journal command.
type JournalResult struct {
	Records []journal.Record `json:"records"`
	Count   int              `json:"count"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recorded changes",
		Long: `List the changes recorded in a change journal, oldest first.

Examples:
  slotguard journal --db ./journal.db
  slotguard journal --db ./journal.db --owner alice --limit 20
  slotguard journal --db ./journal.db --kind removed --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite change journal (required)")
	cmd.Flags().StringVar(&opts.Owner, "owner", "", "only changes for this owner")
	cmd.Flags().Int64Var(&opts.EventID, "event", 0, "only changes for this event id")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only changes of this kind (added|removed|replaced|batch)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of records (0 = all)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", opts.Database))
	}
	switch notify.Kind(opts.Kind) {
	case "", notify.KindAdded, notify.KindRemoved, notify.KindReplaced, notify.KindBatch:
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --kind %q", opts.Kind))
	}
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "--limit must be >= 0")
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	logger := newLogger(opts.RootOptions, cfg, cmd.ErrOrStderr())

	j, err := journal.Open(opts.Database, journal.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	records, err := j.Read(ctx, journal.Filter{
		Owner:   opts.Owner,
		EventID: opts.EventID,
		Kind:    notify.Kind(opts.Kind),
		Limit:   opts.Limit,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	result := JournalResult{Records: records, Count: len(records)}
	return newFormatter(opts.RootOptions, cmd).Success(result, func(w io.Writer) {
		writeJournalText(w, result)
	})
}

func writeJournalText(w io.Writer, r JournalResult) {
	if r.Count == 0 {
		fmt.Fprintln(w, "No changes recorded.")
		return
	}
	for _, rec := range r.Records {
		m := rec.Message
		fmt.Fprintf(w, "%6d  %s  %-8s event=%d owner=%s request=%s\n",
			m.Seq, rec.RecordedAt.UTC().Format(time.RFC3339), m.Kind, m.EventID, m.Owner, m.RequestID)
	}
	fmt.Fprintf(w, "%d change(s)\n", r.Count)
}
