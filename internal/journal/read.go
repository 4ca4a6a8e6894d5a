package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/slotguard/internal/notify"
)

// Record is one journal row.
type Record struct {
	ID         int64          `json:"id"`
	Message    notify.Message `json:"message"`
	ClientID   string         `json:"client_id,omitempty"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// Filter narrows Read. Zero values match everything.
type Filter struct {
	Owner   string
	EventID int64
	Kind    notify.Kind
	// Limit caps the number of rows returned; 0 means no limit.
	Limit int
}

// Read returns matching records ordered by seq ASC, id ASC.
//
// Returns an empty slice (not nil) if nothing matches.
func (j *Journal) Read(ctx context.Context, f Filter) ([]Record, error) {
	var (
		where []string
		args  []any
	)
	if f.Owner != "" {
		where = append(where, "owner = ?")
		args = append(args, f.Owner)
	}
	if f.EventID != 0 {
		where = append(where, "event_id = ?")
		args = append(args, f.EventID)
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}

	query := `
		SELECT id, seq, kind, event_id, owner, fingerprint, request_id, client_id, recorded_at
		FROM changes`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY seq ASC, id ASC"
	if f.Limit > 0 {
		query += "\n\t\tLIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			r          Record
			kind       string
			recordedAt int64
		)
		if err := rows.Scan(
			&r.ID,
			&r.Message.Seq,
			&kind,
			&r.Message.EventID,
			&r.Message.Owner,
			&r.Message.Fingerprint,
			&r.Message.RequestID,
			&r.ClientID,
			&recordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		r.Message.Kind = notify.Kind(kind)
		r.RecordedAt = time.UnixMilli(recordedAt).UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}
	return records, nil
}

// Count returns the total number of rows.
func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM changes").Scan(&n); err != nil {
		return 0, fmt.Errorf("count changes: %w", err)
	}
	return n, nil
}

// LastSeq returns the highest recorded seq, or 0 for an empty journal.
// A scheduler clock started at LastSeq keeps seq increasing across runs.
func (j *Journal) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := j.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM changes").Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}
