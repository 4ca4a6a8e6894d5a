package journal

import (
	"context"
	"fmt"

	"github.com/roach88/slotguard/internal/notify"
)

// Append writes one row for msg. clientID is empty for broadcasts.
func (j *Journal) Append(ctx context.Context, msg notify.Message, clientID string) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO changes
		(seq, kind, event_id, owner, fingerprint, request_id, client_id, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		msg.Seq,
		string(msg.Kind),
		msg.EventID,
		msg.Owner,
		msg.Fingerprint,
		msg.RequestID,
		clientID,
		j.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("append change: %w", err)
	}
	return nil
}
