package journal

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/slotguard/internal/notify"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// createTestJournal opens a journal in a temp dir with a fixed clock.
func createTestJournal(t *testing.T, opts ...Option) *Journal {
	t.Helper()
	opts = append([]Option{WithNow(func() time.Time { return fixedNow })}, opts...)
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func msg(seq int64, kind notify.Kind, eventID int64, owner string) notify.Message {
	return notify.Message{Seq: seq, Kind: kind, EventID: eventID, Owner: owner, RequestID: "req"}
}
