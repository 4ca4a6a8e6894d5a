package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slotguard/internal/journal"
	"github.com/roach88/slotguard/internal/notify"
)

// seedJournal records four changes at a fixed time and returns the db path.
func seedJournal(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "journal.db")
	fixed := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	j, err := journal.Open(db, journal.WithNow(func() time.Time { return fixed }))
	require.NoError(t, err)
	defer j.Close()

	msgs := []notify.Message{
		{Seq: 1, Kind: notify.KindAdded, EventID: 1, Owner: "alice", RequestID: "req-0001"},
		{Seq: 2, Kind: notify.KindAdded, EventID: 3, Owner: "bob", RequestID: "req-0002"},
		{Seq: 3, Kind: notify.KindReplaced, EventID: 1, Owner: "alice", RequestID: "req-0003"},
		{Seq: 4, Kind: notify.KindRemoved, EventID: 3, Owner: "bob", RequestID: "req-0004"},
	}
	for _, m := range msgs {
		require.NoError(t, j.Append(context.Background(), m, ""))
	}
	return db
}

func TestJournal_Text(t *testing.T) {
	db := seedJournal(t)

	out, _, err := executeCommand(t, "journal", "--db", db, "--owner", "alice")
	require.NoError(t, err)

	expected := "     1  2026-03-02T08:00:00Z  added    event=1 owner=alice request=req-0001\n" +
		"     3  2026-03-02T08:00:00Z  replaced event=1 owner=alice request=req-0003\n" +
		"2 change(s)\n"
	assert.Equal(t, expected, out)
}

func TestJournal_FiltersJSON(t *testing.T) {
	db := seedJournal(t)

	tests := []struct {
		name string
		args []string
		seqs []int64
	}{
		{"all", nil, []int64{1, 2, 3, 4}},
		{"kind", []string{"--kind", "removed"}, []int64{4}},
		{"event", []string{"--event", "3"}, []int64{2, 4}},
		{"limit", []string{"--limit", "2"}, []int64{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"journal", "--db", db, "--format", "json"}, tt.args...)
			out, _, err := executeCommand(t, args...)
			require.NoError(t, err)

			var resp struct {
				Data JournalResult `json:"data"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, len(tt.seqs), resp.Data.Count)

			seqs := make([]int64, len(resp.Data.Records))
			for i, rec := range resp.Data.Records {
				seqs[i] = rec.Message.Seq
			}
			assert.Equal(t, tt.seqs, seqs)
		})
	}
}

func TestJournal_NoMatches(t *testing.T) {
	db := seedJournal(t)

	out, _, err := executeCommand(t, "journal", "--db", db, "--owner", "carol")
	require.NoError(t, err)
	assert.Equal(t, "No changes recorded.\n", out)
}

func TestJournal_Errors(t *testing.T) {
	db := seedJournal(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing db", []string{"journal", "--db", filepath.Join(t.TempDir(), "none.db")}, "journal not found"},
		{"bad kind", []string{"journal", "--db", db, "--kind", "moved"}, `invalid --kind "moved"`},
		{"negative limit", []string{"journal", "--db", db, "--limit", "-1"}, "--limit must be >= 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCommand(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestJournal_RequiresDB(t *testing.T) {
	_, _, err := executeCommand(t, "journal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}
