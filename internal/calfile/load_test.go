package calfile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slotguard/internal/calendar"
)

func TestLoad_YAML(t *testing.T) {
	events, err := Load("testdata/events.yaml")
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, calendar.Event{
		ID:          2,
		Title:       "Design review",
		Description: "Quarterly roadmap",
		Start:       1772445600000,
		End:         1772449200000,
		Owner:       "alice",
		Priority:    2,
	}, events[1])
	assert.True(t, events[2].Recurring)
}

func TestLoad_JSON(t *testing.T) {
	events, err := Load("testdata/events.json")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, calendar.IDs(events))
}

func TestLoad_SchemaViolations(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"testdata/bad_interval.yaml", "end"},
		{"testdata/unknown_field.yaml", "location"},
		{"testdata/missing_owner.json", "owner"},
	}
	for _, tt := range tests {
		t.Run(filepath.Base(tt.file), func(t *testing.T) {
			_, err := Load(tt.file)
			require.Error(t, err)
			var le *LoadError
			require.ErrorAs(t, err, &le)
			assert.Contains(t, le.Error(), tt.want)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Parse("events.txt", []byte("events: []"))
	assert.ErrorContains(t, err, "unsupported event file")

	_, err = Parse("broken.json", []byte("{"))
	assert.Error(t, err)
}

func TestParse_EmptyDocument(t *testing.T) {
	events, err := Parse("empty.yaml", []byte("events: []\n"))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestLoad_ICS(t *testing.T) {
	events, err := Load("testdata/sample.ics", WithDefaultOwner("carol"))
	require.NoError(t, err)
	require.Len(t, events, 3)

	standup := events[0]
	assert.Equal(t, int64(7), standup.ID)
	assert.Equal(t, "alice", standup.Owner)
	assert.Equal(t, 1, standup.Priority)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC).UnixMilli(), standup.Start)
	assert.Equal(t, 30*60*1000, int(standup.Duration()))

	vendor := events[1]
	assert.Equal(t, "bob@example.com", vendor.Owner, "ORGANIZER without mailto")
	assert.True(t, vendor.Recurring)
	assert.Positive(t, vendor.ID)
	assert.Equal(t, idFromUID("external-meeting-42"), vendor.ID, "hashed ids are stable")

	focus := events[2]
	assert.Equal(t, int64(99), focus.ID)
	assert.Equal(t, "carol", focus.Owner, "falls back to the default owner")
}

func TestLoad_ICSWithoutOwner(t *testing.T) {
	_, err := Load("testdata/sample.ics")
	assert.ErrorIs(t, err, calendar.ErrMissingOwner)
}

func TestExportICS_RoundTrip(t *testing.T) {
	events, err := Load("testdata/events.yaml")
	require.NoError(t, err)

	var buf bytes.Buffer
	stamp := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, ExportICS(&buf, events, stamp))

	out := buf.String()
	assert.Contains(t, out, "UID:1@slotguard")
	assert.Contains(t, out, "X-SLOTGUARD-OWNER:bob")
	assert.Contains(t, out, "PRIORITY:2")
	assert.NotContains(t, out, "RRULE")

	back, err := ParseICS("export.ics", strings.NewReader(out), "")
	require.NoError(t, err)
	require.Len(t, back, len(events))
	for i := range events {
		want := events[i]
		want.Recurring = false // not exported
		assert.Equal(t, want, back[i])
	}
}
