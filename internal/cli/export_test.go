package cli

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slotguard/internal/calfile"
)

func TestExport_Stdout(t *testing.T) {
	path := writeEvents(t, "events.yaml", conflictingEvents)

	out, _, err := executeCommand(t, "export", path)
	require.NoError(t, err)

	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "UID:1@slotguard")
	assert.Contains(t, out, "UID:2@slotguard")
	assert.Contains(t, out, "UID:3@slotguard")
	assert.Contains(t, out, "X-SLOTGUARD-OWNER:bob")
	assert.NotContains(t, out, "wrote")
}

func TestExport_ResolveToFile(t *testing.T) {
	path := writeEvents(t, "events.yaml", conflictingEvents)
	dest := filepath.Join(t.TempDir(), "clean.ics")

	out, _, err := executeCommand(t, "export", path, "--resolve", "-o", dest)
	require.NoError(t, err)
	assert.Equal(t, "✓ wrote 2 events to "+dest+"\n", out)

	events, err := calfile.Load(dest)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].ID)
	assert.Equal(t, int64(3), events[1].ID)
	assert.Equal(t, "Standup", events[0].Title)
}

func TestExport_DefaultOwnerFromConfig(t *testing.T) {
	cfg := writeEvents(t, "slotguard.yaml", "default_owner: carol\n")

	out, _, err := executeCommand(t, "export", "../calfile/testdata/sample.ics", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "UID:99@slotguard")
	assert.Contains(t, out, "X-SLOTGUARD-OWNER:carol")
}

func TestExport_FixedStamp(t *testing.T) {
	buf := &bytes.Buffer{}
	opts := &ExportOptions{
		RootOptions: &RootOptions{Format: "text"},
		Now:         func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
	cmd := NewExportCommand(opts.RootOptions)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})

	require.NoError(t, runExport(opts, aliceEvents, cmd))
	assert.Contains(t, buf.String(), "DTSTAMP:20260301T120000Z")
}

func TestExport_UnsupportedFile(t *testing.T) {
	path := writeEvents(t, "events.txt", "nothing")

	_, _, err := executeCommand(t, "export", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "unsupported event file")
}
