package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slotguard/internal/notify"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	require.NoError(t, err)
	defer j.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	for i := 0; i < 3; i++ {
		j, err := Open(path)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, j.Append(context.Background(), msg(int64(i+1), notify.KindAdded, 1, "u"), ""))
		j.Close()
	}

	j, err := Open(path)
	require.NoError(t, err)
	defer j.Close()

	n, err := j.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n, "rows survive reopening")
}

func TestOpen_SchemaVersion(t *testing.T) {
	j := createTestJournal(t)

	v, err := j.schemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, v)
}

func TestOpen_Memory(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	require.NoError(t, j.Append(ctx, msg(1, notify.KindAdded, 1, "u"), ""))
	n, err := j.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "journal.db"))
	assert.Error(t, err)
}

func TestClose_Twice(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, j.Close())
	assert.NoError(t, j.Close())
}

func TestJournal_IsNotifier(t *testing.T) {
	j := createTestJournal(t)

	var n notify.Notifier = j
	n.Broadcast(msg(1, notify.KindAdded, 10, "alice"))
	n.SendTo("client-1", msg(2, notify.KindRemoved, 10, "alice"))

	records, err := j.Read(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "", records[0].ClientID)
	assert.Equal(t, notify.KindAdded, records[0].Message.Kind)
	assert.Equal(t, "client-1", records[1].ClientID)
	assert.Equal(t, fixedNow, records[1].RecordedAt)
}

func TestJournal_WriteFailureIsLogged(t *testing.T) {
	logger, buf := bufferLogger()
	j := createTestJournal(t, WithLogger(logger))
	require.NoError(t, j.Close())

	assert.NotPanics(t, func() {
		j.Broadcast(msg(1, notify.KindAdded, 1, "u"))
	})
	assert.Contains(t, buf.String(), "journal append failed")
}
