package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)
			assert.Equal(t, name, scenario.Name, "golden file is named after the scenario")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestMarshalTrace_Canonical(t *testing.T) {
	trace := []TraceEvent{
		{Type: TraceRequest, Seq: 1, Step: 0, Op: "remove", Args: map[string]any{"id": int64(7)}, Outcome: map[string]any{"found": false}},
		{Type: TraceNotification, Seq: 2, Kind: "removed", EventID: 7, Owner: "alice", RequestID: "req-0002", MessageSeq: 4},
	}

	data, err := MarshalTrace("tiny", trace)
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"tiny","trace":[`+
			`{"args":{"id":7},"op":"remove","outcome":{"found":false},"seq":1,"step":0,"type":"request"},`+
			`{"event_id":7,"kind":"removed","message_seq":4,"owner":"alice","request_id":"req-0002","seq":2,"type":"notification"}]}`,
		string(data))
}

func TestMarshalTrace_NilMapsBecomeEmptyObjects(t *testing.T) {
	data, err := MarshalTrace("empty", []TraceEvent{{Type: TraceRequest, Seq: 1, Op: "query_all"}})
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"empty","trace":[{"args":{},"op":"query_all","outcome":{},"seq":1,"step":0,"type":"request"}]}`,
		string(data))
}
