package pipeline

import (
	"strings"
	"testing"

	"github.com/michael-freling/claude-code-guard/internal/metrics"
	"github.com/michael-freling/claude-code-guard/internal/pathcheck"
	"github.com/michael-freling/claude-code-guard/internal/sanitize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// newTestPipeline builds a pipeline with a /tmp-rooted path validator.
func newTestPipeline(recorder *metrics.Recorder) *Pipeline {
	return New(Config{
		Paths:    pathcheck.NewValidator([]string{"/tmp"}, recorder),
		Recorder: recorder,
	})
}

func validPayload() map[string]interface{} {
	return map[string]interface{}{
		"hook_event_name": "PreToolUse",
		"tool_name":       "Read",
		"session_id":      "s1",
		"tool_input": map[string]interface{}{
			"file_path": "/tmp/notes.txt",
		},
	}
}

func TestPipeline_Run(t *testing.T) {
	p := newTestPipeline(nil)

	got, err := p.Run(validPayload())
	require.NoError(t, err)

	assert.Equal(t, "PreToolUse", got["hook_event_name"])
	assert.Equal(t, "Read", got["tool_name"])
	assert.NotEmpty(t, got["event_id"])
}

func TestPipeline_Run_SizeCeiling(t *testing.T) {
	recorder := metrics.NewRecorder()
	p := New(Config{
		MaxInputBytes: 256,
		Recorder:      recorder,
	})

	payload := map[string]interface{}{
		"hook_event_name": "PreToolUse",
		"blob":            strings.Repeat("x", 1024),
	}

	_, err := p.Run(payload)
	require.Error(t, err)

	var sizeErr *InputSizeError
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, int64(256), sizeErr.Limit)
	assert.Equal(t, uint64(1), recorder.Snapshot().OversizedInputAttempts)
}

func TestPipeline_Run_SchemaCheck(t *testing.T) {
	tests := []struct {
		name        string
		payload     map[string]interface{}
		wantField   string
		errContains string
	}{
		{
			name: "rejects unknown hook event name",
			payload: map[string]interface{}{
				"hook_event_name": "MadeUpEvent",
			},
			wantField:   "hook_event_name",
			errContains: "unknown event",
		},
		{
			name: "rejects non-string hook event name",
			payload: map[string]interface{}{
				"hook_event_name": float64(7),
			},
			wantField:   "hook_event_name",
			errContains: "must be a string",
		},
		{
			name: "rejects non-string tool name",
			payload: map[string]interface{}{
				"hook_event_name": "PreToolUse",
				"tool_name":       float64(1),
			},
			wantField:   "tool_name",
			errContains: "must be a string",
		},
		{
			name: "rejects non-string session id",
			payload: map[string]interface{}{
				"hook_event_name": "PreToolUse",
				"session_id":      true,
			},
			wantField:   "session_id",
			errContains: "must be a string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(nil)

			_, err := p.Run(tt.payload)
			require.Error(t, err)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.wantField, validationErr.Field)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestPipeline_Run_PathScan(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]interface{}
		wantErr bool
	}{
		{
			name:    "accepts path under allowed base",
			payload: validPayload(),
		},
		{
			name: "rejects traversal in nested path field",
			payload: map[string]interface{}{
				"hook_event_name": "PreToolUse",
				"tool_input": map[string]interface{}{
					"file_path": "../../../etc/passwd",
				},
			},
			wantErr: true,
		},
		{
			name: "rejects path outside allowed bases",
			payload: map[string]interface{}{
				"hook_event_name": "PreToolUse",
				"tool_input": map[string]interface{}{
					"directory": "/etc/cron.d",
				},
			},
			wantErr: true,
		},
		{
			name: "ignores path-like value under a non-path key",
			payload: map[string]interface{}{
				"hook_event_name": "PreToolUse",
				"tool_input": map[string]interface{}{
					"description": "/etc/passwd",
				},
			},
		},
		{
			name: "ignores url value under a path-hinted key",
			payload: map[string]interface{}{
				"hook_event_name": "PreToolUse",
				"tool_input": map[string]interface{}{
					"file_url": "https://example.com/etc/passwd",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(nil)

			_, err := p.Run(tt.payload)
			if tt.wantErr {
				require.Error(t, err)
				var traversalErr *pathcheck.PathTraversalError
				assert.ErrorAs(t, err, &traversalErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestPipeline_Run_SanitizesPayload(t *testing.T) {
	p := newTestPipeline(nil)

	payload := validPayload()
	payload["tool_input"] = map[string]interface{}{
		"file_path": "/tmp/out.txt",
		"content":   "api_key=sk-" + strings.Repeat("x", 48),
	}

	got, err := p.Run(payload)
	require.NoError(t, err)

	input, ok := got["tool_input"].(map[string]interface{})
	require.True(t, ok, "pipeline must preserve payload structure")
	content, ok := input["content"].(string)
	require.True(t, ok)
	assert.NotContains(t, content, strings.Repeat("x", 48))
	assert.Contains(t, content, sanitize.Mask)
}

func TestPipeline_Run_RecordsSensitiveDataMetric(t *testing.T) {
	recorder := metrics.NewRecorder()
	p := newTestPipeline(recorder)

	payload := validPayload()
	payload["tool_input"] = map[string]interface{}{
		"file_path": "/tmp/out.txt",
		"content":   "api_key=sk-" + strings.Repeat("x", 48),
	}

	got, err := p.Run(payload)
	require.NoError(t, err)

	input, ok := got["tool_input"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, input["content"], sanitize.Mask)
	assert.NotZero(t, recorder.Snapshot().SensitiveDataDetections)
}

func TestPipeline_Run_KeepsExistingEventID(t *testing.T) {
	p := newTestPipeline(nil)

	payload := validPayload()
	payload["event_id"] = "fixed-id"

	got, err := p.Run(payload)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", got["event_id"])
}

func TestLooksLikePath(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  bool
	}{
		{name: "absolute path under path key", key: "file_path", value: "/tmp/a.txt", want: true},
		{name: "relative path under dir key", key: "working_dir", value: "./src", want: true},
		{name: "traversal path under cwd key", key: "cwd", value: "../up", want: true},
		{name: "home path under location key", key: "location", value: "~/notes", want: true},
		{name: "plain word under path key", key: "file_path", value: "notes.txt", want: false},
		{name: "path value under unrelated key", key: "message", value: "/tmp/a.txt", want: false},
		{name: "url under file key", key: "file_url", value: "https://example.com/a", want: false},
		{name: "empty value", key: "path", value: "", want: false},
		{name: "multiline value", key: "path", value: "/tmp\n/etc", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, looksLikePath(tt.key, tt.value))
		})
	}
}

func TestPipeline_Process(t *testing.T) {
	t.Run("saves sanitized event on success", func(t *testing.T) {
		p := newTestPipeline(nil)
		sink := &MockEventSink{}
		sink.On("SaveEvent", mock.MatchedBy(func(event map[string]interface{}) bool {
			return event["tool_name"] == "Read" && event["event_id"] != nil
		})).Return(true)

		ok := p.Process(validPayload(), sink)

		assert.True(t, ok)
		sink.AssertExpectations(t)
	})

	t.Run("saves flagged fallback on validation failure", func(t *testing.T) {
		p := newTestPipeline(nil)
		sink := &MockEventSink{}
		sink.On("SaveEvent", mock.MatchedBy(func(event map[string]interface{}) bool {
			return event["validation_failed"] == true && event["failure_kind"] == "path_traversal"
		})).Return(true)

		payload := map[string]interface{}{
			"hook_event_name": "PreToolUse",
			"tool_name":       "Read",
			"tool_input": map[string]interface{}{
				"file_path": "../../../etc/passwd",
			},
		}

		ok := p.Process(payload, sink)

		assert.True(t, ok)
		sink.AssertExpectations(t)
	})

	t.Run("reports sink failure", func(t *testing.T) {
		p := newTestPipeline(nil)
		sink := &MockEventSink{}
		sink.On("SaveEvent", mock.Anything).Return(false)

		assert.False(t, p.Process(validPayload(), sink))
	})
}

func TestFailureKind(t *testing.T) {
	assert.Equal(t, "input_size", failureKind(&InputSizeError{Size: 1, Limit: 1}))
	assert.Equal(t, "schema", failureKind(&ValidationError{Field: "x", Reason: "y"}))
	assert.Equal(t, "path_traversal", failureKind(&pathcheck.PathTraversalError{Path: "p", Reason: "r"}))
	assert.Equal(t, "unknown", failureKind(assert.AnError))
}

// Average pipeline latency over a representative payload set must stay
// inside the single-digit-millisecond budget. This is a regression
// check, not a tight bound.
func TestPipeline_Run_LatencyBudget(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping latency regression in short mode")
	}

	recorder := metrics.NewRecorder()
	p := New(Config{Recorder: recorder})

	payloads := []map[string]interface{}{
		validPayload(),
		{
			"hook_event_name": "PostToolUse",
			"tool_name":       "Bash",
			"tool_input": map[string]interface{}{
				"command": "git status",
			},
		},
		{
			"hook_event_name": "PreToolUse",
			"tool_name":       "Write",
			"tool_input": map[string]interface{}{
				"file_path": "/tmp/report.md",
				"content":   strings.Repeat("lorem ipsum dolor sit amet ", 512),
			},
		},
	}

	for i := 0; i < 100; i++ {
		for _, payload := range payloads {
			_, err := p.Run(payload)
			require.NoError(t, err)
		}
	}

	snapshot := recorder.Snapshot()
	assert.Less(t, snapshot.AverageValidationMs, 5.0,
		"average validation latency exceeded budget")
}
