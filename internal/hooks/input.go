// Package hooks implements the pre- and post-execution permission
// evaluators for tool invocations.
package hooks

import (
	"encoding/json"
	"fmt"
	"io"
)

// ToolRequest represents a proposed tool invocation from the host agent.
type ToolRequest struct {
	ToolName      string          `json:"tool_name"`
	ToolInput     json.RawMessage `json:"tool_input"`
	SessionID     string          `json:"session_id"`
	HookEventName string          `json:"hook_event_name"`
	Cwd           string          `json:"cwd,omitempty"`

	parsed         map[string]interface{}
	malformedInput bool
}

// ParseToolRequest reads and parses a tool request from stdin JSON. A
// missing tool name or a non-object tool_input is not a parse error; the
// evaluator converts those into an Ask decision.
func ParseToolRequest(reader io.Reader) (*ToolRequest, error) {
	var request ToolRequest
	if err := json.NewDecoder(reader).Decode(&request); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	request.parseInput()
	return &request, nil
}

// parseInput decodes the raw tool_input into a map, flagging non-object
// input instead of failing.
func (t *ToolRequest) parseInput() {
	if len(t.ToolInput) == 0 || string(t.ToolInput) == "null" {
		return
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(t.ToolInput, &parsed); err != nil {
		t.malformedInput = true
		return
	}
	t.parsed = parsed
}

// InputMalformed reports whether tool_input was present but not a
// key-value object.
func (t *ToolRequest) InputMalformed() bool {
	return t.malformedInput
}

// Input returns the decoded tool_input map, or nil when absent or
// malformed.
func (t *ToolRequest) Input() map[string]interface{} {
	return t.parsed
}

// GetStringArg retrieves a string argument from the tool input.
// Returns the value and true if found, empty string and false if not found.
func (t *ToolRequest) GetStringArg(name string) (string, bool) {
	if t.parsed == nil {
		return "", false
	}

	value, ok := t.parsed[name]
	if !ok {
		return "", false
	}

	strValue, ok := value.(string)
	if !ok {
		return "", false
	}

	return strValue, true
}

// ToolOutcome represents a completed tool invocation reported by the
// host after execution.
type ToolOutcome struct {
	ToolName      string          `json:"tool_name"`
	ToolInput     json.RawMessage `json:"tool_input"`
	Success       bool            `json:"success"`
	Error         string          `json:"error,omitempty"`
	ErrorType     string          `json:"error_type,omitempty"`
	DurationMs    int64           `json:"duration_ms,omitempty"`
	PartialResult json.RawMessage `json:"partial_result,omitempty"`

	parsed map[string]interface{}
}

// ParseToolOutcome reads and parses a tool outcome from stdin JSON.
func ParseToolOutcome(reader io.Reader) (*ToolOutcome, error) {
	var outcome ToolOutcome
	if err := json.NewDecoder(reader).Decode(&outcome); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	if len(outcome.ToolInput) > 0 && string(outcome.ToolInput) != "null" {
		// Post-execution input is best effort; a malformed map only costs
		// argument lookups.
		_ = json.Unmarshal(outcome.ToolInput, &outcome.parsed)
	}
	return &outcome, nil
}

// GetStringArg retrieves a string argument from the outcome's tool input.
func (t *ToolOutcome) GetStringArg(name string) (string, bool) {
	if t.parsed == nil {
		return "", false
	}

	value, ok := t.parsed[name]
	if !ok {
		return "", false
	}

	strValue, ok := value.(string)
	if !ok {
		return "", false
	}

	return strValue, true
}

// Hook event names accepted at the validation boundary.
var knownHookEvents = map[string]struct{}{
	"PreToolUse":       {},
	"PostToolUse":      {},
	"Notification":     {},
	"UserPromptSubmit": {},
	"Stop":             {},
	"SubagentStop":     {},
	"PreCompact":       {},
	"SessionStart":     {},
	"SessionEnd":       {},
}

// KnownHookEvent reports whether name is a recognized hook event name.
func KnownHookEvent(name string) bool {
	_, ok := knownHookEvents[name]
	return ok
}
