// Package pipeline orchestrates size limits, schema checks, recursive
// path scanning, and sanitization into the single validation call
// consumed by the hook boundary.
package pipeline

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/michael-freling/claude-code-guard/internal/hooks"
	"github.com/michael-freling/claude-code-guard/internal/metrics"
	"github.com/michael-freling/claude-code-guard/internal/pathcheck"
	"github.com/michael-freling/claude-code-guard/internal/sanitize"
)

// DefaultMaxInputBytes is the serialized payload size ceiling.
const DefaultMaxInputBytes = 10 << 20

// InputSizeError reports a payload exceeding the size ceiling.
type InputSizeError struct {
	Size  int64
	Limit int64
}

// Error implements the error interface.
func (e *InputSizeError) Error() string {
	return fmt.Sprintf("input size %d bytes exceeds limit of %d bytes", e.Size, e.Limit)
}

// ValidationError reports a payload failing the schema check.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid payload field %q: %s", e.Field, e.Reason)
}

// EventSink receives sanitized events for persistence. The sink owns
// retries and fallbacks; the pipeline only hands the event over.
type EventSink interface {
	// SaveEvent persists a sanitized event, reporting success.
	SaveEvent(event map[string]interface{}) bool
}

// Config carries the pipeline's construction parameters.
type Config struct {
	// MaxInputBytes is the serialized payload ceiling; zero means
	// DefaultMaxInputBytes.
	MaxInputBytes int64

	Paths    *pathcheck.Validator
	Detector *sanitize.Detector
	Recorder *metrics.Recorder
	Logger   *slog.Logger
}

// Pipeline validates and sanitizes raw hook payloads. It is immutable
// after construction and safe for concurrent use.
type Pipeline struct {
	maxBytes int64
	paths    *pathcheck.Validator
	detector *sanitize.Detector
	recorder *metrics.Recorder
	logger   *slog.Logger
}

// New creates a pipeline from config.
func New(config Config) *Pipeline {
	maxBytes := config.MaxInputBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxInputBytes
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	detector := config.Detector
	if detector == nil {
		detector = sanitize.NewDetector(config.Recorder)
	}

	return &Pipeline{
		maxBytes: maxBytes,
		paths:    config.Paths,
		detector: detector,
		recorder: config.Recorder,
		logger:   logger.With("component", "pipeline"),
	}
}

// Run executes the validation stages in order: size check, schema check,
// recursive path scan, sanitization. The sanitized payload is stamped
// with an event ID before being returned. Stage failures come back as
// typed errors; callers convert them into safe fallback behavior rather
// than letting them escape.
func (p *Pipeline) Run(raw map[string]interface{}) (map[string]interface{}, error) {
	if p.recorder != nil {
		defer p.recorder.TimeValidation()()
	}

	if err := p.checkSize(raw); err != nil {
		return nil, err
	}
	if err := p.checkSchema(raw); err != nil {
		return nil, err
	}
	if err := p.scanPaths(raw); err != nil {
		return nil, err
	}

	sanitized, ok := p.detector.Sanitize(raw).(map[string]interface{})
	if !ok {
		// Sanitize preserves shape; a map in means a map out.
		return nil, &ValidationError{Field: "payload", Reason: "sanitization changed payload shape"}
	}

	if _, ok := sanitized["event_id"]; !ok {
		sanitized["event_id"] = uuid.New().String()
	}
	return sanitized, nil
}

// checkSize serializes the payload and compares its byte length against
// the ceiling.
func (p *Pipeline) checkSize(raw map[string]interface{}) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return &ValidationError{Field: "payload", Reason: "payload is not serializable"}
	}

	if size := int64(len(data)); size > p.maxBytes {
		if p.recorder != nil {
			p.recorder.RecordOversizedInput()
		}
		p.logger.Warn("oversized payload rejected", "size", size, "limit", p.maxBytes)
		return &InputSizeError{Size: size, Limit: p.maxBytes}
	}
	return nil
}

// checkSchema verifies the minimal payload shape: a recognized hook
// event name and correctly typed identifiers.
func (p *Pipeline) checkSchema(raw map[string]interface{}) error {
	if value, ok := raw["hook_event_name"]; ok {
		name, isString := value.(string)
		if !isString {
			return &ValidationError{Field: "hook_event_name", Reason: "must be a string"}
		}
		if !hooks.KnownHookEvent(name) {
			return &ValidationError{Field: "hook_event_name", Reason: fmt.Sprintf("unknown event %q", name)}
		}
	}

	for _, field := range []string{"tool_name", "session_id"} {
		if value, ok := raw[field]; ok {
			if _, isString := value.(string); !isString {
				return &ValidationError{Field: field, Reason: "must be a string"}
			}
		}
	}
	return nil
}

// scanPaths walks the payload and validates every path-like field,
// short-circuiting on the first violation.
func (p *Pipeline) scanPaths(value interface{}) error {
	if p.paths == nil {
		return nil
	}
	return p.walk(value)
}

func (p *Pipeline) walk(value interface{}) error {
	switch v := value.(type) {
	case map[string]interface{}:
		for key, item := range v {
			if text, ok := item.(string); ok && looksLikePath(key, text) {
				if _, err := p.paths.Validate(text); err != nil {
					p.logger.Warn("path validation failed",
						"field", key,
						"value", p.detector.SanitizeString(truncate(text, 120)))
					return err
				}
				continue
			}
			if err := p.walk(item); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, item := range v {
			if err := p.walk(item); err != nil {
				return err
			}
		}
	}
	return nil
}

// truncate shortens s for log output.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
