package pipeline

import (
	"errors"

	"github.com/michael-freling/claude-code-guard/internal/pathcheck"
)

// Process runs raw through the validation stages and hands the result to
// sink. A stage failure never propagates: the payload degrades to a
// minimal flagged event that is still sanitized before persistence.
// Returns the sink's success report.
func (p *Pipeline) Process(raw map[string]interface{}, sink EventSink) bool {
	sanitized, err := p.Run(raw)
	if err == nil {
		return sink.SaveEvent(sanitized)
	}

	p.logger.Warn("validation failed, saving flagged fallback event",
		"error", p.detector.SanitizeString(err.Error()))

	fallback := map[string]interface{}{
		"validation_failed": true,
		"failure_kind":      failureKind(err),
	}
	if name, ok := raw["tool_name"].(string); ok {
		fallback["tool_name"] = p.detector.SanitizeString(name)
	}
	if id, ok := raw["session_id"].(string); ok {
		fallback["session_id"] = p.detector.SanitizeString(id)
	}

	flagged, runErr := p.Run(fallback)
	if runErr != nil {
		return false
	}
	return sink.SaveEvent(flagged)
}

// failureKind maps a stage error to a stable category string for the
// persisted event.
func failureKind(err error) string {
	var sizeErr *InputSizeError
	if errors.As(err, &sizeErr) {
		return "input_size"
	}

	var traversalErr *pathcheck.PathTraversalError
	if errors.As(err, &traversalErr) {
		return "path_traversal"
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return "schema"
	}
	return "unknown"
}
