// Package sanitize detects and redacts secret-like and personally
// identifying substrings in structured payloads before they are persisted
// or displayed.
package sanitize

import (
	"fmt"

	"github.com/michael-freling/claude-code-guard/internal/metrics"
)

const (
	// Mask replaces detected secrets and PII.
	Mask = "[REDACTED]"

	// UserPathMask replaces local user directory prefixes. It is distinct
	// from Mask so redacted paths keep some structural signal for
	// debugging without leaking the account name.
	UserPathMask = "[USER_PATH]"
)

// SensitiveDataError is reserved for call sites that demand a hard
// failure on detection instead of redaction.
type SensitiveDataError struct {
	Category string
}

// Error implements the error interface.
func (e *SensitiveDataError) Error() string {
	return fmt.Sprintf("sensitive data detected in category %q", e.Category)
}

// Detector scans arbitrary structured values for sensitive substrings and
// produces redacted copies. It is immutable and safe for concurrent use.
type Detector struct {
	recorder *metrics.Recorder
}

// NewDetector creates a detector. The recorder may be nil when detection
// counts are not wanted.
func NewDetector(recorder *metrics.Recorder) *Detector {
	return &Detector{recorder: recorder}
}

// Detect walks value and returns matched substrings grouped by category.
// Findings are transient; callers must not persist them.
func (d *Detector) Detect(value any) map[string][]string {
	findings := make(map[string][]string)
	walkStrings(value, func(s string) string {
		for _, p := range secretPatterns {
			for _, match := range p.re.FindAllString(s, -1) {
				findings[p.category] = append(findings[p.category], match)
			}
		}
		for _, p := range userPathPatterns {
			for _, match := range p.re.FindAllString(s, -1) {
				findings[p.category] = append(findings[p.category], match)
			}
		}
		return s
	})

	if d.recorder != nil {
		total := 0
		for _, matches := range findings {
			total += len(matches)
		}
		d.recorder.RecordSensitiveData(total)
	}
	return findings
}

// Sanitize returns a copy of value with every detected sensitive
// substring replaced. The copy has the same shape as the input: maps stay
// maps and sequences stay sequences. Sanitizing already-sanitized output
// is a no-op. Each replaced substring counts as one detection on the
// recorder.
func (d *Detector) Sanitize(value any) any {
	total := 0
	out := walkStrings(value, func(s string) string {
		redacted, count := d.redact(s)
		total += count
		return redacted
	})
	if d.recorder != nil {
		d.recorder.RecordSensitiveData(total)
	}
	return out
}

// SanitizeString redacts sensitive substrings in a single string. Log
// messages pass through here before being written anywhere persistent;
// nothing is recorded so log scrubbing does not inflate the detection
// counter.
func (d *Detector) SanitizeString(s string) string {
	redacted, _ := d.redact(s)
	return redacted
}

// redact replaces every matching substring and returns the replacement
// count.
func (d *Detector) redact(s string) (string, int) {
	count := 0
	for _, p := range secretPatterns {
		if n := len(p.re.FindAllStringIndex(s, -1)); n > 0 {
			count += n
			s = p.re.ReplaceAllString(s, Mask)
		}
	}
	for _, p := range userPathPatterns {
		if n := len(p.re.FindAllStringIndex(s, -1)); n > 0 {
			count += n
			s = p.re.ReplaceAllString(s, UserPathMask)
		}
	}
	return s, count
}

// walkStrings rebuilds value, applying transform to every string it
// contains, including map keys. Non-string scalars pass through
// unchanged.
func walkStrings(value any, transform func(string) string) any {
	switch v := value.(type) {
	case string:
		return transform(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[transform(key)] = walkStrings(item, transform)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = walkStrings(item, transform)
		}
		return out
	default:
		return v
	}
}
