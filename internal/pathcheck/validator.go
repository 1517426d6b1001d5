// Package pathcheck resolves candidate file paths against allowed base
// directories and rejects traversal attempts.
package pathcheck

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/michael-freling/claude-code-guard/internal/metrics"
)

// maxTraversalSegments is the number of ".." segments tolerated in a raw
// path before it is rejected outright.
const maxTraversalSegments = 2

// PathTraversalError reports a path that escapes every allowed base
// directory or contains illegal characters.
type PathTraversalError struct {
	Path   string
	Reason string
}

// Error implements the error interface.
func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("path traversal rejected for %q: %s", e.Path, e.Reason)
}

// Validator checks candidate paths against a fixed set of allowed base
// directories. It is immutable after construction and safe for concurrent
// use.
type Validator struct {
	allowedBases []string
	recorder     *metrics.Recorder
}

// NewValidator creates a validator for the given base directories. When
// bases is empty, defaults to the temp directory, the user home directory,
// and the current working directory.
func NewValidator(bases []string, recorder *metrics.Recorder) *Validator {
	if len(bases) == 0 {
		bases = defaultBases()
	}

	cleaned := make([]string, 0, len(bases))
	for _, base := range bases {
		if abs, err := filepath.Abs(base); err == nil {
			cleaned = append(cleaned, abs)
		}
	}

	return &Validator{
		allowedBases: cleaned,
		recorder:     recorder,
	}
}

// defaultBases returns the fallback allowed directories.
func defaultBases() []string {
	bases := []string{os.TempDir()}
	if home, err := os.UserHomeDir(); err == nil {
		bases = append(bases, home)
	}
	if cwd, err := os.Getwd(); err == nil {
		bases = append(bases, cwd)
	}
	return bases
}

// AllowedBases returns a copy of the allowed base directories.
func (v *Validator) AllowedBases() []string {
	return append([]string(nil), v.allowedBases...)
}

// Validate resolves candidate against the allowed bases and returns the
// canonical path. It returns a *PathTraversalError when the path is
// malformed, contains illegal characters, or resolves outside every
// allowed base. Every call records its duration regardless of outcome.
func (v *Validator) Validate(candidate string) (string, error) {
	if v.recorder != nil {
		defer v.recorder.TimeValidation()()
	}

	resolved, err := v.validate(candidate)
	if err != nil && v.recorder != nil {
		v.recorder.RecordPathTraversal()
	}
	return resolved, err
}

func (v *Validator) validate(candidate string) (string, error) {
	if candidate == "" {
		return "", &PathTraversalError{Path: candidate, Reason: "empty path"}
	}

	if strings.ContainsRune(candidate, 0) {
		return "", &PathTraversalError{Path: candidate, Reason: "path contains null byte"}
	}

	if char, found := findShellMetacharacter(candidate); found {
		return "", &PathTraversalError{
			Path:   candidate,
			Reason: fmt.Sprintf("path contains shell metacharacter %q", char),
		}
	}

	if n := countTraversalSegments(candidate); n > maxTraversalSegments {
		return "", &PathTraversalError{
			Path:   candidate,
			Reason: fmt.Sprintf("path contains %d traversal segments", n),
		}
	}

	if filepath.IsAbs(candidate) {
		resolved := canonicalize(candidate)
		if _, ok := v.containingBase(resolved); ok {
			return resolved, nil
		}
		return "", &PathTraversalError{Path: candidate, Reason: "path is outside every allowed base"}
	}

	// Relative path: try each allowed base in order.
	for _, base := range v.allowedBases {
		resolved := canonicalize(filepath.Join(base, candidate))
		if v.isDescendant(resolved, base) {
			return resolved, nil
		}
	}

	// Fall back to the current working directory.
	if cwd, err := os.Getwd(); err == nil {
		resolved := canonicalize(filepath.Join(cwd, candidate))
		if _, ok := v.containingBase(resolved); ok {
			return resolved, nil
		}
	}

	return "", &PathTraversalError{Path: candidate, Reason: "path is outside every allowed base"}
}

// containingBase returns the first allowed base that contains resolved.
func (v *Validator) containingBase(resolved string) (string, bool) {
	for _, base := range v.allowedBases {
		if v.isDescendant(resolved, base) {
			return base, true
		}
	}
	return "", false
}

// isDescendant reports whether resolved sits at or below base. The check
// runs on canonical paths, so ".."-based escapes collapse before the
// comparison.
func (v *Validator) isDescendant(resolved, base string) bool {
	canonicalBase := canonicalize(base)
	if resolved == canonicalBase {
		return true
	}
	return strings.HasPrefix(resolved, canonicalBase+string(filepath.Separator))
}

// canonicalize cleans a path and resolves symlinks when possible. Symlink
// resolution failing (path does not exist yet) falls back to the cleaned
// absolute path.
func canonicalize(path string) string {
	cleaned := filepath.Clean(path)
	if resolved, err := filepath.EvalSymlinks(cleaned); err == nil {
		return resolved
	}
	return cleaned
}

// findShellMetacharacter returns the first shell metacharacter embedded in
// the path, if any.
func findShellMetacharacter(path string) (string, bool) {
	for _, char := range []string{"|", "&", ";", "`"} {
		if strings.Contains(path, char) {
			return char, true
		}
	}
	return "", false
}

// countTraversalSegments counts ".." path segments in the raw path.
func countTraversalSegments(path string) int {
	count := 0
	for _, segment := range strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\'
	}) {
		if segment == ".." {
			count++
		}
	}
	return count
}
