// Package rules provides the compiled pattern rule sets used to classify
// tool invocations as deny, ask, or auto-approve.
package rules

import (
	"fmt"
	"regexp"
	"sort"
)

// Category is a named, ordered group of compiled patterns.
type Category struct {
	Name     string
	patterns []*regexp.Regexp
}

// matches reports whether any pattern in the category matches text.
func (c Category) matches(text string) bool {
	for _, pattern := range c.patterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// Set is an immutable collection of categories compiled from raw pattern
// strings. Category iteration order is sorted by name so Match results are
// deterministic across runs.
type Set struct {
	categories map[string]Category
	order      []string
}

// Compile builds a Set from raw pattern strings grouped by category.
// Patterns are compiled case-insensitively. A malformed pattern fails the
// whole compilation; rule sets are built once at startup, so this surfaces
// configuration mistakes before any request is evaluated.
func Compile(raw map[string][]string) (*Set, error) {
	set := &Set{
		categories: make(map[string]Category, len(raw)),
	}

	for name, patterns := range raw {
		category := Category{Name: name}
		for _, pattern := range patterns {
			compiled, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q in category %q: %w", pattern, name, err)
			}
			category.patterns = append(category.patterns, compiled)
		}
		set.categories[name] = category
		set.order = append(set.order, name)
	}

	sort.Strings(set.order)
	return set, nil
}

// Match returns the name of the first category (in sorted order) with a
// pattern matching text, or false if none match.
func (s *Set) Match(text string) (string, bool) {
	for _, name := range s.order {
		if s.categories[name].matches(text) {
			return name, true
		}
	}
	return "", false
}

// MatchIn reports whether text matches any pattern in the named category.
// An unknown category never matches.
func (s *Set) MatchIn(category, text string) bool {
	c, ok := s.categories[category]
	if !ok {
		return false
	}
	return c.matches(text)
}

// Categories returns the category names in match order.
func (s *Set) Categories() []string {
	return append([]string(nil), s.order...)
}

// mergeOverrides replaces whole categories of defaults with the override's
// raw pattern lists. Categories absent from overrides keep their defaults.
func mergeOverrides(defaults, overrides map[string][]string) map[string][]string {
	merged := make(map[string][]string, len(defaults))
	for name, patterns := range defaults {
		merged[name] = patterns
	}
	for name, patterns := range overrides {
		merged[name] = patterns
	}
	return merged
}

// Rules bundles the three rule collections consumed by the permission
// evaluators. It is frozen after construction and safe for concurrent reads.
type Rules struct {
	Deny        *Set
	Ask         *Set
	AutoApprove *Set
}

// NewDefault compiles the built-in rule sets.
func NewDefault() (*Rules, error) {
	return NewWithOverrides(Overrides{})
}

// Overrides carries per-collection category replacements supplied by
// deployment configuration.
type Overrides struct {
	Deny        map[string][]string
	Ask         map[string][]string
	AutoApprove map[string][]string
}

// NewWithOverrides compiles the built-in rule sets with the given category
// overrides applied. Each present override category fully replaces the
// corresponding default category.
func NewWithOverrides(overrides Overrides) (*Rules, error) {
	deny, err := Compile(mergeOverrides(defaultDenyPatterns, overrides.Deny))
	if err != nil {
		return nil, fmt.Errorf("failed to compile deny rules: %w", err)
	}

	ask, err := Compile(mergeOverrides(defaultAskPatterns, overrides.Ask))
	if err != nil {
		return nil, fmt.Errorf("failed to compile ask rules: %w", err)
	}

	autoApprove, err := Compile(mergeOverrides(defaultAutoApprovePatterns, overrides.AutoApprove))
	if err != nil {
		return nil, fmt.Errorf("failed to compile auto-approve rules: %w", err)
	}

	return &Rules{
		Deny:        deny,
		Ask:         ask,
		AutoApprove: autoApprove,
	}, nil
}
