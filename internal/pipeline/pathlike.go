package pipeline

import "strings"

// pathKeyHints are key-name substrings that suggest a field holds a file
// path.
var pathKeyHints = []string{
	"path", "file", "dir", "directory", "cwd", "location",
}

// looksLikePath decides whether a map entry should be treated as a file
// path and run through the path validator. The heuristic combines a
// key-name hint with a value shape check and is kept as a named function
// so it can be tuned and tested on its own.
func looksLikePath(key, value string) bool {
	if value == "" || len(value) > 4096 {
		return false
	}
	if strings.ContainsAny(value, "\n\r") {
		return false
	}

	lowerKey := strings.ToLower(key)
	hinted := false
	for _, hint := range pathKeyHints {
		if strings.Contains(lowerKey, hint) {
			hinted = true
			break
		}
	}
	if !hinted {
		return false
	}

	// URLs are network targets, not filesystem paths.
	if strings.Contains(value, "://") {
		return false
	}

	return strings.HasPrefix(value, "/") ||
		strings.HasPrefix(value, "./") ||
		strings.HasPrefix(value, "../") ||
		strings.HasPrefix(value, "~")
}
