// Package shellsafe neutralizes shell metacharacters in command arguments
// and validates command names against an allow-list.
package shellsafe

import (
	"fmt"
	"log/slog"
	"strings"

	"al.essio.dev/pkg/shellescape"

	"github.com/michael-freling/claude-code-guard/internal/metrics"
)

// metacharacters are the shell characters that trigger a flag (not a
// block) when found inside an argument.
const metacharacters = "|&;`$<>(){}[]*?!\\\"'\n"

// defaultAllowedCommands is the fallback allow-list of read-only
// inspection commands.
var defaultAllowedCommands = []string{
	"ls", "cat", "head", "tail", "wc", "file", "stat",
	"grep", "rg", "find", "which",
	"git", "go", "pwd", "echo", "env", "date", "whoami",
}

// CommandInjectionError reports a command name that is not on the
// allow-list.
type CommandInjectionError struct {
	Command string
}

// Error implements the error interface.
func (e *CommandInjectionError) Error() string {
	return fmt.Sprintf("command %q is not on the allow-list", e.Command)
}

// Escaper quotes shell arguments and validates command names. It is
// immutable after construction and safe for concurrent use.
type Escaper struct {
	allowed  map[string]struct{}
	recorder *metrics.Recorder
	logger   *slog.Logger
}

// NewEscaper creates an escaper with the given command allow-list. An
// empty allow-list falls back to a small set of read-only inspection
// commands.
func NewEscaper(allowedCommands []string, recorder *metrics.Recorder, logger *slog.Logger) *Escaper {
	if len(allowedCommands) == 0 {
		allowedCommands = defaultAllowedCommands
	}
	if logger == nil {
		logger = slog.Default()
	}

	allowed := make(map[string]struct{}, len(allowedCommands))
	for _, command := range allowedCommands {
		allowed[command] = struct{}{}
	}

	return &Escaper{
		allowed:  allowed,
		recorder: recorder,
		logger:   logger.With("component", "shellsafe"),
	}
}

// Escape quotes argument so a shell treats it as a single opaque token.
// Arguments containing metacharacters are flagged via metrics and logged,
// but still escaped rather than rejected.
func (e *Escaper) Escape(argument string) string {
	if strings.ContainsAny(argument, metacharacters) {
		if e.recorder != nil {
			e.recorder.RecordCommandInjection()
		}
		e.logger.Warn("escaping argument with shell metacharacters",
			"argument", truncate(argument, 64))
	}
	return shellescape.Quote(argument)
}

// ValidateCommand checks name against the allow-list. Returns a
// *CommandInjectionError for commands not on the list.
func (e *Escaper) ValidateCommand(name string) error {
	name = strings.TrimSpace(name)
	if _, ok := e.allowed[name]; ok {
		return nil
	}

	if e.recorder != nil {
		e.recorder.RecordCommandInjection()
	}
	return &CommandInjectionError{Command: name}
}

// BuildSafeCommand composes an argument vector from a validated command
// name and escaped arguments. The result is ready for direct execution;
// it is never joined into a single shell string.
func (e *Escaper) BuildSafeCommand(name string, args []string) ([]string, error) {
	if err := e.ValidateCommand(name); err != nil {
		return nil, err
	}

	argv := make([]string, 0, len(args)+1)
	argv = append(argv, strings.TrimSpace(name))
	for _, arg := range args {
		argv = append(argv, e.Escape(arg))
	}
	return argv, nil
}

// truncate shortens s for log output.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
