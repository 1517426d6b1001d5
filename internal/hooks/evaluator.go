package hooks

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/michael-freling/claude-code-guard/internal/metrics"
	"github.com/michael-freling/claude-code-guard/internal/pathcheck"
	"github.com/michael-freling/claude-code-guard/internal/rules"
)

const (
	// oversizedReadBytes is the hard ceiling for Read targets.
	oversizedReadBytes = 100 << 20

	// largeReadBytes is the threshold above which reads need confirmation.
	largeReadBytes = 10 << 20
)

// fileReadTools touch file contents and are checked against sensitive
// path rules.
var fileReadTools = map[string]struct{}{
	"Read":      {},
	"Edit":      {},
	"MultiEdit": {},
	"Write":     {},
}

// mutatingTools modify files and are additionally checked against system
// path rules.
var mutatingTools = map[string]struct{}{
	"Edit":         {},
	"MultiEdit":    {},
	"Write":        {},
	"NotebookEdit": {},
}

// networkTools reach the network and are checked against suspicious
// domain rules.
var networkTools = map[string]struct{}{
	"WebFetch":  {},
	"WebSearch": {},
}

// standardTools are the built-in tool names that fall through to the
// "requires confirmation" default instead of the unknown-tool default.
var standardTools = map[string]struct{}{
	"Read":         {},
	"Write":        {},
	"Edit":         {},
	"MultiEdit":    {},
	"NotebookEdit": {},
	"Bash":         {},
	"Glob":         {},
	"Grep":         {},
	"LS":           {},
	"WebFetch":     {},
	"WebSearch":    {},
	"Task":         {},
	"TodoWrite":    {},
}

// Evaluator issues a permission decision for a proposed tool invocation
// before it executes. It is immutable after construction and safe for
// concurrent use.
type Evaluator struct {
	rules    *rules.Rules
	paths    *pathcheck.Validator
	stater   FileStater
	recorder *metrics.Recorder
	logger   *slog.Logger
}

// NewEvaluator creates an evaluator using os.Stat for file-size checks.
func NewEvaluator(ruleSet *rules.Rules, paths *pathcheck.Validator, recorder *metrics.Recorder, logger *slog.Logger) *Evaluator {
	return NewEvaluatorWithStater(ruleSet, paths, recorder, logger, NewFileStater())
}

// NewEvaluatorWithStater creates an evaluator with a custom FileStater
// for testing.
func NewEvaluatorWithStater(ruleSet *rules.Rules, paths *pathcheck.Validator, recorder *metrics.Recorder, logger *slog.Logger, stater FileStater) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		rules:    ruleSet,
		paths:    paths,
		stater:   stater,
		recorder: recorder,
		logger:   logger.With("component", "evaluator"),
	}
}

// Evaluate classifies a proposed tool invocation. The passes run in
// strict order: malformed-input guard, deny, auto-approve, ask, then the
// defaults. The first matching branch wins, so a deny match always beats
// an auto-approve match.
func (e *Evaluator) Evaluate(request *ToolRequest) PermissionDecision {
	if e.recorder != nil {
		defer e.recorder.TimeValidation()()
	}

	if request == nil || request.ToolName == "" {
		return Ask("missing tool name requires manual review")
	}
	if request.InputMalformed() {
		return Ask("malformed tool input for %s requires manual review", request.ToolName)
	}

	// One stat per evaluation; both the deny and ask passes read the
	// cached result.
	var size readSize
	if request.ToolName == "Read" {
		if filePath, ok := request.GetStringArg("file_path"); ok {
			size.bytes, size.known = e.statSize(request, filePath)
		}
	}

	if decision, denied := e.denyPass(request, size); denied {
		if e.recorder != nil {
			e.recorder.RecordBlocked()
		}
		e.logger.Warn("tool invocation denied",
			"tool", request.ToolName, "reason", decision.Reason)
		return decision
	}

	if decision, approved := e.autoApprovePass(request); approved {
		return decision
	}

	if decision, asked := e.askPass(request, size); asked {
		return decision
	}

	if _, ok := standardTools[request.ToolName]; ok {
		return Ask("standard operation requires confirmation: %s", request.ToolName)
	}
	return Ask("unknown tool requires manual review: %s", request.ToolName)
}

// readSize carries the cached result of the per-evaluation stat call.
type readSize struct {
	bytes int64
	known bool
}

// denyPass checks the deny rule categories. The bool result reports
// whether a deny rule matched.
func (e *Evaluator) denyPass(request *ToolRequest, size readSize) (PermissionDecision, bool) {
	if filePath, ok := request.GetStringArg("file_path"); ok {
		if _, isFileTool := fileReadTools[request.ToolName]; isFileTool {
			if e.isSensitivePath(filePath) {
				return Deny("sensitive file path blocked: %s", filePath), true
			}
		}
		if _, isMutating := mutatingTools[request.ToolName]; isMutating {
			if e.rules.Deny.MatchIn(rules.CategorySystemFiles, filePath) {
				return Deny("system file path blocked for modification: %s", filePath), true
			}
		}
		if request.ToolName == "Read" && size.known && size.bytes > oversizedReadBytes {
			return Deny("oversized file read blocked (%d MiB): %s", size.bytes>>20, filePath), true
		}
	}

	if request.ToolName == "Bash" {
		if command, ok := request.GetStringArg("command"); ok {
			if e.rules.Deny.MatchIn(rules.CategoryDangerousCommands, command) {
				return Deny("dangerous command blocked: %s", truncate(command, 120)), true
			}
		}
	}

	if _, isNetwork := networkTools[request.ToolName]; isNetwork {
		for _, arg := range []string{"url", "query"} {
			if value, ok := request.GetStringArg(arg); ok {
				if e.rules.Deny.MatchIn(rules.CategorySuspiciousDomains, value) {
					return Deny("suspicious network domain blocked: %s", truncate(value, 120)), true
				}
			}
		}
	}

	return PermissionDecision{}, false
}

// autoApprovePass checks the auto-approve rule categories.
func (e *Evaluator) autoApprovePass(request *ToolRequest) (PermissionDecision, bool) {
	switch request.ToolName {
	case "Grep", "LS":
		return Allow("read-only %s operation auto-approved", request.ToolName), true

	case "Read":
		if filePath, ok := request.GetStringArg("file_path"); ok {
			if e.rules.AutoApprove.MatchIn(rules.CategoryDocumentation, filePath) {
				return Allow("documentation file read auto-approved: %s", filePath), true
			}
		}

	case "Glob":
		if pattern, ok := request.GetStringArg("pattern"); ok {
			if e.rules.AutoApprove.MatchIn(rules.CategorySafeGlobs, pattern) {
				return Allow("safe glob pattern auto-approved: %s", pattern), true
			}
		}

	case "Bash":
		if command, ok := request.GetStringArg("command"); ok {
			if e.rules.AutoApprove.MatchIn(rules.CategorySafeCommands, command) {
				return Allow("safe command auto-approved: %s", truncate(command, 120)), true
			}
		}
	}

	return PermissionDecision{}, false
}

// askPass checks the ask rule categories and the MCP tool convention.
func (e *Evaluator) askPass(request *ToolRequest, size readSize) (PermissionDecision, bool) {
	if server, ok := mcpServerName(request.ToolName); ok {
		return Ask("MCP tool from server %q requires confirmation", server), true
	}

	if filePath, ok := request.GetStringArg("file_path"); ok {
		if _, isMutating := mutatingTools[request.ToolName]; isMutating {
			if e.rules.Ask.MatchIn(rules.CategoryCriticalConfigs, filePath) {
				return Ask("critical configuration file write requires confirmation: %s", filePath), true
			}
		}

		if request.ToolName == "Read" && size.known && size.bytes >= largeReadBytes {
			return Ask("large file read (%d MiB) requires confirmation: %s", size.bytes>>20, filePath), true
		}

		// A path that fails validation is not denied outright; the
		// conservative fallback is a manual review.
		if e.paths != nil {
			if _, err := e.paths.Validate(filePath); err != nil {
				return Ask("file path failed validation, manual review required: %s", filePath), true
			}
		}
	}

	if request.ToolName == "Bash" {
		if command, ok := request.GetStringArg("command"); ok {
			if e.rules.Ask.MatchIn(rules.CategoryRiskyCommands, command) {
				return Ask("risky command requires confirmation: %s", truncate(command, 120)), true
			}
		}
	}

	return PermissionDecision{}, false
}

// isSensitivePath checks a file path against both the sensitive_files
// regex category and the structural glob patterns.
func (e *Evaluator) isSensitivePath(filePath string) bool {
	if e.rules.Deny.MatchIn(rules.CategorySensitiveFiles, filePath) {
		return true
	}
	_, matched := rules.SensitivePathGlobs.Match(filePath)
	return matched
}

// statSize stats the resolved path, swallowing failures. Stat errors are
// expected for files that do not exist yet.
func (e *Evaluator) statSize(request *ToolRequest, filePath string) (int64, bool) {
	resolved := filePath
	if !filepath.IsAbs(resolved) && request.Cwd != "" {
		resolved = filepath.Join(request.Cwd, resolved)
	}

	size, err := e.stater.Size(resolved)
	if err != nil {
		return 0, false
	}
	return size, true
}

// mcpServerName extracts the server name from an MCP-style
// namespace__server__tool name.
func mcpServerName(toolName string) (string, bool) {
	parts := strings.Split(toolName, "__")
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// truncate shortens s for decision reasons and log output.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
