package hooks

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/michael-freling/claude-code-guard/internal/metrics"
	"github.com/michael-freling/claude-code-guard/internal/rules"
)

// readOnlyTools never modify state and are always allowed after the fact.
var readOnlyTools = map[string]struct{}{
	"Read":         {},
	"Grep":         {},
	"Glob":         {},
	"LS":           {},
	"NotebookRead": {},
}

// Analyzer classifies completed tool invocations for telemetry and for a
// secondary enforcement point. It shares the rule vocabulary with
// Evaluator but is keyed off the observed outcome: commands that already
// ran yield Ask rather than Deny for merely risky patterns, and unknown
// tool names default to Allow. That default is deliberately more
// permissive than the pre-execution Ask, since blocking an action that
// already happened only suppresses its telemetry.
type Analyzer struct {
	rules    *rules.Rules
	recorder *metrics.Recorder
	logger   *slog.Logger
}

// NewAnalyzer creates a post-execution analyzer.
func NewAnalyzer(ruleSet *rules.Rules, recorder *metrics.Recorder, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		rules:    ruleSet,
		recorder: recorder,
		logger:   logger.With("component", "analyzer"),
	}
}

// Analyze classifies a completed tool invocation.
func (a *Analyzer) Analyze(outcome *ToolOutcome) PermissionDecision {
	if a.recorder != nil {
		defer a.recorder.TimeValidation()()
	}

	if outcome == nil || outcome.ToolName == "" {
		return Ask("missing tool name in outcome requires manual review")
	}

	decision := a.classify(outcome)
	if decision.Decision == DecisionDeny && a.recorder != nil {
		a.recorder.RecordBlocked()
	}
	return decision
}

func (a *Analyzer) classify(outcome *ToolOutcome) PermissionDecision {
	if _, ok := readOnlyTools[outcome.ToolName]; ok {
		return Allow("read-only tool completed: %s", outcome.ToolName)
	}

	if outcome.ToolName == "Bash" {
		return a.classifyCommand(outcome)
	}

	if _, isMutating := mutatingTools[outcome.ToolName]; isMutating {
		return a.classifyFileWrite(outcome)
	}

	if server, ok := mcpServerName(outcome.ToolName); ok {
		return a.classifyMCP(server, outcome)
	}

	if _, ok := standardTools[outcome.ToolName]; ok {
		return Allow("standard tool completed: %s", outcome.ToolName)
	}

	a.logger.Info("unknown tool completed; post-execution default allows",
		"tool", outcome.ToolName, "success", outcome.Success)
	return Allow("unknown tool completed, logged for review: %s", outcome.ToolName)
}

// pipeToShell matches download-and-execute pipelines. Pre-execution they
// are denied outright; after the fact the download already ran, so the
// analyzer downgrades them to a review of what was executed.
var pipeToShell = regexp.MustCompile(`(?i)\b(curl|wget)\b[^|;]*\|\s*(ba|z)?sh\b`)

// classifyCommand reuses the command rule categories, downgraded for a
// command that already ran: risky patterns yield Ask instead of Deny.
func (a *Analyzer) classifyCommand(outcome *ToolOutcome) PermissionDecision {
	command, ok := outcome.GetStringArg("command")
	if !ok {
		return Ask("command outcome without command text requires manual review")
	}

	if a.rules.Deny.MatchIn(rules.CategoryDangerousCommands, command) {
		if pipeToShell.MatchString(command) {
			return Ask("piped shell download already ran, review what it executed: %s", truncate(command, 120))
		}
		return Deny("dangerous command was executed: %s", truncate(command, 120))
	}
	if a.rules.Ask.MatchIn(rules.CategoryRiskyCommands, command) {
		return Ask("risky command already ran, review outcome: %s", truncate(command, 120))
	}
	if a.rules.AutoApprove.MatchIn(rules.CategorySafeCommands, command) {
		return Allow("safe command completed: %s", truncate(command, 120))
	}
	return Allow("command completed without matching risk patterns: %s", truncate(command, 120))
}

// classifyFileWrite reuses the sensitive and system path checks for
// tools that mutated files.
func (a *Analyzer) classifyFileWrite(outcome *ToolOutcome) PermissionDecision {
	filePath, ok := outcome.GetStringArg("file_path")
	if !ok {
		// MCP filesystem servers tend to use "path" instead.
		filePath, ok = outcome.GetStringArg("path")
	}
	if !ok {
		return Allow("file tool completed without a file path: %s", outcome.ToolName)
	}

	if a.rules.Deny.MatchIn(rules.CategorySensitiveFiles, filePath) {
		return Deny("sensitive file was modified: %s", filePath)
	}
	if _, matched := rules.SensitivePathGlobs.Match(filePath); matched {
		return Deny("sensitive file was modified: %s", filePath)
	}
	if a.rules.Deny.MatchIn(rules.CategorySystemFiles, filePath) {
		return Deny("system file was modified: %s", filePath)
	}
	if a.rules.Ask.MatchIn(rules.CategoryCriticalConfigs, filePath) {
		return Ask("critical configuration file was modified, review change: %s", filePath)
	}
	return Allow("file modification completed: %s", filePath)
}

// classifyMCP dispatches on the MCP server name substring.
func (a *Analyzer) classifyMCP(server string, outcome *ToolOutcome) PermissionDecision {
	name := strings.ToLower(server)
	switch {
	case containsAny(name, "ide", "editor", "diagnostics"):
		return Allow("IDE integration tool completed: %s", outcome.ToolName)
	case containsAny(name, "network", "api", "http"):
		return Ask("network MCP tool ran, review outcome: %s", outcome.ToolName)
	case containsAny(name, "filesystem", "file"):
		return a.classifyFileWrite(outcome)
	case containsAny(name, "database", "db"):
		return Ask("database MCP tool ran, review outcome: %s", outcome.ToolName)
	default:
		return Ask("MCP tool from server %q ran, review outcome", server)
	}
}

// containsAny reports whether s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
