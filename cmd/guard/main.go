package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/michael-freling/claude-code-guard/internal/hooks"
	"github.com/michael-freling/claude-code-guard/internal/metrics"
	"github.com/michael-freling/claude-code-guard/internal/pathcheck"
	"github.com/michael-freling/claude-code-guard/internal/pipeline"
	"github.com/michael-freling/claude-code-guard/internal/rules"
	"github.com/michael-freling/claude-code-guard/internal/sanitize"
	"github.com/michael-freling/claude-code-guard/internal/shellsafe"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// decisionOutput is the wire format consumed by the host hook protocol.
type decisionOutput struct {
	PermissionDecision       string `json:"permissionDecision"`
	PermissionDecisionReason string `json:"permissionDecisionReason"`
}

// engine bundles the validation components for one hook invocation.
type engine struct {
	rules    *rules.Rules
	paths    *pathcheck.Validator
	detector *sanitize.Detector
	escaper  *shellsafe.Escaper
	pipeline *pipeline.Pipeline
	recorder *metrics.Recorder
	store    *metrics.Store
	logger   *slog.Logger
}

// newEngine assembles the engine from an optional configuration file.
func newEngine(configPath, metricsDir string) (*engine, error) {
	config := &rules.Config{}
	if configPath != "" {
		loaded, err := rules.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	ruleSet, err := rules.NewWithOverrides(config.Overrides())
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	recorder := metrics.NewRecorder()
	paths := pathcheck.NewValidator(config.AllowedBasePaths, recorder)
	detector := sanitize.NewDetector(recorder)

	if metricsDir == "" {
		metricsDir = defaultMetricsDir()
	}

	return &engine{
		rules:    ruleSet,
		paths:    paths,
		detector: detector,
		escaper:  shellsafe.NewEscaper(config.AllowedCommands, recorder, logger),
		pipeline: pipeline.New(pipeline.Config{
			MaxInputBytes: config.MaxInputBytes,
			Paths:         paths,
			Detector:      detector,
			Recorder:      recorder,
			Logger:        logger,
		}),
		recorder: recorder,
		store:    metrics.NewStore(metricsDir),
		logger:   logger,
	}, nil
}

// defaultMetricsDir is where hook processes share their counters.
func defaultMetricsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "claude-code-guard")
	}
	return filepath.Join(home, ".claude-code-guard")
}

// flush merges this process's counters into the shared snapshot.
// Metrics persistence is best effort and never fails the hook.
func (e *engine) flush() {
	if err := e.store.Merge(e.recorder.Snapshot()); err != nil {
		e.logger.Warn("failed to persist metrics", "error", err)
	}
}

// writeDecision emits the host wire format and returns the matching
// process exit code: 2 for deny, 0 otherwise.
func writeDecision(out io.Writer, decision hooks.PermissionDecision) int {
	_ = json.NewEncoder(out).Encode(decisionOutput{
		PermissionDecision:       decision.Decision.String(),
		PermissionDecisionReason: decision.Reason,
	})
	if decision.Decision == hooks.DecisionDeny {
		return 2
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var configPath string
	var metricsDir string

	rootCmd := &cobra.Command{
		Use:   "claude-code-guard",
		Short: "Permission and sanitization engine for Claude Code tool hooks",
		Long: `Classifies tool invocations as allow, deny, or ask before and after
execution, and strips secrets and identifying paths from hook payloads
before they are persisted.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML rule configuration file")
	rootCmd.PersistentFlags().StringVar(&metricsDir, "metrics-dir", "", "directory for the shared metrics snapshot")

	rootCmd.AddCommand(newPreToolUseCmd(&configPath, &metricsDir))
	rootCmd.AddCommand(newPostToolUseCmd(&configPath, &metricsDir))
	rootCmd.AddCommand(newValidateCmd(&configPath, &metricsDir))
	rootCmd.AddCommand(newSafeCommandCmd(&configPath, &metricsDir))
	rootCmd.AddCommand(newMetricsCmd(&metricsDir))

	return rootCmd
}

func newPreToolUseCmd(configPath, metricsDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "pre-tool-use",
		Short: "Evaluate a proposed tool invocation",
		Long:  `Reads a tool request from stdin as JSON and emits {permissionDecision, permissionDecisionReason}. Exit code 2 signals a denied invocation.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine(*configPath, *metricsDir)
			if err != nil {
				return err
			}
			defer e.flush()

			evaluator := hooks.NewEvaluator(e.rules, e.paths, e.recorder, e.logger)

			request, err := hooks.ParseToolRequest(cmd.InOrStdin())
			if err != nil {
				// A payload the engine cannot read degrades to a manual
				// review, never a crash of the host hook.
				writeDecision(cmd.OutOrStdout(),
					hooks.Ask("unreadable tool request requires manual review"))
				return nil
			}

			if code := writeDecision(cmd.OutOrStdout(), evaluator.Evaluate(request)); code != 0 {
				e.flush()
				os.Exit(code)
			}
			return nil
		},
	}
}

func newPostToolUseCmd(configPath, metricsDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "post-tool-use",
		Short: "Classify a completed tool invocation",
		Long:  `Reads a tool outcome from stdin as JSON and emits {permissionDecision, permissionDecisionReason} for telemetry and secondary enforcement.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine(*configPath, *metricsDir)
			if err != nil {
				return err
			}
			defer e.flush()

			analyzer := hooks.NewAnalyzer(e.rules, e.recorder, e.logger)

			outcome, err := hooks.ParseToolOutcome(cmd.InOrStdin())
			if err != nil {
				writeDecision(cmd.OutOrStdout(),
					hooks.Ask("unreadable tool outcome requires manual review"))
				return nil
			}

			if code := writeDecision(cmd.OutOrStdout(), analyzer.Analyze(outcome)); code != 0 {
				e.flush()
				os.Exit(code)
			}
			return nil
		},
	}
}

func newValidateCmd(configPath, metricsDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate and sanitize a hook payload",
		Long:  `Reads a raw hook payload from stdin as JSON, runs the validation pipeline, and prints the sanitized payload. Validation failures degrade to an ask decision.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine(*configPath, *metricsDir)
			if err != nil {
				return err
			}
			defer e.flush()

			var payload map[string]interface{}
			if err := json.NewDecoder(cmd.InOrStdin()).Decode(&payload); err != nil {
				writeDecision(cmd.OutOrStdout(),
					hooks.Ask("unreadable payload requires manual review"))
				return nil
			}

			sanitized, err := e.pipeline.Run(payload)
			if err != nil {
				writeDecision(cmd.OutOrStdout(),
					hooks.Ask("payload failed validation, manual review required: %s",
						e.detector.SanitizeString(err.Error())))
				return nil
			}

			return json.NewEncoder(cmd.OutOrStdout()).Encode(sanitized)
		},
	}
}

func newSafeCommandCmd(configPath, metricsDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "safe-command",
		Short: "Compose a shell-safe argument vector",
		Long:  `Reads {"name": ..., "args": [...]} from stdin, validates the command against the allow-list, and prints the escaped argument vector as a JSON array.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine(*configPath, *metricsDir)
			if err != nil {
				return err
			}
			defer e.flush()

			var input struct {
				Name string   `json:"name"`
				Args []string `json:"args"`
			}
			if err := json.NewDecoder(cmd.InOrStdin()).Decode(&input); err != nil {
				return fmt.Errorf("failed to decode command input: %w", err)
			}

			argv, err := e.escaper.BuildSafeCommand(input.Name, input.Args)
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(argv)
		},
	}
}

func newMetricsCmd(metricsDir *string) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Print or reset the shared security metrics snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := *metricsDir
			if dir == "" {
				dir = defaultMetricsDir()
			}
			store := metrics.NewStore(dir)

			if reset {
				return store.Reset()
			}

			snapshot, err := store.Load()
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(snapshot)
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "clear all persisted counters")
	return cmd
}
