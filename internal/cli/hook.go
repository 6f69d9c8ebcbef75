package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/gzhole/permguard/internal/gate"
	"github.com/gzhole/permguard/internal/logger"
	"github.com/gzhole/permguard/internal/policy"
)

const (
	eventPermissionRequest = "PermissionRequest"
	eventPreToolUse        = "PreToolUse"
	hookCommandLine        = "permguard hook"
)

// hookInput is the JSON Claude Code sends to hook commands on stdin.
type hookInput struct {
	HookEventName  string         `json:"hook_event_name"`
	SessionID      string         `json:"session_id"`
	TranscriptPath string         `json:"transcript_path"`
	Cwd            string         `json:"cwd"`
	ToolName       string         `json:"tool_name"`
	ToolInput      map[string]any `json:"tool_input"`
}

// hookEnv is read from the environment Claude Code gives hook processes.
type hookEnv struct {
	ProjectDir string `envconfig:"CLAUDE_PROJECT_DIR"`
	Bypass     bool   `envconfig:"PERMGUARD_BYPASS"`
}

type permissionDecision struct {
	Behavior string `json:"behavior"`
	Message  string `json:"message,omitempty"`
}

type hookSpecificOutput struct {
	HookEventName string             `json:"hookEventName"`
	Decision      permissionDecision `json:"decision"`
}

type hookOutput struct {
	HookSpecificOutput hookSpecificOutput `json:"hookSpecificOutput"`
}

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Claude Code hook handler (PermissionRequest and PreToolUse)",
	Long: `Reads a Claude Code hook payload from stdin, resolves the tool call
against the project's merged policy and, when the action needs approval,
requires a [permission_explanation] block in Claude's last message.

  PermissionRequest: a block is answered with a JSON "deny" decision
  PreToolUse:        a block exits with status 2, reason on stderr

Install with:
  permguard setup <project-dir>`,
	Args: cobra.NoArgs,
	RunE: hookCommand,
}

func init() {
	rootCmd.AddCommand(hookCmd)
}

func hookCommand(cmd *cobra.Command, args []string) error {
	var env hookEnv
	if err := envconfig.Process("", &env); err != nil {
		diag.Warn("ignoring malformed hook environment", "error", err)
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}
	if env.Bypass {
		return nil
	}

	var input hookInput
	if err := json.Unmarshal(data, &input); err != nil {
		// Unparseable payloads carry no action to judge.
		diag.Warn("could not parse hook input", "error", err)
		return nil
	}
	if input.ToolName == "" {
		return nil
	}

	projectDir := env.ProjectDir
	if projectDir == "" {
		projectDir = input.Cwd
	}
	if projectDir == "" {
		projectDir, _ = os.Getwd()
	}

	return handleHook(cmd, input, projectDir)
}

func handleHook(cmd *cobra.Command, input hookInput, projectDir string) error {
	action, known := actionFor(input.ToolName, input.ToolInput)
	event := logger.AuditEvent{
		Kind:       logger.KindHook,
		ProjectDir: projectDir,
		Tool:       input.ToolName,
		Action:     action.Argument,
	}

	resolver, err := newEngine().Resolver(projectDir)
	if err != nil {
		// Without the project policy there is no deny side to trust.
		event.Decision = string(policy.DecisionDeny)
		event.Error = err.Error()
		audit(event)
		return block(cmd, input.HookEventName,
			fmt.Sprintf("permguard could not load %s, so this action is blocked: %v", failedPolicyFile(err), explain(err)))
	}

	decision := policy.DefaultDecision
	var res policy.Resolution
	if known {
		res = resolver.Resolve(action)
		decision = res.Decision
		if res.Rule != nil {
			event.Rule = res.Rule.String()
		}
		event.Reasons = res.Reasons
	}
	event.Decision = string(decision)

	if decision == policy.DecisionDeny {
		audit(event)
		return block(cmd, input.HookEventName, "Blocked by the project's permission rules.\n"+res.Explanation)
	}
	// Read-only tools answer to deny rules only.
	if gate.IsReadOnlyTool(input.ToolName) {
		return nil
	}

	// A permission request means Claude Code is about to ask the user.
	if input.HookEventName == eventPermissionRequest && decision == policy.DecisionAllow {
		decision = policy.DecisionAsk
	}

	cfg, err := loadConfig()
	if err != nil {
		diag.Warn("config unavailable, gate uses defaults", "error", err)
	}
	g := gate.Gate{Enabled: true, Scope: gate.ScopeAsk}
	if cfg != nil {
		g = cfg.GateMode()
	}
	if !g.Applies(input.ToolName, decision) {
		audit(event)
		return nil
	}

	text, err := gate.LastAssistantText(input.TranscriptPath)
	if err != nil {
		diag.Warn("transcript unreadable, not gating", "path", input.TranscriptPath, "error", err)
		event.Verdict = string(gate.OutcomeAllow)
		event.Error = err.Error()
		audit(event)
		return nil
	}

	verdict := g.Check(action, text)
	event.Verdict = string(verdict.Outcome)
	if !verdict.Allowed() {
		event.Reasons = append(event.Reasons, verdict.Reason)
	}
	audit(event)

	if verdict.Allowed() {
		return nil
	}
	return block(cmd, input.HookEventName, verdict.Message)
}

func failedPolicyFile(err error) string {
	var readErr *policy.PolicyReadError
	if errors.As(err, &readErr) {
		return readErr.Path
	}
	return "the policy"
}

// block answers the hook so that the action does not run.
func block(cmd *cobra.Command, eventName, message string) error {
	if eventName == eventPermissionRequest {
		out := hookOutput{HookSpecificOutput: hookSpecificOutput{
			HookEventName: eventPermissionRequest,
			Decision:      permissionDecision{Behavior: "deny", Message: message},
		}}
		data, err := json.Marshal(out)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	fmt.Fprintln(cmd.ErrOrStderr(), message)
	return &ExitError{Code: 2}
}

// actionFor extracts the argument rules match against. The second result
// is false for tools outside the rule categories, such as MCP tools.
func actionFor(tool string, input map[string]any) (policy.Action, bool) {
	str := func(key string) string {
		v, _ := input[key].(string)
		return v
	}

	cat := policy.Category(tool)
	a := policy.Action{Tool: cat}
	switch cat {
	case policy.CategoryBash:
		a.Argument = str("command")
	case policy.CategoryRead, policy.CategoryEdit, policy.CategoryMultiEdit, policy.CategoryWrite:
		a.Argument = str("file_path")
	case policy.CategoryNotebookEdit:
		a.Argument = str("notebook_path")
	case policy.CategoryWebFetch:
		a.Argument = str("url")
	case policy.CategoryWebSearch:
		a.Argument = str("query")
	case policy.CategoryGlob, policy.CategoryGrep:
		a.Argument = str("pattern")
	default:
		a.Argument = summarizeInput(input)
		return a, false
	}
	return a, true
}

func summarizeInput(input map[string]any) string {
	if len(input) == 0 {
		return ""
	}
	data, err := json.Marshal(input)
	if err != nil {
		return ""
	}
	s := string(data)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return strings.TrimSpace(s)
}
