package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzhole/permguard/internal/gate"
	"github.com/gzhole/permguard/internal/logger"
	"github.com/gzhole/permguard/internal/policy"
	"github.com/gzhole/permguard/internal/store"
)

func transcript(t *testing.T, assistantText string) string {
	t.Helper()
	msg, err := json.Marshal(map[string]any{
		"message": map[string]any{
			"role":    "assistant",
			"content": []map[string]string{{"type": "text", "text": assistantText}},
		},
	})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "session.jsonl")
	require.NoError(t, os.WriteFile(path, append(msg, '\n'), 0600))
	return path
}

func bashInput(event, command, transcriptPath string) hookInput {
	return hookInput{
		HookEventName:  event,
		TranscriptPath: transcriptPath,
		ToolName:       "Bash",
		ToolInput:      map[string]any{"command": command},
	}
}

func decodeDecision(t *testing.T, out string) permissionDecision {
	t.Helper()
	var got hookOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, eventPermissionRequest, got.HookSpecificOutput.HookEventName)
	return got.HookSpecificOutput.Decision
}

func TestHook_DenyAlwaysBlocks(t *testing.T) {
	cfg := testEnv(t)
	dir := newProject(t)
	path := transcript(t, gate.Marker+"\nForce pushing to fix history.")

	cmd, out, errOut := newCmd()
	err := handleHook(cmd, bashInput(eventPreToolUse, "git push --force origin main", path), dir)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "Blocked by the project's permission rules.")

	events := auditEvents(t, cfg)
	require.Len(t, events, 1)
	assert.Equal(t, "deny", events[0].Decision)
	assert.Equal(t, "Bash(git push --force*)", events[0].Rule)
	assert.True(t, events[0].Blocked())
}

func TestHook_PermissionRequestWithoutJustification(t *testing.T) {
	cfg := testEnv(t)
	dir := newProject(t)
	path := transcript(t, "Pushing now.\n`git push origin main`")

	cmd, out, _ := newCmd()
	require.NoError(t, handleHook(cmd, bashInput(eventPermissionRequest, "git push origin main", path), dir))

	d := decodeDecision(t, out.String())
	assert.Equal(t, "deny", d.Behavior)
	assert.Equal(t, gate.BlockMessage, d.Message)

	events := auditEvents(t, cfg)
	require.Len(t, events, 1)
	assert.Equal(t, "ask", events[0].Decision)
	assert.Equal(t, string(gate.OutcomeBlock), events[0].Verdict)
	assert.Contains(t, events[0].Reasons, gate.ReasonMissing)
}

func TestHook_JustifiedActionPasses(t *testing.T) {
	testEnv(t)
	dir := newProject(t)
	path := transcript(t, gate.Marker+"\nPushing main to origin. Reversible with a revert.\n$ git push origin main")

	cmd, out, errOut := newCmd()
	require.NoError(t, handleHook(cmd, bashInput(eventPermissionRequest, "git push origin main", path), dir))
	assert.Empty(t, out.String())
	assert.Empty(t, errOut.String())
}

func TestHook_MarkerAfterActionBlocks(t *testing.T) {
	testEnv(t)
	dir := newProject(t)
	path := transcript(t, "git push origin main\n"+gate.Marker+"\ntoo late")

	cmd, _, errOut := newCmd()
	err := handleHook(cmd, bashInput(eventPreToolUse, "git push origin main", path), dir)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, errOut.String(), gate.Marker)
}

func TestHook_AllowedPreToolUseNotGated(t *testing.T) {
	testEnv(t)
	dir := newProject(t)
	applyProfileForTest(t, dir, "standard")

	cmd, out, errOut := newCmd()
	require.NoError(t, handleHook(cmd, bashInput(eventPreToolUse, "npm run test", transcript(t, "running tests")), dir))
	assert.Empty(t, out.String())
	assert.Empty(t, errOut.String())
}

func TestHook_AllowedPermissionRequestIsGated(t *testing.T) {
	testEnv(t)
	dir := newProject(t)
	applyProfileForTest(t, dir, "standard")

	cmd, out, _ := newCmd()
	require.NoError(t, handleHook(cmd, bashInput(eventPermissionRequest, "npm run test", transcript(t, "running tests")), dir))
	assert.Equal(t, "deny", decodeDecision(t, out.String()).Behavior)
}

func TestHook_GateScopeAll(t *testing.T) {
	cfg := testEnv(t)
	require.NoError(t, cfg.SetGateScope(gate.ScopeAll))
	dir := newProject(t)
	applyProfileForTest(t, dir, "standard")

	cmd, _, _ := newCmd()
	err := handleHook(cmd, bashInput(eventPreToolUse, "npm run test", transcript(t, "running tests")), dir)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
}

func TestHook_GateDisabled(t *testing.T) {
	cfg := testEnv(t)
	require.NoError(t, cfg.SetGateEnabled(false))
	dir := newProject(t)

	cmd, out, _ := newCmd()
	require.NoError(t, handleHook(cmd, bashInput(eventPermissionRequest, "git push origin main", transcript(t, "pushing")), dir))
	assert.Empty(t, out.String())

	// Deny rules still hold when the gate is off.
	cmd, _, _ = newCmd()
	err := handleHook(cmd, bashInput(eventPreToolUse, "rm -rf /tmp/x", transcript(t, "")), dir)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
}

func TestHook_MissingPolicyBlocks(t *testing.T) {
	cfg := testEnv(t)
	dir := t.TempDir()

	cmd, out, _ := newCmd()
	require.NoError(t, handleHook(cmd, bashInput(eventPermissionRequest, "ls", transcript(t, gate.Marker)), dir))

	d := decodeDecision(t, out.String())
	assert.Equal(t, "deny", d.Behavior)
	assert.Contains(t, d.Message, "could not load "+filepath.Join(dir, store.SettingsDir, store.ProjectSettings))

	events := auditEvents(t, cfg)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].Error)
}

func TestHook_BrokenUserPolicyNamesUserFile(t *testing.T) {
	testEnv(t)
	dir := newProject(t)
	userFile := filepath.Join(dir, store.SettingsDir, store.UserSettings)
	require.NoError(t, os.WriteFile(userFile, []byte(`{"permissions": {"allow": "Bash(**)"}}`), 0644))

	cmd, out, _ := newCmd()
	require.NoError(t, handleHook(cmd, bashInput(eventPermissionRequest, "ls", transcript(t, gate.Marker)), dir))

	d := decodeDecision(t, out.String())
	assert.Equal(t, "deny", d.Behavior)
	assert.Contains(t, d.Message, "could not load "+userFile)
}

func TestHook_UnrecognizedUserAllowRuleIgnored(t *testing.T) {
	testEnv(t)
	dir := newProject(t)
	userFile := filepath.Join(dir, store.SettingsDir, store.UserSettings)
	require.NoError(t, os.WriteFile(userFile,
		[]byte(`{"permissions": {"allow": ["mcp__github__create_issue", "Bash(npm run *)"]}}`), 0644))

	cmd, out, errOut := newCmd()
	require.NoError(t, handleHook(cmd, bashInput(eventPreToolUse, "npm run test", transcript(t, "running tests")), dir))
	assert.Empty(t, out.String())
	assert.Empty(t, errOut.String())
}

func TestHook_ReadOnlyToolHonorsDeny(t *testing.T) {
	cfg := testEnv(t)
	dir := newProject(t)
	read := func(path string) hookInput {
		return hookInput{
			HookEventName:  eventPreToolUse,
			TranscriptPath: transcript(t, "reading"),
			ToolName:       "Read",
			ToolInput:      map[string]any{"file_path": path},
		}
	}

	cmd, _, errOut := newCmd()
	err := handleHook(cmd, read(".env"), dir)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Contains(t, errOut.String(), "Read(.env)")

	// Not denied: read-only tools are never gated, even without a marker.
	cmd, out, errOut := newCmd()
	require.NoError(t, handleHook(cmd, read("src/main.go"), dir))
	assert.Empty(t, out.String())
	assert.Empty(t, errOut.String())

	events := auditEvents(t, cfg)
	require.Len(t, events, 1)
	assert.Equal(t, "deny", events[0].Decision)
	assert.Equal(t, "Read(.env)", events[0].Rule)
}

func TestHook_UnreadableTranscriptFailsOpen(t *testing.T) {
	cfg := testEnv(t)
	dir := newProject(t)

	cmd, out, _ := newCmd()
	missing := filepath.Join(t.TempDir(), "gone.jsonl")
	require.NoError(t, handleHook(cmd, bashInput(eventPermissionRequest, "git push origin main", missing), dir))
	assert.Empty(t, out.String())

	events := auditEvents(t, cfg)
	require.Len(t, events, 1)
	assert.Equal(t, string(gate.OutcomeAllow), events[0].Verdict)
	assert.NotEmpty(t, events[0].Error)
}

func TestHookCommand_Stdin(t *testing.T) {
	testEnv(t)
	dir := newProject(t)
	t.Setenv("CLAUDE_PROJECT_DIR", dir)

	tests := []struct {
		name    string
		payload string
		wantOut bool
	}{
		{"read-only tool", `{"hook_event_name":"PermissionRequest","tool_name":"Read","tool_input":{"file_path":"README.md"}}`, false},
		{"denied read", `{"hook_event_name":"PermissionRequest","tool_name":"Read","tool_input":{"file_path":".env"}}`, true},
		{"malformed payload", `{not json`, false},
		{"empty tool", `{"hook_event_name":"PermissionRequest"}`, false},
		{"unreadable transcript", `{"hook_event_name":"PermissionRequest","tool_name":"Edit","tool_input":{"file_path":"x"},"transcript_path":"/nonexistent"}`, false},
		{"ask without justification", `{"hook_event_name":"PermissionRequest","tool_name":"Bash","tool_input":{"command":"curl example.com"},"transcript_path":"` +
			transcript(t, "fetching") + `"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, out, _ := newCmd()
			cmd.SetIn(strings.NewReader(tt.payload))
			require.NoError(t, hookCommand(cmd, nil))
			assert.Equal(t, tt.wantOut, out.Len() > 0, out.String())
		})
	}
}

func TestHookCommand_Bypass(t *testing.T) {
	testEnv(t)
	t.Setenv("CLAUDE_PROJECT_DIR", t.TempDir())
	t.Setenv("PERMGUARD_BYPASS", "true")

	cmd, out, _ := newCmd()
	cmd.SetIn(strings.NewReader(`{"hook_event_name":"PermissionRequest","tool_name":"Bash","tool_input":{"command":"ls"}}`))
	require.NoError(t, hookCommand(cmd, nil))
	assert.Empty(t, out.String())
}

func TestActionFor(t *testing.T) {
	tests := []struct {
		tool  string
		input map[string]any
		want  policy.Action
		known bool
	}{
		{"Bash", map[string]any{"command": "npm test"}, policy.Action{Tool: policy.CategoryBash, Argument: "npm test"}, true},
		{"Edit", map[string]any{"file_path": "src/a.go"}, policy.Action{Tool: policy.CategoryEdit, Argument: "src/a.go"}, true},
		{"NotebookEdit", map[string]any{"notebook_path": "n.ipynb"}, policy.Action{Tool: policy.CategoryNotebookEdit, Argument: "n.ipynb"}, true},
		{"WebFetch", map[string]any{"url": "https://example.com"}, policy.Action{Tool: policy.CategoryWebFetch, Argument: "https://example.com"}, true},
		{"WebSearch", map[string]any{"query": "go slog"}, policy.Action{Tool: policy.CategoryWebSearch, Argument: "go slog"}, true},
		{"Bash", map[string]any{"command": 42}, policy.Action{Tool: policy.CategoryBash, Argument: ""}, true},
		{"mcp__db__query", map[string]any{"sql": "select 1"}, policy.Action{Tool: "mcp__db__query", Argument: `{"sql":"select 1"}`}, false},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			got, known := actionFor(tt.tool, tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.known, known)
		})
	}
}

func TestHook_AuditRecordsKind(t *testing.T) {
	cfg := testEnv(t)
	dir := newProject(t)

	cmd, _, _ := newCmd()
	_ = handleHook(cmd, bashInput(eventPreToolUse, "rm -rf /", transcript(t, "")), dir)

	events := auditEvents(t, cfg)
	require.Len(t, events, 1)
	assert.Equal(t, logger.KindHook, events[0].Kind)
	assert.Equal(t, "Bash", events[0].Tool)
	assert.Equal(t, "rm -rf /", events[0].Action)
}
