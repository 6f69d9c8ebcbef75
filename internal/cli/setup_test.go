package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzhole/permguard/internal/logger"
	"github.com/gzhole/permguard/internal/store"
)

func runSetup(t *testing.T, dir string, disable bool) string {
	t.Helper()
	disableFlag = disable
	t.Cleanup(func() { disableFlag = false })

	cmd, out, _ := newCmd()
	require.NoError(t, setupCommand(cmd, []string{dir}))
	return out.String()
}

func readSettings(t *testing.T, dir string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, store.SettingsDir, store.UserSettings))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestSetup_InstallAndDisable(t *testing.T) {
	cfg := testEnv(t)
	dir := newProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, store.SettingsDir, store.UserSettings), []byte(`{
  "model": "opus",
  "permissions": {"allow": ["Edit(**)"]},
  "hooks": {
    "PreToolUse": [{"matcher": "Bash", "hooks": [{"type": "command", "command": "other-tool check"}]}]
  }
}`), 0644))

	out := runSetup(t, dir, false)
	assert.Contains(t, out, "Installed PermissionRequest hook")
	assert.Contains(t, out, "Installed PreToolUse hook")

	doc := readSettings(t, dir)
	assert.Equal(t, "opus", doc["model"])
	hooks := doc["hooks"].(map[string]any)
	assert.Len(t, hooks[eventPreToolUse], 2)
	assert.Len(t, hooks[eventPermissionRequest], 1)

	user, err := store.Open(dir).LoadUser()
	require.NoError(t, err)
	assert.True(t, hookInstalled(user))
	assert.Equal(t, []string{"Edit(**)"}, user.Allow())

	// Installing twice changes nothing.
	out = runSetup(t, dir, false)
	assert.Contains(t, out, "already installed")
	assert.Len(t, readSettings(t, dir)["hooks"].(map[string]any)[eventPreToolUse], 2)

	out = runSetup(t, dir, true)
	assert.Contains(t, out, "Removed PermissionRequest hook")

	doc = readSettings(t, dir)
	hooks = doc["hooks"].(map[string]any)
	assert.NotContains(t, hooks, eventPermissionRequest)
	assert.Len(t, hooks[eventPreToolUse], 1)

	events := auditEvents(t, cfg)
	require.Len(t, events, 2)
	assert.Equal(t, logger.KindSetup, events[0].Kind)
	assert.Equal(t, "Installed", events[0].Verdict)
	assert.Equal(t, "Removed", events[1].Verdict)
}

func TestSetup_DisableRemovesEmptyHooks(t *testing.T) {
	testEnv(t)
	dir := newProject(t)

	runSetup(t, dir, false)
	runSetup(t, dir, true)

	assert.NotContains(t, readSettings(t, dir), "hooks")
	assert.Contains(t, runSetup(t, dir, true), "nothing to disable")
}

func TestIsPermguardHookEntry(t *testing.T) {
	tests := []struct {
		name  string
		entry any
		want  bool
	}{
		{"ours", map[string]any{"hooks": []any{map[string]any{"command": hookCommandLine}}}, true},
		{"other command", map[string]any{"hooks": []any{map[string]any{"command": "lint"}}}, false},
		{"no hooks", map[string]any{"matcher": "*"}, false},
		{"not an object", "permguard hook", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isPermguardHookEntry(tt.entry))
		})
	}
}
