package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gzhole/permguard/internal/logger"
	"github.com/gzhole/permguard/internal/store"
)

var disableFlag bool

var setupCmd = &cobra.Command{
	Use:   "setup <project-dir>",
	Short: "Install the permguard hook for a project",
	Long: `Install or remove the Claude Code hooks that run "permguard hook" for
this project. The hooks go into your personal settings
(.claude/settings.local.json); every other setting there is kept.

  permguard setup .             # install PermissionRequest and PreToolUse hooks
  permguard setup . --disable   # remove them`,
	Args: cobra.ExactArgs(1),
	RunE: setupCommand,
}

// hookEvents are the Claude Code events permguard answers.
var hookEvents = []string{eventPermissionRequest, eventPreToolUse}

func init() {
	setupCmd.Flags().BoolVar(&disableFlag, "disable", false, "Remove the permguard hooks")
	rootCmd.AddCommand(setupCmd)
}

func setupCommand(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	st := store.Open(args[0])

	user, err := st.LoadUser()
	if err != nil {
		return explain(err)
	}

	hooks, _ := user.Get("hooks")
	hooksMap, ok := hooks.(map[string]any)
	if !ok {
		hooksMap = map[string]any{}
	}

	var changed []string
	if disableFlag {
		changed = removeHookEntries(hooksMap)
	} else {
		changed = addHookEntries(hooksMap)
	}

	if len(changed) == 0 {
		if disableFlag {
			fmt.Fprintln(out, "No permguard hooks found, nothing to disable.")
		} else {
			fmt.Fprintf(out, "permguard hooks already installed in %s\n", st.UserPath())
		}
		return nil
	}

	if len(hooksMap) == 0 {
		user.Delete("hooks")
	} else {
		user.Set("hooks", hooksMap)
	}
	if err := st.SaveUser(user); err != nil {
		return explain(err)
	}

	verb := "Installed"
	if disableFlag {
		verb = "Removed"
	}
	for _, event := range changed {
		fmt.Fprintf(out, "%s %s hook: %s\n", verb, event, hookCommandLine)
	}
	fmt.Fprintf(out, "Settings: %s\n", st.UserPath())
	if !disableFlag {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Claude will now be asked to explain actions that need your approval.")
		fmt.Fprintln(out, "To pause this without uninstalling: permguard gate off")
	}

	audit(logger.AuditEvent{
		Kind:       logger.KindSetup,
		ProjectDir: args[0],
		Verdict:    verb,
		Reasons:    changed,
	})
	return nil
}

func addHookEntries(hooks map[string]any) []string {
	var added []string
	for _, event := range hookEvents {
		entries, _ := hooks[event].([]any)
		if containsPermguardEntry(entries) {
			continue
		}
		hooks[event] = append(entries, map[string]any{
			"matcher": "*",
			"hooks": []any{
				map[string]any{"type": "command", "command": hookCommandLine},
			},
		})
		added = append(added, event)
	}
	return added
}

func removeHookEntries(hooks map[string]any) []string {
	var removed []string
	for _, event := range hookEvents {
		entries, _ := hooks[event].([]any)
		kept := make([]any, 0, len(entries))
		for _, entry := range entries {
			if isPermguardHookEntry(entry) {
				continue
			}
			kept = append(kept, entry)
		}
		if len(kept) == len(entries) {
			continue
		}
		removed = append(removed, event)
		if len(kept) == 0 {
			delete(hooks, event)
		} else {
			hooks[event] = kept
		}
	}
	return removed
}

func containsPermguardEntry(entries []any) bool {
	for _, e := range entries {
		if isPermguardHookEntry(e) {
			return true
		}
	}
	return false
}

// isPermguardHookEntry returns true if the hook entry runs our command.
func isPermguardHookEntry(entry any) bool {
	m, ok := entry.(map[string]any)
	if !ok {
		return false
	}
	subHooks, _ := m["hooks"].([]any)
	for _, h := range subHooks {
		if hm, ok := h.(map[string]any); ok {
			if hm["command"] == hookCommandLine {
				return true
			}
		}
	}
	return false
}

// hookInstalled reports whether the project's user settings run permguard.
func hookInstalled(u *store.User) bool {
	hooks, _ := u.Get("hooks")
	hooksMap, ok := hooks.(map[string]any)
	if !ok {
		return false
	}
	for _, event := range hookEvents {
		entries, _ := hooksMap[event].([]any)
		if containsPermguardEntry(entries) {
			return true
		}
	}
	return false
}
