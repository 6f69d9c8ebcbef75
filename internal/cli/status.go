package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gzhole/permguard/internal/profile"
	"github.com/gzhole/permguard/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status [project-dir]",
	Short: "Show permguard status: gate, audit log and, for a project, hooks and profile",
	Long: `Check whether permguard is active: the gate setting, the audit log and,
when a project directory is given, whether the hooks are installed and which
profile is in effect.

  permguard status
  permguard status .`,
	Args: cobra.MaximumNArgs(1),
	RunE: statusCommand,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func statusCommand(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, cfgErr := loadConfig()

	fmt.Fprintln(out, "=== permguard status ===")
	fmt.Fprintln(out)

	binPath, err := os.Executable()
	if err != nil {
		binPath = "unknown"
	}
	fmt.Fprintf(out, "  Binary:    %s (%s)\n", binPath, Version)

	if cfgErr != nil {
		fmt.Fprintf(out, "  Config:    unreadable (%v)\n", cfgErr)
	} else {
		fmt.Fprintf(out, "  Config:    %s\n", cfg.Path())
		g := cfg.GateMode()
		state := "on"
		if !g.Enabled {
			state = "off"
		}
		fmt.Fprintf(out, "  Gate:      %s (scope: %s)\n", state, g.Scope)
		checkAuditLog(out, cfg.LogPath)
	}

	if len(args) == 1 {
		fmt.Fprintln(out)
		checkProject(out, args[0])
	}
	return nil
}

func checkProject(out io.Writer, projectDir string) {
	st := store.Open(projectDir)
	fmt.Fprintf(out, "  Project:   %s\n", projectDir)

	if _, err := os.Stat(st.ProjectPath()); err != nil {
		fmt.Fprintf(out, "  Policy:    missing %s (hook will block every gated action)\n", st.ProjectPath())
	} else {
		fmt.Fprintf(out, "  Policy:    %s\n", st.ProjectPath())
	}

	user, err := st.LoadUser()
	if err != nil {
		fmt.Fprintf(out, "  Settings:  unreadable (%v)\n", err)
		return
	}
	if hookInstalled(user) {
		fmt.Fprintln(out, "  Hook:      installed")
	} else {
		fmt.Fprintf(out, "  Hook:      not installed (run: permguard setup %s)\n", projectDir)
	}
	fmt.Fprintf(out, "  Profile:   %s\n", profile.Default().Match(user.Allow()))
}

func checkAuditLog(out io.Writer, path string) {
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(out, "  Audit log: %s (not yet created, starts on first event)\n", path)
		return
	}

	sizeKB := info.Size() / 1024
	if sizeKB == 0 {
		fmt.Fprintf(out, "  Audit log: %s (<1 KB)\n", path)
	} else {
		fmt.Fprintf(out, "  Audit log: %s (%d KB)\n", path, sizeKB)
	}
}
