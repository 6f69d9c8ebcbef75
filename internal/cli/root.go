package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gzhole/permguard/internal/config"
	"github.com/gzhole/permguard/internal/logger"
	"github.com/gzhole/permguard/internal/policy"
	"github.com/gzhole/permguard/internal/profile"
)

var (
	logPath    string
	assumeYes  bool
	diag       = slog.New(slog.NewTextHandler(io.Discard, nil))
	newEngine  = func() *profile.Engine { return profile.NewEngine(nil, nil, diag) }
	loadConfig = func() (*config.Config, error) { return config.Load(logPath) }
)

// ExitError carries a process exit code that is not a plain failure, such
// as the hook's "block" status. Its message has already been printed.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

var rootCmd = &cobra.Command{
	Use:   "permguard <project-dir> [show | cautious | standard | open | \"custom description\"]",
	Short: "permguard - permission profiles and justification gate for Claude Code",
	Long: `permguard manages your personal permission profile for a project and
gates actions that need your approval behind a plain-language explanation.

Profiles set your personal settings (.claude/settings.local.json).
The project's security rules (.claude/settings.json) always apply on top.

Examples:
  permguard .                       # show the profiles
  permguard . show                  # show your current permissions
  permguard . standard              # apply the Standard profile
  permguard . "edit files and run npm scripts"   # propose custom rules`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfg, err := loadConfig(); err == nil {
			diag = logger.NewDiagnostic(cmd.ErrOrStderr(), cfg.LogLevel)
		}
	},
	RunE: profileCommand,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "Path to audit log file (default: ~/.permguard/audit.jsonl)")
	rootCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Save custom rules without asking for confirmation")
}

func Execute() error {
	return rootCmd.Execute()
}

func profileCommand(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		printUsage(out, newEngine().Catalog())
		return nil
	}

	projectDir := args[0]
	command := strings.TrimSpace(strings.Join(args[1:], " "))
	engine := newEngine()

	switch {
	case command == "" || command == "help":
		printUsage(out, engine.Catalog())
		return nil
	case command == "show":
		report, err := engine.Show(projectDir)
		if err != nil {
			return explain(err)
		}
		printReport(out, engine.Catalog(), report)
		return nil
	case len(strings.Fields(command)) == 1 && !isPhrase(engine.Catalog(), command):
		return applyProfile(cmd, engine, projectDir, command)
	default:
		return customRules(cmd, engine, projectDir, command)
	}
}

// isPhrase reports whether a single word that names no profile is
// something the custom vocabulary understands, such as "edit".
func isPhrase(catalog *profile.Catalog, word string) bool {
	if _, err := catalog.Lookup(word); err == nil {
		return false
	}
	return len(catalog.Translate(word).Rules) > 0
}

func applyProfile(cmd *cobra.Command, engine *profile.Engine, projectDir, name string) error {
	conf, err := engine.Apply(projectDir, name)
	var unknown *policy.UnknownProfileError
	if errors.As(err, &unknown) {
		printUsage(cmd.ErrOrStderr(), engine.Catalog())
		return err
	}
	if err != nil {
		return explain(err)
	}

	printConfirmation(cmd.OutOrStdout(), engine.Catalog(), conf)
	audit(logger.AuditEvent{
		Kind:       logger.KindApply,
		ProjectDir: projectDir,
		Profile:    conf.Profile,
		Added:      conf.Added,
		Removed:    conf.Removed,
	})
	return nil
}

// explain turns typed policy errors into the message shown to the user,
// keeping the original error reachable through errors.As.
func explain(err error) error {
	var readErr *policy.PolicyReadError
	var writeErr *policy.WriteError
	switch {
	case errors.As(err, &readErr):
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no project policy at %s; the project deny rules must exist before profiles can be used: %w",
				readErr.Path, err)
		}
		return fmt.Errorf("the policy file %s could not be read; fix or restore it and try again: %w", readErr.Path, err)
	case errors.As(err, &writeErr):
		return fmt.Errorf("your settings could not be saved; the previous settings are unchanged: %w", err)
	}
	return err
}

// audit records an event, warning on stderr when the log is unavailable.
func audit(event logger.AuditEvent) {
	cfg, err := loadConfig()
	if err != nil {
		diag.Warn("audit log skipped", "error", err)
		return
	}
	lg, err := logger.New(cfg.LogPath)
	if err != nil {
		diag.Warn("audit log unavailable", "path", cfg.LogPath, "error", err)
		return
	}
	defer func() { _ = lg.Close() }()
	if err := lg.Log(event); err != nil {
		diag.Warn("audit log write failed", "error", err)
	}
}
