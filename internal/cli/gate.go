package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gzhole/permguard/internal/gate"
	"github.com/gzhole/permguard/internal/logger"
)

var gateScope string

var gateCmd = &cobra.Command{
	Use:   "gate [on|off|status]",
	Short: "Turn the justification gate on or off",
	Long: `The gate blocks actions that need your approval until Claude has written
an explanation starting with [permission_explanation]. Turning it off keeps
the hook installed; the hook then allows everything it would have gated.

  permguard gate              # show gate state
  permguard gate off          # stop requiring explanations
  permguard gate on --scope all   # require them for every non-read action`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"on", "off", "status"},
	RunE:      gateCommand,
}

func init() {
	gateCmd.Flags().StringVar(&gateScope, "scope", "", "Which actions are gated: ask (default) or all")
	rootCmd.AddCommand(gateCmd)
}

func gateCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	action := "status"
	if len(args) == 1 {
		action = args[0]
	}

	switch action {
	case "on", "off":
		if err := cfg.SetGateEnabled(action == "on"); err != nil {
			return err
		}
	case "status":
	default:
		return fmt.Errorf("unknown gate action %q (use on, off or status)", action)
	}

	if gateScope != "" {
		scope, err := gate.ParseScope(gateScope)
		if err != nil {
			return err
		}
		if err := cfg.SetGateScope(scope); err != nil {
			return err
		}
	}

	if action != "status" || gateScope != "" {
		audit(logger.AuditEvent{
			Kind:    logger.KindGate,
			Verdict: action,
			Reasons: []string{"scope=" + cfg.GateMode().Scope.String()},
		})
	}

	printGate(cmd, cfg.GateMode(), cfg.Path())
	return nil
}

func printGate(cmd *cobra.Command, g gate.Gate, path string) {
	out := cmd.OutOrStdout()
	if g.Enabled {
		fmt.Fprintln(out, "Justification gate: ON")
	} else {
		fmt.Fprintln(out, "Justification gate: OFF (hook stays installed, nothing is gated)")
	}
	switch g.Scope {
	case gate.ScopeAll:
		fmt.Fprintln(out, "Scope: every action that is not read-only")
	default:
		fmt.Fprintln(out, "Scope: actions that need your approval")
	}
	fmt.Fprintf(out, "Config: %s\n", path)
}
