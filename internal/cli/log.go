package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gzhole/permguard/internal/logger"
)

var (
	logFilterDecision string
	logFilterKind     string
	logBlocked        bool
	logLast           int
	logSummary        bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View and filter the audit log",
	Long: `View the permguard audit log with filtering and summary options.

Examples:
  permguard log                     # Show all entries
  permguard log --last 20           # Show last 20 entries
  permguard log --decision ask      # Show actions that needed approval
  permguard log --kind apply        # Show profile changes
  permguard log --blocked           # Show only blocked actions
  permguard log --summary           # Show summary stats`,
	Args: cobra.NoArgs,
	RunE: logCommand,
}

func init() {
	logCmd.Flags().StringVar(&logFilterDecision, "decision", "", "Filter by decision (allow, ask, deny)")
	logCmd.Flags().StringVar(&logFilterKind, "kind", "", "Filter by event kind (hook, apply, custom, gate, setup)")
	logCmd.Flags().BoolVar(&logBlocked, "blocked", false, "Show only blocked actions")
	logCmd.Flags().IntVar(&logLast, "last", 0, "Show last N entries")
	logCmd.Flags().BoolVar(&logSummary, "summary", false, "Show summary statistics")
	rootCmd.AddCommand(logCmd)
}

func logCommand(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	events, err := logger.ReadEvents(cfg.LogPath)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	if len(events) == 0 {
		fmt.Fprintln(out, "No audit log entries found.")
		return nil
	}

	filtered := filterEvents(events)
	if logLast > 0 && logLast < len(filtered) {
		filtered = filtered[len(filtered)-logLast:]
	}

	if logSummary {
		printSummary(out, events)
		return nil
	}

	printEvents(out, filtered)
	return nil
}

func filterEvents(events []logger.AuditEvent) []logger.AuditEvent {
	if logFilterDecision == "" && logFilterKind == "" && !logBlocked {
		return events
	}

	var filtered []logger.AuditEvent
	for _, e := range events {
		if logFilterDecision != "" && !strings.EqualFold(e.Decision, logFilterDecision) {
			continue
		}
		if logFilterKind != "" && !strings.EqualFold(string(e.Kind), logFilterKind) {
			continue
		}
		if logBlocked && !e.Blocked() {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

func printEvents(out io.Writer, events []logger.AuditEvent) {
	for _, e := range events {
		ts := formatTimestamp(e.Timestamp)
		fmt.Fprintf(out, "%s %s %-6s %s\n", eventIcon(e), ts, e.Kind, eventSubject(e))

		if e.Decision != "" {
			line := "     Decision: " + e.Decision
			if e.Rule != "" {
				line += " (" + e.Rule + ")"
			}
			fmt.Fprintln(out, line)
		}
		if e.Verdict != "" {
			fmt.Fprintf(out, "     Verdict: %s\n", e.Verdict)
		}
		if len(e.Added) > 0 {
			fmt.Fprintf(out, "     Added: %s\n", strings.Join(e.Added, ", "))
		}
		if len(e.Removed) > 0 {
			fmt.Fprintf(out, "     Removed: %s\n", strings.Join(e.Removed, ", "))
		}
		for _, r := range e.Reasons {
			fmt.Fprintf(out, "     Reason: %s\n", r)
		}
		if e.Error != "" {
			fmt.Fprintf(out, "     Error: %s\n", e.Error)
		}
		if e.ProjectDir != "" {
			fmt.Fprintf(out, "     Project: %s\n", e.ProjectDir)
		}
		fmt.Fprintln(out)
	}
}

func eventSubject(e logger.AuditEvent) string {
	switch {
	case e.Action != "":
		return e.Tool + ": " + e.Action
	case e.Profile != "":
		return "profile " + e.Profile
	case e.Tool != "":
		return e.Tool
	}
	return ""
}

func printSummary(out io.Writer, all []logger.AuditEvent) {
	kinds := map[logger.Kind]int{}
	decisions := map[string]int{}
	blockedCount := 0
	errorCount := 0

	for _, e := range all {
		kinds[e.Kind]++
		if e.Decision != "" {
			decisions[e.Decision]++
		}
		if e.Blocked() {
			blockedCount++
		}
		if e.Error != "" {
			errorCount++
		}
	}

	fmt.Fprintln(out, "═══════════════════════════════════════════")
	fmt.Fprintln(out, "  permguard Audit Summary")
	fmt.Fprintln(out, "═══════════════════════════════════════════")
	fmt.Fprintf(out, "  Total events:    %d\n", len(all))
	fmt.Fprintf(out, "  Hook checks:     %d\n", kinds[logger.KindHook])
	fmt.Fprintf(out, "    allow:         %d\n", decisions["allow"])
	fmt.Fprintf(out, "    ask:           %d\n", decisions["ask"])
	fmt.Fprintf(out, "    deny:          %d\n", decisions["deny"])
	fmt.Fprintf(out, "  Blocked:         %d\n", blockedCount)
	fmt.Fprintf(out, "  Profile changes: %d\n", kinds[logger.KindApply]+kinds[logger.KindCustom])
	fmt.Fprintf(out, "  Errors:          %d\n", errorCount)
	fmt.Fprintln(out, "═══════════════════════════════════════════")

	fmt.Fprintf(out, "  First event:     %s\n", formatTimestamp(all[0].Timestamp))
	fmt.Fprintf(out, "  Last event:      %s\n", formatTimestamp(all[len(all)-1].Timestamp))

	var blocked []logger.AuditEvent
	for _, e := range all {
		if e.Blocked() {
			blocked = append(blocked, e)
		}
	}
	if len(blocked) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "  Blocked actions:")
		limit := min(len(blocked), 10)
		for _, e := range blocked[len(blocked)-limit:] {
			fmt.Fprintf(out, "    %s %s\n", formatTimestamp(e.Timestamp), eventSubject(e))
		}
	}

	fmt.Fprintln(out)
}

func eventIcon(e logger.AuditEvent) string {
	if e.Blocked() {
		return "\xf0\x9f\x9b\x91" // stop sign
	}
	switch e.Decision {
	case "ask":
		return "\xf0\x9f\x94\x8d" // magnifying glass
	case "allow":
		return "\xe2\x9c\x85" // check mark
	}
	if e.Error != "" {
		return "\xe2\x9d\x8c" // cross
	}
	return "\xe2\x80\xa2" // bullet
}

func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
