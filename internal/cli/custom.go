package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gzhole/permguard/internal/approval"
	"github.com/gzhole/permguard/internal/logger"
	"github.com/gzhole/permguard/internal/policy"
	"github.com/gzhole/permguard/internal/profile"
)

// confirm is swapped out in tests.
var confirm = approval.Ask

func customRules(cmd *cobra.Command, engine *profile.Engine, projectDir, description string) error {
	out := cmd.OutOrStdout()

	proposal, err := engine.ProposeCustom(projectDir, description)
	if err != nil {
		var unmappable *policy.UnmappableIntentError
		if errors.As(err, &unmappable) {
			fmt.Fprintln(out, "None of that maps to an action permguard can auto-approve.")
			printUnmapped(out, unmappable.Unmapped)
			fmt.Fprintln(out, "Nothing was saved. Try phrases like \"edit files\", \"run npm scripts\" or \"local git operations\".")
		}
		return explain(err)
	}

	items := engine.Catalog().Describe(proposal.Rules, policy.DecisionAllow)
	var notes []string
	for _, u := range proposal.Unmapped {
		notes = append(notes, fmt.Sprintf("Not understood, so not included: %q", u))
	}

	if !assumeYes {
		res := confirm(approval.Prompt{
			Title:   "Proposed custom rules",
			Summary: fmt.Sprintf("From: %q (replaces your current auto-approvals)", description),
			Items:   items,
			Notes:   notes,
		})
		if !res.Approved {
			fmt.Fprintln(out, "Nothing was saved.")
			if res.UserAction == "auto_deny_non_interactive" {
				fmt.Fprintln(out, "Run again with --yes to save without a prompt.")
			}
			return nil
		}
	}

	conf, err := engine.CommitCustom(projectDir, proposal)
	if err != nil {
		return explain(err)
	}
	printConfirmation(out, engine.Catalog(), conf)
	printUnmapped(out, proposal.Unmapped)

	audit(logger.AuditEvent{
		Kind:       logger.KindCustom,
		ProjectDir: projectDir,
		Profile:    conf.Profile,
		Action:     description,
		Added:      conf.Added,
		Removed:    conf.Removed,
	})
	return nil
}

func printUnmapped(out io.Writer, unmapped []string) {
	if len(unmapped) == 0 {
		return
	}
	fmt.Fprintln(out, "Not understood (no rule was made for these):")
	for _, u := range unmapped {
		fmt.Fprintf(out, "  ? %s\n", u)
	}
	fmt.Fprintln(out)
}
