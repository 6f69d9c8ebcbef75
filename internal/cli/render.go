package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/gzhole/permguard/internal/policy"
	"github.com/gzhole/permguard/internal/profile"
)

func printUsage(out io.Writer, catalog *profile.Catalog) {
	fmt.Fprintln(out, "=== Configure Permissions ===")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Choose a profile to control how much Claude asks before acting.")
	fmt.Fprintln(out, "Profiles set your personal settings (settings.local.json).")
	fmt.Fprintln(out, "The project's security rules (settings.json) always apply on top.")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  permguard <project-dir> show             Show your current permissions")
	for _, p := range catalog.Profiles {
		fmt.Fprintf(out, "  permguard <project-dir> %-16s Apply the %s profile\n", p.Name, titleCase(p.Name))
	}
	fmt.Fprintln(out, "  permguard <project-dir> \"description\"    Propose custom auto-approvals")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Profiles:")
	fmt.Fprintln(out)
	for _, p := range catalog.Profiles {
		fmt.Fprintf(out, "  %s: %q\n", strings.ToUpper(p.Name), p.Description)
		fmt.Fprintf(out, "    %s\n", p.Detail)
		fmt.Fprintln(out)
	}
}

func printReport(out io.Writer, catalog *profile.Catalog, r *profile.Report) {
	fmt.Fprintln(out, "=== Your Current Permissions ===")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "PROJECT DEFAULTS (shared in %s)\n", r.ProjectPath)
	fmt.Fprintln(out, "These are the security baseline for this project. Your profile cannot override them.")
	fmt.Fprintln(out)
	printSection(out, "Blocked", r.Deny)
	fmt.Fprintln(out)
	printSection(out, "Requires your approval each time", r.Ask)
	fmt.Fprintln(out)

	fmt.Fprintf(out, "YOUR PERSONAL SETTINGS (in %s, just for you)\n", r.UserPath)
	fmt.Fprintln(out)
	if r.Profile == profile.CustomProfile {
		fmt.Fprintln(out, "  Profile: custom")
	} else {
		fmt.Fprintf(out, "  Profile: %s\n", r.Profile)
	}
	if r.Model != "" {
		fmt.Fprintf(out, "  Model: %s\n", r.Model)
	}
	if r.OutputStyle != "" {
		fmt.Fprintf(out, "  Output style: %s\n", r.OutputStyle)
	}
	fmt.Fprintln(out)
	printSection(out, "Auto-approved", r.Allow)
	fmt.Fprintln(out)
	if len(r.Unrecognized) > 0 {
		fmt.Fprintln(out, "  Not recognized (ignored, removed by the next profile change):")
		for _, rule := range r.Unrecognized {
			fmt.Fprintf(out, "  - %s\n", rule)
		}
		fmt.Fprintln(out)
	}

	if len(r.Allow.Categories) > 0 || len(r.Deny.Categories) > 0 {
		fmt.Fprintln(out, "BY TOOL")
		printByCategory(out, r)
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "Anything else: Claude asks first (%s).\n", policy.DefaultDecision)
	fmt.Fprintf(out, "To change your personal settings: permguard <project-dir> %s\n", strings.Join(catalog.Names(), " | "))
}

func printSection(out io.Writer, label string, s profile.Section) {
	if len(s.Descriptions) == 0 {
		fmt.Fprintf(out, "  %s: (none)\n", label)
		return
	}
	fmt.Fprintf(out, "  %s:\n", label)
	for _, d := range s.Descriptions {
		fmt.Fprintf(out, "  - %s\n", d)
	}
}

func printByCategory(out io.Writer, r *profile.Report) {
	for _, cat := range policy.Categories {
		var parts []string
		for _, s := range r.Sections() {
			for _, g := range s.Categories {
				if g.Category == cat {
					parts = append(parts, fmt.Sprintf("%s %d", s.Decision, len(g.Rules)))
				}
			}
		}
		if len(parts) > 0 {
			fmt.Fprintf(out, "  %-13s %s\n", cat, strings.Join(parts, ", "))
		}
	}
}

func printConfirmation(out io.Writer, catalog *profile.Catalog, c *profile.Confirmation) {
	fmt.Fprintf(out, "=== Applying %s profile ===\n", strings.ToUpper(c.Profile))
	if c.Description != "" {
		fmt.Fprintf(out, "%q\n", c.Description)
	}
	fmt.Fprintln(out)

	if !c.Changed {
		fmt.Fprintln(out, "No changes needed, you're already using this profile.")
		fmt.Fprintln(out)
	} else {
		if len(c.Removed) > 0 {
			fmt.Fprintln(out, "Removing auto-approvals:")
			for _, d := range catalog.Describe(c.Removed, policy.DecisionAllow) {
				fmt.Fprintf(out, "  - %s\n", d)
			}
			fmt.Fprintln(out)
		}
		if len(c.Added) > 0 {
			fmt.Fprintln(out, "Adding auto-approvals:")
			for _, d := range catalog.Describe(c.Added, policy.DecisionAllow) {
				fmt.Fprintf(out, "  + %s\n", d)
			}
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "Saved to %s\n", c.Path)
		fmt.Fprintln(out)
	}

	if len(c.Allow) > 0 {
		fmt.Fprintln(out, "Your auto-approved actions:")
		for _, d := range catalog.Describe(c.Allow, policy.DecisionAllow) {
			fmt.Fprintf(out, "  - %s\n", d)
		}
	} else {
		fmt.Fprintln(out, "Auto-approved actions: (none)")
		fmt.Fprintln(out, "Claude will ask before every non-read action.")
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Project deny rules still apply. See `permguard <project-dir> show` for full details.")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
