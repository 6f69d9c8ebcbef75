package policy

import (
	"fmt"
	"os"
	"strings"

	"github.com/gzhole/permguard/internal/normalize"
	unicheck "github.com/gzhole/permguard/internal/unicode"
)

// Resolver is the effective decision function for one project: project deny
// rules first, then project ask rules, then the user's allow rules, then
// DefaultDecision.
type Resolver struct {
	policy     *Policy
	projectDir string
	homeDir    string
}

func NewResolver(p *Policy, projectDir string) *Resolver {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}
	return &Resolver{policy: p, projectDir: projectDir, homeDir: homeDir}
}

// Policy returns the resolver's policy (for inspection/testing).
func (r *Resolver) Policy() *Policy {
	return r.policy
}

func (r *Resolver) Resolve(a Action) Resolution {
	var res Resolution
	if a.Tool == CategoryBash {
		res = r.resolveCommand(a.Argument)
	} else {
		res = r.resolveTiers(a.Tool, r.candidates(a), a.Argument, true)
	}

	// Text that may not display as it executes is never auto-approved.
	if scan := unicheck.Scan(a.Argument); !scan.Clean && res.Decision == DecisionAllow {
		res.Decision = DecisionAsk
		res.Rule = nil
		for _, f := range scan.Findings {
			res.Reasons = append(res.Reasons, f.Description)
		}
	}

	res.Explanation = buildExplanation(a, res)
	return res
}

// resolveCommand judges a shell command line. Deny and ask rules see the
// whole line as well as every simple command in it, wrapped or not; allow
// rules must cover every simple command as written, so
// "npm run build && rm -rf ~" is not approved by Bash(npm run *).
func (r *Resolver) resolveCommand(command string) Resolution {
	full := normalize.Command(command)
	segments := SplitCommand(full)
	if len(segments) == 0 || (len(segments) == 1 && segments[0].Raw == full && segments[0].Command == full) {
		return r.resolveTiers(CategoryBash, []string{full}, full, true)
	}

	whole := r.resolveTiers(CategoryBash, []string{full}, full, false)
	if whole.Decision == DecisionDeny {
		return whole
	}

	var worst *Resolution
	for _, seg := range segments {
		res := r.resolveSegment(seg)
		if res.Decision == DecisionDeny {
			return res
		}
		if worst == nil || decisionSeverity(res.Decision) > decisionSeverity(worst.Decision) {
			worst = &res
		}
	}

	if whole.Rule != nil && decisionSeverity(whole.Decision) >= decisionSeverity(worst.Decision) {
		return whole
	}
	return *worst
}

// resolveSegment checks deny and ask rules against the simple command with
// and without its leading assignments, and allow rules against it as written.
func (r *Resolver) resolveSegment(seg Segment) Resolution {
	candidates := []string{seg.Command}
	if seg.Raw != seg.Command {
		candidates = append(candidates, seg.Raw)
	}
	if res := r.resolveTiers(CategoryBash, candidates, seg.Raw, false); res.Rule != nil {
		return res
	}
	return r.resolveTiers(CategoryBash, []string{seg.Raw}, seg.Raw, true)
}

// resolveTiers walks deny, ask and (optionally) allow rules in that order.
// The first tier with any match decides; within a tier the most specific
// rule is reported.
func (r *Resolver) resolveTiers(cat Category, candidates []string, segment string, withAllow bool) Resolution {
	tiers := []struct {
		rules    []Rule
		decision Decision
		reason   string
	}{
		{r.policy.Deny, DecisionDeny, "blocked by project deny rule %s"},
		{r.policy.Ask, DecisionAsk, "project requires confirmation for %s"},
	}
	if withAllow {
		tiers = append(tiers, struct {
			rules    []Rule
			decision Decision
			reason   string
		}{r.policy.Allow, DecisionAllow, "auto-approved by %s"})
	}

	for _, tier := range tiers {
		if rule := mostSpecific(tier.rules, cat, candidates); rule != nil {
			return Resolution{
				Decision: tier.decision,
				Rule:     rule,
				Segment:  segment,
				Reasons:  []string{fmt.Sprintf(tier.reason, rule.Pattern)},
			}
		}
	}

	return Resolution{
		Decision: DefaultDecision,
		Segment:  segment,
		Reasons:  []string{"no rule matches; confirmation required"},
	}
}

func mostSpecific(rules []Rule, cat Category, candidates []string) *Rule {
	var best *Rule
	for i := range rules {
		rule := &rules[i]
		for _, arg := range candidates {
			if !rule.Pattern.Matches(cat, arg) {
				continue
			}
			if best == nil || rule.Pattern.Specificity() > best.Pattern.Specificity() {
				best = rule
			}
			break
		}
	}
	return best
}

func (r *Resolver) candidates(a Action) []string {
	switch {
	case IsFileCategory(a.Tool):
		return normalize.PathCandidates(a.Argument, r.projectDir, r.homeDir)
	case a.Tool == CategoryWebFetch:
		return normalize.FetchCandidates(a.Argument)
	}
	return []string{a.Argument}
}

// decisionSeverity returns a numeric severity for priority comparison.
// Higher number = more restrictive decision.
func decisionSeverity(d Decision) int {
	switch d {
	case DecisionDeny:
		return 3
	case DecisionAsk:
		return 2
	case DecisionAllow:
		return 1
	default:
		return 0
	}
}

// MoreRestrictive reports whether a is stricter than b.
func MoreRestrictive(a, b Decision) bool {
	return decisionSeverity(a) > decisionSeverity(b)
}

func buildExplanation(a Action, res Resolution) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Action: %s\n", a.Describe())
	fmt.Fprintf(&sb, "Decision: %s\n", res.Decision)

	if res.Rule != nil {
		fmt.Fprintf(&sb, "Rule: %s\n", res.Rule.Pattern)
	}
	if res.Segment != "" && a.Tool == CategoryBash && res.Segment != normalize.Command(a.Argument) {
		fmt.Fprintf(&sb, "Command segment: %s\n", res.Segment)
	}

	if len(res.Reasons) > 0 {
		sb.WriteString("Reasons:\n")
		for _, reason := range res.Reasons {
			fmt.Fprintf(&sb, "  - %s\n", reason)
		}
	}

	return sb.String()
}
