package profile

import (
	"strings"

	"github.com/gzhole/permguard/internal/policy"
)

// Describe turns rules into plain-language lines using the translation table
// for decision d. Rules with no translation are shown as written. Repeated
// lines collapse, so Read(.env) and Edit(.env) read as one entry.
func (c *Catalog) Describe(rules []string, d policy.Decision) []string {
	table := c.table(d)
	seen := make(map[string]bool, len(rules))
	out := make([]string, 0, len(rules))
	for _, rule := range rules {
		text := rule
		for _, t := range table {
			if strings.Contains(rule, t.Match) {
				text = t.Text
				break
			}
		}
		if seen[text] {
			continue
		}
		seen[text] = true
		out = append(out, text)
	}
	return out
}

func (c *Catalog) table(d policy.Decision) []Translation {
	switch d {
	case policy.DecisionDeny:
		return c.Translations.Deny
	case policy.DecisionAsk:
		return c.Translations.Ask
	default:
		return c.Translations.Allow
	}
}

// CategoryGroup is the rules of one decision that target one category.
type CategoryGroup struct {
	Category policy.Category
	Rules    []string
}

// GroupByCategory splits rules by category in policy.Categories order.
// Rules that do not parse are dropped; stored rules are validated on load.
func GroupByCategory(rules []string) []CategoryGroup {
	byCat := make(map[policy.Category][]string)
	for _, rule := range rules {
		p, err := policy.ParsePattern(rule)
		if err != nil {
			continue
		}
		byCat[p.Category] = append(byCat[p.Category], rule)
	}

	var groups []CategoryGroup
	for _, cat := range policy.Categories {
		if rs, ok := byCat[cat]; ok {
			groups = append(groups, CategoryGroup{Category: cat, Rules: rs})
		}
	}
	return groups
}
