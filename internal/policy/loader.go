package policy

import "fmt"

// ParseRules parses raw patterns into rules carrying decision d. Any invalid
// pattern fails the whole list; nothing is skipped.
func ParseRules(patterns []string, d Decision) ([]Rule, error) {
	rules := make([]Rule, 0, len(patterns))
	for i, raw := range patterns {
		p, err := ParsePattern(raw)
		if err != nil {
			return nil, fmt.Errorf("%s rule %d: %w", d, i+1, err)
		}
		rules = append(rules, Rule{Pattern: p, Decision: d})
	}
	return rules, nil
}

// New builds a policy from the project's deny and ask patterns and the
// user's allow patterns.
func New(deny, ask, allow []string) (*Policy, error) {
	denyRules, err := ParseRules(deny, DecisionDeny)
	if err != nil {
		return nil, err
	}
	askRules, err := ParseRules(ask, DecisionAsk)
	if err != nil {
		return nil, err
	}
	allowRules, err := ParseRules(allow, DecisionAllow)
	if err != nil {
		return nil, err
	}
	return &Policy{Deny: denyRules, Ask: askRules, Allow: allowRules}, nil
}

// ValidatePatterns checks every pattern without building rules.
func ValidatePatterns(patterns []string) error {
	for _, raw := range patterns {
		if _, err := ParsePattern(raw); err != nil {
			return err
		}
	}
	return nil
}

// UsablePatterns splits patterns into those that parse and those that do
// not, keeping the order of each.
func UsablePatterns(patterns []string) (usable, unusable []string) {
	for _, raw := range patterns {
		if _, err := ParsePattern(raw); err != nil {
			unusable = append(unusable, raw)
			continue
		}
		usable = append(usable, raw)
	}
	return usable, unusable
}
