package gate

import (
	"fmt"
	"strings"

	"github.com/gzhole/permguard/internal/policy"
)

// Scope selects which actions are gated.
type Scope string

const (
	// ScopeAsk gates only actions the policy resolves to ask.
	ScopeAsk Scope = "ask"
	// ScopeAll gates every action that is not read-only and not denied.
	ScopeAll Scope = "all"
)

func (s Scope) String() string {
	return string(s)
}

func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeAsk:
		return ScopeAsk, nil
	case ScopeAll:
		return ScopeAll, nil
	}
	return "", fmt.Errorf("unknown gate scope %q (use ask or all)", s)
}

// readOnlyTools never need a justification.
var readOnlyTools = map[string]bool{
	"Read":            true,
	"Glob":            true,
	"Grep":            true,
	"TodoRead":        true,
	"TodoWrite":       true,
	"TaskCreate":      true,
	"TaskUpdate":      true,
	"TaskGet":         true,
	"TaskList":        true,
	"AskUserQuestion": true,
}

func IsReadOnlyTool(tool string) bool {
	return readOnlyTools[tool]
}

// Gate is the persisted gate configuration. A disabled gate stays wired in
// and allows everything until it is enabled again.
type Gate struct {
	Enabled bool
	Scope   Scope
}

// Applies reports whether an action of tool resolved to d must be checked.
func (g Gate) Applies(tool string, d policy.Decision) bool {
	if !g.Enabled || IsReadOnlyTool(tool) || d == policy.DecisionDeny {
		return false
	}
	if g.Scope == ScopeAll {
		return true
	}
	return d == policy.DecisionAsk
}

// Check runs the justification check unless the gate is disabled.
func (g Gate) Check(action policy.Action, text string) Verdict {
	if !g.Enabled {
		return allow()
	}
	return Check(action, text)
}
