// Package gate implements the justification check run before an agent may
// take an action that needs the user's confirmation.
package gate

import (
	"strings"

	"github.com/gzhole/permguard/internal/policy"
)

// Marker must open a line of the agent's text, ahead of the action itself.
const Marker = "[permission_explanation]"

// BlockMessage tells the agent what a justification has to look like.
const BlockMessage = "You must explain this action to the user in plain language before running it. " +
	"Start with the tag " + Marker + " on its own line, then explain: what you're about to do, " +
	"what data is involved, whether it's reversible, and whether anything leaves the machine. " +
	"Then try again."

// ReasonMissing is the Block reason when no marker line precedes the action.
const ReasonMissing = "missing justification"

type Outcome string

const (
	OutcomeAllow Outcome = "allow"
	OutcomeBlock Outcome = "block"
)

// Verdict is the result of a check. A Block is a normal outcome, not an
// error; Message is what the caller relays to the agent.
type Verdict struct {
	Outcome Outcome
	Reason  string
	Message string
}

func (v Verdict) Allowed() bool {
	return v.Outcome == OutcomeAllow
}

func allow() Verdict {
	return Verdict{Outcome: OutcomeAllow}
}

func block(reason string) Verdict {
	return Verdict{Outcome: OutcomeBlock, Reason: reason, Message: BlockMessage}
}

// Check allows the action when some line of text, trimmed, starts with
// Marker and comes no later than the first line that shows the action. It
// looks only at structure; what the explanation says is not judged.
func Check(action policy.Action, text string) Verdict {
	desc := description(action)
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, Marker) {
			return allow()
		}
		if desc != "" && showsAction(trimmed, desc) {
			return block(ReasonMissing)
		}
	}
	return block(ReasonMissing)
}

func description(a policy.Action) string {
	return strings.TrimSpace(a.Argument)
}

// showsAction reports whether a line is the action itself, as agents print
// it: bare, in backticks, or behind a shell prompt.
func showsAction(line, desc string) bool {
	line = strings.Trim(line, "`")
	line = strings.TrimPrefix(line, "$ ")
	return strings.TrimSpace(line) == desc
}
