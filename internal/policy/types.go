package policy

type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionAsk   Decision = "ask"
	DecisionDeny  Decision = "deny"
)

// DefaultDecision applies to any action no rule matches.
const DefaultDecision = DecisionAsk

// Category is the tool an action or rule pattern refers to.
type Category string

const (
	CategoryBash         Category = "Bash"
	CategoryRead         Category = "Read"
	CategoryEdit         Category = "Edit"
	CategoryMultiEdit    Category = "MultiEdit"
	CategoryWrite        Category = "Write"
	CategoryNotebookEdit Category = "NotebookEdit"
	CategoryWebFetch     Category = "WebFetch"
	CategoryWebSearch    Category = "WebSearch"
	CategoryGlob         Category = "Glob"
	CategoryGrep         Category = "Grep"
)

// Categories lists the recognized action categories in display order.
var Categories = []Category{
	CategoryBash,
	CategoryRead,
	CategoryEdit,
	CategoryMultiEdit,
	CategoryWrite,
	CategoryNotebookEdit,
	CategoryWebFetch,
	CategoryWebSearch,
	CategoryGlob,
	CategoryGrep,
}

func knownCategory(c Category) bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// IsFileCategory reports whether the category's argument is a file path.
func IsFileCategory(c Category) bool {
	switch c {
	case CategoryRead, CategoryEdit, CategoryMultiEdit, CategoryWrite, CategoryNotebookEdit:
		return true
	}
	return false
}

// covers reports whether a rule written for ruleCat applies to an action of
// category actionCat. Edit rules also govern the other in-place edit tools.
func covers(ruleCat, actionCat Category) bool {
	if ruleCat == actionCat {
		return true
	}
	if ruleCat == CategoryEdit {
		return actionCat == CategoryMultiEdit || actionCat == CategoryNotebookEdit
	}
	return false
}

type Rule struct {
	Pattern  Pattern
	Decision Decision
}

func (r Rule) String() string {
	return r.Pattern.String()
}

// Policy is the merged rule set: project deny and ask rules plus the user's
// allow rules. Anything unmatched resolves to DefaultDecision.
type Policy struct {
	Deny  []Rule
	Ask   []Rule
	Allow []Rule
}

// Action is one proposed tool invocation.
type Action struct {
	Tool     Category
	Argument string
}

// Describe returns the action in rule syntax, e.g. "Bash(git push)".
func (a Action) Describe() string {
	if a.Argument == "" {
		return string(a.Tool)
	}
	return string(a.Tool) + "(" + a.Argument + ")"
}

type Resolution struct {
	Decision Decision
	// Rule is the most specific rule that produced Decision; nil when the
	// default applied.
	Rule        *Rule
	Segment     string
	Reasons     []string
	Explanation string
}
