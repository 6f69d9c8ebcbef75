package policy

import (
	"strings"
)

// Wildcard is the shape of a pattern's scope.
type Wildcard int

const (
	// WildcardNone matches the scope exactly.
	WildcardNone Wildcard = iota
	// WildcardAny matches every argument: "Bash", "Edit(**)".
	WildcardAny
	// WildcardPrefix matches arguments starting with the scope: "Bash(npm run *)".
	WildcardPrefix
	// WildcardSuffix matches arguments ending with the scope: "Read(*.pem)".
	WildcardSuffix
	// WildcardContains matches arguments containing the scope: "Read(*secret*)".
	WildcardContains
	// WildcardSubtree matches a directory and everything below it: "Read(~/.ssh/**)".
	WildcardSubtree
	// WildcardGlob holds inner stars that match any run of characters:
	// "Bash(git push * --force)".
	WildcardGlob
)

func (w Wildcard) String() string {
	switch w {
	case WildcardNone:
		return "exact"
	case WildcardAny:
		return "any"
	case WildcardPrefix:
		return "prefix"
	case WildcardSuffix:
		return "suffix"
	case WildcardContains:
		return "contains"
	case WildcardSubtree:
		return "subtree"
	case WildcardGlob:
		return "glob"
	}
	return "unknown"
}

// Pattern is a parsed rule pattern: a category plus an optional scope on the
// action's argument. Scope holds the literal text with wildcards stripped,
// except for WildcardGlob, which keeps its stars.
type Pattern struct {
	Category Category
	Scope    string
	Wildcard Wildcard
	raw      string
}

// ParsePattern parses "Category" or "Category(scope)". The category must be
// one of Categories.
func ParsePattern(s string) (Pattern, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Pattern{}, &PatternError{Pattern: s, Reason: "empty pattern"}
	}

	open := strings.IndexByte(raw, '(')
	if open < 0 {
		if strings.ContainsAny(raw, ")*") {
			return Pattern{}, &PatternError{Pattern: s, Reason: "malformed category"}
		}
		cat := Category(raw)
		if !knownCategory(cat) {
			return Pattern{}, &PatternError{Pattern: s, Reason: "unrecognized category " + raw}
		}
		return Pattern{Category: cat, Wildcard: WildcardAny, raw: raw}, nil
	}

	if !strings.HasSuffix(raw, ")") {
		return Pattern{}, &PatternError{Pattern: s, Reason: "missing closing parenthesis"}
	}
	cat := Category(raw[:open])
	if !knownCategory(cat) {
		return Pattern{}, &PatternError{Pattern: s, Reason: "unrecognized category " + string(cat)}
	}
	scope := raw[open+1 : len(raw)-1]
	if strings.TrimSpace(scope) == "" {
		return Pattern{}, &PatternError{Pattern: s, Reason: "empty scope"}
	}

	p := Pattern{Category: cat, raw: raw}
	p.Scope, p.Wildcard = classifyScope(scope)
	return p, nil
}

// MustParsePattern is ParsePattern for patterns known at compile time.
func MustParsePattern(s string) Pattern {
	p, err := ParsePattern(s)
	if err != nil {
		panic(err)
	}
	return p
}

func classifyScope(scope string) (string, Wildcard) {
	if strings.Trim(scope, "*") == "" {
		return "", WildcardAny
	}
	if strings.HasSuffix(scope, ":*") {
		lit := strings.TrimSuffix(scope, ":*")
		if !strings.Contains(lit, "*") {
			return lit, WildcardPrefix
		}
	}
	if strings.HasSuffix(scope, "/**") {
		lit := strings.TrimSuffix(scope, "/**")
		if !strings.Contains(lit, "*") {
			return lit, WildcardSubtree
		}
	}

	lead := strings.HasPrefix(scope, "*")
	trail := strings.HasSuffix(scope, "*")
	inner := strings.Trim(scope, "*")
	if strings.Contains(inner, "*") {
		return scope, WildcardGlob
	}
	switch {
	case lead && trail:
		return inner, WildcardContains
	case lead:
		return inner, WildcardSuffix
	case trail:
		return inner, WildcardPrefix
	}
	return scope, WildcardNone
}

// String returns the pattern as it was written.
func (p Pattern) String() string {
	if p.raw != "" {
		return p.raw
	}
	switch p.Wildcard {
	case WildcardAny:
		return string(p.Category)
	case WildcardPrefix:
		return string(p.Category) + "(" + p.Scope + "*)"
	case WildcardSuffix:
		return string(p.Category) + "(*" + p.Scope + ")"
	case WildcardContains:
		return string(p.Category) + "(*" + p.Scope + "*)"
	case WildcardSubtree:
		return string(p.Category) + "(" + p.Scope + "/**)"
	}
	return string(p.Category) + "(" + p.Scope + ")"
}

// Specificity orders patterns that match the same action: exact scopes beat
// wildcards, longer literals beat shorter ones, a bare category is last.
func (p Pattern) Specificity() int {
	switch p.Wildcard {
	case WildcardAny:
		return 0
	case WildcardNone:
		return 2*len(p.Scope) + 1
	case WildcardGlob:
		return 2 * len(strings.ReplaceAll(p.Scope, "*", ""))
	}
	return 2 * len(p.Scope)
}

// Matches reports whether the pattern covers an action of category cat with
// the given argument.
func (p Pattern) Matches(cat Category, arg string) bool {
	if !covers(p.Category, cat) {
		return false
	}
	return p.matchScope(arg)
}

func (p Pattern) matchScope(arg string) bool {
	switch p.Wildcard {
	case WildcardAny:
		return true
	case WildcardNone:
		return arg == p.Scope
	case WildcardPrefix:
		return strings.HasPrefix(arg, p.Scope)
	case WildcardSuffix:
		return strings.HasSuffix(arg, p.Scope)
	case WildcardContains:
		return strings.Contains(arg, p.Scope)
	case WildcardSubtree:
		return arg == p.Scope || strings.HasPrefix(arg, p.Scope+"/")
	case WildcardGlob:
		return matchStars(p.Scope, arg)
	}
	return false
}

// matchStars matches s against a pattern where every '*' stands for any run
// of characters, slashes included.
func matchStars(pattern, s string) bool {
	pieces := strings.Split(pattern, "*")
	if !strings.HasPrefix(s, pieces[0]) {
		return false
	}
	s = s[len(pieces[0]):]
	last := pieces[len(pieces)-1]
	middle := pieces[1 : len(pieces)-1]
	for _, piece := range middle {
		idx := strings.Index(s, piece)
		if idx < 0 {
			return false
		}
		s = s[idx+len(piece):]
	}
	return strings.HasSuffix(s, last)
}
