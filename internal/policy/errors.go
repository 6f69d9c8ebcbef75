package policy

import (
	"fmt"
	"strings"
)

// PolicyReadError means a policy file is missing or malformed. For the
// project policy this is fatal: no deny set may be synthesized in its place.
type PolicyReadError struct {
	Path string
	Err  error
}

func (e *PolicyReadError) Error() string {
	return fmt.Sprintf("cannot read policy %s: %v", e.Path, e.Err)
}

func (e *PolicyReadError) Unwrap() error { return e.Err }

// WriteError means the user policy could not be written. The file on disk
// still holds its last valid content.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("cannot write policy %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

type UnknownProfileError struct {
	Name  string
	Known []string
}

func (e *UnknownProfileError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("unknown profile %q", e.Name)
	}
	return fmt.Sprintf("unknown profile %q (choose one of: %s)", e.Name, strings.Join(e.Known, ", "))
}

// UnmappableIntentError means a custom description contained nothing the
// phrase vocabulary can express as a rule.
type UnmappableIntentError struct {
	Description string
	Unmapped    []string
}

func (e *UnmappableIntentError) Error() string {
	if len(e.Unmapped) == 0 {
		return fmt.Sprintf("no recognizable actions in %q", e.Description)
	}
	return fmt.Sprintf("no recognizable actions in %q (not understood: %s)",
		e.Description, strings.Join(e.Unmapped, "; "))
}

type PatternError struct {
	Pattern string
	Reason  string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid rule pattern %q: %s", e.Pattern, e.Reason)
}
