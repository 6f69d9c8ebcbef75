// Package approval asks the user to confirm a change before it is written.
package approval

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

type Result struct {
	Approved   bool
	UserAction string
}

type Prompt struct {
	Title   string
	Summary string
	Items   []string
	Notes   []string
}

func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Ask shows the prompt on stderr and reads the answer from stdin. Without a
// terminal nothing is approved.
func Ask(p Prompt) Result {
	if !IsInteractive() {
		return Result{
			Approved:   false,
			UserAction: "auto_deny_non_interactive",
		}
	}
	return Confirm(os.Stdin, os.Stderr, p)
}

// Confirm renders p to out and loops until in yields yes or no.
func Confirm(in io.Reader, out io.Writer, p Prompt) Result {
	fmt.Fprintln(out, "")
	fmt.Fprintf(out, "=== %s ===\n", p.Title)
	if p.Summary != "" {
		fmt.Fprintf(out, "%s\n", p.Summary)
	}
	fmt.Fprintln(out, "")

	for _, item := range p.Items {
		fmt.Fprintf(out, "  + %s\n", item)
	}
	if len(p.Notes) > 0 {
		fmt.Fprintln(out, "")
		for _, note := range p.Notes {
			fmt.Fprintf(out, "  ! %s\n", note)
		}
	}
	fmt.Fprintln(out, "")

	reader := bufio.NewReader(in)

	for {
		fmt.Fprint(out, "Save these rules? [y/n]: ")
		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			return Result{
				Approved:   false,
				UserAction: "error_reading_input",
			}
		}

		input = strings.TrimSpace(strings.ToLower(input))

		switch input {
		case "y", "yes":
			return Result{
				Approved:   true,
				UserAction: "approve",
			}
		case "n", "no":
			return Result{
				Approved:   false,
				UserAction: "decline",
			}
		default:
			if err != nil {
				return Result{Approved: false, UserAction: "error_reading_input"}
			}
			fmt.Fprintln(out, "Please answer 'y' to save or 'n' to cancel.")
		}
	}
}
