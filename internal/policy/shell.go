package policy

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Segment is one simple command found in a shell command line.
type Segment struct {
	// Command is the command and its arguments, without leading variable
	// assignments.
	Command string
	// Raw is the command as written, assignments included.
	Raw string
}

// SplitCommand breaks a shell command line into the simple commands it
// runs, so that "git status && git push --force" is judged as two actions.
// Pipelines, lists, subshells and blocks are walked, as are command and
// process substitutions. Any other compound statement is kept whole and its
// inner commands are listed after it. A command the parser rejects comes
// back as a single segment.
func SplitCommand(command string) []Segment {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil
	}

	parser := syntax.NewParser(syntax.KeepComments(false), syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(command), "")
	if err != nil {
		return []Segment{{Command: command, Raw: command}}
	}

	var s splitter
	s.stmts(file.Stmts)
	if len(s.segments) == 0 {
		return []Segment{{Command: command, Raw: command}}
	}
	return s.segments
}

type splitter struct {
	segments []Segment
}

func (s *splitter) stmts(stmts []*syntax.Stmt) {
	for _, st := range stmts {
		s.stmt(st)
	}
}

func (s *splitter) stmt(st *syntax.Stmt) {
	if st == nil || st.Cmd == nil {
		return
	}

	switch cmd := st.Cmd.(type) {
	case *syntax.CallExpr:
		s.call(cmd)
	case *syntax.BinaryCmd:
		s.stmt(cmd.X)
		s.stmt(cmd.Y)
	case *syntax.Subshell:
		s.stmts(cmd.Stmts)
	case *syntax.Block:
		s.stmts(cmd.Stmts)
	default:
		whole := printNode(st)
		s.segments = append(s.segments, Segment{Command: whole, Raw: whole})
		s.nested(cmd)
	}

	for _, redir := range st.Redirs {
		s.nested(redir)
	}
}

func (s *splitter) call(cmd *syntax.CallExpr) {
	words := make([]string, 0, len(cmd.Args))
	for _, w := range cmd.Args {
		words = append(words, printNode(w))
	}
	if len(words) > 0 {
		raw := make([]string, 0, len(cmd.Assigns)+len(words))
		for _, a := range cmd.Assigns {
			raw = append(raw, printNode(a))
		}
		raw = append(raw, words...)
		s.segments = append(s.segments, Segment{
			Command: strings.Join(words, " "),
			Raw:     strings.Join(raw, " "),
		})
	}
	s.nested(cmd)
}

// nested collects the commands run inside node: substitutions such as
// "echo $(git push)" or "diff <(cat a) b", and the statements of compound
// commands like if or while.
func (s *splitter) nested(node syntax.Node) {
	syntax.Walk(node, func(n syntax.Node) bool {
		switch n := n.(type) {
		case *syntax.CmdSubst:
			s.stmts(n.Stmts)
			return false
		case *syntax.ProcSubst:
			s.stmts(n.Stmts)
			return false
		case *syntax.Stmt:
			s.stmt(n)
			return false
		}
		return true
	})
}

func printNode(node syntax.Node) string {
	var sb strings.Builder
	if err := syntax.NewPrinter().Print(&sb, node); err != nil {
		return ""
	}
	return strings.TrimSpace(sb.String())
}
