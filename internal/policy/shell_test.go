package policy

import (
	"reflect"
	"testing"
)

func commandsOf(segments []Segment) []string {
	if segments == nil {
		return nil
	}
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		out = append(out, s.Command)
	}
	return out
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		cmd      string
		expected []string
	}{
		{"git status", []string{"git status"}},
		{"git add . && git commit -m 'wip'", []string{"git add .", "git commit -m 'wip'"}},
		{"ls | grep foo", []string{"ls", "grep foo"}},
		{"make build; make test", []string{"make build", "make test"}},
		{"(cd web && npm run build)", []string{"cd web", "npm run build"}},
		{"{ ls; pwd; }", []string{"ls", "pwd"}},
		{"FOO=1 npm run dev", []string{"npm run dev"}},
		{"echo $(git push --force)", []string{"echo $(git push --force)", "git push --force"}},
		{"echo `whoami`", []string{"echo $(whoami)", "whoami"}},
		{"diff <(cat a) b", []string{"diff <(cat a) b", "cat a"}},
		{"ls > $(pwd)/out", []string{"ls", "pwd"}},
		{"X=$(git push) ls", []string{"ls", "git push"}},
		{"", nil},
	}

	for _, tt := range tests {
		got := commandsOf(SplitCommand(tt.cmd))
		if !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("SplitCommand(%q): expected %q, got %q", tt.cmd, tt.expected, got)
		}
	}
}

func TestSplitCommand_RawKeepsAssignments(t *testing.T) {
	got := SplitCommand("FOO=1 BAR=two npm run dev")
	if len(got) != 1 {
		t.Fatalf("expected one segment, got %q", got)
	}
	if got[0].Command != "npm run dev" {
		t.Errorf("expected command without assignments, got %q", got[0].Command)
	}
	if got[0].Raw != "FOO=1 BAR=two npm run dev" {
		t.Errorf("expected raw command with assignments, got %q", got[0].Raw)
	}
}

func TestSplitCommand_UnparseableKeptWhole(t *testing.T) {
	cmd := "echo 'unterminated"
	got := SplitCommand(cmd)
	if len(got) != 1 || got[0].Command != cmd || got[0].Raw != cmd {
		t.Errorf("expected unparseable command kept whole, got %q", got)
	}
}

func TestSplitCommand_OtherCompoundsListInnerCommands(t *testing.T) {
	got := commandsOf(SplitCommand("if true; then git push; fi"))
	if len(got) != 3 {
		t.Fatalf("expected if-clause plus two inner commands, got %q", got)
	}
	if got[1] != "true" || got[2] != "git push" {
		t.Errorf("expected inner commands true and git push, got %q", got[1:])
	}
}
