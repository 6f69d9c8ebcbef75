package normalize

import (
	"testing"
)

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestCommand_CollapsesWhitespace(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"git  push   --force", "git push --force"},
		{"\tgit push\t--force  ", "git push --force"},
		{"ls\n  git   status", "ls\ngit status"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Command(tt.in); got != tt.expected {
			t.Errorf("Command(%q): expected %q, got %q", tt.in, tt.expected, got)
		}
	}
}

func TestPathCandidates_RelativeToProject(t *testing.T) {
	got := PathCandidates("src/main.go", "/work/app", "/home/dev")

	for _, want := range []string{"src/main.go", "/work/app/src/main.go", "./src/main.go"} {
		if !contains(got, want) {
			t.Errorf("expected candidate %q in %v", want, got)
		}
	}
}

func TestPathCandidates_AbsoluteInsideProject(t *testing.T) {
	got := PathCandidates("/work/app/.env", "/work/app", "/home/dev")

	if !contains(got, ".env") {
		t.Errorf("expected project-relative candidate '.env' in %v", got)
	}
}

func TestPathCandidates_TildeExpansion(t *testing.T) {
	got := PathCandidates("~/.ssh/id_rsa", "/work/app", "/home/dev")

	if !contains(got, "/home/dev/.ssh/id_rsa") {
		t.Errorf("expected expanded path in %v", got)
	}
	if !contains(got, "~/.ssh/id_rsa") {
		t.Errorf("expected home-relative form in %v", got)
	}
}

func TestPathCandidates_HomeAbsoluteGetsTildeForm(t *testing.T) {
	got := PathCandidates("/home/dev/.aws/credentials", "/work/app", "/home/dev")

	if !contains(got, "~/.aws/credentials") {
		t.Errorf("expected '~/.aws/credentials' in %v", got)
	}
}

func TestPathCandidates_OutsideProjectHasNoRelativeForm(t *testing.T) {
	got := PathCandidates("../secrets.txt", "/work/app", "/home/dev")

	if !contains(got, "/work/secrets.txt") {
		t.Errorf("expected '/work/secrets.txt' in %v", got)
	}
	for _, c := range got {
		if c == "./../secrets.txt" {
			t.Errorf("unexpected project-relative candidate for path outside project: %v", got)
		}
	}
}

func TestFetchCandidates(t *testing.T) {
	got := FetchCandidates("https://docs.example.com/guide?x=1")
	if len(got) != 2 || got[1] != "domain:docs.example.com" {
		t.Errorf("expected domain candidate, got %v", got)
	}

	got = FetchCandidates("not a url")
	if len(got) != 1 {
		t.Errorf("expected only the raw argument, got %v", got)
	}
}
