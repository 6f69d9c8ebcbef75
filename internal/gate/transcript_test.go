package gate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTranscript(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLastAssistantText(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"user","message":{"role":"user","content":"push it"}}`,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"first"}]}}`,
		`not json at all`,
		``,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"[permission_explanation]"},{"type":"text","text":"Pushing main."}]}}`,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","name":"Bash","input":{"command":"git push"}}]}}`,
	)

	got, err := LastAssistantText(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "[permission_explanation]\nPushing main." {
		t.Errorf("unexpected text %q", got)
	}
}

func TestLastAssistantText_StringContent(t *testing.T) {
	path := writeTranscript(t,
		`{"message":{"role":"assistant","content":[{"type":"text","text":"older"}]}}`,
		`{"message":{"role":"assistant","content":"plain string"}}`,
	)

	got, err := LastAssistantText(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != "plain string" {
		t.Errorf("expected string content, got %q", got)
	}
}

func TestLastAssistantText_NoAssistant(t *testing.T) {
	path := writeTranscript(t, `{"message":{"role":"user","content":"hi"}}`)

	got, err := LastAssistantText(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}

func TestLastAssistantText_Missing(t *testing.T) {
	if _, err := LastAssistantText(filepath.Join(t.TempDir(), "missing.jsonl")); err == nil {
		t.Error("expected error for missing transcript")
	}
}
