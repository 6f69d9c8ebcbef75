package gate

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
)

type transcriptEntry struct {
	Message struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// LastAssistantText returns the text of the most recent assistant message
// in a JSONL session transcript. Entries that are not JSON, not from the
// assistant, or carry no text blocks are skipped. An error means the file
// could not be read at all.
func LastAssistantText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var last string
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadBytes('\n')
		if text, ok := assistantText(line); ok {
			last = text
		}
		if errors.Is(err, io.EOF) {
			return last, nil
		}
		if err != nil {
			return "", err
		}
	}
}

func assistantText(line []byte) (string, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return "", false
	}
	var entry transcriptEntry
	if err := json.Unmarshal(line, &entry); err != nil {
		return "", false
	}
	if entry.Message.Role != "assistant" || len(entry.Message.Content) == 0 {
		return "", false
	}

	var s string
	if err := json.Unmarshal(entry.Message.Content, &s); err == nil {
		return s, true
	}

	var blocks []json.RawMessage
	if err := json.Unmarshal(entry.Message.Content, &blocks); err != nil {
		return "", false
	}
	var parts []string
	for _, raw := range blocks {
		var b contentBlock
		if json.Unmarshal(raw, &b) == nil && b.Type == "text" {
			parts = append(parts, b.Text)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n"), true
}
