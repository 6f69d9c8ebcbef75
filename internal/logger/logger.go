package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gzhole/permguard/internal/redact"
)

// defaultMaxLogBytes is the size at which the audit log is rotated to .1.
const defaultMaxLogBytes = 10 << 20

type Kind string

const (
	KindHook   Kind = "hook"
	KindApply  Kind = "apply"
	KindCustom Kind = "custom"
	KindGate   Kind = "gate"
	KindSetup  Kind = "setup"
)

type AuditEvent struct {
	ID         string   `json:"id"`
	Timestamp  string   `json:"timestamp"`
	Kind       Kind     `json:"kind"`
	ProjectDir string   `json:"project_dir,omitempty"`
	Tool       string   `json:"tool,omitempty"`
	Action     string   `json:"action,omitempty"`
	Decision   string   `json:"decision,omitempty"`
	Rule       string   `json:"rule,omitempty"`
	Verdict    string   `json:"verdict,omitempty"`
	Profile    string   `json:"profile,omitempty"`
	Added      []string `json:"added,omitempty"`
	Removed    []string `json:"removed,omitempty"`
	Reasons    []string `json:"reasons,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Blocked reports whether the event stopped an action.
func (e AuditEvent) Blocked() bool {
	return e.Decision == "deny" || e.Verdict == "block"
}

type AuditLogger struct {
	file *os.File
	mu   sync.Mutex
}

// New opens the audit log for appending, rotating it first when it has
// grown past defaultMaxLogBytes.
func New(path string) (*AuditLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	if info, err := os.Stat(path); err == nil && info.Size() >= defaultMaxLogBytes {
		if err := os.Rename(path, path+".1"); err != nil {
			return nil, err
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	return &AuditLogger{file: file}, nil
}

func (l *AuditLogger) Log(event AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.ID == "" {
		event.ID = ulid.Make().String()
	}
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	// Commands and paths can carry credentials.
	event.Action = redact.Redact(event.Action)
	event.Reasons = redact.RedactAll(event.Reasons)
	if event.Error != "" {
		event.Error = redact.Redact(event.Error)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	data = append(data, '\n')
	_, err = l.file.Write(data)
	return err
}

func (l *AuditLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// ReadEvents returns every event in the log at path. A missing log is empty
// and malformed lines are skipped.
func ReadEvents(path string) ([]AuditEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var events []AuditEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var event AuditEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	return events, scanner.Err()
}
