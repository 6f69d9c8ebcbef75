// Package store reads and writes the two policy documents of a project:
// the shared project settings (read-only here) and the user's local
// settings, which the profile engine rewrites.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gzhole/permguard/internal/atomicfile"
	"github.com/gzhole/permguard/internal/policy"
)

const (
	SettingsDir       = ".claude"
	ProjectSettings   = "settings.json"
	UserSettings      = "settings.local.json"
	userSettingsPerms = 0644
)

// Project is the project policy: deny rules, plus the optional ask rules
// that the user's allow list cannot override.
type Project struct {
	Path string
	Deny []string
	Ask  []string
}

// User is the user's local settings document. Only permissions.allow is
// interpreted; every other key is carried through writes untouched, in the
// order it was read.
type User struct {
	Path   string
	exists bool
	doc    map[string]any
	order  keyOrder
}

// FileStore is the on-disk store for one project directory.
type FileStore struct {
	ProjectDir string
}

func Open(projectDir string) *FileStore {
	return &FileStore{ProjectDir: projectDir}
}

func (s *FileStore) ProjectPath() string {
	return filepath.Join(s.ProjectDir, SettingsDir, ProjectSettings)
}

func (s *FileStore) UserPath() string {
	return filepath.Join(s.ProjectDir, SettingsDir, UserSettings)
}

// LoadProject reads the project policy. A missing file is an error: the
// deny list is the safety backstop and is never synthesized.
func (s *FileStore) LoadProject() (*Project, error) {
	path := s.ProjectPath()
	doc, _, err := readDocument(path)
	if err != nil {
		return nil, &policy.PolicyReadError{Path: path, Err: err}
	}

	perms, err := permissionsOf(doc)
	if err != nil {
		return nil, &policy.PolicyReadError{Path: path, Err: err}
	}
	if _, ok := perms["deny"]; !ok {
		return nil, &policy.PolicyReadError{Path: path, Err: errors.New("permissions.deny is missing")}
	}

	deny, err := stringList(perms, "deny")
	if err != nil {
		return nil, &policy.PolicyReadError{Path: path, Err: err}
	}
	ask, err := stringList(perms, "ask")
	if err != nil {
		return nil, &policy.PolicyReadError{Path: path, Err: err}
	}
	if err := policy.ValidatePatterns(deny); err != nil {
		return nil, &policy.PolicyReadError{Path: path, Err: err}
	}
	if err := policy.ValidatePatterns(ask); err != nil {
		return nil, &policy.PolicyReadError{Path: path, Err: err}
	}

	return &Project{Path: path, Deny: deny, Ask: ask}, nil
}

// LoadUser reads the user settings. A missing file yields an empty
// document; a malformed one is an error. Allow entries are not parsed here,
// so a document holding rules permguard does not understand can still be
// rewritten.
func (s *FileStore) LoadUser() (*User, error) {
	path := s.UserPath()
	doc, order, err := readDocument(path)
	if errors.Is(err, os.ErrNotExist) {
		return &User{Path: path, doc: map[string]any{}}, nil
	}
	if err != nil {
		return nil, &policy.PolicyReadError{Path: path, Err: err}
	}

	u := &User{Path: path, exists: true, doc: doc, order: order}
	perms, err := permissionsOf(doc)
	if err != nil {
		return nil, &policy.PolicyReadError{Path: path, Err: err}
	}
	if _, err := stringList(perms, "allow"); err != nil {
		return nil, &policy.PolicyReadError{Path: path, Err: err}
	}
	return u, nil
}

// SaveUser writes the user settings atomically, creating the settings
// directory when needed.
func (s *FileStore) SaveUser(u *User) error {
	path := s.UserPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &policy.WriteError{Path: path, Err: err}
	}

	data, err := u.encode()
	if err != nil {
		return &policy.WriteError{Path: path, Err: err}
	}
	if err := atomicfile.WriteFile(path, data, userSettingsPerms); err != nil {
		return &policy.WriteError{Path: path, Err: err}
	}
	u.Path = path
	u.exists = true
	return nil
}

// Exists reports whether the document was read from disk.
func (u *User) Exists() bool {
	return u.exists
}

func (u *User) Allow() []string {
	perms, err := permissionsOf(u.doc)
	if err != nil {
		return nil
	}
	allow, _ := stringList(perms, "allow")
	return allow
}

// SetAllow replaces permissions.allow, leaving sibling keys in permissions
// and the rest of the document alone.
func (u *User) SetAllow(allow []string) {
	if u.doc == nil {
		u.doc = map[string]any{}
	}
	perms, ok := u.doc["permissions"].(map[string]any)
	if !ok {
		perms = map[string]any{}
		u.doc["permissions"] = perms
	}
	list := make([]any, len(allow))
	for i, a := range allow {
		list[i] = a
	}
	perms["allow"] = list
}

// StringValue returns a top-level string such as "model" or "outputStyle".
func (u *User) StringValue(key string) string {
	v, _ := u.doc[key].(string)
	return v
}

// Get returns a top-level value.
func (u *User) Get(key string) (any, bool) {
	v, ok := u.doc[key]
	return v, ok
}

func (u *User) Set(key string, value any) {
	if u.doc == nil {
		u.doc = map[string]any{}
	}
	u.doc[key] = value
}

func (u *User) Delete(key string) {
	delete(u.doc, key)
}

func (u *User) encode() ([]byte, error) {
	doc := u.doc
	if doc == nil {
		doc = map[string]any{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(arrange(doc, "", u.order)); err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return buf.Bytes(), nil
}

func readDocument(path string) (map[string]any, keyOrder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	doc := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, keyOrder{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("parse JSON: %w", err)
	}
	order, err := scanKeyOrder(data)
	if err != nil {
		return nil, nil, fmt.Errorf("parse JSON: %w", err)
	}
	return doc, order, nil
}

func permissionsOf(doc map[string]any) (map[string]any, error) {
	raw, ok := doc["permissions"]
	if !ok || raw == nil {
		return map[string]any{}, nil
	}
	perms, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.New("permissions must be an object")
	}
	return perms, nil
}

func stringList(perms map[string]any, key string) ([]string, error) {
	raw, ok := perms[key]
	if !ok || raw == nil {
		return []string{}, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("permissions.%s must be a list", key)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("permissions.%s[%d] must be a string", key, i)
		}
		out = append(out, s)
	}
	return out, nil
}
