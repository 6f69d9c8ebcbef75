// Package profile holds the profile catalog and the engine that shows and
// applies permission profiles against a project's policy store.
package profile

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gzhole/permguard/internal/policy"
)

//go:embed profiles.yaml
var catalogYAML []byte

// CustomProfile names an allow set that did not come from the catalog.
const CustomProfile = "custom"

type Profile struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Detail      string   `yaml:"detail"`
	Allow       []string `yaml:"allow"`
}

// Translation maps rules containing Match to a plain-language line.
type Translation struct {
	Match string `yaml:"match"`
	Text  string `yaml:"text"`
}

type Translations struct {
	Deny  []Translation `yaml:"deny"`
	Ask   []Translation `yaml:"ask"`
	Allow []Translation `yaml:"allow"`
}

// Phrase is one entry of the custom-rule vocabulary.
type Phrase struct {
	Say   []string `yaml:"say"`
	Rules []string `yaml:"rules"`
}

type Catalog struct {
	Version      string       `yaml:"version"`
	Profiles     []Profile    `yaml:"profiles"`
	Translations Translations `yaml:"translations"`
	Phrases      []Phrase     `yaml:"phrases"`
	Filler       []string     `yaml:"filler"`
	Negations    []string     `yaml:"negations"`
}

var defaultCatalog = mustParse(catalogYAML)

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	return defaultCatalog
}

func mustParse(data []byte) *Catalog {
	c, err := Parse(data)
	if err != nil {
		panic(fmt.Sprintf("embedded profile catalog: %v", err))
	}
	return c
}

// Parse decodes and validates a catalog document. Every pattern a profile
// or phrase would write must be valid rule syntax.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if c.Version == "" {
		return nil, fmt.Errorf("catalog has no version")
	}
	if len(c.Profiles) == 0 {
		return nil, fmt.Errorf("catalog has no profiles")
	}

	seen := make(map[string]bool, len(c.Profiles))
	for i := range c.Profiles {
		p := &c.Profiles[i]
		p.Name = strings.ToLower(strings.TrimSpace(p.Name))
		if p.Name == "" || p.Name == CustomProfile {
			return nil, fmt.Errorf("profile %d: invalid name %q", i+1, p.Name)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("duplicate profile %q", p.Name)
		}
		seen[p.Name] = true
		if p.Allow == nil {
			p.Allow = []string{}
		}
		if err := policy.ValidatePatterns(p.Allow); err != nil {
			return nil, fmt.Errorf("profile %s: %w", p.Name, err)
		}
	}

	for i, ph := range c.Phrases {
		if len(ph.Say) == 0 || len(ph.Rules) == 0 {
			return nil, fmt.Errorf("phrase %d: needs both say and rules", i+1)
		}
		if err := policy.ValidatePatterns(ph.Rules); err != nil {
			return nil, fmt.Errorf("phrase %q: %w", ph.Say[0], err)
		}
	}
	return &c, nil
}

// Lookup finds a profile by name, ignoring case and surrounding space.
func (c *Catalog) Lookup(name string) (Profile, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, p := range c.Profiles {
		if p.Name == key {
			return p, nil
		}
	}
	return Profile{}, &policy.UnknownProfileError{Name: name, Known: c.Names()}
}

// Names returns the profile names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Profiles))
	for i, p := range c.Profiles {
		names[i] = p.Name
	}
	return names
}

// Match returns the name of the profile whose allow set equals allow,
// ignoring order, or CustomProfile when none does.
func (c *Catalog) Match(allow []string) string {
	for _, p := range c.Profiles {
		if sameSet(p.Allow, allow) {
			return p.Name
		}
	}
	return CustomProfile
}

func sameSet(a, b []string) bool {
	as := make(map[string]bool, len(a))
	for _, s := range a {
		as[s] = true
	}
	bs := make(map[string]bool, len(b))
	for _, s := range b {
		if !as[s] {
			return false
		}
		bs[s] = true
	}
	return len(as) == len(bs)
}
