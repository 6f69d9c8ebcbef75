package profile

import (
	"io"
	"log/slog"
	"slices"

	"github.com/gzhole/permguard/internal/policy"
	"github.com/gzhole/permguard/internal/store"
)

// Store is the policy storage the engine reads and writes. The project
// policy is only ever read.
type Store interface {
	LoadProject() (*store.Project, error)
	LoadUser() (*store.User, error)
	SaveUser(u *store.User) error
}

// Opener returns the store for a project directory.
type Opener func(projectDir string) Store

// FileOpener opens the on-disk store under projectDir/.claude.
func FileOpener(projectDir string) Store {
	return store.Open(projectDir)
}

// Engine shows and applies profiles. Each call reads both policies afresh;
// the engine holds no policy state between calls.
type Engine struct {
	catalog *Catalog
	open    Opener
	log     *slog.Logger
}

func NewEngine(catalog *Catalog, open Opener, log *slog.Logger) *Engine {
	if catalog == nil {
		catalog = Default()
	}
	if open == nil {
		open = FileOpener
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{catalog: catalog, open: open, log: log}
}

func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Section is one decision tier of a report.
type Section struct {
	Decision     policy.Decision
	Rules        []string
	Descriptions []string
	Categories   []CategoryGroup
}

// Report is the resolved policy of a project as shown to the user.
type Report struct {
	ProjectPath string
	UserPath    string
	Deny        Section
	Ask         Section
	Allow       Section
	// Profile is the catalog profile the allow set equals, or CustomProfile.
	Profile     string
	Model       string
	OutputStyle string

	// Unrecognized lists user allow entries that are not valid rules. They
	// approve nothing and are dropped by the next Apply.
	Unrecognized []string
}

// Sections returns the tiers in evaluation order.
func (r *Report) Sections() []Section {
	return []Section{r.Deny, r.Ask, r.Allow}
}

// Confirmation describes the result of replacing the user allow set.
type Confirmation struct {
	Profile     string
	Description string
	Path        string
	Previous    []string
	Allow       []string
	Added       []string
	Removed     []string
	// Changed is false when the allow set was already in place; nothing is
	// written in that case.
	Changed bool
}

// loaded is what a Reading step produces.
type loaded struct {
	store   Store
	project *store.Project
	user    *store.User
	policy  *policy.Policy

	// unusable holds allow entries left out of policy.
	unusable []string
}

func (e *Engine) load(projectDir string) (*loaded, error) {
	e.log.Debug("reading policies", "project", projectDir)
	st := e.open(projectDir)

	project, err := st.LoadProject()
	if err != nil {
		e.log.Debug("project policy unreadable", "error", err)
		return nil, err
	}
	user, err := st.LoadUser()
	if err != nil {
		e.log.Debug("user policy unreadable", "error", err)
		return nil, err
	}

	// Ignoring an allow entry can only make the policy stricter.
	allow, unusable := policy.UsablePatterns(user.Allow())
	if len(unusable) > 0 {
		e.log.Warn("ignoring unrecognized allow rules", "path", user.Path, "rules", unusable)
	}

	e.log.Debug("resolving policy", "deny", len(project.Deny), "ask", len(project.Ask), "allow", len(allow))
	p, err := policy.New(project.Deny, project.Ask, allow)
	if err != nil {
		return nil, &policy.PolicyReadError{Path: project.Path, Err: err}
	}
	return &loaded{store: st, project: project, user: user, policy: p, unusable: unusable}, nil
}

// Show reads both policies and reports them grouped by decision and by
// category, with plain-language descriptions.
func (e *Engine) Show(projectDir string) (*Report, error) {
	l, err := e.load(projectDir)
	if err != nil {
		return nil, err
	}

	allow := l.user.Allow()
	usable, _ := policy.UsablePatterns(allow)
	r := &Report{
		ProjectPath: l.project.Path,
		UserPath:    l.user.Path,
		Deny:        e.section(policy.DecisionDeny, l.project.Deny),
		Ask:         e.section(policy.DecisionAsk, l.project.Ask),
		Allow:       e.section(policy.DecisionAllow, usable),
		Profile:     e.catalog.Match(allow),
		Model:       l.user.StringValue("model"),
		OutputStyle: l.user.StringValue("outputStyle"),

		Unrecognized: l.unusable,
	}
	e.log.Debug("report ready", "profile", r.Profile)
	return r, nil
}

func (e *Engine) section(d policy.Decision, rules []string) Section {
	return Section{
		Decision:     d,
		Rules:        rules,
		Descriptions: e.catalog.Describe(rules, d),
		Categories:   GroupByCategory(rules),
	}
}

// Resolver returns the effective decision function for projectDir.
func (e *Engine) Resolver(projectDir string) (*policy.Resolver, error) {
	l, err := e.load(projectDir)
	if err != nil {
		return nil, err
	}
	return policy.NewResolver(l.policy, projectDir), nil
}

// Apply replaces the user's allow set with the named profile's. Every other
// key of the user policy is kept. Re-applying the active profile writes
// nothing.
func (e *Engine) Apply(projectDir, profileName string) (*Confirmation, error) {
	p, err := e.catalog.Lookup(profileName)
	if err != nil {
		return nil, err
	}
	return e.replaceAllow(projectDir, p.Name, p.Description, p.Allow)
}

func (e *Engine) replaceAllow(projectDir, name, description string, allow []string) (*Confirmation, error) {
	l, err := e.load(projectDir)
	if err != nil {
		return nil, err
	}
	if _, err := policy.New(l.project.Deny, l.project.Ask, allow); err != nil {
		return nil, err
	}

	current := l.user.Allow()
	c := &Confirmation{
		Profile:     name,
		Description: description,
		Path:        l.user.Path,
		Previous:    current,
		Allow:       slices.Clone(allow),
		Added:       difference(allow, current),
		Removed:     difference(current, allow),
		Changed:     !l.user.Exists() || !slices.Equal(current, allow),
	}
	if !c.Changed {
		e.log.Debug("allow set unchanged", "profile", name)
		return c, nil
	}

	e.log.Debug("writing user policy", "profile", name, "path", l.user.Path,
		"added", len(c.Added), "removed", len(c.Removed))
	l.user.SetAllow(allow)
	if err := l.store.SaveUser(l.user); err != nil {
		e.log.Debug("write failed", "error", err)
		return nil, err
	}
	return c, nil
}

// difference returns the items of a not present in b, in a's order.
func difference(a, b []string) []string {
	out := []string{}
	for _, s := range a {
		if !slices.Contains(b, s) {
			out = append(out, s)
		}
	}
	return out
}
