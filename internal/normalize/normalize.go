package normalize

import (
	"net/url"
	"path/filepath"
	"strings"
)

// Command collapses runs of whitespace so rule prefixes such as
// "git push --force" are not dodged with extra spaces or tabs. Newlines are
// kept: they separate commands.
func Command(cmd string) string {
	lines := strings.Split(strings.TrimSpace(cmd), "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.Join(lines, "\n")
}

// PathCandidates returns the spellings of a file argument that rule scopes
// may be written against: as given, absolute, relative to the project
// ("src/app.go" and "./src/app.go"), and home-relative ("~/.ssh/id_rsa").
func PathCandidates(path, projectDir, homeDir string) []string {
	path = strings.TrimSpace(path)
	if path == "" {
		return []string{""}
	}

	candidates := []string{path}

	abs := expandPath(path, projectDir, homeDir)
	candidates = append(candidates, abs)

	if projectDir != "" {
		root := filepath.Clean(projectDir)
		if rel, err := filepath.Rel(root, abs); err == nil && rel != ".." && !strings.HasPrefix(rel, "../") {
			rel = filepath.ToSlash(rel)
			candidates = append(candidates, rel, "./"+rel)
		}
	}

	if homeDir != "" {
		home := filepath.Clean(homeDir)
		if strings.HasPrefix(abs, home+"/") {
			candidates = append(candidates, "~/"+strings.TrimPrefix(abs, home+"/"))
		}
	}

	return uniqueStrings(candidates)
}

// FetchCandidates returns the URL itself plus the "domain:host" form used by
// WebFetch rules.
func FetchCandidates(rawURL string) []string {
	candidates := []string{rawURL}
	if u, err := url.Parse(strings.TrimSpace(rawURL)); err == nil && u.Host != "" {
		candidates = append(candidates, "domain:"+u.Hostname())
	}
	return candidates
}

func expandPath(path, cwd, homeDir string) string {
	if path == "~" && homeDir != "" {
		return filepath.Clean(homeDir)
	}
	if strings.HasPrefix(path, "~/") && homeDir != "" {
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) && cwd != "" {
		path = filepath.Join(cwd, path)
	}

	return filepath.Clean(path)
}

func uniqueStrings(input []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(input))
	for _, s := range input {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	return result
}
