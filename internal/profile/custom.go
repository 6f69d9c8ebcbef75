package profile

import (
	"slices"
	"sort"
	"strings"
	"unicode"

	"github.com/gzhole/permguard/internal/policy"
)

// PhraseMatch records which vocabulary phrase produced which rules.
type PhraseMatch struct {
	Clause string
	Phrase string
	Rules  []string
}

// Proposal is a custom allow set awaiting confirmation. Nothing is written
// until it is passed to CommitCustom.
type Proposal struct {
	Description string
	Rules       []string
	Matches     []PhraseMatch
	// Unmapped lists clauses that named nothing in the vocabulary, or that
	// asked for a restriction an allow rule cannot express.
	Unmapped []string
}

// ProposeCustom maps a free-form description onto the phrase vocabulary.
// It never writes. Text with no recognizable phrase fails with
// UnmappableIntentError.
func (e *Engine) ProposeCustom(projectDir, description string) (*Proposal, error) {
	if _, err := e.load(projectDir); err != nil {
		return nil, err
	}

	p := e.catalog.Translate(description)
	e.log.Debug("custom proposal", "rules", len(p.Rules), "unmapped", len(p.Unmapped))
	if len(p.Rules) == 0 {
		return nil, &policy.UnmappableIntentError{Description: description, Unmapped: p.Unmapped}
	}
	return p, nil
}

// CommitCustom writes a proposal's rules as the new allow set. Like Apply,
// it replaces rather than merges.
func (e *Engine) CommitCustom(projectDir string, p *Proposal) (*Confirmation, error) {
	if p == nil || len(p.Rules) == 0 {
		desc := ""
		if p != nil {
			desc = p.Description
		}
		return nil, &policy.UnmappableIntentError{Description: desc}
	}
	if err := policy.ValidatePatterns(p.Rules); err != nil {
		return nil, err
	}
	return e.replaceAllow(projectDir, CustomProfile, p.Description, p.Rules)
}

// Translate splits description into clauses and looks each one up in the
// phrase vocabulary. It is deterministic and only ever emits rules listed
// in the catalog.
func (c *Catalog) Translate(description string) *Proposal {
	p := &Proposal{Description: description, Rules: []string{}}
	vocab := c.vocabulary()
	filler := wordSet(c.Filler)
	negations := tokenizeAll(c.Negations)

	for _, clause := range splitClauses(description) {
		text := strings.Join(clause, " ")
		if containsAny(clause, negations) {
			p.Unmapped = append(p.Unmapped, text)
			continue
		}

		matched := false
		var leftover []string
		flush := func() {
			if rest := trimFiller(leftover, filler); len(rest) > 0 {
				p.Unmapped = append(p.Unmapped, strings.Join(rest, " "))
			}
			leftover = nil
		}
		for i := 0; i < len(clause); {
			entry, n := vocab.longestAt(clause, i)
			if n == 0 {
				leftover = append(leftover, clause[i])
				i++
				continue
			}
			flush()
			matched = true
			p.Matches = append(p.Matches, PhraseMatch{Clause: text, Phrase: entry.phrase, Rules: entry.rules})
			for _, r := range entry.rules {
				if !slices.Contains(p.Rules, r) {
					p.Rules = append(p.Rules, r)
				}
			}
			i += n
		}

		// Unrecognized words next to a phrase are reported as well, so
		// "push commits" yields the commit rule plus "push".
		if matched {
			flush()
		} else if !onlyFiller(clause, filler) {
			p.Unmapped = append(p.Unmapped, text)
		}
	}
	return p
}

type vocabEntry struct {
	phrase string
	words  []string
	rules  []string
}

// vocabulary is sorted longest phrase first so "create branches" wins over
// "create" at the same position.
type vocabulary []vocabEntry

func (c *Catalog) vocabulary() vocabulary {
	var v vocabulary
	for _, ph := range c.Phrases {
		for _, say := range ph.Say {
			words := tokenize(say)
			if len(words) == 0 {
				continue
			}
			v = append(v, vocabEntry{phrase: strings.Join(words, " "), words: words, rules: ph.Rules})
		}
	}
	sort.SliceStable(v, func(i, j int) bool { return len(v[i].words) > len(v[j].words) })
	return v
}

func (v vocabulary) longestAt(words []string, i int) (vocabEntry, int) {
	for _, e := range v {
		if hasPrefixWords(words[i:], e.words) {
			return e, len(e.words)
		}
	}
	return vocabEntry{}, 0
}

var conjunctions = map[string]bool{
	"and": true, "but": true, "plus": true, "then": true, "or": true,
}

// splitClauses breaks text at punctuation and at conjunctions, returning
// each clause as lower-case words.
func splitClauses(text string) [][]string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return strings.ContainsRune(",;.!?\n&", r)
	})

	var clauses [][]string
	for _, part := range parts {
		var cur []string
		for _, w := range tokenize(part) {
			if conjunctions[w] {
				if len(cur) > 0 {
					clauses = append(clauses, cur)
				}
				cur = nil
				continue
			}
			cur = append(cur, w)
		}
		if len(cur) > 0 {
			clauses = append(clauses, cur)
		}
	}
	return clauses
}

// tokenize lower-cases s and splits it into words. Apostrophes are dropped
// so "don't" reads as "dont".
func tokenize(s string) []string {
	s = strings.ToLower(strings.ReplaceAll(s, "'", ""))
	s = strings.ReplaceAll(s, "\u2019", "")
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func tokenizeAll(phrases []string) [][]string {
	out := make([][]string, 0, len(phrases))
	for _, p := range phrases {
		if words := tokenize(p); len(words) > 0 {
			out = append(out, words)
		}
	}
	return out
}

func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		for _, t := range tokenize(w) {
			set[t] = true
		}
	}
	return set
}

func containsAny(words []string, phrases [][]string) bool {
	for i := range words {
		for _, p := range phrases {
			if hasPrefixWords(words[i:], p) {
				return true
			}
		}
	}
	return false
}

func hasPrefixWords(words, prefix []string) bool {
	if len(prefix) > len(words) {
		return false
	}
	for i, w := range prefix {
		if words[i] != w {
			return false
		}
	}
	return true
}

// trimFiller drops filler words from both ends of words.
func trimFiller(words []string, filler map[string]bool) []string {
	for len(words) > 0 && filler[words[0]] {
		words = words[1:]
	}
	for len(words) > 0 && filler[words[len(words)-1]] {
		words = words[:len(words)-1]
	}
	return words
}

func onlyFiller(words []string, filler map[string]bool) bool {
	for _, w := range words {
		if !filler[w] {
			return false
		}
	}
	return true
}
