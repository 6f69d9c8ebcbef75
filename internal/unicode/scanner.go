package unicode

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Finding is one suspicious code point in an action argument.
type Finding struct {
	Category    string // "zero-width", "bidi-override", "tag-char", "control-char", "homoglyph", "invalid-utf8"
	Description string
	Position    int    // byte offset in the input
	Codepoint   string // e.g. "U+200B"
}

type ScanResult struct {
	Clean    bool
	Findings []Finding
}

// Scan looks for characters that make displayed text differ from the text
// a rule is matched against: invisible characters, direction overrides and
// Latin look-alikes that would let "git push --fоrce" slip past a deny rule.
func Scan(input string) ScanResult {
	result := ScanResult{Clean: true}

	for i := 0; i < len(input); {
		r, size := utf8.DecodeRuneInString(input[i:])

		if r == utf8.RuneError && size == 1 {
			result.add(Finding{
				Category:    "invalid-utf8",
				Description: "Invalid UTF-8 byte sequence",
				Position:    i,
				Codepoint:   fmt.Sprintf("0x%02X", input[i]),
			})
			i++
			continue
		}

		if cat, desc := classifyRune(r); cat != "" {
			result.add(Finding{
				Category:    cat,
				Description: desc,
				Position:    i,
				Codepoint:   fmt.Sprintf("U+%04X", r),
			})
		}
		i += size
	}

	return result
}

func (r *ScanResult) add(f Finding) {
	r.Clean = false
	r.Findings = append(r.Findings, f)
}

func classifyRune(r rune) (string, string) {
	cp := fmt.Sprintf("U+%04X", r)

	switch {
	case isZeroWidth(r):
		return "zero-width", fmt.Sprintf("Zero-width character %s can hide content from display", cp)
	case isBidiOverride(r):
		return "bidi-override", fmt.Sprintf("Bidirectional override %s can make displayed text differ from executed text", cp)
	case r >= 0xE0001 && r <= 0xE007F:
		return "tag-char", fmt.Sprintf("Unicode tag character %s can smuggle hidden instructions", cp)
	case isUnsafeControl(r):
		return "control-char", fmt.Sprintf("Control character %s should not appear in commands", cp)
	}

	if latin, ok := homoglyphs[r]; ok && (unicode.Is(unicode.Cyrillic, r) || unicode.Is(unicode.Greek, r)) {
		return "homoglyph", fmt.Sprintf("%s looks like Latin '%c' and defeats rule matching", cp, latin)
	}
	return "", ""
}

func isZeroWidth(r rune) bool {
	switch r {
	case '\u200B', '\u200C', '\u200D', '\uFEFF', '\u2060', '\u180E', '\u200E', '\u200F':
		return true
	}
	return false
}

func isBidiOverride(r rune) bool {
	return (r >= '\u202A' && r <= '\u202E') || (r >= '\u2066' && r <= '\u2069')
}

func isUnsafeControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return r <= 0x1F || r == 0x7F || (r >= 0x80 && r <= 0x9F)
}

// Cyrillic and Greek letters commonly substituted for Latin ones.
var homoglyphs = map[rune]rune{
	'а': 'a', 'А': 'A', 'В': 'B', 'с': 'c', 'С': 'C', 'е': 'e', 'Е': 'E',
	'Н': 'H', 'і': 'i', 'І': 'I', 'К': 'K', 'М': 'M', 'о': 'o', 'О': 'O',
	'р': 'p', 'Р': 'P', 'Т': 'T', 'х': 'x', 'Х': 'X', 'у': 'y', 'У': 'Y',
	'Α': 'A', 'Β': 'B', 'Ε': 'E', 'Η': 'H', 'Ι': 'I', 'Κ': 'K', 'Μ': 'M',
	'Ν': 'N', 'Ο': 'O', 'ο': 'o', 'Ρ': 'P', 'Τ': 'T', 'Χ': 'X', 'Υ': 'Y', 'Ζ': 'Z',
}
