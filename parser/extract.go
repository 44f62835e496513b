package parser

import (
	"regexp"
	"strings"

	"github.com/dgallion1/redline/numbering"
)

var (
	// "Closing Date.  The Closing…" — a short sentence followed by two
	// or more spaces is the drafter's caption convention.
	captionDoubleSpace = regexp.MustCompile(`^([^.]+\.)\s{2,}`)
	captionSentence    = regexp.MustCompile(`^([^.]+\.)`)

	exhibitRe = regexp.MustCompile(`(?i)^EXHIBIT\s+[A-Z0-9]`)

	quotedTermRe = regexp.MustCompile(`"([A-Z][^"]+)"`)
	parenTermRe  = regexp.MustCompile(`\((?:the\s+)?"([A-Z][^"]+)"\)`)
)

// caption extracts a short caption from paragraph text, preferring the
// remainder after a numbering marker.
func (b *Builder) caption(text string, marker *numbering.Marker) string {
	max := b.CaptionMax
	if max <= 0 {
		max = DefaultCaptionMax
	}

	t := text
	if marker != nil && marker.Remainder != "" {
		t = marker.Remainder
	}

	if m := captionDoubleSpace.FindStringSubmatch(t); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := captionSentence.FindStringSubmatch(t); m != nil && len(m[1]) <= max {
		return strings.TrimSpace(m[1])
	}
	if r := []rune(t); len(r) > max {
		return strings.TrimSpace(string(r[:max])) + "..."
	}
	return strings.TrimSpace(t)
}

// definedTerms finds quoted-capitalized tokens and parenthetical
// (the "X") definitions, deduplicated in order of appearance.
func definedTerms(text string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(matches [][]string) {
		for _, m := range matches {
			if term := m[1]; !seen[term] {
				seen[term] = true
				out = append(out, term)
			}
		}
	}
	add(quotedTermRe.FindAllStringSubmatch(text, -1))
	add(parenTermRe.FindAllStringSubmatch(text, -1))
	return out
}
