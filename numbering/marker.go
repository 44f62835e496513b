// Package numbering reconstructs a contract's section numbering from three
// independent signals: explicit textual markers ("Section 5.3"), list-style
// auto-numbering, and heading styles. All state lives in per-call structs so
// concurrent documents never share counters.
package numbering

import (
	"regexp"
	"strings"
)

// Kind classifies a textual numbering marker.
type Kind string

const (
	KindArticle     Kind = "article"
	KindSection     Kind = "section"
	KindSubSub      Kind = "subsub"
	KindSub         Kind = "sub"
	KindTop         Kind = "top"
	KindLetterUpper Kind = "letter_upper"
	KindLetterLower Kind = "letter_lower"
	KindParenUpper  Kind = "paren_upper"
	KindParenLower  Kind = "paren_lower"
	KindParenNum    Kind = "paren_num"
	KindRomanLower  Kind = "roman_lower"
	KindRomanUpper  Kind = "roman_upper"
)

// Marker is a matched textual numbering marker plus the rest of the line,
// which caption extraction runs against.
type Marker struct {
	Label     string
	Remainder string
	Kind      Kind
}

type markerPattern struct {
	re         *regexp.Regexp
	kind       Kind
	wrapParens bool
}

// The cascade order is a semantic invariant: explicit Article/Section
// keywords first, dotted-decimal before bare markers, parenthesized letters
// before parenthesized romans. Only the keyword patterns are
// case-insensitive.
var cascade = []markerPattern{
	{regexp.MustCompile(`(?i)^(ARTICLE\s+[IVXLCDM]+)[.\s:]+(.*)$`), KindArticle, false},
	{regexp.MustCompile(`(?i)^(ARTICLE\s+\d+)[.\s:]+(.*)$`), KindArticle, false},
	{regexp.MustCompile(`(?i)^(SECTION\s+\d+\.[\d.A-Za-z()]+)[.\s:]+(.*)$`), KindSection, false},
	{regexp.MustCompile(`(?i)^(SECTION\s+\d+)[.\s:]+(.*)$`), KindSection, false},
	{regexp.MustCompile(`^(\d+\.\d+\.\d+\.?)\s*(.*)$`), KindSubSub, false},
	{regexp.MustCompile(`^(\d+\.\d+\.?)\s*(.*)$`), KindSub, false},
	{regexp.MustCompile(`^(\d+\.)\s+(.*)$`), KindTop, false},
	{regexp.MustCompile(`^([A-Z]\.)\s+(.*)$`), KindLetterUpper, false},
	{regexp.MustCompile(`^([a-z]\.)\s+(.*)$`), KindLetterLower, false},
	{regexp.MustCompile(`^\(([A-Z])\)\s*(.*)$`), KindParenUpper, true},
	{regexp.MustCompile(`^\(([a-z])\)\s*(.*)$`), KindParenLower, true},
	{regexp.MustCompile(`^\((\d+)\)\s*(.*)$`), KindParenNum, true},
	{regexp.MustCompile(`^\(([ivxlcdm]+)\)\s*(.*)$`), KindRomanLower, true},
	{regexp.MustCompile(`^\(([IVXLCDM]+)\)\s*(.*)$`), KindRomanUpper, true},
}

// Match runs the pattern cascade against paragraph text. The first pattern
// that matches wins; nil means no textual marker is present.
func Match(text string) *Marker {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	for _, p := range cascade {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		label := strings.TrimSpace(m[1])
		if p.wrapParens && !strings.HasPrefix(label, "(") {
			label = "(" + label + ")"
		}
		return &Marker{
			Label:     label,
			Remainder: strings.TrimSpace(m[2]),
			Kind:      p.kind,
		}
	}
	return nil
}

// IsSectionKind reports whether a marker kind should appear in the
// top-level section index.
func IsSectionKind(k Kind) bool {
	return k == KindArticle || k == KindSection || k == KindTop
}
