package numbering

import (
	"regexp"
	"strings"

	"github.com/dgallion1/redline/docmodel"
)

// Signal is one paragraph's raw numbering inputs.
type Signal struct {
	Marker       *Marker // explicit textual marker, nil if absent
	HasList      bool    // paragraph carries list-style numbering
	ListID       string  // numbering-list id, meaningful when HasList
	ListLevel    int     // indent level, meaningful when HasList
	HeadingLevel int     // 1-based heading-style level, 0 if not a heading
	Caption      string
}

// Tracker maintains the current section hierarchy while walking a document's
// paragraphs in order. One Tracker serves exactly one parse call.
type Tracker struct {
	hierarchy []docmodel.SectionNode
	lastLevel int
	resolver  *Resolver
}

func NewTracker() *Tracker {
	return &Tracker{lastLevel: -1, resolver: NewResolver()}
}

// Update advances the hierarchy for a paragraph carrying a numbering signal.
// An explicit textual marker wins over list-style numbering: it reflects
// authorial intent and must survive rebuilds verbatim. A heading with
// neither marker nor list numbering leaves the stack unchanged; the caller
// still indexes it.
func (t *Tracker) Update(sig Signal) {
	var level int
	var label string
	switch {
	case sig.Marker != nil:
		label = sig.Marker.Label
		if sig.HasList {
			level = sig.ListLevel
		} else {
			level = t.inferLevel(sig.Marker.Kind, sig.HeadingLevel)
		}
	case sig.HasList:
		label = t.resolver.Next(sig.ListID, sig.ListLevel)
		level = sig.ListLevel
	default:
		return
	}
	t.push(level, label, sig.Caption)
}

// inferLevel maps a bare textual marker to a hierarchy level. Markers with
// no inherent depth fall back to the heading-style level when present,
// otherwise to one deeper than the previous section.
func (t *Tracker) inferLevel(kind Kind, headingLevel int) int {
	switch kind {
	case KindArticle, KindSection, KindTop:
		return 0
	case KindSub:
		return 1
	case KindSubSub, KindParenUpper, KindParenLower, KindRomanLower, KindRomanUpper:
		return 2
	}
	if headingLevel > 0 {
		return headingLevel - 1
	}
	if t.lastLevel >= 0 {
		return t.lastLevel + 1
	}
	return 0
}

// push truncates the stack to ancestors shallower than level, clamps the
// level to the remaining depth (no orphan deep levels), and appends. The
// resulting stack always holds levels 0..n with no gaps.
func (t *Tracker) push(level int, label, caption string) {
	keep := 0
	for keep < len(t.hierarchy) && t.hierarchy[keep].Level < level {
		keep++
	}
	t.hierarchy = t.hierarchy[:keep]
	if level > len(t.hierarchy) {
		level = len(t.hierarchy)
	}
	t.hierarchy = append(t.hierarchy, docmodel.SectionNode{Level: level, Label: label, Caption: caption})
	t.lastLevel = level
}

var keywordPrefix = regexp.MustCompile(`(?i)^(article|section)\s+`)

// SectionRef flattens the current hierarchy into a concise reference:
// trailing dots stripped, Article/Section keywords dropped, labels
// concatenated. "7." + "A." + "(ii)" becomes "7A(ii)".
func (t *Tracker) SectionRef() string {
	if len(t.hierarchy) == 0 {
		return ""
	}
	var b strings.Builder
	for _, n := range t.hierarchy {
		b.WriteString(refPart(n.Label))
	}
	return b.String()
}

func refPart(label string) string {
	label = keywordPrefix.ReplaceAllString(label, "")
	return strings.TrimRight(label, ".")
}

// Hierarchy returns a defensive copy of the current ancestor chain.
func (t *Tracker) Hierarchy() []docmodel.SectionNode {
	if len(t.hierarchy) == 0 {
		return nil
	}
	out := make([]docmodel.SectionNode, len(t.hierarchy))
	copy(out, t.hierarchy)
	return out
}
