package revise

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgallion1/redline/docmodel"
)

// manifestPreview is the longest original/revised excerpt in the manifest.
const manifestPreview = 200

// ManifestInfo is pass-through context supplied by the caller; the core
// derives none of it.
type ManifestInfo struct {
	Representation string
	DealContext    string
}

// Manifest renders the markdown change manifest: one entry per accepted
// revision with its paragraph id, truncated original and revised text, and
// the caller-supplied rationale.
func Manifest(revisions []docmodel.Revision, info ManifestInfo, now time.Time) string {
	accepted := make([]docmodel.Revision, 0, len(revisions))
	for _, r := range revisions {
		if r.Accepted {
			accepted = append(accepted, r)
		}
	}
	sort.Slice(accepted, func(i, j int) bool {
		return accepted[i].ParagraphID < accepted[j].ParagraphID
	})

	var b strings.Builder
	b.WriteString("# Redline Manifest\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n\n", now.Format("2006-01-02 15:04:05"))
	if info.Representation != "" {
		fmt.Fprintf(&b, "**Representation:** %s\n\n", info.Representation)
	}
	if info.DealContext != "" {
		fmt.Fprintf(&b, "**Deal Context:** %s\n\n", info.DealContext)
	}
	b.WriteString("---\n\n## Summary\n\n")
	fmt.Fprintf(&b, "Total revisions: %d\n\n", len(accepted))
	b.WriteString("---\n\n## Changes\n\n")

	for _, r := range accepted {
		fmt.Fprintf(&b, "### Paragraph %d\n\n", r.ParagraphID)
		fmt.Fprintf(&b, "**Original:**\n> %s\n\n", preview(r.Original))
		fmt.Fprintf(&b, "**Revised:**\n> %s\n\n", preview(r.Revised))
		rationale := r.Rationale
		if rationale == "" {
			rationale = "N/A"
		}
		fmt.Fprintf(&b, "**Rationale:** %s\n\n---\n\n", rationale)
	}
	return b.String()
}

func preview(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= manifestPreview {
		return s
	}
	return strings.TrimSpace(string(r[:manifestPreview])) + "..."
}
