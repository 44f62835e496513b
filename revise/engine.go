// Package revise splices accepted paragraph revisions back into the
// original container. Two modes: clean (silent replacement) and tracked
// (insertion/deletion markup with author and timestamp attribution). Both
// start from a duplicate of the source, never mutate it, and place output
// atomically.
package revise

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fumiama/go-docx"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/dgallion1/redline/docmodel"
	"github.com/dgallion1/redline/internal/ooxml"
)

// Engine rebuilds containers with revisions applied. One Engine may serve
// concurrent documents; each rebuild works on its own package copy.
type Engine struct {
	Author string           // tracked-mode attribution
	Log    *slog.Logger     // optional
	Verify bool             // reopen clean output with go-docx before placement
	Now    func() time.Time // nil means time.Now
}

// NewEngine returns an engine with output verification enabled.
func NewEngine(author string, log *slog.Logger) *Engine {
	return &Engine{Author: author, Log: log, Verify: true}
}

// Result reports one rebuild.
type Result struct {
	OutputPath  string `json:"output_path"`
	ChangesMade int    `json:"changes_made"`
	// Degraded is set when tracked markup was unavailable and the
	// rebuild fell back to clean replacement. The attribution trail is
	// lost in that case, so it is reported, never silently substituted.
	Degraded bool `json:"degraded,omitempty"`
}

// RebuildClean writes a copy of src to dst with every applicable revision's
// text silently replaced, preserving each paragraph's first-run formatting.
func (e *Engine) RebuildClean(src, dst string, revisions []docmodel.Revision) (*Result, error) {
	return e.rebuild(src, dst, revisions, false)
}

// RebuildTracked writes a copy of src to dst with revisions applied as
// attributed insertion/deletion markup. If the package cannot carry
// attributed markup the rebuild degrades to clean replacement and says so
// in the result.
func (e *Engine) RebuildTracked(src, dst string, revisions []docmodel.Revision) (*Result, error) {
	return e.rebuild(src, dst, revisions, true)
}

func (e *Engine) rebuild(src, dst string, revisions []docmodel.Revision, tracked bool) (*Result, error) {
	pkg, err := ooxml.Open(src)
	if err != nil {
		return nil, fmt.Errorf("rebuild: %w", err)
	}

	res := &Result{OutputPath: dst}
	if tracked && !pkg.CanAttributeMarkup() {
		e.logger().Warn("attributed markup unavailable, falling back to clean replacement",
			"source", src)
		tracked = false
		res.Degraded = true
	}

	accepted := make(map[int]docmodel.Revision, len(revisions))
	for _, r := range revisions {
		if r.Accepted {
			accepted[r.ParagraphID] = r
		}
	}

	date := e.now().UTC().Format("2006-01-02T15:04:05Z")
	var edits []ooxml.Edit
	pos := 0
	revID := 0
	// Paragraphs are numbered in the same walk order the parser used, so
	// ids correspond positionally without re-deriving them from content.
	pkg.WalkParagraphs(func(p *ooxml.Paragraph) {
		pos++
		rev, ok := accepted[pos]
		if !ok {
			return
		}
		original := rev.Original
		if original == "" {
			original = p.Text
		}
		// Tracked mode follows the revision record: markup is emitted
		// whenever the recorded original and revised text differ. Clean
		// mode compares against the container, since replacing a
		// paragraph with its current text is a no-op.
		if tracked {
			if rev.Revised == original {
				return
			}
		} else if rev.Revised == p.Text {
			return
		}
		rb := pkg.NewRunBuilder(p)
		if tracked {
			for _, d := range diffRuns(original, rev.Revised) {
				switch d.Type {
				case diffmatchpatch.DiffEqual:
					rb.Text(d.Text)
				case diffmatchpatch.DiffDelete:
					revID++
					rb.Deletion(d.Text, e.Author, date, revID)
				case diffmatchpatch.DiffInsert:
					revID++
					rb.Insertion(d.Text, e.Author, date, revID)
				}
			}
		} else {
			rb.Text(rev.Revised)
		}
		edits = append(edits, ooxml.Edit{Para: p, Runs: rb.Bytes()})
		res.ChangesMade++
	})

	// A zero-edit rebuild still writes a fresh container: callers must
	// never receive the untouched original by reference.
	doc := pkg.Rewrite(edits)

	var verify func(string) error
	if e.Verify && !tracked {
		// Tracked markup is outside go-docx's modeled schema, so only
		// clean output gets the independent reopen.
		verify = verifyContainer
	}
	if err := pkg.SaveAs(dst, doc, verify); err != nil {
		return nil, fmt.Errorf("rebuild %s: %w", dst, err)
	}
	return res, nil
}

// verifyContainer reopens a rebuilt container with go-docx and walks its
// body, catching packages a word processor would refuse before they are
// placed at the destination.
func verifyContainer(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return fmt.Errorf("parse docx: %w", err)
	}
	for _, item := range doc.Document.Body.Items {
		_ = item
	}
	return nil
}

func (e *Engine) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}
