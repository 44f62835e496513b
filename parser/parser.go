// Package parser builds the addressable document model from a
// wordprocessing container: it walks the block stream in original order,
// threads one global paragraph-id counter through top-level and table-cell
// paragraphs, runs the numbering tracker, and extracts captions, defined
// terms, and exhibit markers.
package parser

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/dgallion1/redline/docmodel"
	"github.com/dgallion1/redline/internal/ooxml"
	"github.com/dgallion1/redline/numbering"
)

// DefaultCaptionMax is the longest caption extracted from a paragraph.
const DefaultCaptionMax = 60

// Builder parses containers into document models. The zero value is usable.
type Builder struct {
	Log        *slog.Logger // optional
	CaptionMax int          // 0 means DefaultCaptionMax
}

// state is one parse call's running context. It is never shared between
// calls, so concurrent documents cannot cross-talk.
type state struct {
	pkg     *ooxml.Package
	tracker *numbering.Tracker
	model   *docmodel.DocumentModel
	nextID  int
	terms   map[string]bool
}

// Parse builds the model for one container. A malformed container fails
// fast; a single bad paragraph degrades to an empty section ref and
// processing continues. Parsing the same container twice yields identical
// ids in identical order.
func (b *Builder) Parse(path string) (*docmodel.DocumentModel, error) {
	pkg, err := ooxml.Open(path)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	meta := pkg.Metadata()
	st := &state{
		pkg:     pkg,
		tracker: numbering.NewTracker(),
		terms:   make(map[string]bool),
		model: &docmodel.DocumentModel{
			SourceFile: path,
			Metadata: docmodel.Metadata{
				Title:    meta.Title,
				Author:   meta.Author,
				Created:  meta.Created,
				Modified: meta.Modified,
			},
			DefinedTerms: []string{},
		},
	}

	for _, blk := range pkg.Blocks() {
		switch {
		case blk.Paragraph != nil:
			p := b.paragraph(st, blk.Paragraph, false)
			st.model.Content = append(st.model.Content, docmodel.Block{Paragraph: p})
		case blk.Table != nil:
			t := b.table(st, blk.Table)
			st.model.Content = append(st.model.Content, docmodel.Block{Table: t})
		}
	}

	for _, dt := range st.model.TermIndex {
		st.model.DefinedTerms = append(st.model.DefinedTerms, dt.Term)
	}
	sort.Strings(st.model.DefinedTerms)
	return st.model, nil
}

func (b *Builder) paragraph(st *state, op *ooxml.Paragraph, inTable bool) *docmodel.Paragraph {
	st.nextID++
	id := st.nextID
	text := op.Text

	styleName := st.pkg.StyleName(op.StyleID)
	isHeading := strings.HasPrefix(strings.ToLower(styleName), "heading")
	marker := numbering.Match(text)
	caption := b.caption(text, marker)

	para := &docmodel.Paragraph{
		ID:      id,
		Text:    text,
		Caption: caption,
		Style:   docmodel.StyleInfo{Name: styleName, IsHeading: isHeading},
	}
	if marker != nil {
		para.Marker = marker.Label
	}

	numLevel, numOK, degraded := b.listLevel(op)
	if numOK {
		para.Style.Numbering = &docmodel.NumberingRef{NumID: op.NumID, Level: numLevel}
	}

	if degraded {
		// Malformed numbering data: keep the paragraph, leave it
		// unsectioned rather than guessing.
		para.Hierarchy = nil
		para.SectionRef = ""
	} else {
		if !inTable && (marker != nil || numOK || isHeading) {
			st.tracker.Update(numbering.Signal{
				Marker:       marker,
				HasList:      numOK,
				ListID:       op.NumID,
				ListLevel:    numLevel,
				HeadingLevel: headingLevel(styleName, op.StyleID),
				Caption:      caption,
			})
		}
		para.SectionRef = st.tracker.SectionRef()
		para.Hierarchy = st.tracker.Hierarchy()
	}

	if !inTable {
		b.index(st, para, marker)
	}
	return para
}

// index maintains the sections, exhibits, and defined-terms indices for a
// top-level paragraph.
func (b *Builder) index(st *state, para *docmodel.Paragraph, marker *numbering.Marker) {
	if para.Style.IsHeading || (marker != nil && numbering.IsSectionKind(marker.Kind)) {
		title := para.Caption
		if title == "" {
			title = truncate(para.Text, 50)
		}
		st.model.Sections = append(st.model.Sections, docmodel.Section{
			ID:        para.ID,
			Number:    para.Marker,
			Title:     title,
			ParaID:    para.ID,
			Hierarchy: para.Hierarchy,
		})
	}

	if exhibitRe.MatchString(para.Text) {
		st.model.Exhibits = append(st.model.Exhibits, docmodel.Exhibit{
			ID:          para.ID,
			Title:       para.Text,
			StartParaID: para.ID,
		})
	}

	for _, term := range definedTerms(para.Text) {
		if st.terms[term] {
			continue // first occurrence wins
		}
		st.terms[term] = true
		st.model.TermIndex = append(st.model.TermIndex, docmodel.DefinedTerm{
			Term:        term,
			FirstParaID: para.ID,
			SectionRef:  para.SectionRef,
		})
	}
}

func (b *Builder) table(st *state, ot *ooxml.Table) *docmodel.Table {
	t := &docmodel.Table{Hierarchy: st.tracker.Hierarchy()}
	for _, row := range ot.Rows {
		cells := make([]docmodel.Cell, 0, len(row.Cells))
		for _, c := range row.Cells {
			var cell docmodel.Cell
			for _, blk := range c.Blocks {
				switch {
				case blk.Paragraph != nil:
					p := b.paragraph(st, blk.Paragraph, true)
					cell.Blocks = append(cell.Blocks, docmodel.Block{Paragraph: p})
				case blk.Table != nil:
					nested := b.table(st, blk.Table)
					cell.Blocks = append(cell.Blocks, docmodel.Block{Table: nested})
				}
			}
			cells = append(cells, cell)
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

// listLevel parses the paragraph's raw list-numbering data. degraded is set
// when the data is present but unparseable.
func (b *Builder) listLevel(op *ooxml.Paragraph) (level int, ok, degraded bool) {
	if !op.HasNum {
		return 0, false, false
	}
	if op.NumIlvl == "" {
		return 0, true, false
	}
	lvl, err := strconv.Atoi(op.NumIlvl)
	if err != nil || lvl < 0 {
		b.logger().Warn("malformed numbering level, paragraph left unsectioned",
			"num_id", op.NumID, "ilvl", op.NumIlvl)
		return 0, false, true
	}
	return lvl, true, false
}

func (b *Builder) logger() *slog.Logger {
	if b.Log != nil {
		return b.Log
	}
	return slog.Default()
}

// headingLevel extracts the numeric level of a heading style ("Heading 2"
// or "Heading2" give 2); 0 when none.
func headingLevel(styleName, styleID string) int {
	for _, s := range []string{styleName, styleID} {
		lower := strings.ToLower(s)
		if !strings.HasPrefix(lower, "heading") {
			continue
		}
		rest := strings.TrimSpace(lower[len("heading"):])
		if n, err := strconv.Atoi(rest); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
