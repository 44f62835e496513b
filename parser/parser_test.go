package parser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgallion1/redline/docmodel"
	"github.com/dgallion1/redline/internal/docxtest"
	"github.com/dgallion1/redline/internal/ooxml"
	"github.com/dgallion1/redline/numbering"
)

func contractDoc() docxtest.Doc {
	return docxtest.Doc{
		Blocks: []docxtest.Block{
			{Para: &docxtest.Para{Text: "ARTICLE I  DEFINITIONS", Style: "Heading1"}},
			docxtest.P(`"Agreement" means this asset purchase agreement (the "Contract").`),
			{Para: &docxtest.Para{Runs: []docxtest.Run{
				{Text: "Section 5.3  Closing Date.  ", Bold: true},
				{Text: "The Closing shall occur at the offices of Seller."},
			}}},
			{Table: &docxtest.Table{Rows: [][][]docxtest.Para{
				{{{Text: "Deliverable"}}, {{Text: "Due"}}},
				{{{Text: "Escrow Agreement"}}, {{Text: "At the Closing."}}},
			}}},
			docxtest.P("EXHIBIT A"),
		},
		Styles: map[string]string{"Heading1": "heading 1"},
		Title:  "Asset Purchase Agreement",
		Author: "Drafter",
	}
}

func TestParse_Model(t *testing.T) {
	var b Builder
	m, err := b.Parse(contractDoc().WriteFile(t))
	if err != nil {
		t.Fatalf("expected parse to succeed, got %v", err)
	}

	var ids []int
	m.WalkParagraphs(func(p *docmodel.Paragraph) { ids = append(ids, p.ID) })
	if len(ids) != 8 {
		t.Fatalf("expected 8 paragraphs including table cells, got %d", len(ids))
	}
	for i, id := range ids {
		if id != i+1 {
			t.Fatalf("expected sequential 1-based ids, got %v", ids)
		}
	}

	article := m.Lookup(1)
	if article.Marker != "ARTICLE I" {
		t.Errorf("expected marker ARTICLE I, got %q", article.Marker)
	}
	if article.SectionRef != "I" {
		t.Errorf("expected section ref I, got %q", article.SectionRef)
	}
	if !article.Style.IsHeading {
		t.Error("expected Heading1 paragraph flagged as heading")
	}

	defn := m.Lookup(2)
	if defn.SectionRef != "I" {
		t.Errorf("expected unmarked paragraph to inherit ref I, got %q", defn.SectionRef)
	}

	closing := m.Lookup(3)
	if closing.Marker != "Section 5.3" {
		t.Errorf("expected marker Section 5.3, got %q", closing.Marker)
	}
	if closing.SectionRef != "5.3" {
		t.Errorf("expected section ref 5.3, got %q", closing.SectionRef)
	}
	if closing.Caption != "Closing Date." {
		t.Errorf("expected caption Closing Date., got %q", closing.Caption)
	}

	if len(m.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %+v", m.Sections)
	}
	if m.Sections[0].Number != "ARTICLE I" || m.Sections[0].Title != "DEFINITIONS" {
		t.Errorf("unexpected first section %+v", m.Sections[0])
	}
	if m.Sections[1].Number != "Section 5.3" || m.Sections[1].Title != "Closing Date." {
		t.Errorf("unexpected second section %+v", m.Sections[1])
	}

	wantTerms := []string{"Agreement", "Contract"}
	if len(m.DefinedTerms) != len(wantTerms) {
		t.Fatalf("expected terms %v, got %v", wantTerms, m.DefinedTerms)
	}
	for i := range wantTerms {
		if m.DefinedTerms[i] != wantTerms[i] {
			t.Errorf("expected sorted terms %v, got %v", wantTerms, m.DefinedTerms)
		}
	}
	if len(m.TermIndex) != 2 || m.TermIndex[0].FirstParaID != 2 || m.TermIndex[0].SectionRef != "I" {
		t.Errorf("unexpected term index %+v", m.TermIndex)
	}

	if len(m.Exhibits) != 1 || m.Exhibits[0].Title != "EXHIBIT A" || m.Exhibits[0].StartParaID != 8 {
		t.Errorf("unexpected exhibits %+v", m.Exhibits)
	}

	if m.Metadata.Title != "Asset Purchase Agreement" || m.Metadata.Author != "Drafter" {
		t.Errorf("unexpected metadata %+v", m.Metadata)
	}
}

func TestParse_IDStability(t *testing.T) {
	path := contractDoc().WriteFile(t)
	var b Builder
	first, err := b.Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	second, err := b.Parse(path)
	if err != nil {
		t.Fatal(err)
	}

	type pair struct {
		id   int
		text string
	}
	collect := func(m *docmodel.DocumentModel) []pair {
		var out []pair
		m.WalkParagraphs(func(p *docmodel.Paragraph) { out = append(out, pair{p.ID, p.Text}) })
		return out
	}
	a, c := collect(first), collect(second)
	if len(a) != len(c) {
		t.Fatalf("expected identical paragraph counts, got %d and %d", len(a), len(c))
	}
	for i := range a {
		if a[i] != c[i] {
			t.Fatalf("paragraph %d differs between parses: %+v vs %+v", i, a[i], c[i])
		}
	}
}

func TestParse_TableInheritsHierarchy(t *testing.T) {
	var b Builder
	m, err := b.Parse(contractDoc().WriteFile(t))
	if err != nil {
		t.Fatal(err)
	}

	var tbl *docmodel.Table
	for _, blk := range m.Content {
		if blk.Table != nil {
			tbl = blk.Table
		}
	}
	if tbl == nil {
		t.Fatal("expected a table block")
	}
	if len(tbl.Hierarchy) != 1 || tbl.Hierarchy[0].Label != "Section 5.3" {
		t.Fatalf("expected table to inherit the 5.3 hierarchy, got %+v", tbl.Hierarchy)
	}
	cell := tbl.Rows[1][0].Blocks[0].Paragraph
	if cell.ID != 6 {
		t.Errorf("expected cell paragraph id 6, got %d", cell.ID)
	}
	if cell.SectionRef != "5.3" {
		t.Errorf("expected cell to inherit ref 5.3, got %q", cell.SectionRef)
	}
}

func TestParse_TableTextNeverAdvancesSections(t *testing.T) {
	doc := docxtest.Doc{Blocks: []docxtest.Block{
		docxtest.P("7. Notices"),
		{Table: &docxtest.Table{Rows: [][][]docxtest.Para{
			{{{Text: "1. This looks like a marker"}}},
		}}},
		docxtest.P("All notices shall be in writing."),
	}}
	var b Builder
	m, err := b.Parse(doc.WriteFile(t))
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Lookup(3).SectionRef; got != "7" {
		t.Fatalf("expected cell marker ignored by the tracker, got ref %q", got)
	}
}

func TestParse_ListNumbering(t *testing.T) {
	doc := docxtest.Doc{Blocks: []docxtest.Block{
		{Para: &docxtest.Para{Text: "The Seller shall deliver:", NumID: "5", Ilvl: "0"}},
		{Para: &docxtest.Para{Text: "the Escrow Agreement;", NumID: "5", Ilvl: "1"}},
		{Para: &docxtest.Para{Text: "the Bill of Sale; and", NumID: "5", Ilvl: "1"}},
		{Para: &docxtest.Para{Text: "The Buyer shall pay the Purchase Price.", NumID: "5", Ilvl: "0"}},
	}}
	var b Builder
	m, err := b.Parse(doc.WriteFile(t))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"1", "1A", "1B", "2"}
	for i, ref := range want {
		p := m.Lookup(i + 1)
		if p.SectionRef != ref {
			t.Errorf("paragraph %d: expected ref %q, got %q", p.ID, ref, p.SectionRef)
		}
		if p.Style.Numbering == nil || p.Style.Numbering.NumID != "5" {
			t.Errorf("paragraph %d: expected numbering ref, got %+v", p.ID, p.Style.Numbering)
		}
	}
	if lvl := m.Lookup(2).Style.Numbering.Level; lvl != 1 {
		t.Errorf("expected level 1, got %d", lvl)
	}
}

func TestParse_MalformedIlvlDegrades(t *testing.T) {
	doc := docxtest.Doc{Blocks: []docxtest.Block{
		docxtest.P("1. Term"),
		{Para: &docxtest.Para{Text: "bad list data", NumID: "5", Ilvl: "x"}},
		docxtest.P("The Term begins on the Effective Date."),
	}}
	var b Builder
	m, err := b.Parse(doc.WriteFile(t))
	if err != nil {
		t.Fatalf("expected degraded parse, not failure: %v", err)
	}

	bad := m.Lookup(2)
	if bad.SectionRef != "" {
		t.Errorf("expected degraded paragraph unsectioned, got %q", bad.SectionRef)
	}
	if bad.Hierarchy != nil {
		t.Errorf("expected nil hierarchy, got %+v", bad.Hierarchy)
	}
	if bad.Style.Numbering != nil {
		t.Errorf("expected no numbering ref for unparseable data, got %+v", bad.Style.Numbering)
	}
	if got := m.Lookup(3).SectionRef; got != "1" {
		t.Errorf("expected following paragraph to keep ref 1, got %q", got)
	}
}

func TestParse_HeadingLevelFallback(t *testing.T) {
	doc := docxtest.Doc{
		Blocks: []docxtest.Block{
			docxtest.P("1. Scope"),
			{Para: &docxtest.Para{Text: "B. Reserved", Style: "Heading2"}},
		},
		Styles: map[string]string{"Heading2": "heading 2"},
	}
	var b Builder
	m, err := b.Parse(doc.WriteFile(t))
	if err != nil {
		t.Fatal(err)
	}
	p := m.Lookup(2)
	if p.SectionRef != "1B" {
		t.Errorf("expected heading style to place the letter marker at level 1, got %q", p.SectionRef)
	}
	if len(p.Hierarchy) != 2 {
		t.Errorf("expected 2 hierarchy nodes, got %+v", p.Hierarchy)
	}
}

func TestParse_InvalidContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.docx")
	if err := os.WriteFile(path, []byte("not a container"), 0o644); err != nil {
		t.Fatal(err)
	}
	var b Builder
	_, err := b.Parse(path)
	if !errors.Is(err, ooxml.ErrInvalidPackage) {
		t.Fatalf("expected ErrInvalidPackage, got %v", err)
	}
}

func TestCaption(t *testing.T) {
	var b Builder
	tests := []struct {
		text string
		want string
	}{
		{"Section 5.3  Closing Date.  The Closing shall occur.", "Closing Date."},
		{"7. Notices", "Notices"},
		{"ARTICLE I  DEFINITIONS", "DEFINITIONS"},
		{"Confidentiality. Each party shall keep the terms confidential.", "Confidentiality."},
	}
	for _, tc := range tests {
		if got := b.caption(tc.text, numbering.Match(tc.text)); got != tc.want {
			t.Errorf("%q: expected caption %q, got %q", tc.text, tc.want, got)
		}
	}
}

func TestCaption_Truncates(t *testing.T) {
	b := Builder{CaptionMax: 20}
	long := "a clause without any sentence break that keeps going well past the limit"
	got := b.caption(long, nil)
	if len([]rune(got)) > 23 {
		t.Fatalf("expected caption truncated near 20 runes, got %q", got)
	}
	if got[len(got)-3:] != "..." {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
}

func TestDefinedTerms(t *testing.T) {
	got := definedTerms(`the "Purchase Price" and the deposit (the "Deposit"), payable per "Purchase Price" terms, using "reasonable efforts"`)
	want := []string{"Purchase Price", "Deposit"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}
}

func TestHeadingLevel(t *testing.T) {
	tests := []struct {
		name, id string
		want     int
	}{
		{"heading 2", "Heading2", 2},
		{"", "Heading3", 3},
		{"Title", "Title", 0},
		{"heading", "heading", 0},
	}
	for _, tc := range tests {
		if got := headingLevel(tc.name, tc.id); got != tc.want {
			t.Errorf("headingLevel(%q, %q): expected %d, got %d", tc.name, tc.id, got, tc.want)
		}
	}
}
