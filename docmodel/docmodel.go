// Package docmodel defines the paragraph-addressable document model built
// from a word-processing container: ordered blocks (paragraphs and tables),
// section hierarchy nodes, defined terms, exhibits, and revision records.
//
// Paragraph ids are global, sequential, and 1-based. Table-cell paragraphs
// draw from the same sequence as top-level paragraphs, so an id identifies a
// position in the container independent of content.
package docmodel

import "encoding/json"

// SectionNode is one ancestor in a paragraph's section hierarchy.
// Level 0 is the outermost numbering level.
type SectionNode struct {
	Level   int    `json:"level"`
	Label   string `json:"label"`
	Caption string `json:"caption,omitempty"`
}

// NumberingRef points at a numbering-list definition in the source container.
type NumberingRef struct {
	NumID string `json:"num_id"`
	Level int    `json:"level"`
}

// StyleInfo describes a paragraph's style as found in the source.
type StyleInfo struct {
	Name      string        `json:"style"`
	IsHeading bool          `json:"is_heading"`
	Numbering *NumberingRef `json:"numbering,omitempty"`
}

// Paragraph is a single addressable paragraph.
type Paragraph struct {
	ID         int           `json:"id"`
	Text       string        `json:"text"`
	Marker     string        `json:"section_number,omitempty"` // explicit textual marker, e.g. "Section 5.3"
	SectionRef string        `json:"section_ref,omitempty"`    // flattened hierarchy, e.g. "7A(ii)"
	Caption    string        `json:"caption,omitempty"`
	Style      StyleInfo     `json:"style_info"`
	Hierarchy  []SectionNode `json:"section_hierarchy"`
}

// Cell holds the nested blocks of one table cell, in document order.
type Cell struct {
	Blocks []Block `json:"blocks"`
}

// Table is a 2-D grid of cells. Tables inherit the hierarchy active at the
// point they appear; there is no independent section tracking inside them.
type Table struct {
	Rows      [][]Cell      `json:"rows"`
	Hierarchy []SectionNode `json:"section_hierarchy"`
}

// Block is the paragraph-or-table variant. Exactly one field is non-nil.
type Block struct {
	Paragraph *Paragraph
	Table     *Table
}

// MarshalJSON emits the block as a typed content entry.
func (b Block) MarshalJSON() ([]byte, error) {
	if b.Paragraph != nil {
		return json.Marshal(struct {
			Type string `json:"type"`
			*Paragraph
		}{"paragraph", b.Paragraph})
	}
	return json.Marshal(struct {
		Type string `json:"type"`
		*Table
	}{"table", b.Table})
}

// Section is one entry in the top-level section index.
type Section struct {
	ID        int           `json:"id"`
	Number    string        `json:"number,omitempty"`
	Title     string        `json:"title"`
	ParaID    int           `json:"para_id"`
	Hierarchy []SectionNode `json:"hierarchy"`
}

// DefinedTerm records the first formal definition of a capitalized term.
type DefinedTerm struct {
	Term        string `json:"term"`
	FirstParaID int    `json:"first_para_id"`
	SectionRef  string `json:"section_ref,omitempty"`
}

// Exhibit marks a block matching an exhibit-header pattern.
type Exhibit struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	StartParaID int    `json:"start_para_id"`
}

// Metadata carries the container's core properties.
type Metadata struct {
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Created  string `json:"created,omitempty"`
	Modified string `json:"modified,omitempty"`
}

// DocumentModel is the immutable result of parsing one container.
// Revision passes read it but never mutate it.
type DocumentModel struct {
	SourceFile   string        `json:"source_file"`
	Metadata     Metadata      `json:"metadata"`
	Content      []Block       `json:"content"`
	Sections     []Section     `json:"sections"`
	DefinedTerms []string      `json:"defined_terms"` // sorted unique term strings
	TermIndex    []DefinedTerm `json:"term_index,omitempty"`
	Exhibits     []Exhibit     `json:"exhibits"`
}

// WalkParagraphs visits every paragraph in document order, descending into
// table cells row-major — the same order ids were assigned in.
func (m *DocumentModel) WalkParagraphs(fn func(*Paragraph)) {
	walkBlocks(m.Content, fn)
}

func walkBlocks(blocks []Block, fn func(*Paragraph)) {
	for _, b := range blocks {
		switch {
		case b.Paragraph != nil:
			fn(b.Paragraph)
		case b.Table != nil:
			for _, row := range b.Table.Rows {
				for _, cell := range row {
					walkBlocks(cell.Blocks, fn)
				}
			}
		}
	}
}

// Lookup returns the paragraph with the given id, or nil if the id is not
// part of this model.
func (m *DocumentModel) Lookup(id int) *Paragraph {
	var found *Paragraph
	m.WalkParagraphs(func(p *Paragraph) {
		if p.ID == id {
			found = p
		}
	})
	return found
}

// Revision is one proposed paragraph replacement. Only accepted revisions
// whose paragraph id exists in the model are ever applied; unknown ids are
// ignored because the model owns the id space.
type Revision struct {
	ParagraphID int    `json:"paragraph_id"`
	Original    string `json:"original_text"`
	Revised     string `json:"new_text"`
	Accepted    bool   `json:"accepted"`
	Rationale   string `json:"rationale,omitempty"`
}
