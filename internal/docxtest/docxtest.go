// Package docxtest builds minimal in-memory WordprocessingML packages for
// tests: a zip with content types, relationships, word/document.xml, and
// optionally styles and core properties.
package docxtest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

const nsW = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// Run is one formatted text run.
type Run struct {
	Text      string
	Bold      bool
	Italic    bool
	Underline bool
	Font      string
	Size      string // half-points, e.g. "24"
}

// Para describes one paragraph. Text is shorthand for a single unformatted
// run; Ilvl holds the raw attribute value so tests can inject bad data.
type Para struct {
	Text  string
	Runs  []Run
	Style string
	NumID string
	Ilvl  string
}

// Table is a grid of cells, each cell a list of paragraphs.
type Table struct {
	Rows [][][]Para
}

// Block is a top-level paragraph or table.
type Block struct {
	Para  *Para
	Table *Table
}

// P is shorthand for a plain paragraph block.
func P(text string) Block {
	return Block{Para: &Para{Text: text}}
}

// Doc describes a whole package.
type Doc struct {
	Blocks    []Block
	Styles    map[string]string // styleId -> display name
	Title     string
	Author    string
	DefaultNS bool // bind nsW as the default namespace instead of the w prefix
}

// Bytes assembles the package zip.
func (d Doc) Bytes() []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	write := func(name, data string) {
		w, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(data)); err != nil {
			panic(err)
		}
	}

	write("[Content_Types].xml", contentTypes)
	write("_rels/.rels", rels)
	write("word/_rels/document.xml.rels", docRels)
	write("word/document.xml", d.documentXML())
	if len(d.Styles) > 0 {
		write("word/styles.xml", d.stylesXML())
	}
	if d.Title != "" || d.Author != "" {
		write("docProps/core.xml", d.coreXML())
	}

	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// WriteFile writes the package into t's temp dir and returns its path.
func (d Doc) WriteFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.docx")
	if err := os.WriteFile(path, d.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>
</Types>`

const rels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>
</Relationships>`

const docRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

func (d Doc) documentXML() string {
	w := "w:"
	root := fmt.Sprintf(`<w:document xmlns:w=%q>`, nsW)
	closeRoot := "</w:document>"
	if d.DefaultNS {
		w = ""
		root = fmt.Sprintf(`<document xmlns=%q>`, nsW)
		closeRoot = "</document>"
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(root)
	b.WriteString("<" + w + "body>")
	for _, blk := range d.Blocks {
		switch {
		case blk.Para != nil:
			writePara(&b, w, *blk.Para)
		case blk.Table != nil:
			b.WriteString("<" + w + "tbl><" + w + "tblPr/>")
			for _, row := range blk.Table.Rows {
				b.WriteString("<" + w + "tr>")
				for _, cell := range row {
					b.WriteString("<" + w + "tc>")
					for _, p := range cell {
						writePara(&b, w, p)
					}
					b.WriteString("</" + w + "tc>")
				}
				b.WriteString("</" + w + "tr>")
			}
			b.WriteString("</" + w + "tbl>")
		}
	}
	b.WriteString("<" + w + "sectPr/>")
	b.WriteString("</" + w + "body>")
	b.WriteString(closeRoot)
	return b.String()
}

func writePara(b *strings.Builder, w string, p Para) {
	b.WriteString("<" + w + "p>")
	if p.Style != "" || p.NumID != "" {
		b.WriteString("<" + w + "pPr>")
		if p.Style != "" {
			b.WriteString("<" + w + "pStyle " + w + "val=" + quote(p.Style) + "/>")
		}
		if p.NumID != "" {
			b.WriteString("<" + w + "numPr>")
			b.WriteString("<" + w + "ilvl " + w + "val=" + quote(p.Ilvl) + "/>")
			b.WriteString("<" + w + "numId " + w + "val=" + quote(p.NumID) + "/>")
			b.WriteString("</" + w + "numPr>")
		}
		b.WriteString("</" + w + "pPr>")
	}
	runs := p.Runs
	if len(runs) == 0 && p.Text != "" {
		runs = []Run{{Text: p.Text}}
	}
	for _, r := range runs {
		b.WriteString("<" + w + "r>")
		if r.Bold || r.Italic || r.Underline || r.Font != "" || r.Size != "" {
			b.WriteString("<" + w + "rPr>")
			if r.Bold {
				b.WriteString("<" + w + "b/>")
			}
			if r.Italic {
				b.WriteString("<" + w + "i/>")
			}
			if r.Underline {
				b.WriteString("<" + w + "u " + w + `val="single"/>`)
			}
			if r.Font != "" {
				b.WriteString("<" + w + "rFonts " + w + "ascii=" + quote(r.Font) + " " + w + "hAnsi=" + quote(r.Font) + "/>")
			}
			if r.Size != "" {
				b.WriteString("<" + w + "sz " + w + "val=" + quote(r.Size) + "/>")
			}
			b.WriteString("</" + w + "rPr>")
		}
		b.WriteString("<" + w + `t xml:space="preserve">` + escape(r.Text) + "</" + w + "t>")
		b.WriteString("</" + w + "r>")
	}
	b.WriteString("</" + w + "p>")
}

func (d Doc) stylesXML() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(`<w:styles xmlns:w=%q>`, nsW))
	ids := make([]string, 0, len(d.Styles))
	for id := range d.Styles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		b.WriteString(`<w:style w:styleId=` + quote(id) + `><w:name w:val=` + quote(d.Styles[id]) + `/></w:style>`)
	}
	b.WriteString("</w:styles>")
	return b.String()
}

func (d Doc) coreXML() string {
	return `<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">` +
		"<dc:title>" + escape(d.Title) + "</dc:title>" +
		"<dc:creator>" + escape(d.Author) + "</dc:creator>" +
		"</cp:coreProperties>"
}

func escape(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func quote(s string) string {
	return `"` + escape(s) + `"`
}
