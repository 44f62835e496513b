// Package ooxml reads and rewrites WordprocessingML packages at the XML
// level. It exposes the document's ordered block stream (paragraphs and
// tables, table cells row-major) together with the byte span of every
// paragraph in word/document.xml, so the revision engine can splice new run
// markup into an otherwise byte-identical copy of the source. Formatting the
// engine does not touch is therefore preserved exactly, and revision markup
// (w:ins / w:del) outside the schema of higher-level DOCX libraries can be
// emitted directly.
package ooxml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// nsW is the main WordprocessingML namespace.
const nsW = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

const (
	documentPart = "word/document.xml"
	stylesPart   = "word/styles.xml"
	corePart     = "docProps/core.xml"
)

// ErrInvalidPackage is returned when a file is not a readable
// wordprocessing package.
var ErrInvalidPackage = errors.New("not a valid wordprocessing package")

// Metadata holds the package's core properties.
type Metadata struct {
	Title    string
	Author   string
	Created  string
	Modified string
}

// Package is one opened wordprocessing container. All parts are read into
// memory at Open and the underlying file is closed before Open returns, so
// a Package holds no OS resources.
type Package struct {
	path    string
	order   []string          // zip entry names in original order
	parts   map[string][]byte // entry name -> raw bytes
	doc     []byte            // word/document.xml
	blocks  []Block
	wPrefix string // prefix bound to nsW on the document root, "" if bound as default namespace
	styles  map[string]string
	meta    Metadata
}

// Open reads and scans a package. The container-level open fails fast with
// an error wrapping ErrInvalidPackage; individual malformed paragraphs do
// not fail the scan.
func Open(path string) (*Package, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, ErrInvalidPackage, err)
	}
	defer zr.Close()

	p := &Package{
		path:   path,
		parts:  make(map[string][]byte, len(zr.File)),
		styles: make(map[string]string),
	}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%s: read %s: %w", path, f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: read %s: %w", path, f.Name, err)
		}
		p.order = append(p.order, f.Name)
		p.parts[f.Name] = data
	}

	for _, required := range []string{"[Content_Types].xml", documentPart} {
		if _, ok := p.parts[required]; !ok {
			return nil, fmt.Errorf("%s: missing %s: %w", path, required, ErrInvalidPackage)
		}
	}
	p.doc = p.parts[documentPart]

	if err := p.scanDocument(); err != nil {
		return nil, fmt.Errorf("%s: scan document: %w", path, err)
	}
	p.parseStyles()
	p.parseCoreProperties()
	return p, nil
}

// Path returns the source path the package was opened from.
func (p *Package) Path() string { return p.path }

// Blocks returns the ordered block stream of the document body.
func (p *Package) Blocks() []Block { return p.blocks }

// Metadata returns the package core properties.
func (p *Package) Metadata() Metadata { return p.meta }

// WalkParagraphs visits every paragraph in document order, descending into
// table cells row-major. This is the canonical id order: the parser assigns
// ids in this sequence and the revision engine relies on it for positional
// correspondence.
func (p *Package) WalkParagraphs(fn func(*Paragraph)) {
	walkBlocks(p.blocks, fn)
}

func walkBlocks(blocks []Block, fn func(*Paragraph)) {
	for _, b := range blocks {
		switch {
		case b.Paragraph != nil:
			fn(b.Paragraph)
		case b.Table != nil:
			for _, row := range b.Table.Rows {
				for _, cell := range row.Cells {
					walkBlocks(cell.Blocks, fn)
				}
			}
		}
	}
}

// CanAttributeMarkup reports whether attributed revision markup can be
// emitted. w:ins/w:del carry namespace-qualified attributes, which require
// an explicit prefix binding; a package that binds the WordprocessingML
// namespace only as the default namespace can take clean replacement but
// not tracked markup.
func (p *Package) CanAttributeMarkup() bool { return p.wPrefix != "" }

// StyleName resolves a style id to its display name via word/styles.xml,
// falling back to the id itself.
func (p *Package) StyleName(styleID string) string {
	if name, ok := p.styles[styleID]; ok && name != "" {
		return name
	}
	return styleID
}

type stylesXML struct {
	Styles []struct {
		StyleID string `xml:"styleId,attr"`
		Name    struct {
			Val string `xml:"val,attr"`
		} `xml:"name"`
	} `xml:"style"`
}

func (p *Package) parseStyles() {
	data, ok := p.parts[stylesPart]
	if !ok {
		return
	}
	var s stylesXML
	if err := xml.Unmarshal(data, &s); err != nil {
		return // styles are optional
	}
	for _, st := range s.Styles {
		p.styles[st.StyleID] = st.Name.Val
	}
}

type corePropsXML struct {
	Title    string `xml:"title"`
	Creator  string `xml:"creator"`
	Created  string `xml:"created"`
	Modified string `xml:"modified"`
}

func (p *Package) parseCoreProperties() {
	data, ok := p.parts[corePart]
	if !ok {
		return
	}
	var c corePropsXML
	if err := xml.Unmarshal(data, &c); err != nil {
		return
	}
	p.meta = Metadata{Title: c.Title, Author: c.Creator, Created: c.Created, Modified: c.Modified}
}

// wellFormed checks that a byte slice is one well-formed XML document.
func wellFormed(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
