package ooxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Paragraph is one w:p element with its location in word/document.xml.
// Spans are byte offsets into the document part.
type Paragraph struct {
	Start, End   int64 // full element span
	ContentStart int64 // after w:pPr (or after the open tag when absent)
	ContentEnd   int64 // start of the close tag
	SelfClosed   bool

	Text    string // all text in the subtree, tabs/breaks normalized, trimmed
	StyleID string
	HasNum  bool   // paragraph carries w:numPr
	NumID   string // w:numId value
	NumIlvl string // raw w:ilvl value; the builder parses and degrades on bad data

	FirstRunProps []byte // verbatim w:rPr of the first direct run, nil if none
}

// Cell holds one table cell's nested blocks in document order.
type Cell struct {
	Blocks []Block
}

// Row is one table row.
type Row struct {
	Cells []Cell
}

// Table is one w:tbl element.
type Table struct {
	Start, End int64
	Rows       []Row
}

// Block is a paragraph or table in body order. Exactly one field is non-nil.
type Block struct {
	Paragraph *Paragraph
	Table     *Table
}

type scanner struct {
	dec *xml.Decoder
	doc []byte
}

func (p *Package) scanDocument() error {
	s := &scanner{dec: xml.NewDecoder(bytes.NewReader(p.doc)), doc: p.doc}

	rootSeen := false
	for {
		tok, err := s.dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !rootSeen {
			rootSeen = true
			if se.Name.Local != "document" {
				return fmt.Errorf("unexpected root element <%s>", se.Name.Local)
			}
			p.wPrefix = markupPrefix(se)
			if p.wPrefix == "" && !bindsDefault(se) {
				return fmt.Errorf("no WordprocessingML namespace binding on document root")
			}
			continue
		}
		if se.Name.Local == "body" {
			blocks, err := s.scanBlocks("body")
			if err != nil {
				return err
			}
			p.blocks = blocks
			return nil
		}
		if err := s.dec.Skip(); err != nil {
			return err
		}
	}
	return fmt.Errorf("document has no body element")
}

// markupPrefix finds the prefix bound to nsW on the root element.
func markupPrefix(root xml.StartElement) string {
	for _, a := range root.Attr {
		if a.Name.Space == "xmlns" && a.Value == nsW {
			return a.Name.Local
		}
	}
	return ""
}

func bindsDefault(root xml.StartElement) bool {
	for _, a := range root.Attr {
		if a.Name.Space == "" && a.Name.Local == "xmlns" && a.Value == nsW {
			return true
		}
	}
	return false
}

// scanBlocks consumes children until the enclosing element closes, returning
// paragraphs and tables in order. Used for the body and for table cells.
func (s *scanner) scanBlocks(parent string) ([]Block, error) {
	var blocks []Block
	for {
		off := s.dec.InputOffset()
		tok, err := s.dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				para, err := s.scanParagraph(off)
				if err != nil {
					return nil, err
				}
				blocks = append(blocks, Block{Paragraph: para})
			case "tbl":
				tbl, err := s.scanTable(off)
				if err != nil {
					return nil, err
				}
				blocks = append(blocks, Block{Table: tbl})
			default:
				if err := s.dec.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == parent {
				return blocks, nil
			}
		}
	}
}

// scanParagraph consumes one w:p subtree. start is the offset of the open
// tag; the StartElement token has already been read.
func (s *scanner) scanParagraph(start int64) (*Paragraph, error) {
	para := &Paragraph{Start: start, ContentStart: s.dec.InputOffset()}
	var text strings.Builder
	firstRunSeen := false

	for {
		off := s.dec.InputOffset()
		tok, err := s.dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "pPr":
				if err := s.scanParaProps(&t, para); err != nil {
					return nil, err
				}
				para.ContentStart = s.dec.InputOffset()
			case "r":
				isFirst := !firstRunSeen
				firstRunSeen = true
				if err := s.scanRun(para, isFirst, &text); err != nil {
					return nil, err
				}
			default:
				// Hyperlinks, smart tags, revision wrappers: collect
				// their text but never their formatting.
				if err := s.collectText(&text); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			para.ContentEnd = off
			para.End = s.dec.InputOffset()
			para.SelfClosed = para.End >= 2 && bytes.HasSuffix(s.doc[para.Start:para.End], []byte("/>"))
			para.Text = strings.TrimSpace(text.String())
			return para, nil
		}
	}
}

type paraPropsXML struct {
	Style struct {
		Val string `xml:"val,attr"`
	} `xml:"pStyle"`
	NumPr *struct {
		Ilvl struct {
			Val string `xml:"val,attr"`
		} `xml:"ilvl"`
		NumID struct {
			Val string `xml:"val,attr"`
		} `xml:"numId"`
	} `xml:"numPr"`
}

func (s *scanner) scanParaProps(se *xml.StartElement, para *Paragraph) error {
	var props paraPropsXML
	if err := s.dec.DecodeElement(&props, se); err != nil {
		return err
	}
	para.StyleID = props.Style.Val
	if props.NumPr != nil && props.NumPr.NumID.Val != "" {
		para.HasNum = true
		para.NumID = props.NumPr.NumID.Val
		para.NumIlvl = props.NumPr.Ilvl.Val
	}
	return nil
}

// scanRun consumes one direct w:r subtree, collecting text and, for the
// paragraph's first run, the verbatim run properties.
func (s *scanner) scanRun(para *Paragraph, isFirst bool, text *strings.Builder) error {
	for {
		off := s.dec.InputOffset()
		tok, err := s.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "rPr":
				if err := s.dec.Skip(); err != nil {
					return err
				}
				if isFirst && para.FirstRunProps == nil {
					para.FirstRunProps = s.doc[off:s.dec.InputOffset()]
				}
			case "t":
				v, err := s.charData(&t)
				if err != nil {
					return err
				}
				text.WriteString(v)
			case "tab":
				if err := s.dec.Skip(); err != nil {
					return err
				}
				text.WriteString("\t")
			case "br", "cr":
				if err := s.dec.Skip(); err != nil {
					return err
				}
				text.WriteString("\n")
			default:
				if err := s.dec.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

// collectText consumes the current subtree, gathering any nested w:t text.
func (s *scanner) collectText(text *strings.Builder) error {
	for {
		tok, err := s.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				v, err := s.charData(&t)
				if err != nil {
					return err
				}
				text.WriteString(v)
			case "tab":
				if err := s.dec.Skip(); err != nil {
					return err
				}
				text.WriteString("\t")
			case "br", "cr":
				if err := s.dec.Skip(); err != nil {
					return err
				}
				text.WriteString("\n")
			default:
				if err := s.collectText(text); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (s *scanner) charData(se *xml.StartElement) (string, error) {
	var v struct {
		Value string `xml:",chardata"`
	}
	if err := s.dec.DecodeElement(&v, se); err != nil {
		return "", err
	}
	return v.Value, nil
}

func (s *scanner) scanTable(start int64) (*Table, error) {
	tbl := &Table{Start: start}
	for {
		tok, err := s.dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tr":
				row, err := s.scanRow()
				if err != nil {
					return nil, err
				}
				tbl.Rows = append(tbl.Rows, row)
			default:
				if err := s.dec.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			tbl.End = s.dec.InputOffset()
			return tbl, nil
		}
	}
}

func (s *scanner) scanRow() (Row, error) {
	var row Row
	for {
		tok, err := s.dec.Token()
		if err != nil {
			return row, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tc":
				blocks, err := s.scanBlocks("tc")
				if err != nil {
					return row, err
				}
				row.Cells = append(row.Cells, Cell{Blocks: blocks})
			default:
				if err := s.dec.Skip(); err != nil {
					return row, err
				}
			}
		case xml.EndElement:
			return row, nil
		}
	}
}
