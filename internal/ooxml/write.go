package ooxml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Edit replaces one paragraph's content with prebuilt run markup. The
// paragraph must come from the same Package the edit is applied to.
type Edit struct {
	Para *Paragraph
	Runs []byte
}

// Rewrite produces a new word/document.xml with the edits spliced in.
// Everything outside the edited paragraphs' content spans is byte-identical
// to the source, including w:pPr, table markup, and section properties.
func (p *Package) Rewrite(edits []Edit) []byte {
	sort.Slice(edits, func(i, j int) bool { return edits[i].Para.Start < edits[j].Para.Start })

	var out bytes.Buffer
	out.Grow(len(p.doc))
	var pos int64
	for _, e := range edits {
		para := e.Para
		if para.SelfClosed {
			// <w:p/> has no content span; rebuild the whole element.
			out.Write(p.doc[pos:para.Start])
			orig := p.doc[para.Start:para.End]
			name := tagName(orig)
			out.Write(bytes.TrimSuffix(orig, []byte("/>")))
			out.WriteString(">")
			out.Write(e.Runs)
			out.WriteString("</" + name + ">")
			pos = para.End
			continue
		}
		out.Write(p.doc[pos:para.ContentStart])
		out.Write(e.Runs)
		pos = para.ContentEnd
	}
	out.Write(p.doc[pos:])
	return out.Bytes()
}

func tagName(tag []byte) string {
	end := len(tag)
	for i := 1; i < len(tag); i++ {
		if tag[i] == ' ' || tag[i] == '/' || tag[i] == '>' || tag[i] == '\t' || tag[i] == '\n' {
			end = i
			break
		}
	}
	return string(tag[1:end])
}

// SaveAs writes a copy of the package with doc as its word/document.xml.
// The zip is assembled in a temporary file in the destination directory and
// atomically renamed into place, so a failed write never leaves a partial
// container. The new document part is checked for well-formedness first,
// and verify (optional) runs against the temporary file before placement.
func (p *Package) SaveAs(dst string, doc []byte, verify func(path string) error) (err error) {
	if err := wellFormed(doc); err != nil {
		return fmt.Errorf("rebuilt document part is malformed: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".redline-*.docx")
	if err != nil {
		return fmt.Errorf("create temp container: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	zw := zip.NewWriter(tmp)
	for _, name := range p.order {
		w, werr := zw.Create(name)
		if werr != nil {
			tmp.Close()
			return fmt.Errorf("write %s: %w", name, werr)
		}
		data := p.parts[name]
		if name == documentPart {
			data = doc
		}
		if _, werr := w.Write(data); werr != nil {
			tmp.Close()
			return fmt.Errorf("write %s: %w", name, werr)
		}
	}
	if err = zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("finalize container: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp container: %w", err)
	}

	if verify != nil {
		if err = verify(tmpPath); err != nil {
			return fmt.Errorf("verify rebuilt container: %w", err)
		}
	}
	if err = os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("place container: %w", err)
	}
	return nil
}

// RunBuilder assembles WordprocessingML run markup for one paragraph's new
// content. Every emitted run carries the paragraph's pre-revision first-run
// properties verbatim, since per-run formatting granularity is not tracked
// upstream.
type RunBuilder struct {
	buf    bytes.Buffer
	prefix string // "w:" or "" when nsW is the default namespace
	rPr    []byte
}

// NewRunBuilder returns a builder emitting markup in the package's
// namespace style, inheriting para's first-run formatting.
func (p *Package) NewRunBuilder(para *Paragraph) *RunBuilder {
	prefix := ""
	if p.wPrefix != "" {
		prefix = p.wPrefix + ":"
	}
	return &RunBuilder{prefix: prefix, rPr: para.FirstRunProps}
}

// Text appends a plain content run.
func (b *RunBuilder) Text(s string) {
	b.openRun()
	b.textElem("t", s)
	b.closeRun()
}

// Insertion appends a run wrapped in an insertion marker with attribution.
func (b *RunBuilder) Insertion(s, author, date string, id int) {
	b.revisionWrapper("ins", "t", s, author, date, id)
}

// Deletion appends a run wrapped in a deletion marker with attribution.
func (b *RunBuilder) Deletion(s, author, date string, id int) {
	b.revisionWrapper("del", "delText", s, author, date, id)
}

func (b *RunBuilder) revisionWrapper(wrapper, textTag, s, author, date string, id int) {
	b.buf.WriteString("<" + b.prefix + wrapper)
	b.attr("id", strconv.Itoa(id))
	b.attr("author", author)
	b.attr("date", date)
	b.buf.WriteString(">")
	b.openRun()
	b.textElem(textTag, s)
	b.closeRun()
	b.buf.WriteString("</" + b.prefix + wrapper + ">")
}

func (b *RunBuilder) openRun() {
	b.buf.WriteString("<" + b.prefix + "r>")
	b.buf.Write(b.rPr)
}

func (b *RunBuilder) closeRun() {
	b.buf.WriteString("</" + b.prefix + "r>")
}

func (b *RunBuilder) textElem(tag, s string) {
	b.buf.WriteString("<" + b.prefix + tag + ` xml:space="preserve">`)
	b.buf.WriteString(escape(s))
	b.buf.WriteString("</" + b.prefix + tag + ">")
}

// attr writes a namespace-qualified attribute. Attributes never inherit a
// default namespace, which is why attributed markup needs a real prefix.
func (b *RunBuilder) attr(name, value string) {
	b.buf.WriteString(" " + b.prefix + name + `="` + escape(value) + `"`)
}

// Bytes returns the accumulated markup.
func (b *RunBuilder) Bytes() []byte {
	return b.buf.Bytes()
}

func escape(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
