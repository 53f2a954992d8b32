// Package parser turns raw payload bytes referenced by a unit's DataRef into
// a content.Document.
package parser

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/dgallion1/taxguide/internal/content"
)

// Parser converts raw document bytes into a Document.
type Parser interface {
	Parse(r io.Reader, name string) (*content.Document, error)
}

// SupportedExtensions lists the payload formats a DataRef may point to.
var SupportedExtensions = map[string]bool{
	".json":     true,
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// Options carries parser knobs that come from configuration.
type Options struct {
	PDFFallbackPdftotext bool
}

// ForFile returns the parser for a DataRef, chosen by extension.
func ForFile(ref string, opts Options) (Parser, error) {
	switch ext(ref) {
	case ".json":
		return &JSONParser{}, nil
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported payload format: %q", ext(ref))
	}
}

// IsSupported reports whether a DataRef has a parseable extension.
func IsSupported(ref string) bool {
	return SupportedExtensions[ext(ref)]
}

func ext(ref string) string {
	return strings.ToLower(path.Ext(ref))
}

// baseTitle derives a fallback document title from a DataRef.
func baseTitle(ref string) string {
	b := path.Base(ref)
	return strings.TrimSuffix(b, path.Ext(b))
}

// headingTree collects body text under a stack of headings. Markdown, HTML
// and DOCX all build their trees this way.
type headingTree struct {
	root  *content.Node
	stack []headingEntry
	text  strings.Builder
}

type headingEntry struct {
	node  *content.Node
	level int
}

func newHeadingTree(title string) *headingTree {
	root := &content.Node{Title: title}
	return &headingTree{root: root, stack: []headingEntry{{node: root}}}
}

// heading opens a new section at level, closing any deeper or equal ones.
func (h *headingTree) heading(level int, title string) {
	h.flush()
	n := &content.Node{Title: title}
	for len(h.stack) > 1 && h.stack[len(h.stack)-1].level >= level {
		h.stack = h.stack[:len(h.stack)-1]
	}
	parent := h.stack[len(h.stack)-1].node
	parent.Children = append(parent.Children, n)
	h.stack = append(h.stack, headingEntry{node: n, level: level})
}

// paragraph queues a block of body text for the open section.
func (h *headingTree) paragraph(t string) {
	if t == "" {
		return
	}
	if h.text.Len() > 0 {
		h.text.WriteString("\n\n")
	}
	h.text.WriteString(t)
}

// table attaches tabular data to the open section.
func (h *headingTree) table(header []string, rows [][]string) {
	h.flush()
	top := h.stack[len(h.stack)-1].node
	if top.Tabular() {
		top.Children = append(top.Children, &content.Node{Header: header, Rows: rows})
		return
	}
	top.Header = header
	top.Rows = rows
}

func (h *headingTree) flush() {
	t := strings.TrimSpace(h.text.String())
	h.text.Reset()
	if t == "" {
		return
	}
	top := h.stack[len(h.stack)-1].node
	if top.Text != "" {
		top.Text += "\n\n" + t
	} else {
		top.Text = t
	}
}

// document finishes the tree. Headingless input becomes a single section.
func (h *headingTree) document(title string) *content.Document {
	h.flush()
	doc := &content.Document{Title: title, Children: h.root.Children}
	if len(doc.Children) == 0 && (h.root.Text != "" || h.root.Tabular()) {
		doc.Children = []*content.Node{{Text: h.root.Text, Header: h.root.Header, Rows: h.root.Rows}}
	}
	return doc
}
