package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/taxguide/internal/content"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown payloads using goldmark. GFM tables become
// tabular nodes; everything else is kept as Markdown source text so the
// renderer can format it.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, name string) (*content.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader(src))

	title := baseTitle(name)
	tree := newHeadingTree(title)

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			tree.heading(node.Level, string(node.Text(src)))
		case *east.Table:
			header, rows := markdownTable(node, src)
			tree.table(header, rows)
		default:
			tree.paragraph(blockSource(n, src))
		}
	}

	return tree.document(title), nil
}

// blockSource returns the original Markdown of a block, so inline markup
// survives for rendering.
func blockSource(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}
	// Container blocks (lists, quotes) have no lines of their own.
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		t := blockSource(c, src)
		if t == "" {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		if _, ok := n.(*ast.List); ok {
			buf.WriteString("- ")
		}
		buf.WriteString(t)
	}
	return strings.TrimSpace(buf.String())
}

func markdownTable(t *east.Table, src []byte) ([]string, [][]string) {
	var header []string
	var rows [][]string
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, strings.TrimSpace(string(cell.Text(src))))
		}
		if _, ok := row.(*east.TableHeader); ok {
			header = cells
			continue
		}
		rows = append(rows, cells)
	}
	return header, rows
}
