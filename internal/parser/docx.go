package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/taxguide/internal/content"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles guidance documents authored in Word. Heading styles
// open sections; tables become tabular nodes.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, name string) (*content.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	title := baseTitle(name)
	tree := newHeadingTree(title)

	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			text := docxParagraphText(it)
			if text == "" {
				continue
			}
			if level := docxHeadingLevel(it); level > 0 {
				tree.heading(level, text)
			} else {
				tree.paragraph(text)
			}
		case *docx.Table:
			header, rows := docxTable(it)
			if len(rows) > 0 || len(header) > 0 {
				tree.table(header, rows)
			}
		}
	}

	return tree.document(title), nil
}

// docxHeadingLevel maps "Heading1" / "heading 1" styles to 1..6.
func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(style, "heading") || len(style) != len("heading")+1 {
		return 0
	}
	level := int(style[len(style)-1] - '0')
	if level < 1 || level > 6 {
		return 0
	}
	return level
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// docxTable treats the first row as the header.
func docxTable(t *docx.Table) ([]string, [][]string) {
	var all [][]string
	for _, row := range t.TableRows {
		var cells []string
		for _, cell := range row.TableCells {
			var parts []string
			for _, para := range cell.Paragraphs {
				if s := docxParagraphText(para); s != "" {
					parts = append(parts, s)
				}
			}
			cells = append(cells, strings.Join(parts, " "))
		}
		all = append(all, cells)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], all[1:]
}
