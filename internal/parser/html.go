package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/taxguide/internal/content"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLParser handles HTML payloads such as saved notice pages.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, name string) (*content.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := baseTitle(name)
	if t := findElement(root, atom.Title); t != nil {
		if s := textContent(t); s != "" {
			title = s
		}
	}
	tree := newHeadingTree(title)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.DataAtom); level > 0 {
				tree.heading(level, textContent(n))
				return
			}
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Nav, atom.Footer, atom.Header:
				return
			case atom.Table:
				header, rows := htmlTable(n)
				if len(rows) > 0 {
					tree.table(header, rows)
				}
				return
			case atom.P, atom.Blockquote:
				tree.paragraph(textContent(n))
				return
			case atom.Li:
				if t := textContent(n); t != "" {
					tree.paragraph("- " + t)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findElement(root, atom.Body); body != nil {
		walk(body)
	} else {
		walk(root)
	}
	return tree.document(title), nil
}

func headingLevel(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

// htmlTable reads a table's rows. A first row made of <th> cells, or rows
// inside <thead>, form the header.
func htmlTable(t *html.Node) ([]string, [][]string) {
	var header []string
	var rows [][]string
	var visit func(n *html.Node, inHead bool)
	visit = func(n *html.Node, inHead bool) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Thead:
				visit(c, true)
			case atom.Tbody, atom.Tfoot:
				visit(c, false)
			case atom.Tr:
				cells, allTH := rowCells(c)
				if len(cells) == 0 {
					continue
				}
				if header == nil && (inHead || (allTH && len(rows) == 0)) {
					header = cells
				} else {
					rows = append(rows, cells)
				}
			}
		}
	}
	visit(t, false)
	return header, rows
}

func rowCells(tr *html.Node) ([]string, bool) {
	var cells []string
	allTH := true
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Th:
			cells = append(cells, textContent(c))
		case atom.Td:
			allTH = false
			cells = append(cells, textContent(c))
		}
	}
	return cells, allTH
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
