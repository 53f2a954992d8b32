package render

import (
	"bytes"
	"strings"

	"github.com/dgallion1/taxguide/internal/content"
	"github.com/dgallion1/taxguide/internal/outline"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// writer appends payload nodes to a fragment. Titled nodes are visited in
// the same pre-order as outline.Build so heading ids line up with anchors.
type writer struct {
	md      goldmark.Markdown
	anchors []outline.Section
	next    int
}

func (w *writer) anchor(title string) string {
	if strings.TrimSpace(title) == "" {
		return ""
	}
	if w.next < len(w.anchors) {
		a := w.anchors[w.next].Anchor
		w.next++
		return a
	}
	return outline.Slug(title)
}

// table draws every tabular node as a <table>; surrounding prose becomes notes.
func (w *writer) table(root *html.Node, doc *content.Document) {
	var visit func(n *content.Node, depth int)
	visit = func(n *content.Node, depth int) {
		if n.Tabular() {
			t := w.tableElement(n)
			if id := w.anchor(n.Title); id != "" {
				t.Attr = append(t.Attr, html.Attribute{Key: "id", Val: id})
				caption := element(atom.Caption)
				caption.AppendChild(text(strings.TrimSpace(n.Title)))
				t.InsertBefore(caption, t.FirstChild)
			}
			root.AppendChild(t)
		} else {
			w.heading(root, n, depth)
		}
		if strings.TrimSpace(n.Text) != "" {
			note := element(atom.Div, "class", "note")
			w.markdown(note, n.Text)
			root.AppendChild(note)
		}
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	for _, c := range doc.Children {
		visit(c, 1)
	}
}

// cards draws each top-level section as a card.
func (w *writer) cards(root *html.Node, doc *content.Document) {
	grid := element(atom.Div, "class", "cards")
	for _, c := range doc.Children {
		card := element(atom.Div, "class", "card")
		if id := w.anchor(c.Title); id != "" {
			card.Attr = append(card.Attr, html.Attribute{Key: "id", Val: id})
			h := element(atom.H3, "class", "card-title")
			h.AppendChild(text(strings.TrimSpace(c.Title)))
			card.AppendChild(h)
		}
		w.body(card, c)
		for _, cc := range c.Children {
			w.section(card, cc, 2)
		}
		grid.AppendChild(card)
	}
	root.AppendChild(grid)
}

// accordion draws each top-level section as a collapsible <details> block.
func (w *writer) accordion(root *html.Node, doc *content.Document) {
	for _, c := range doc.Children {
		item := element(atom.Details, "class", "accordion-item")
		title := strings.TrimSpace(c.Title)
		if id := w.anchor(title); id != "" {
			item.Attr = append(item.Attr, html.Attribute{Key: "id", Val: id})
		}
		if title == "" {
			title = doc.Title
		}
		summary := element(atom.Summary)
		summary.AppendChild(text(title))
		item.AppendChild(summary)

		panel := element(atom.Div, "class", "accordion-body")
		w.body(panel, c)
		for _, cc := range c.Children {
			w.section(panel, cc, 2)
		}
		item.AppendChild(panel)
		root.AppendChild(item)
	}
}

// document draws the tree as nested headings and prose.
func (w *writer) document(root *html.Node, doc *content.Document) {
	for _, c := range doc.Children {
		w.section(root, c, 1)
	}
}

func (w *writer) section(parent *html.Node, n *content.Node, depth int) {
	w.heading(parent, n, depth)
	w.body(parent, n)
	for _, c := range n.Children {
		w.section(parent, c, depth+1)
	}
}

func (w *writer) heading(parent *html.Node, n *content.Node, depth int) {
	id := w.anchor(n.Title)
	if id == "" {
		return
	}
	h := element(headingAtom(depth), "id", id)
	h.AppendChild(text(strings.TrimSpace(n.Title)))
	parent.AppendChild(h)
}

func (w *writer) body(parent *html.Node, n *content.Node) {
	if strings.TrimSpace(n.Text) != "" {
		w.markdown(parent, n.Text)
	}
	if n.Tabular() {
		parent.AppendChild(w.tableElement(n))
	}
}

// markdown converts body text with goldmark and grafts the result under parent.
func (w *writer) markdown(parent *html.Node, src string) {
	var buf bytes.Buffer
	if err := w.md.Convert([]byte(src), &buf); err == nil {
		ctx := element(atom.Div)
		if nodes, err := html.ParseFragment(&buf, ctx); err == nil {
			for _, n := range nodes {
				parent.AppendChild(n)
			}
			return
		}
	}
	p := element(atom.P)
	p.AppendChild(text(src))
	parent.AppendChild(p)
}

func (w *writer) tableElement(n *content.Node) *html.Node {
	t := element(atom.Table, "class", "data-table")
	if len(n.Header) > 0 {
		thead := element(atom.Thead)
		tr := element(atom.Tr)
		for _, h := range n.Header {
			th := element(atom.Th, "scope", "col")
			th.AppendChild(text(h))
			tr.AppendChild(th)
		}
		thead.AppendChild(tr)
		t.AppendChild(thead)
	}
	tbody := element(atom.Tbody)
	for _, row := range n.Rows {
		tr := element(atom.Tr)
		for _, cell := range row {
			td := element(atom.Td)
			td.AppendChild(text(cell))
			tr.AppendChild(td)
		}
		tbody.AppendChild(tr)
	}
	t.AppendChild(tbody)
	return t
}
