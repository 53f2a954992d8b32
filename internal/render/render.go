package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/taxguide/internal/content"
	"github.com/dgallion1/taxguide/internal/outline"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/errgroup"
)

// BoundaryAttr marks the root element of every rendered unit. The client
// measures these elements to build scroll ticks.
const BoundaryAttr = "data-unit-path"

// placeholderText is shown when a unit cannot be drawn.
const placeholderText = "이 항목을 표시할 수 없습니다."

// Documents supplies parsed payloads.
type Documents interface {
	Document(ctx context.Context, ref string) (*content.Document, error)
}

// Fragment is one rendered unit.
type Fragment struct {
	Key         string            `json:"key"`
	Path        string            `json:"path"`
	Title       string            `json:"title"`
	Kind        content.Kind      `json:"kind"`
	HTML        string            `json:"html"`
	Outline     []outline.Section `json:"outline,omitempty"`
	ReadingMins int               `json:"reading_minutes,omitempty"`
	Placeholder bool              `json:"placeholder,omitempty"`
}

// Dispatcher picks the renderer for a unit by its kind.
type Dispatcher struct {
	docs Documents
	md   goldmark.Markdown
	log  *slog.Logger

	// Parallel payload loads in RenderWindow.
	Concurrency int
}

func NewDispatcher(docs Documents, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		docs:        docs,
		md:          goldmark.New(),
		log:         log,
		Concurrency: 4,
	}
}

// Render draws a single unit. Failures degrade to a placeholder fragment.
func (d *Dispatcher) Render(ctx context.Context, u content.Unit) Fragment {
	if !u.Kind.Valid() {
		d.log.Warn("unknown unit kind", "key", u.Key, "kind", u.Kind)
		return d.placeholder(u)
	}

	var doc *content.Document
	if u.Kind != content.KindStatic && u.DataRef != "" {
		var err error
		doc, err = d.docs.Document(ctx, u.DataRef)
		if err != nil {
			d.log.Warn("payload unavailable", "key", u.Key, "ref", u.DataRef, "error", err)
			return d.placeholder(u)
		}
	}
	if doc == nil {
		doc = &content.Document{Title: u.Title}
	}

	sections := outline.Build(doc)
	w := &writer{md: d.md, anchors: sections}
	root := unitRoot(u)

	switch u.Kind {
	case content.KindTable:
		w.table(root, doc)
	case content.KindCards:
		w.cards(root, doc)
	case content.KindAccordion:
		w.accordion(root, doc)
	case content.KindDocument:
		w.document(root, doc)
	case content.KindStatic:
		sections = nil
		doc = nil
	default:
		return d.placeholder(u)
	}

	out, err := serialize(root)
	if err != nil {
		d.log.Error("serialize fragment", "key", u.Key, "error", err)
		return d.placeholder(u)
	}
	return Fragment{
		Key:         u.Key,
		Path:        u.Path,
		Title:       u.Title,
		Kind:        u.Kind,
		HTML:        out,
		Outline:     sections,
		ReadingMins: int(outline.EstimateReadingTime(doc).Minutes()),
	}
}

// RenderWindow renders a materialized window in order. Payloads load in
// parallel.
func (d *Dispatcher) RenderWindow(ctx context.Context, units []content.Unit) []Fragment {
	out := make([]Fragment, len(units))
	g, gctx := errgroup.WithContext(ctx)
	if d.Concurrency > 0 {
		g.SetLimit(d.Concurrency)
	}
	for i, u := range units {
		g.Go(func() error {
			out[i] = d.Render(gctx, u)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (d *Dispatcher) placeholder(u content.Unit) Fragment {
	root := unitRoot(u)
	setClass(root, "unit unit-placeholder")
	p := element(atom.P, "class", "placeholder")
	p.AppendChild(text(placeholderText))
	root.AppendChild(p)

	out, err := serialize(root)
	if err != nil {
		out = ""
	}
	return Fragment{
		Key:         u.Key,
		Path:        u.Path,
		Title:       u.Title,
		Kind:        u.Kind,
		HTML:        out,
		Placeholder: true,
	}
}

// unitRoot builds the <section> boundary element with the unit heading.
func unitRoot(u content.Unit) *html.Node {
	root := element(atom.Section,
		"class", fmt.Sprintf("unit unit-%s", u.Kind),
		BoundaryAttr, u.Path,
		"data-unit-key", u.Key,
	)
	h := element(atom.H2)
	h.AppendChild(text(u.Title))
	root.AppendChild(h)
	return root
}

func serialize(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func setClass(n *html.Node, class string) {
	for i, a := range n.Attr {
		if a.Key == "class" {
			n.Attr[i].Val = class
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: class})
}

// Attr returns the value of an attribute, or "".
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func headingAtom(depth int) atom.Atom {
	switch {
	case depth <= 1:
		return atom.H3
	case depth == 2:
		return atom.H4
	case depth == 3:
		return atom.H5
	default:
		return atom.H6
	}
}
