package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/taxguide/internal/content"
)

// JSONParser handles the static tax reference documents:
//
//	{"title": "...", "sections": [{"title", "text", "header", "rows", "sections"}]}
//
// Unknown fields are rejected so typos in hand-edited data surface early.
type JSONParser struct{}

type jsonDocument struct {
	Title    string        `json:"title"`
	Sections []jsonSection `json:"sections"`
}

type jsonSection struct {
	Title    string        `json:"title"`
	Text     string        `json:"text"`
	Lines    []string      `json:"lines"`
	Header   []string      `json:"header"`
	Rows     [][]string    `json:"rows"`
	Sections []jsonSection `json:"sections"`
}

func (p *JSONParser) Parse(r io.Reader, name string) (*content.Document, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var jd jsonDocument
	if err := dec.Decode(&jd); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	doc := &content.Document{Title: jd.Title}
	if doc.Title == "" {
		doc.Title = baseTitle(name)
	}
	for i, s := range jd.Sections {
		n, err := jsonNode(s, fmt.Sprintf("sections[%d]", i))
		if err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		doc.Children = append(doc.Children, n)
	}
	return doc, nil
}

func jsonNode(s jsonSection, at string) (*content.Node, error) {
	text := s.Text
	if len(s.Lines) > 0 {
		text = strings.TrimSpace(strings.Join(append([]string{text}, s.Lines...), "\n\n"))
	}
	for i, row := range s.Rows {
		if len(s.Header) > 0 && len(row) != len(s.Header) {
			return nil, fmt.Errorf("%s.rows[%d]: %d cells, header has %d", at, i, len(row), len(s.Header))
		}
	}
	n := &content.Node{
		Title:  s.Title,
		Text:   text,
		Header: s.Header,
		Rows:   s.Rows,
	}
	for i, c := range s.Sections {
		child, err := jsonNode(c, fmt.Sprintf("%s.sections[%d]", at, i))
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}
