package parser

import (
	"strings"
	"testing"
)

func TestTextParser_BasicParagraphSplitting(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Title != "notes" {
		t.Errorf("expected title %q, got %q", "notes", doc.Title)
	}
	if len(doc.Children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(doc.Children))
	}

	want := []string{
		"First paragraph line one.\nFirst paragraph line two.",
		"Second paragraph.",
		"Third paragraph.",
	}
	for i, w := range want {
		if doc.Children[i].Text != w {
			t.Errorf("child[%d]: expected %q, got %q", i, w, doc.Children[i].Text)
		}
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Children) != 0 {
		t.Errorf("expected 0 children for empty input, got %d", len(doc.Children))
	}
}

func TestTextParser_BlankAndWhitespaceLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"multiple blank lines", "Para one.\n\n\n\nPara two."},
		{"whitespace-only line", "Para one.\n   \nPara two."},
	}
	p := &TextParser{}
	for _, tt := range tests {
		doc, err := p.Parse(strings.NewReader(tt.input), "gaps.txt")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if len(doc.Children) != 2 {
			t.Errorf("%s: expected 2 children, got %d", tt.name, len(doc.Children))
		}
	}
}
