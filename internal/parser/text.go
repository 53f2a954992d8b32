package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/taxguide/internal/content"
)

// TextParser handles plain text payloads. Each blank-line separated
// paragraph becomes one section.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, name string) (*content.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	doc := &content.Document{Title: baseTitle(name)}
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			doc.Children = append(doc.Children, &content.Node{Text: current.String()})
			current.Reset()
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	return doc, nil
}
