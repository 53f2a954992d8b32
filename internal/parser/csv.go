package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/taxguide/internal/content"
)

// csvBatchSize caps the rows of one table section.
const csvBatchSize = 20

// CSVParser handles rate tables. The first record is the header; data rows
// are split into sections of at most csvBatchSize rows.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, name string) (*content.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := &content.Document{Title: baseTitle(name)}
	if len(records) == 0 {
		return doc, nil
	}

	header := records[0]
	data := records[1:]
	for i := range data {
		data[i] = padRow(data[i], len(header))
	}

	if len(data) <= csvBatchSize {
		doc.Children = append(doc.Children, &content.Node{Header: header, Rows: data})
		return doc, nil
	}
	for i := 0; i < len(data); i += csvBatchSize {
		end := min(i+csvBatchSize, len(data))
		doc.Children = append(doc.Children, &content.Node{
			Title:  fmt.Sprintf("Rows %d-%d", i+2, end+1), // 1-indexed, header is row 1
			Header: header,
			Rows:   data[i:end],
		})
	}
	return doc, nil
}

// padRow fits a record to the header width so tables stay rectangular.
func padRow(row []string, width int) []string {
	if len(row) == width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}
