package outline

import (
	"strings"
	"time"

	"github.com/dgallion1/taxguide/internal/content"
)

// WordsPerMinute is the reading pace assumed for reference material.
const WordsPerMinute = 200

// EstimateWords counts whitespace-separated words in every node's text,
// title and table cells.
func EstimateWords(doc *content.Document) int {
	if doc == nil {
		return 0
	}
	words := len(strings.Fields(doc.Title))
	doc.Walk(func(n *content.Node, _ int) {
		words += len(strings.Fields(n.Title))
		words += len(strings.Fields(n.Text))
		words += countCells(n.Header)
		for _, row := range n.Rows {
			words += countCells(row)
		}
	})
	return words
}

// EstimateReadingTime rounds up to whole minutes. An empty document reads
// in zero time; anything else takes at least a minute.
func EstimateReadingTime(doc *content.Document) time.Duration {
	words := EstimateWords(doc)
	if words == 0 {
		return 0
	}
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	return time.Duration(minutes) * time.Minute
}

func countCells(cells []string) int {
	n := 0
	for _, c := range cells {
		n += len(strings.Fields(c))
	}
	return n
}
