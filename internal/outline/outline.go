package outline

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/dgallion1/taxguide/internal/content"
)

// Section is one titled node of a payload tree, addressable by anchor.
type Section struct {
	Anchor     string   `json:"anchor"`
	Title      string   `json:"title"`
	Level      int      `json:"level"`
	Breadcrumb []string `json:"breadcrumb,omitempty"`
}

// Build walks a document depth-first and returns its titled sections in
// document order. Untitled nodes contribute no entry but their children do.
func Build(doc *content.Document) []Section {
	if doc == nil {
		return nil
	}
	var sections []Section
	seen := make(map[string]int)
	for _, child := range doc.Children {
		walkNode(child, nil, 1, seen, &sections)
	}
	return sections
}

func walkNode(node *content.Node, breadcrumb []string, level int, seen map[string]int, out *[]Section) {
	bc := breadcrumb
	next := level
	if title := strings.TrimSpace(node.Title); title != "" {
		*out = append(*out, Section{
			Anchor:     uniqueAnchor(Slug(title), seen),
			Title:      title,
			Level:      level,
			Breadcrumb: copyBreadcrumb(breadcrumb),
		})
		bc = append(copyBreadcrumb(breadcrumb), title)
		next = level + 1
	}
	for _, child := range node.Children {
		walkNode(child, bc, next, seen, out)
	}
}

// Slug lowercases a title and joins its letter and digit runs with '-'.
// Hangul and other letters are kept as-is.
func Slug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	if b.Len() == 0 {
		return "section"
	}
	return b.String()
}

func uniqueAnchor(slug string, seen map[string]int) string {
	n, taken := seen[slug]
	if !taken {
		seen[slug] = 1
		return slug
	}
	for {
		n++
		candidate := slug + "-" + strconv.Itoa(n)
		if _, clash := seen[candidate]; !clash {
			seen[slug] = n
			seen[candidate] = 1
			return candidate
		}
	}
}

func copyBreadcrumb(bc []string) []string {
	if len(bc) == 0 {
		return nil
	}
	out := make([]string, len(bc))
	copy(out, bc)
	return out
}
