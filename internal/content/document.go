package content

// Document is the parsed payload of a unit's DataRef.
type Document struct {
	Title    string  // Document title (from metadata or filename)
	Children []*Node // Top-level sections
}

// Node is a recursive section in the payload tree.
type Node struct {
	Title    string     // Section heading (empty for leaf text)
	Text     string     // Markdown-flavoured body text (may be empty for container nodes)
	Page     int        // Source page/line (0 if N/A)
	Header   []string   // Table column labels, if the section is tabular
	Rows     [][]string // Table rows
	Children []*Node    // Subsections
}

// Tabular reports whether the node carries table data.
func (n *Node) Tabular() bool {
	return len(n.Rows) > 0
}

// Walk visits every node depth-first, in document order.
func (d *Document) Walk(fn func(n *Node, depth int)) {
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		fn(n, depth)
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	for _, c := range d.Children {
		visit(c, 1)
	}
}
