package content

// Kind selects the renderer responsible for drawing a unit.
type Kind string

const (
	KindTable     Kind = "table"
	KindCards     Kind = "cards"
	KindAccordion Kind = "accordion"
	KindDocument  Kind = "document"
	KindStatic    Kind = "static"
)

// Kinds lists every valid kind in a stable order.
var Kinds = []Kind{KindTable, KindCards, KindAccordion, KindDocument, KindStatic}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindTable, KindCards, KindAccordion, KindDocument, KindStatic:
		return true
	}
	return false
}

// Unit is one addressable piece of content.
type Unit struct {
	Key        string `json:"key"`
	Path       string `json:"path"`
	Title      string `json:"title"`
	SequenceID string `json:"sequence_id"`
	DataRef    string `json:"data_ref,omitempty"` // Empty for statically bundled units
	Kind       Kind   `json:"kind"`
}

// Sequence is an ordered list of units. Slice order is reading order.
type Sequence struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Units []Unit `json:"units"`
}

// Len returns the number of units in the sequence.
func (s Sequence) Len() int { return len(s.Units) }
