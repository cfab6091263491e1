package domain

import "fmt"

// Label is the binary relevance class.
type Label uint8

const (
	// Irrelevant is the negative class.
	Irrelevant Label = 0
	// Relevant is the positive class.
	Relevant Label = 1
)

// NumLabels is the number of classes the classifier distinguishes.
const NumLabels = 2

// String returns the wire name of the label.
func (l Label) String() string {
	switch l {
	case Irrelevant:
		return "irrelevant"
	case Relevant:
		return "relevant"
	default:
		return fmt.Sprintf("label(%d)", uint8(l))
	}
}

// Valid reports whether l is one of the two known labels.
func (l Label) Valid() bool { return l == Irrelevant || l == Relevant }

// ParseLabel converts a wire name back into a Label.
func ParseLabel(s string) (Label, error) {
	switch s {
	case "irrelevant":
		return Irrelevant, nil
	case "relevant":
		return Relevant, nil
	default:
		return 0, fmt.Errorf("unknown label %q", s)
	}
}
