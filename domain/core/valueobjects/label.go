package valueobjects

import "strings"

const (
	// MaxLabelLength is the longest label rendered without truncation
	MaxLabelLength = 50
	// truncatedLabelLength is how much of an over-long label is kept
	truncatedLabelLength = 47
	// Ellipsis marks a truncated label
	Ellipsis = "..."
)

var labelReplacer = strings.NewReplacer(
	`"`, "'",
	"[", "(",
	"]", ")",
	"\n", " ",
)

// Label is node text made safe for a quoted diagram label
type Label struct {
	value string
}

// NewLabel sanitizes text for use inside a diagram node declaration.
// Quotes become single quotes, square brackets become parentheses and
// newlines become spaces; the result is capped at MaxLabelLength characters.
func NewLabel(text string) Label {
	safe := labelReplacer.Replace(text)

	runes := []rune(safe)
	if len(runes) > MaxLabelLength {
		return Label{value: string(runes[:truncatedLabelLength]) + Ellipsis}
	}

	return Label{value: safe}
}

// String returns the sanitized label
func (l Label) String() string {
	return l.value
}
