// Package parsers turns free-form text into outlines without any external
// collaborator. It is the deterministic fallback for model-backed extraction.
package parsers

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"flowchart-backend/domain/core/entities"
)

const (
	// IndentWidth is the number of leading whitespace characters per level
	IndentWidth = 4
	// MaxNodeTextLength caps the text kept for a single line
	MaxNodeTextLength = 100
	// EmptyInputText labels the placeholder node returned for blank input
	EmptyInputText = "Empty Input"
)

// IndentParser derives a hierarchy from line indentation
type IndentParser struct{}

// NewIndentParser creates a new indentation parser
func NewIndentParser() *IndentParser {
	return &IndentParser{}
}

// stackEntry is an open ancestor candidate
type stackEntry struct {
	level int
	id    string
}

// Parse converts text into an outline. It never fails: blank input yields a
// single placeholder root, and irregular indentation still produces a
// best-effort hierarchy. Each line's parent is the nearest preceding line
// with a strictly smaller indentation level.
func (p *IndentParser) Parse(text string) entities.Outline {
	lines := significantLines(text)
	if len(lines) == 0 {
		return entities.Outline{
			Nodes:  []entities.RawNode{entities.NewRawNode("1", EmptyInputText, "")},
			Source: entities.SourceFallback,
		}
	}

	nodes := make([]entities.RawNode, 0, len(lines))
	stack := make([]stackEntry, 0, 8)

	for i, line := range lines {
		level := indentLevel(line)
		id := strconv.Itoa(i + 1)

		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}

		parent := ""
		if len(stack) > 0 {
			parent = stack[len(stack)-1].id
		}

		nodes = append(nodes, entities.NewRawNode(id, truncate(strings.TrimSpace(line), MaxNodeTextLength), parent))
		stack = append(stack, stackEntry{level: level, id: id})
	}

	return entities.Outline{Nodes: nodes, Source: entities.SourceFallback}
}

// significantLines splits text into lines, strips trailing whitespace and
// drops lines that are blank.
func significantLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// indentLevel counts leading whitespace characters and divides by IndentWidth
func indentLevel(line string) int {
	body := strings.TrimLeftFunc(line, unicode.IsSpace)
	indent := utf8.RuneCountInString(line[:len(line)-len(body)])
	return indent / IndentWidth
}

// truncate keeps at most limit characters of s
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
