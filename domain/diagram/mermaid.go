// Package diagram serializes node graphs into mermaid flowchart markup.
package diagram

import (
	"io"
	"strings"

	"flowchart-backend/domain/core/aggregates"
	"flowchart-backend/domain/core/valueobjects"

	"github.com/nao1215/markdown/mermaid/flowchart"
)

// StyleDirective is applied uniformly to every node
const StyleDirective = "classDef default fill:#e1f5ff,stroke:#01579b,stroke-width:3px,color:#000,font-size:16px,font-weight:bold,padding:15px"

// MermaidEmitter writes top-down mermaid flowcharts
type MermaidEmitter struct{}

// NewMermaidEmitter creates a new emitter
func NewMermaidEmitter() *MermaidEmitter {
	return &MermaidEmitter{}
}

// Emit returns the flowchart markup for g: one declaration per node in
// registration order, a blank line, one arrow per edge in recording order,
// another blank line, then the style directive. The caller guarantees g is
// non-empty.
func (e *MermaidEmitter) Emit(g *aggregates.Graph) string {
	fc := flowchart.NewFlowchart(io.Discard, flowchart.WithOrientalTopDown())

	for _, node := range g.Nodes() {
		fc.NodeWithText(node.ID.String(), valueobjects.NewLabel(node.Text).String())
	}
	for _, edge := range g.Edges() {
		fc.LinkWithArrowHead(edge.ParentID.String(), edge.ChildID.String())
	}

	// header plus one line per declaration
	lines := strings.Split(fc.String(), "\n")
	split := 1 + g.NodeCount()

	var b strings.Builder
	b.WriteString(strings.Join(lines[:split], "\n"))
	b.WriteString("\n\n")
	if len(lines) > split {
		b.WriteString(strings.Join(lines[split:], "\n"))
		b.WriteString("\n")
	}
	b.WriteString("\n    ")
	b.WriteString(StyleDirective)
	return b.String()
}
