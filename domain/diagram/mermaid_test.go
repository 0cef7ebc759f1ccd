package diagram

import (
	"strings"
	"testing"

	"flowchart-backend/domain/core/aggregates"
	"flowchart-backend/domain/core/entities"
	"flowchart-backend/domain/core/parsers"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, nodes ...entities.RawNode) *aggregates.Graph {
	t.Helper()
	g, err := aggregates.BuildGraph(entities.Outline{Nodes: nodes}, aggregates.KeyByID)
	require.NoError(t, err)
	return g
}

func TestMermaidEmitter_Emit(t *testing.T) {
	g := build(t,
		entities.NewRawNode("1", "Topic A", ""),
		entities.NewRawNode("2", "Sub A1", "1"),
	)

	want := `flowchart TD
    node1["Topic A"]
    node2["Sub A1"]

    node1-->node2

    ` + StyleDirective

	got := NewMermaidEmitter().Emit(g)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("markup mismatch (-want +got):\n%s", diff)
	}
}

func TestMermaidEmitter_SingleNodeKeepsSeparators(t *testing.T) {
	g := build(t, entities.NewRawNode("1", "Alone", ""))

	want := "flowchart TD\n    node1[\"Alone\"]\n\n\n    " + StyleDirective

	assert.Equal(t, want, NewMermaidEmitter().Emit(g))
}

func TestMermaidEmitter_Sanitization(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "double quotes", text: `say "hi"`, want: `node1["say 'hi'"]`},
		{name: "square brackets", text: "list[0]", want: `node1["list(0)"]`},
		{name: "newlines", text: "two\nlines", want: `node1["two lines"]`},
		{name: "exactly fifty characters kept", text: strings.Repeat("a", 50), want: `node1["` + strings.Repeat("a", 50) + `"]`},
		{name: "over fifty truncated", text: strings.Repeat("b", 51), want: `node1["` + strings.Repeat("b", 47) + `..."]`},
		{name: "replacement happens before truncation", text: strings.Repeat("[", 60), want: `node1["` + strings.Repeat("(", 47) + `..."]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewMermaidEmitter().Emit(build(t, entities.NewRawNode("1", tt.text, "")))
			assert.Contains(t, got, tt.want)
		})
	}
}

func TestMermaidEmitter_TopicsScenario(t *testing.T) {
	outline := parsers.NewIndentParser().Parse("Topic A\n    Sub A1\n    Sub A2\nTopic B")
	require.Len(t, outline.Nodes, 4)

	g, err := aggregates.BuildGraph(outline, aggregates.KeyByID)
	require.NoError(t, err)
	require.Equal(t, 2, g.EdgeCount())

	markup := NewMermaidEmitter().Emit(g)

	declarations, arrows := 0, 0
	for _, line := range strings.Split(markup, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.Contains(line, "-->"):
			arrows++
		case strings.HasPrefix(line, "node") && strings.HasSuffix(line, `"]`):
			declarations++
		}
	}
	assert.Equal(t, 4, declarations)
	assert.Equal(t, 2, arrows)
	assert.Contains(t, markup, "node1-->node2")
	assert.Contains(t, markup, "node1-->node3")
	assert.True(t, strings.HasSuffix(markup, StyleDirective))
}

func TestMermaidEmitter_EdgeOrderFollowsOutline(t *testing.T) {
	g := build(t,
		entities.NewRawNode("3", "c", "1"),
		entities.NewRawNode("1", "a", ""),
		entities.NewRawNode("2", "b", "1"),
	)

	markup := NewMermaidEmitter().Emit(g)
	assert.Less(t, strings.Index(markup, "node1-->node3"), strings.Index(markup, "node1-->node2"))
}
