package aggregates

import (
	"errors"
	"fmt"
	"strings"

	"flowchart-backend/domain/core/entities"
	"flowchart-backend/domain/core/valueobjects"
)

// RegistryKey selects what identifies a diagram node in the registry
type RegistryKey string

const (
	// KeyByID gives every outline node its own diagram node
	KeyByID RegistryKey = "id"
	// KeyByText collapses nodes sharing identical text into one diagram node
	KeyByText RegistryKey = "text"
)

// Valid reports whether the key is a known registry policy
func (k RegistryKey) Valid() bool {
	return k == KeyByID || k == KeyByText
}

var (
	// ErrNoNodes is returned when an outline has nothing to draw
	ErrNoNodes = errors.New("no nodes found in outline")
	// ErrMalformedNode is returned for entries missing an id or text
	ErrMalformedNode = errors.New("malformed outline node")
)

// GraphNode is a registered diagram node
type GraphNode struct {
	ID        valueobjects.DiagramNodeID
	Text      string
	OutlineID string
}

// Edge is a directed parent to child relationship
type Edge struct {
	ParentID   valueobjects.DiagramNodeID
	ChildID    valueobjects.DiagramNodeID
	ParentText string
	ChildText  string
}

// Graph is the request-scoped node registry and edge list built from an outline.
// A Graph is constructed by BuildGraph and never shared between requests.
type Graph struct {
	key     RegistryKey
	nodes   []GraphNode
	index   map[string]int
	edges   []Edge
	orphans []string
}

// BuildGraph registers every outline node and links each one to its declared
// parent. Nodes whose parent id does not resolve are kept as roots and
// reported through Orphans.
func BuildGraph(outline entities.Outline, key RegistryKey) (*Graph, error) {
	if outline.IsEmpty() {
		return nil, ErrNoNodes
	}
	if !key.Valid() {
		key = KeyByID
	}

	g := &Graph{
		key:   key,
		nodes: make([]GraphNode, 0, len(outline.Nodes)),
		index: make(map[string]int, len(outline.Nodes)),
	}

	// outline id -> registry key
	lookup := make(map[string]string, len(outline.Nodes))

	for i, raw := range outline.Nodes {
		if strings.TrimSpace(raw.ID) == "" || raw.Text == "" {
			return nil, fmt.Errorf("%w at position %d: id and text are required", ErrMalformedNode, i)
		}

		k := g.keyOf(raw)
		node := GraphNode{
			ID:        valueobjects.NewDiagramNodeID(raw.ID),
			Text:      raw.Text,
			OutlineID: raw.ID,
		}
		// a repeated key keeps its first position but takes the latest id
		if pos, exists := g.index[k]; exists {
			g.nodes[pos] = node
		} else {
			g.index[k] = len(g.nodes)
			g.nodes = append(g.nodes, node)
		}
		lookup[raw.ID] = k
	}

	for _, raw := range outline.Nodes {
		if raw.IsRoot() {
			continue
		}

		parentKey, ok := lookup[raw.ParentID()]
		if !ok {
			g.orphans = append(g.orphans, raw.ID)
			continue
		}

		parent := g.nodes[g.index[parentKey]]
		child := g.nodes[g.index[g.keyOf(raw)]]
		g.edges = append(g.edges, Edge{
			ParentID:   parent.ID,
			ChildID:    child.ID,
			ParentText: parent.Text,
			ChildText:  child.Text,
		})
	}

	return g, nil
}

func (g *Graph) keyOf(n entities.RawNode) string {
	if g.key == KeyByText {
		return n.Text
	}
	return n.ID
}

// Nodes returns the registered nodes in registration order
func (g *Graph) Nodes() []GraphNode {
	out := make([]GraphNode, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns the edges in the order they were recorded
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// NodeCount returns the number of registered diagram nodes
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Orphans returns outline ids whose declared parent did not resolve
func (g *Graph) Orphans() []string {
	out := make([]string, len(g.orphans))
	copy(out, g.orphans)
	return out
}

// IsEmpty reports whether the registry holds no nodes
func (g *Graph) IsEmpty() bool {
	return g == nil || len(g.nodes) == 0
}
