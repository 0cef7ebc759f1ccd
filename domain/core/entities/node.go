package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// OutlineSource records which extraction path produced an outline
type OutlineSource string

const (
	SourceModel    OutlineSource = "model"
	SourceFallback OutlineSource = "fallback"
)

// RawNode is a single entry of an extracted outline.
// Parent is nil for root nodes.
type RawNode struct {
	ID     string  `json:"id"`
	Text   string  `json:"text"`
	Parent *string `json:"parent"`
}

// NewRawNode creates a RawNode; an empty parent means the node is a root
func NewRawNode(id, text, parent string) RawNode {
	node := RawNode{ID: id, Text: text}
	if parent != "" {
		p := parent
		node.Parent = &p
	}
	return node
}

// IsRoot reports whether the node declares no parent
func (n RawNode) IsRoot() bool {
	return n.Parent == nil || *n.Parent == ""
}

// ParentID returns the declared parent id or an empty string for roots
func (n RawNode) ParentID() string {
	if n.Parent == nil {
		return ""
	}
	return *n.Parent
}

// UnmarshalJSON accepts ids and parents given either as strings or as numbers,
// since language models frequently emit {"id": 1, "parent": null}.
func (n *RawNode) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID     json.RawMessage `json:"id"`
		Text   string          `json:"text"`
		Parent json.RawMessage `json:"parent"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	id, err := scalarToString(aux.ID)
	if err != nil {
		return fmt.Errorf("node id: %w", err)
	}
	n.ID = id
	n.Text = aux.Text
	n.Parent = nil

	if len(aux.Parent) > 0 && !bytes.Equal(aux.Parent, []byte("null")) {
		parent, err := scalarToString(aux.Parent)
		if err != nil {
			return fmt.Errorf("node parent: %w", err)
		}
		if parent != "" {
			n.Parent = &parent
		}
	}
	return nil
}

// scalarToString converts a JSON string or number into its string form
func scalarToString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		if i, err := num.Int64(); err == nil {
			return strconv.FormatInt(i, 10), nil
		}
		return num.String(), nil
	}

	return "", fmt.Errorf("expected string or number, got %s", string(raw))
}

// Outline is the parent-linked node list produced by either extraction path
type Outline struct {
	Nodes  []RawNode     `json:"nodes"`
	Source OutlineSource `json:"-"`
}

// Len returns the number of nodes in the outline
func (o Outline) Len() int {
	return len(o.Nodes)
}

// IsEmpty reports whether the outline has no nodes
func (o Outline) IsEmpty() bool {
	return len(o.Nodes) == 0
}
