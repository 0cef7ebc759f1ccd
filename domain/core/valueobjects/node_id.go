package valueobjects

// internalIDPrefix is prepended to outline ids to form diagram identifiers
const internalIDPrefix = "node"

// DiagramNodeID is the identifier a node carries inside the diagram markup.
// It is derived from the outline id and is therefore stable for a request.
type DiagramNodeID struct {
	value string
}

// NewDiagramNodeID derives the diagram identifier for an outline id
func NewDiagramNodeID(outlineID string) DiagramNodeID {
	return DiagramNodeID{value: internalIDPrefix + outlineID}
}

// String returns the string representation of the DiagramNodeID
func (id DiagramNodeID) String() string {
	return id.value
}
