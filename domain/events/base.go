package events

import "time"

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// SourceBackend is the event source name used when publishing
const SourceBackend = "flowchart.backend"

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// FlowchartGenerated is raised after a diagram image was rendered
type FlowchartGenerated struct {
	BaseEvent
	ImageURL  string `json:"image_url"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
	Source    string `json:"source"`
}

// NewFlowchartGenerated creates a FlowchartGenerated event
func NewFlowchartGenerated(jobID, imageURL string, nodes, edges int, source string, timestamp time.Time) FlowchartGenerated {
	return FlowchartGenerated{
		BaseEvent: BaseEvent{
			AggregateID: jobID,
			EventType:   "flowchart.generated",
			Timestamp:   timestamp,
			Version:     1,
		},
		ImageURL:  imageURL,
		NodeCount: nodes,
		EdgeCount: edges,
		Source:    source,
	}
}

// FlowchartFailed is raised when rendering did not produce an image
type FlowchartFailed struct {
	BaseEvent
	Reason string `json:"reason"`
}

// NewFlowchartFailed creates a FlowchartFailed event
func NewFlowchartFailed(jobID, reason string, timestamp time.Time) FlowchartFailed {
	return FlowchartFailed{
		BaseEvent: BaseEvent{
			AggregateID: jobID,
			EventType:   "flowchart.failed",
			Timestamp:   timestamp,
			Version:     1,
		},
		Reason: reason,
	}
}
