// Package messaging holds event publishers used when no event bus is configured.
package messaging

import (
	"context"

	"go.uber.org/zap"

	"flowchart-backend/application/ports"
	"flowchart-backend/domain/events"
)

// LogPublisher writes events to the log instead of an event bus
type LogPublisher struct {
	logger *zap.Logger
}

var _ ports.EventPublisher = (*LogPublisher)(nil)

// NewLogPublisher creates a publisher that only logs
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs a single event
func (p *LogPublisher) Publish(_ context.Context, event events.DomainEvent) error {
	p.logger.Debug("Event",
		zap.String("eventType", event.GetEventType()),
		zap.String("aggregateID", event.GetAggregateID()),
		zap.Time("timestamp", event.GetTimestamp()),
	)
	return nil
}

// PublishBatch logs every event
func (p *LogPublisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for _, event := range domainEvents {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
