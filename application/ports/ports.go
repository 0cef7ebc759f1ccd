package ports

import (
	"context"
	"errors"
	"time"

	"flowchart-backend/domain/core/entities"
	"flowchart-backend/domain/events"
)

// Errors returned by ModelRunner implementations
var (
	ErrModelNotFound = errors.New("model runner not found")
	ErrModelTimeout  = errors.New("model runner timed out")
	ErrModelFailed   = errors.New("model runner failed")
)

// Errors returned by DiagramRenderer implementations
var (
	ErrRendererNotFound = errors.New("diagram renderer not found")
	ErrRenderTimeout    = errors.New("diagram renderer timed out")
	ErrRenderFailed     = errors.New("PNG generation failed")
	ErrCircuitOpen      = errors.New("diagram renderer temporarily unavailable")
)

// ModelRunner sends a prompt to a text-generation model and returns its raw output
type ModelRunner interface {
	// Run blocks until the model answers, the runner's time budget expires or ctx is done
	Run(ctx context.Context, prompt string) (string, error)

	// Name identifies the backend for logs and readiness probes
	Name() string
}

// OutlineExtractor turns free-form text into an outline.
// Implementations never fail; they degrade to a deterministic parser instead.
type OutlineExtractor interface {
	Extract(ctx context.Context, text string) entities.Outline
}

// RenderRequest is one diagram to render. JobID names the staged files and the output image.
type RenderRequest struct {
	JobID  string
	Markup string
}

// RenderResult describes a successfully rendered image
type RenderResult struct {
	JobID     string
	FileName  string
	ImagePath string
	Duration  time.Duration
}

// DiagramRenderer turns diagram markup into an image file
type DiagramRenderer interface {
	Render(ctx context.Context, req RenderRequest) (*RenderResult, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}
