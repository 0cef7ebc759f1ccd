package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"flowchart-backend/application/ports"
	"flowchart-backend/domain/core/aggregates"
	"flowchart-backend/domain/diagram"
	"flowchart-backend/domain/events"
	appErrors "flowchart-backend/pkg/errors"
	"flowchart-backend/pkg/observability"
	"flowchart-backend/pkg/utils"
)

// Generation outcomes recorded in metrics
const (
	outcomeSuccess      = "success"
	outcomeInvalidInput = "invalid_input"
	outcomeNoNodes      = "no_nodes"
	outcomeRenderFailed = "render_failed"
)

const (
	// StaticURLPrefix is the public path generated images are served under
	StaticURLPrefix = "/static/"

	msgNoText          = "No text provided"
	msgNoNodes         = "Could not generate any nodes from the text"
	opRender           = "PNG generation"
	msgRendererMissing = "Mermaid CLI not found. Please install Node.js and run: npm install -g @mermaid-js/mermaid-cli"
)

// GenerateResult is the outcome of a successful generation
type GenerateResult struct {
	JobID     string
	ImageURL  string
	NodeCount int
	EdgeCount int
	Mermaid   string
	Source    string
}

// FlowchartService runs the text to image pipeline for one request at a time.
// It holds no per-request state; every call builds its own graph.
type FlowchartService struct {
	extractor   ports.OutlineExtractor
	emitter     *diagram.MermaidEmitter
	renderer    ports.DiagramRenderer
	publisher   ports.EventPublisher
	registryKey aggregates.RegistryKey
	metrics     *observability.Collector
	logger      *zap.Logger
	now         func() time.Time
}

// NewFlowchartService creates a new flowchart service. publisher may be nil.
func NewFlowchartService(
	extractor ports.OutlineExtractor,
	emitter *diagram.MermaidEmitter,
	renderer ports.DiagramRenderer,
	publisher ports.EventPublisher,
	registryKey aggregates.RegistryKey,
	metrics *observability.Collector,
	logger *zap.Logger,
) *FlowchartService {
	return &FlowchartService{
		extractor:   extractor,
		emitter:     emitter,
		renderer:    renderer,
		publisher:   publisher,
		registryKey: registryKey,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Generate turns free-form text into a rendered flowchart image
func (s *FlowchartService) Generate(ctx context.Context, text string) (*GenerateResult, error) {
	if strings.TrimSpace(text) == "" {
		s.metrics.RecordGeneration(outcomeInvalidInput)
		return nil, appErrors.NewValidationError(msgNoText)
	}

	jobID := utils.FileStamp(s.now()) + "_" + uuid.NewString()[:8]
	logger := s.logger.With(zap.String("job_id", jobID))
	logger.Info("Generating flowchart", zap.Int("characters", len(text)))

	outline := s.extractor.Extract(ctx, text)

	graph, err := aggregates.BuildGraph(outline, s.registryKey)
	if err != nil {
		s.metrics.RecordGeneration(outcomeNoNodes)
		if errors.Is(err, aggregates.ErrNoNodes) {
			return nil, appErrors.NewValidationError(msgNoNodes).WithCause(err)
		}
		return nil, appErrors.NewValidationError(msgNoNodes + ": " + err.Error()).WithCause(err)
	}
	if orphans := graph.Orphans(); len(orphans) > 0 {
		logger.Warn("Outline parents did not resolve; nodes kept as roots",
			zap.Strings("node_ids", orphans),
		)
	}
	s.metrics.RecordDiagram(graph.NodeCount(), len(graph.Orphans()))

	markup := s.emitter.Emit(graph)
	logger.Info("Generated mermaid",
		zap.Int("nodes", graph.NodeCount()),
		zap.Int("edges", graph.EdgeCount()),
		zap.String("source", string(outline.Source)),
	)

	rendered, err := s.renderer.Render(ctx, ports.RenderRequest{JobID: jobID, Markup: markup})
	if err != nil {
		s.metrics.RecordGeneration(outcomeRenderFailed)
		s.publish(ctx, events.NewFlowchartFailed(jobID, err.Error(), s.now()))
		return nil, renderError(err)
	}

	result := &GenerateResult{
		JobID:     jobID,
		ImageURL:  StaticURLPrefix + rendered.FileName,
		NodeCount: graph.NodeCount(),
		EdgeCount: graph.EdgeCount(),
		Mermaid:   markup,
		Source:    string(outline.Source),
	}

	logger.Info("PNG generated",
		zap.String("image_url", result.ImageURL),
		zap.Duration("render_duration", rendered.Duration),
	)
	s.metrics.RecordGeneration(outcomeSuccess)
	s.publish(ctx, events.NewFlowchartGenerated(
		jobID, result.ImageURL, result.NodeCount, result.EdgeCount, result.Source, s.now(),
	))

	return result, nil
}

// renderError maps renderer failures to user-visible messages
func renderError(err error) error {
	switch {
	case errors.Is(err, ports.ErrRendererNotFound):
		return appErrors.NewExternalError(msgRendererMissing, err)
	case errors.Is(err, ports.ErrRenderTimeout):
		return appErrors.NewTimeoutError(opRender, err)
	case errors.Is(err, ports.ErrRenderFailed):
		return appErrors.NewExternalError(err.Error(), err)
	default:
		return appErrors.NewExternalError(ports.ErrRenderFailed.Error()+": "+err.Error(), err)
	}
}

// publish is best effort; a failed publish never fails the request
func (s *FlowchartService) publish(ctx context.Context, event events.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("event_type", event.GetEventType()),
			zap.String("job_id", event.GetAggregateID()),
			zap.Error(err),
		)
	}
}
