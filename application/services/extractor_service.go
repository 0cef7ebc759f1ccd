package services

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"flowchart-backend/application/ports"
	"flowchart-backend/domain/core/entities"
	"flowchart-backend/pkg/observability"
)

// Fallback reasons recorded in logs and metrics
const (
	reasonRunnerMissing = "runner_missing"
	reasonTimeout       = "timeout"
	reasonRunnerFailed  = "runner_failed"
	reasonEmptyOutput   = "empty_output"
	reasonInvalidJSON   = "invalid_json"
	reasonNoNodes       = "no_nodes"
)

const promptTemplate = `Analyze this text and extract a hierarchical tree structure.
Return ONLY a valid JSON object with this exact format (no markdown, no explanation):
{
  "nodes": [
    {"id": "1", "text": "Root Node", "parent": null},
    {"id": "2", "text": "Child Node", "parent": "1"},
    {"id": "3", "text": "Another Child", "parent": "1"},
    {"id": "4", "text": "Grandchild", "parent": "2"}
  ]
}

Rules:
- Create a clear parent-child hierarchy
- Root nodes have parent: null
- Each node needs unique id, text, and parent reference
- Identify main topics, subtopics, and details
- Return ONLY the JSON, nothing else

Text to analyze:
`

var (
	leadingJSONFence = regexp.MustCompile("^```json\\s*")
	leadingFence     = regexp.MustCompile("^```\\s*")
	trailingFence    = regexp.MustCompile("\\s*```$")
)

// BuildPrompt embeds text verbatim in the extraction prompt
func BuildPrompt(text string) string {
	return promptTemplate + text + "\n\nJSON:"
}

// stripCodeFences removes a markdown code fence wrapped around model output
func stripCodeFences(output string) string {
	cleaned := strings.TrimSpace(output)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	cleaned = leadingJSONFence.ReplaceAllString(cleaned, "")
	cleaned = leadingFence.ReplaceAllString(cleaned, "")
	cleaned = trailingFence.ReplaceAllString(cleaned, "")
	return cleaned
}

// FallbackParser is the deterministic outline source used when the model fails
type FallbackParser interface {
	Parse(text string) entities.Outline
}

// ExtractorService asks a model for an outline and degrades to the
// fallback parser on any failure
type ExtractorService struct {
	runner   ports.ModelRunner
	fallback FallbackParser
	metrics  *observability.Collector
	logger   *zap.Logger
}

var _ ports.OutlineExtractor = (*ExtractorService)(nil)

// NewExtractorService creates a new extractor service. runner may be nil,
// in which case every extraction uses the fallback parser.
func NewExtractorService(
	runner ports.ModelRunner,
	fallback FallbackParser,
	metrics *observability.Collector,
	logger *zap.Logger,
) *ExtractorService {
	return &ExtractorService{
		runner:   runner,
		fallback: fallback,
		metrics:  metrics,
		logger:   logger,
	}
}

// Extract implements ports.OutlineExtractor
func (s *ExtractorService) Extract(ctx context.Context, text string) entities.Outline {
	outline, reason := s.fromModel(ctx, text)
	if reason == "" {
		s.logger.Info("Model parsed outline", zap.Int("nodes", outline.Len()))
		s.metrics.RecordExtraction(string(entities.SourceModel), "")
		return outline
	}

	s.logger.Info("Using fallback parser", zap.String("reason", reason))
	s.metrics.RecordExtraction(string(entities.SourceFallback), reason)
	return s.fallback.Parse(text)
}

// fromModel returns a non-empty reason when the model result is unusable
func (s *ExtractorService) fromModel(ctx context.Context, text string) (entities.Outline, string) {
	if s.runner == nil {
		return entities.Outline{}, reasonRunnerMissing
	}

	start := time.Now()
	output, err := s.runner.Run(ctx, BuildPrompt(text))
	s.metrics.RecordModelDuration(time.Since(start))

	if err != nil {
		reason := reasonRunnerFailed
		switch {
		case errors.Is(err, ports.ErrModelNotFound):
			reason = reasonRunnerMissing
		case errors.Is(err, ports.ErrModelTimeout):
			reason = reasonTimeout
		}
		s.logger.Warn("Model runner unavailable",
			zap.String("runner", s.runner.Name()),
			zap.Error(err),
		)
		return entities.Outline{}, reason
	}

	cleaned := stripCodeFences(output)
	if cleaned == "" {
		return entities.Outline{}, reasonEmptyOutput
	}

	var outline entities.Outline
	if err := json.Unmarshal([]byte(cleaned), &outline); err != nil {
		s.logger.Warn("Model output is not a valid outline", zap.Error(err))
		return entities.Outline{}, reasonInvalidJSON
	}
	if outline.IsEmpty() {
		return entities.Outline{}, reasonNoNodes
	}

	outline.Source = entities.SourceModel
	return outline, ""
}
