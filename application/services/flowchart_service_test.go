package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"flowchart-backend/application/ports"
	"flowchart-backend/domain/core/aggregates"
	"flowchart-backend/domain/core/entities"
	"flowchart-backend/domain/core/parsers"
	"flowchart-backend/domain/diagram"
	"flowchart-backend/domain/events"
	appErrors "flowchart-backend/pkg/errors"
	"flowchart-backend/pkg/observability"
)

type fakeExtractor struct {
	outline entities.Outline
	calls   int
}

func (f *fakeExtractor) Extract(_ context.Context, _ string) entities.Outline {
	f.calls++
	return f.outline
}

type fakeRenderer struct {
	err   error
	calls []ports.RenderRequest
}

func (f *fakeRenderer) Render(_ context.Context, req ports.RenderRequest) (*ports.RenderResult, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return &ports.RenderResult{
		JobID:     req.JobID,
		FileName:  "flowchart_" + req.JobID + ".png",
		ImagePath: "static/flowchart_" + req.JobID + ".png",
		Duration:  time.Second,
	}, nil
}

type fakePublisher struct {
	events []events.DomainEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, e events.DomainEvent) error {
	f.events = append(f.events, e)
	return f.err
}

func (f *fakePublisher) PublishBatch(ctx context.Context, es []events.DomainEvent) error {
	for _, e := range es {
		if err := f.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func newTestService(t *testing.T, extractor ports.OutlineExtractor, renderer ports.DiagramRenderer, publisher ports.EventPublisher) *FlowchartService {
	t.Helper()
	svc := NewFlowchartService(
		extractor,
		diagram.NewMermaidEmitter(),
		renderer,
		publisher,
		aggregates.KeyByID,
		observability.NewCollector("test"),
		zaptest.NewLogger(t),
	)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC) }
	return svc
}

func TestFlowchartService_Generate(t *testing.T) {
	const input = "Topic A\n    Sub A1\n    Sub A2\nTopic B"
	extractor := &fakeExtractor{outline: parsers.NewIndentParser().Parse(input)}
	renderer := &fakeRenderer{}
	publisher := &fakePublisher{}
	svc := newTestService(t, extractor, renderer, publisher)

	result, err := svc.Generate(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, 4, result.NodeCount)
	assert.Equal(t, 2, result.EdgeCount)
	assert.Equal(t, string(entities.SourceFallback), result.Source)
	assert.True(t, strings.HasPrefix(result.JobID, "20240501_103000_"))
	assert.Equal(t, "/static/flowchart_"+result.JobID+".png", result.ImageURL)
	assert.Equal(t, 4, strings.Count(result.Mermaid, `["`))
	assert.Equal(t, 2, strings.Count(result.Mermaid, "-->"))

	require.Len(t, renderer.calls, 1)
	assert.Equal(t, result.Mermaid, renderer.calls[0].Markup)
	assert.Equal(t, result.JobID, renderer.calls[0].JobID)

	require.Len(t, publisher.events, 1)
	generated, ok := publisher.events[0].(events.FlowchartGenerated)
	require.True(t, ok)
	assert.Equal(t, result.ImageURL, generated.ImageURL)
	assert.Equal(t, 4, generated.NodeCount)
}

func TestFlowchartService_BlankInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t\n"} {
		extractor := &fakeExtractor{}
		renderer := &fakeRenderer{}
		svc := newTestService(t, extractor, renderer, nil)

		_, err := svc.Generate(context.Background(), text)

		require.Error(t, err)
		assert.Equal(t, appErrors.ErrorTypeValidation, appErrors.GetAppError(err).Type)
		assert.Equal(t, "No text provided", appErrors.GetAppError(err).Message)
		assert.Zero(t, extractor.calls, "extractor must not run for blank input")
		assert.Empty(t, renderer.calls)
	}
}

func TestFlowchartService_NoNodes(t *testing.T) {
	tests := []struct {
		name    string
		outline entities.Outline
		wantMsg string
	}{
		{
			name:    "empty outline",
			outline: entities.Outline{Nodes: []entities.RawNode{}},
			wantMsg: "Could not generate any nodes from the text",
		},
		{
			name:    "node without id",
			outline: entities.Outline{Nodes: []entities.RawNode{entities.NewRawNode("", "A", "")}},
			wantMsg: "Could not generate any nodes from the text: ",
		},
		{
			name: "node without text",
			outline: entities.Outline{
				Nodes:  []entities.RawNode{entities.NewRawNode("1", "", ""), entities.NewRawNode("2", "B", "1")},
				Source: entities.SourceModel,
			},
			wantMsg: "Could not generate any nodes from the text: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renderer := &fakeRenderer{}
			svc := newTestService(t, &fakeExtractor{outline: tt.outline}, renderer, nil)

			_, err := svc.Generate(context.Background(), "some text")

			require.Error(t, err)
			assert.Equal(t, appErrors.ErrorTypeValidation, appErrors.GetAppError(err).Type)
			assert.Equal(t, http.StatusBadRequest, appErrors.GetAppError(err).HTTPStatus)
			assert.True(t, strings.HasPrefix(appErrors.GetAppError(err).Message, tt.wantMsg))
			assert.Empty(t, renderer.calls, "no render for an empty graph")
		})
	}
}

func TestFlowchartService_RenderErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType appErrors.ErrorType
		wantMsg  string
	}{
		{
			name:     "renderer missing",
			err:      fmt.Errorf("%w: npx", ports.ErrRendererNotFound),
			wantType: appErrors.ErrorTypeExternal,
			wantMsg:  "Mermaid CLI not found. Please install Node.js and run: npm install -g @mermaid-js/mermaid-cli",
		},
		{
			name:     "non-zero exit with stderr",
			err:      fmt.Errorf("%w: Parse error on line 2", ports.ErrRenderFailed),
			wantType: appErrors.ErrorTypeExternal,
			wantMsg:  "PNG generation failed: Parse error on line 2",
		},
		{
			name:     "timeout",
			err:      fmt.Errorf("%w after 90s", ports.ErrRenderTimeout),
			wantType: appErrors.ErrorTypeTimeout,
			wantMsg:  "operation 'PNG generation' timed out",
		},
		{
			name:     "circuit open",
			err:      ports.ErrCircuitOpen,
			wantType: appErrors.ErrorTypeExternal,
			wantMsg:  "PNG generation failed: diagram renderer temporarily unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := &fakeExtractor{outline: parsers.NewIndentParser().Parse("A\n    B")}
			publisher := &fakePublisher{}
			svc := newTestService(t, extractor, &fakeRenderer{err: tt.err}, publisher)

			_, err := svc.Generate(context.Background(), "A\n    B")

			require.Error(t, err)
			appErr := appErrors.GetAppError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.wantType, appErr.Type)
			assert.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus)
			assert.Equal(t, tt.wantMsg, appErr.Message)
			assert.ErrorIs(t, err, tt.err)

			require.Len(t, publisher.events, 1)
			assert.Equal(t, "flowchart.failed", publisher.events[0].GetEventType())
		})
	}
}

func TestFlowchartService_PublishFailureIsIgnored(t *testing.T) {
	extractor := &fakeExtractor{outline: parsers.NewIndentParser().Parse("A")}
	publisher := &fakePublisher{err: errors.New("eventbridge down")}
	svc := newTestService(t, extractor, &fakeRenderer{}, publisher)

	result, err := svc.Generate(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, 1, result.NodeCount)
	assert.Zero(t, result.EdgeCount)
}
