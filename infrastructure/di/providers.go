package di

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"flowchart-backend/application/ports"
	"flowchart-backend/application/services"
	"flowchart-backend/domain/core/aggregates"
	"flowchart-backend/domain/core/parsers"
	"flowchart-backend/domain/diagram"
	"flowchart-backend/infrastructure/config"
	"flowchart-backend/infrastructure/llm"
	"flowchart-backend/infrastructure/messaging"
	"flowchart-backend/infrastructure/messaging/eventbridge"
	"flowchart-backend/infrastructure/renderer"
	"flowchart-backend/infrastructure/storage"
	"flowchart-backend/pkg/errors"
	"flowchart-backend/pkg/observability"
	"flowchart-backend/pkg/ratelimit"
)

// MetricsNamespace prefixes every exported metric
const MetricsNamespace = "flowchart"

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zapCfg.Build()
}

// ProvideMetrics creates the metrics collector, or nil when metrics are disabled
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector(MetricsNamespace)
}

// ProvideFileStager creates the temp/static file manager
func ProvideFileStager(cfg *config.Config, logger *zap.Logger) (*storage.FileStager, error) {
	return storage.NewFileStager(cfg.TempDir, cfg.StaticDir, logger)
}

// ProvideModelRunner selects the model backend
func ProvideModelRunner(cfg *config.Config, logger *zap.Logger) (ports.ModelRunner, error) {
	switch cfg.ModelBackend {
	case config.ModelBackendHTTP:
		return llm.NewOllamaHTTPRunner(llm.HTTPRunnerConfig{
			Endpoint: cfg.OllamaEndpoint,
			Model:    cfg.ModelName,
			Timeout:  cfg.ModelTimeout,
		}, logger)
	default:
		return llm.NewOllamaCLIRunner(llm.CLIRunnerConfig{
			Command: cfg.ModelCommand,
			Model:   cfg.ModelName,
			Timeout: cfg.ModelTimeout,
		}, logger), nil
	}
}

// ProvideIndentParser creates the fallback parser
func ProvideIndentParser() *parsers.IndentParser {
	return parsers.NewIndentParser()
}

// ProvideExtractor creates the model-backed extractor with its fallback
func ProvideExtractor(
	runner ports.ModelRunner,
	parser *parsers.IndentParser,
	metrics *observability.Collector,
	logger *zap.Logger,
) ports.OutlineExtractor {
	return services.NewExtractorService(runner, parser, metrics, logger)
}

// ProvideMermaidEmitter creates the diagram emitter
func ProvideMermaidEmitter() *diagram.MermaidEmitter {
	return diagram.NewMermaidEmitter()
}

// ProvideRenderBreaker creates the renderer circuit breaker
func ProvideRenderBreaker(cfg *config.Config, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return renderer.NewRenderBreaker(renderer.BreakerConfig{
		Name:             "mermaid-cli",
		MaxRequests:      cfg.BreakerMaxRequests,
		Interval:         cfg.BreakerInterval,
		Timeout:          cfg.BreakerTimeout,
		FailureThreshold: cfg.BreakerFailureThreshold,
		MinRequests:      cfg.BreakerMinRequests,
	}, logger)
}

// ProvideRenderer creates the mermaid CLI renderer
func ProvideRenderer(
	cfg *config.Config,
	stager *storage.FileStager,
	breaker *gobreaker.CircuitBreaker,
	metrics *observability.Collector,
	logger *zap.Logger,
) (*renderer.MermaidCLIRenderer, error) {
	return renderer.NewMermaidCLIRenderer(renderer.Config{
		Command:    cfg.RendererCommand,
		Args:       cfg.RendererArgs,
		Timeout:    cfg.RenderTimeout,
		Width:      cfg.RenderWidth,
		Height:     cfg.RenderHeight,
		Scale:      cfg.RenderScale,
		Background: cfg.RenderBackground,
	}, stager, breaker, metrics, logger)
}

// ProvideDiagramRenderer exposes the renderer through its port
func ProvideDiagramRenderer(r *renderer.MermaidCLIRenderer) ports.DiagramRenderer {
	return r
}

// ProvideEventPublisher publishes to EventBridge when EVENT_BUS_NAME is set
// and only logs events otherwise
func ProvideEventPublisher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.EventPublisher, error) {
	if cfg.EventBusName == "" {
		return messaging.NewLogPublisher(logger), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return eventbridge.NewEventBridgePublisher(
		awseventbridge.NewFromConfig(awsCfg),
		cfg.EventBusName,
		logger,
	), nil
}

// ProvideFlowchartService creates the generation pipeline
func ProvideFlowchartService(
	extractor ports.OutlineExtractor,
	emitter *diagram.MermaidEmitter,
	diagramRenderer ports.DiagramRenderer,
	publisher ports.EventPublisher,
	cfg *config.Config,
	metrics *observability.Collector,
	logger *zap.Logger,
) *services.FlowchartService {
	return services.NewFlowchartService(
		extractor,
		emitter,
		diagramRenderer,
		publisher,
		aggregates.RegistryKey(cfg.RegistryKey),
		metrics,
		logger,
	)
}

// ProvideErrorHandler creates the HTTP error handler
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *errors.ErrorHandler {
	return errors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideRateLimiter creates the /generate limiter; nil when disabled
func ProvideRateLimiter(cfg *config.Config) *ratelimit.IPRateLimiter {
	return ratelimit.NewIPRateLimiter(cfg.GenerateRateLimit)
}
