package di

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowchart-backend/infrastructure/config"
	"flowchart-backend/infrastructure/llm"
	"flowchart-backend/infrastructure/messaging"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Environment:             "test",
		LogLevel:                "debug",
		ModelBackend:            config.ModelBackendCLI,
		ModelCommand:            "ollama",
		ModelName:               "llama3",
		ModelTimeout:            time.Second,
		RendererCommand:         "npx",
		RendererArgs:            []string{"-y", "@mermaid-js/mermaid-cli"},
		RenderTimeout:           time.Second,
		RenderWidth:             3000,
		RenderHeight:            2400,
		RenderScale:             3,
		RenderBackground:        "white",
		StaticDir:               filepath.Join(dir, "static"),
		TempDir:                 filepath.Join(dir, "tmp"),
		RegistryKey:             "id",
		MaxBodyBytes:            1 << 20,
		BreakerMaxRequests:      1,
		BreakerFailureThreshold: 0.8,
		BreakerMinRequests:      5,
		EnableMetrics:           true,
		GenerateRateLimit:       10,
	}
}

func TestInitializeContainer(t *testing.T) {
	cfg := testConfig(t)

	c, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)

	assert.Same(t, cfg, c.Config)
	assert.NotNil(t, c.Logger)
	assert.NotNil(t, c.Metrics)
	assert.NotNil(t, c.Flowcharts)
	assert.NotNil(t, c.ErrorHandler)
	assert.NotNil(t, c.RateLimiter)
	assert.Equal(t, "closed", c.Renderer.BreakerState())
	assert.IsType(t, &llm.OllamaCLIRunner{}, c.ModelRunner)
	assert.DirExists(t, cfg.StaticDir)
}

func TestProviders_Toggles(t *testing.T) {
	cfg := testConfig(t)
	cfg.EnableMetrics = false
	cfg.GenerateRateLimit = 0
	cfg.ModelBackend = config.ModelBackendHTTP
	cfg.OllamaEndpoint = "http://localhost:11434"

	assert.Nil(t, ProvideMetrics(cfg))
	assert.Nil(t, ProvideRateLimiter(cfg))

	logger, err := ProvideLogger(cfg)
	require.NoError(t, err)

	runner, err := ProvideModelRunner(cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &llm.OllamaHTTPRunner{}, runner)

	publisher, err := ProvideEventPublisher(context.Background(), cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &messaging.LogPublisher{}, publisher)
}

func TestProvideLogger_InvalidLevel(t *testing.T) {
	cfg := testConfig(t)
	cfg.LogLevel = "loud"

	_, err := ProvideLogger(cfg)
	assert.Error(t, err)
}
