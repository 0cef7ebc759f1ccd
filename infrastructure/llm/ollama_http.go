package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"flowchart-backend/application/ports"
)

// HTTPRunnerConfig configures the Ollama HTTP backend
type HTTPRunnerConfig struct {
	Endpoint string
	Model    string
	Timeout  time.Duration
}

// OllamaHTTPRunner calls POST /api/generate on an Ollama server
type OllamaHTTPRunner struct {
	endpoint string
	model    string
	timeout  time.Duration
	client   *http.Client
	logger   *zap.Logger
}

var _ ports.ModelRunner = (*OllamaHTTPRunner)(nil)

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// NewOllamaHTTPRunner creates an HTTP-backed model runner
func NewOllamaHTTPRunner(cfg HTTPRunnerConfig, logger *zap.Logger) (*OllamaHTTPRunner, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("ollama endpoint is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("ollama model is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OllamaHTTPRunner{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		client:   &http.Client{},
		logger:   logger,
	}, nil
}

// Name implements ports.ModelRunner
func (r *OllamaHTTPRunner) Name() string {
	return "http:" + r.endpoint
}

// Run implements ports.ModelRunner
func (r *OllamaHTTPRunner) Run(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{Model: r.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ports.ErrModelTimeout, r.timeout)
		}
		return "", fmt.Errorf("%w: %v", ports.ErrModelNotFound, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedStderr))
		r.logger.Warn("Ollama returned an error status",
			zap.Int("status", resp.StatusCode),
			zap.String("body", strings.TrimSpace(string(detail))),
		)
		return "", fmt.Errorf("%w: ollama returned status %d", ports.ErrModelFailed, resp.StatusCode)
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ports.ErrModelTimeout, r.timeout)
		}
		return "", fmt.Errorf("%w: failed to decode response: %v", ports.ErrModelFailed, err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("%w: %s", ports.ErrModelFailed, result.Error)
	}

	return result.Response, nil
}
