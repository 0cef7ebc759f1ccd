// Package renderer turns mermaid markup into PNG images with the mermaid CLI.
package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"flowchart-backend/application/ports"
	"flowchart-backend/infrastructure/storage"
	"flowchart-backend/pkg/observability"
)

const maxErrorDetail = 4096

// Config holds the renderer command line and output parameters
type Config struct {
	Command    string
	Args       []string
	Timeout    time.Duration
	Width      int
	Height     int
	Scale      int
	Background string
}

// RenderConfig is the style document passed to the renderer with -c
type RenderConfig struct {
	Theme          string         `json:"theme"`
	ThemeVariables ThemeVariables `json:"themeVariables"`
	Flowchart      FlowchartStyle `json:"flowchart"`
}

// ThemeVariables overrides theme defaults
type ThemeVariables struct {
	FontSize   string `json:"fontSize"`
	FontFamily string `json:"fontFamily"`
}

// FlowchartStyle configures flowchart layout
type FlowchartStyle struct {
	HTMLLabels bool   `json:"htmlLabels"`
	Curve      string `json:"curve"`
	Padding    int    `json:"padding"`
}

// DefaultRenderConfig is the style every diagram is rendered with
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Theme: "default",
		ThemeVariables: ThemeVariables{
			FontSize:   "20px",
			FontFamily: "Arial, sans-serif",
		},
		Flowchart: FlowchartStyle{
			HTMLLabels: true,
			Curve:      "basis",
			Padding:    20,
		},
	}
}

// BreakerConfig holds configuration for the renderer circuit breaker
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// NewRenderBreaker creates the circuit breaker guarding renderer invocations.
// Only infrastructure failures count against the circuit.
func NewRenderBreaker(cfg BreakerConfig, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: countsAsSuccess,
	})
}

// countsAsSuccess keeps diagram errors and client cancellations out of the
// failure ratio; a malformed input must not open the circuit for everyone.
func countsAsSuccess(err error) bool {
	return err == nil || errors.Is(err, ports.ErrRenderFailed) || errors.Is(err, context.Canceled)
}

// MermaidCLIRenderer runs the mermaid CLI as a child process
type MermaidCLIRenderer struct {
	cfg         Config
	stager      *storage.FileStager
	breaker     *gobreaker.CircuitBreaker
	styleConfig []byte
	metrics     *observability.Collector
	logger      *zap.Logger
}

var _ ports.DiagramRenderer = (*MermaidCLIRenderer)(nil)

// NewMermaidCLIRenderer creates a renderer. breaker may be nil.
func NewMermaidCLIRenderer(
	cfg Config,
	stager *storage.FileStager,
	breaker *gobreaker.CircuitBreaker,
	metrics *observability.Collector,
	logger *zap.Logger,
) (*MermaidCLIRenderer, error) {
	if cfg.Command == "" {
		return nil, errors.New("renderer command is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}

	styleConfig, err := json.Marshal(DefaultRenderConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal render config: %w", err)
	}

	return &MermaidCLIRenderer{
		cfg:         cfg,
		stager:      stager,
		breaker:     breaker,
		styleConfig: styleConfig,
		metrics:     metrics,
		logger:      logger,
	}, nil
}

// BreakerState reports the circuit state for readiness probes
func (r *MermaidCLIRenderer) BreakerState() string {
	if r.breaker == nil {
		return "disabled"
	}
	return r.breaker.State().String()
}

// Render implements ports.DiagramRenderer. Staged inputs are removed on every path.
func (r *MermaidCLIRenderer) Render(ctx context.Context, req ports.RenderRequest) (*ports.RenderResult, error) {
	job, err := r.stager.Stage(req.JobID, req.Markup, r.styleConfig)
	if err != nil {
		return nil, err
	}
	defer r.stager.Cleanup(job)

	r.logger.Info("Generating high resolution PNG", zap.String("job_id", req.JobID))

	start := time.Now()
	err = r.execute(ctx, job)
	elapsed := time.Since(start)

	if err != nil {
		r.metrics.RecordRender("error", elapsed)
		r.logger.Error("PNG generation failed",
			zap.String("job_id", req.JobID),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, err
	}
	r.metrics.RecordRender("ok", elapsed)

	return &ports.RenderResult{
		JobID:     req.JobID,
		FileName:  job.ImageName,
		ImagePath: job.ImagePath,
		Duration:  elapsed,
	}, nil
}

func (r *MermaidCLIRenderer) execute(ctx context.Context, job *storage.StagedJob) error {
	if r.breaker == nil {
		return r.run(ctx, job)
	}

	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.run(ctx, job)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ports.ErrCircuitOpen, err)
	}
	return err
}

func (r *MermaidCLIRenderer) run(ctx context.Context, job *storage.StagedJob) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.cfg.Command, r.args(job)...)
	cmd.WaitDelay = 2 * time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	switch {
	case err == nil:
	case errors.Is(err, exec.ErrNotFound):
		return fmt.Errorf("%w: %s", ports.ErrRendererNotFound, r.cfg.Command)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w after %s", ports.ErrRenderTimeout, r.cfg.Timeout)
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return fmt.Errorf("%w: %s", ports.ErrRenderFailed, errorDetail(stderr.String()))
	}

	if !r.stager.ImageExists(job) {
		return fmt.Errorf("%w: %s", ports.ErrRenderFailed, errorDetail(stderr.String()))
	}
	return nil
}

// args builds: <leading args> -i <in> -o <out> -b <bg> -w <w> -H <h> -s <scale> -c <config>
func (r *MermaidCLIRenderer) args(job *storage.StagedJob) []string {
	args := make([]string, 0, len(r.cfg.Args)+14)
	args = append(args, r.cfg.Args...)
	return append(args,
		"-i", job.DiagramPath,
		"-o", job.ImagePath,
		"-b", r.cfg.Background,
		"-w", strconv.Itoa(r.cfg.Width),
		"-H", strconv.Itoa(r.cfg.Height),
		"-s", strconv.Itoa(r.cfg.Scale),
		"-c", job.ConfigPath,
	)
}

func errorDetail(stderr string) string {
	detail := strings.TrimSpace(stderr)
	if detail == "" {
		return ports.ErrRenderFailed.Error()
	}
	if len(detail) > maxErrorDetail {
		detail = detail[:maxErrorDetail] + "..."
	}
	return detail
}
