// Package llm contains the model runner backends used for outline extraction.
package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"flowchart-backend/application/ports"
)

// maxLoggedStderr bounds how much child stderr ends up in a log line
const maxLoggedStderr = 2048

// CLIRunnerConfig configures a model invoked as a local command
type CLIRunnerConfig struct {
	Command string
	Model   string
	// Args replaces the default ["run", Model] argument list when set
	Args    []string
	Timeout time.Duration
}

// OllamaCLIRunner runs `ollama run <model>` with the prompt on stdin
type OllamaCLIRunner struct {
	cfg    CLIRunnerConfig
	logger *zap.Logger
}

var _ ports.ModelRunner = (*OllamaCLIRunner)(nil)

// NewOllamaCLIRunner creates a command-backed model runner
func NewOllamaCLIRunner(cfg CLIRunnerConfig, logger *zap.Logger) *OllamaCLIRunner {
	if cfg.Args == nil {
		cfg.Args = []string{"run", cfg.Model}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OllamaCLIRunner{cfg: cfg, logger: logger}
}

// Name implements ports.ModelRunner
func (r *OllamaCLIRunner) Name() string {
	return "cli:" + r.cfg.Command
}

// Run implements ports.ModelRunner. The child is killed when the timeout
// elapses or ctx is cancelled, and always reaped before Run returns.
func (r *OllamaCLIRunner) Run(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.cfg.Command, r.cfg.Args...)
	cmd.Stdin = strings.NewReader(prompt)
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		switch {
		case errors.Is(err, exec.ErrNotFound):
			return "", fmt.Errorf("%w: %s", ports.ErrModelNotFound, r.cfg.Command)
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return "", fmt.Errorf("%w after %s", ports.ErrModelTimeout, r.cfg.Timeout)
		case ctx.Err() != nil:
			return "", fmt.Errorf("%w: %v", ports.ErrModelFailed, ctx.Err())
		}

		stderrStr := strings.TrimSpace(stderr.String())
		r.logger.Warn("Model runner exited with error",
			zap.String("command", r.cfg.Command),
			zap.Error(err),
			zap.String("stderr", clip(stderrStr, maxLoggedStderr)),
			zap.Duration("elapsed", elapsed),
		)
		return "", fmt.Errorf("%w: %v", ports.ErrModelFailed, err)
	}

	r.logger.Debug("Model runner finished",
		zap.String("command", r.cfg.Command),
		zap.Int("output_bytes", stdout.Len()),
		zap.Duration("elapsed", elapsed),
	)
	return stdout.String(), nil
}

func clip(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
