package di

import (
	"go.uber.org/zap"

	"flowchart-backend/application/ports"
	"flowchart-backend/application/services"
	"flowchart-backend/infrastructure/config"
	"flowchart-backend/infrastructure/renderer"
	"flowchart-backend/infrastructure/storage"
	"flowchart-backend/pkg/errors"
	"flowchart-backend/pkg/observability"
	"flowchart-backend/pkg/ratelimit"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	Metrics      *observability.Collector
	ModelRunner  ports.ModelRunner
	Renderer     *renderer.MermaidCLIRenderer
	Stager       *storage.FileStager
	Flowcharts   *services.FlowchartService
	ErrorHandler *errors.ErrorHandler
	RateLimiter  *ratelimit.IPRateLimiter
}
