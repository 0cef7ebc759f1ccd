package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"flowchart-backend/infrastructure/di"
	"flowchart-backend/interfaces/http/rest/handlers"
	"flowchart-backend/interfaces/http/rest/middleware"
	"flowchart-backend/pkg/errors"
	"flowchart-backend/pkg/observability"
	"flowchart-backend/pkg/ratelimit"
)

// Dependencies are the collaborators the router hands to its handlers
type Dependencies struct {
	Generator    handlers.FlowchartGenerator
	Images       handlers.ImageResolver
	Readiness    handlers.ReadinessProbe
	ErrorHandler *errors.ErrorHandler
	RateLimiter  *ratelimit.IPRateLimiter
	Metrics      *observability.Collector
	Logger       *zap.Logger
}

// Options configures router behaviour
type Options struct {
	ModelBackend   string
	MaxBodyBytes   int64
	EnableCORS     bool
	AllowedOrigins []string
	// TrustProxyHeaders takes the client address from X-Forwarded-For / X-Real-IP
	TrustProxyHeaders bool
}

// Router creates and configures the HTTP router
type Router struct {
	deps Dependencies
	opts Options
}

// NewRouter creates a new router instance
func NewRouter(deps Dependencies, opts Options) *Router {
	return &Router{deps: deps, opts: opts}
}

// NewRouterFromContainer wires a router from the dependency container
func NewRouterFromContainer(c *di.Container) *Router {
	return NewRouter(Dependencies{
		Generator:    c.Flowcharts,
		Images:       c.Stager,
		Readiness:    c.Renderer,
		ErrorHandler: c.ErrorHandler,
		RateLimiter:  c.RateLimiter,
		Metrics:      c.Metrics,
		Logger:       c.Logger,
	}, Options{
		ModelBackend:      c.Config.ModelBackend,
		MaxBodyBytes:      c.Config.MaxBodyBytes,
		EnableCORS:        c.Config.EnableCORS,
		AllowedOrigins:    c.Config.CORSAllowedOrigins,
		TrustProxyHeaders: c.Config.TrustProxyHeaders,
	})
}

// Setup configures all routes and middleware
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	if rt.opts.TrustProxyHeaders {
		router.Use(chimiddleware.RealIP)
	}
	router.Use(rt.deps.ErrorHandler.Middleware)
	router.Use(middleware.Logger(rt.deps.Logger))
	router.Use(middleware.Metrics(rt.deps.Metrics))

	if rt.opts.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.opts.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.deps.ErrorHandler.HandleStatus(w, r, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rt.deps.ErrorHandler.HandleStatus(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Health checks
	health := handlers.NewHealthHandler(rt.deps.Readiness, rt.opts.ModelBackend, rt.deps.Logger)
	router.Get("/health", health.Health)
	router.Get("/ready", health.Ready)

	if rt.deps.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.deps.Metrics.Handler())
	}

	// Generation
	flowcharts := handlers.NewFlowchartHandler(rt.deps.Generator, rt.deps.ErrorHandler, rt.opts.MaxBodyBytes, rt.deps.Logger)
	router.With(middleware.RateLimit(rt.deps.RateLimiter, rt.deps.ErrorHandler, rt.deps.Logger)).
		Post("/generate", flowcharts.Generate)

	// Generated images
	static := handlers.NewStaticHandler(rt.deps.Images, rt.deps.ErrorHandler, rt.deps.Logger)
	router.Get("/static/{filename}", static.ServeImage)

	return router
}
