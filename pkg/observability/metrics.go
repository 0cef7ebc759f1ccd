package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application.
// A nil *Collector is valid and records nothing.
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Pipeline metrics
	Generations     *prometheus.CounterVec
	Extractions     *prometheus.CounterVec
	ModelDuration   prometheus.Histogram
	RenderDuration  *prometheus.HistogramVec
	DiagramNodes    prometheus.Histogram
	OrphanedParents prometheus.Counter
}

// NewCollector creates a new metrics collector with its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	generations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Flowchart generations by outcome",
		},
		[]string{"outcome"},
	)

	extractions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Outline extractions by source and fallback reason",
		},
		[]string{"source", "reason"},
	)

	modelDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_duration_seconds",
			Help:      "Time spent waiting for the model runner",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60, 90},
		},
	)

	renderDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent in the diagram renderer",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"status"},
	)

	diagramNodes := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "diagram_nodes",
			Help:      "Number of nodes per generated diagram",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	orphanedParents := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphaned_parents_total",
			Help:      "Outline nodes whose parent id did not resolve",
		},
	)

	registry.MustRegister(
		httpRequests,
		httpDuration,
		generations,
		extractions,
		modelDuration,
		renderDuration,
		diagramNodes,
		orphanedParents,
	)

	return &Collector{
		registry:        registry,
		HTTPRequests:    httpRequests,
		HTTPDuration:    httpDuration,
		Generations:     generations,
		Extractions:     extractions,
		ModelDuration:   modelDuration,
		RenderDuration:  renderDuration,
		DiagramNodes:    diagramNodes,
		OrphanedParents: orphanedParents,
	}
}

// ObserveHTTP records one served request
func (c *Collector) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordGeneration counts a finished generation by outcome
func (c *Collector) RecordGeneration(outcome string) {
	if c == nil {
		return
	}
	c.Generations.WithLabelValues(outcome).Inc()
}

// RecordExtraction counts an extraction; reason is empty for model successes
func (c *Collector) RecordExtraction(source, reason string) {
	if c == nil {
		return
	}
	c.Extractions.WithLabelValues(source, reason).Inc()
}

// RecordModelDuration records time spent in the model runner
func (c *Collector) RecordModelDuration(d time.Duration) {
	if c == nil {
		return
	}
	c.ModelDuration.Observe(d.Seconds())
}

// RecordRender records a renderer invocation
func (c *Collector) RecordRender(status string, d time.Duration) {
	if c == nil {
		return
	}
	c.RenderDuration.WithLabelValues(status).Observe(d.Seconds())
}

// RecordDiagram records the size of a built graph
func (c *Collector) RecordDiagram(nodes, orphans int) {
	if c == nil {
		return
	}
	c.DiagramNodes.Observe(float64(nodes))
	c.OrphanedParents.Add(float64(orphans))
}

// Handler exposes the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
