package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"flowchart-backend/pkg/common"
	"flowchart-backend/pkg/utils"
)

// ReadinessProbe reports the renderer circuit state
type ReadinessProbe interface {
	BreakerState() string
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	probe        ReadinessProbe
	modelBackend string
	logger       *zap.Logger
}

// NewHealthHandler creates a new health handler. probe may be nil.
func NewHealthHandler(probe ReadinessProbe, modelBackend string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{probe: probe, modelBackend: modelBackend, logger: logger}
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadyResponse is the readiness payload
type ReadyResponse struct {
	Status          string `json:"status"`
	ModelBackend    string `json:"model_backend"`
	RendererCircuit string `json:"renderer_circuit"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, HealthResponse{Status: "ok", Timestamp: utils.NowRFC3339()})
}

// Ready handles GET /ready. An open renderer circuit reports 503.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	circuit := "disabled"
	if h.probe != nil {
		circuit = h.probe.BreakerState()
	}

	resp := ReadyResponse{Status: "ready", ModelBackend: h.modelBackend, RendererCircuit: circuit}
	status := http.StatusOK
	if circuit == "open" {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	h.respondJSON(w, status, resp)
}

func (h *HealthHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	if err := common.RespondJSON(w, status, data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
