package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"flowchart-backend/application/services"
	"flowchart-backend/pkg/common"
	"flowchart-backend/pkg/errors"
	"flowchart-backend/pkg/utils"
)

// FlowchartGenerator runs the generation pipeline
type FlowchartGenerator interface {
	Generate(ctx context.Context, text string) (*services.GenerateResult, error)
}

// FlowchartHandler handles flowchart generation requests
type FlowchartHandler struct {
	generator    FlowchartGenerator
	errHandler   *errors.ErrorHandler
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewFlowchartHandler creates a new flowchart handler
func NewFlowchartHandler(
	generator FlowchartGenerator,
	errHandler *errors.ErrorHandler,
	maxBodyBytes int64,
	logger *zap.Logger,
) *FlowchartHandler {
	return &FlowchartHandler{
		generator:    generator,
		errHandler:   errHandler,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// GenerateRequest represents the request body for generating a flowchart
type GenerateRequest struct {
	Text string `json:"text" validate:"required"`
}

// GenerateResponse represents a successful generation
type GenerateResponse struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"image_url"`
	Nodes    int    `json:"nodes"`
	Edges    int    `json:"edges"`
	Mermaid  string `json:"mermaid"`
	Source   string `json:"source"`
}

// Generate handles POST /generate
func (h *FlowchartHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := common.ParseJSONBody(w, r, &req, h.maxBodyBytes); err != nil {
		h.errHandler.Handle(w, r, errors.NewValidationError("Invalid request body: "+err.Error()))
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		h.logger.Debug("Rejected generate request", zap.Error(err))
		h.errHandler.Handle(w, r, errors.NewValidationError("No text provided"))
		return
	}

	result, err := h.generator.Generate(r.Context(), req.Text)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, GenerateResponse{
		Success:  true,
		ImageURL: result.ImageURL,
		Nodes:    result.NodeCount,
		Edges:    result.EdgeCount,
		Mermaid:  result.Mermaid,
		Source:   result.Source,
	})
}

func (h *FlowchartHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	if err := common.RespondJSON(w, status, data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
