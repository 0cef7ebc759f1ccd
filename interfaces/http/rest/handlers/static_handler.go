package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"flowchart-backend/pkg/errors"
)

// ImageResolver maps a public file name to a servable path
type ImageResolver interface {
	StaticPath(name string) (string, error)
}

// StaticHandler serves generated images
type StaticHandler struct {
	images     ImageResolver
	errHandler *errors.ErrorHandler
	logger     *zap.Logger
}

// NewStaticHandler creates a new static file handler
func NewStaticHandler(images ImageResolver, errHandler *errors.ErrorHandler, logger *zap.Logger) *StaticHandler {
	return &StaticHandler{images: images, errHandler: errHandler, logger: logger}
}

// ServeImage handles GET /static/{filename}
func (h *StaticHandler) ServeImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	path, err := h.images.StaticPath(name)
	if err != nil {
		h.logger.Debug("Image not found", zap.String("filename", name), zap.Error(err))
		h.errHandler.Handle(w, r, errors.NewNotFoundError("image").WithCause(err))
		return
	}

	http.ServeFile(w, r, path)
}
