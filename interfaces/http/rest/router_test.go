package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"flowchart-backend/application/services"
	"flowchart-backend/infrastructure/storage"
	"flowchart-backend/pkg/errors"
	"flowchart-backend/pkg/observability"
	"flowchart-backend/pkg/ratelimit"
)

type stubGenerator struct {
	calls int
	panic bool
}

func (s *stubGenerator) Generate(_ context.Context, _ string) (*services.GenerateResult, error) {
	s.calls++
	if s.panic {
		panic("renderer exploded")
	}
	return &services.GenerateResult{ImageURL: "/static/flowchart_x.png", NodeCount: 1, Source: "fallback"}, nil
}

func newTestRouter(t *testing.T, gen *stubGenerator, limit int) (http.Handler, *observability.Collector) {
	t.Helper()
	return newTestRouterWithProxy(t, gen, limit, false)
}

func newTestRouterWithProxy(t *testing.T, gen *stubGenerator, limit int, trustProxy bool) (http.Handler, *observability.Collector) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	dir := t.TempDir()
	stager, err := storage.NewFileStager(filepath.Join(dir, "tmp"), filepath.Join(dir, "static"), logger)
	require.NoError(t, err)

	metrics := observability.NewCollector("test")
	router := NewRouter(Dependencies{
		Generator:    gen,
		Images:       stager,
		ErrorHandler: errors.NewErrorHandler(logger, true),
		RateLimiter:  ratelimit.NewIPRateLimiter(limit),
		Metrics:      metrics,
		Logger:       logger,
	}, Options{
		ModelBackend:      "cli",
		MaxBodyBytes:      1 << 10,
		EnableCORS:        true,
		AllowedOrigins:    []string{"*"},
		TrustProxyHeaders: trustProxy,
	})
	return router.Setup(), metrics
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	r.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestRouter_Routes(t *testing.T) {
	gen := &stubGenerator{}
	h, _ := newTestRouter(t, gen, 0)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK, `"status":"ok"`},
		{"ready", http.MethodGet, "/ready", "", http.StatusOK, `"renderer_circuit":"disabled"`},
		{"generate", http.MethodPost, "/generate", `{"text":"A"}`, http.StatusOK, `"image_url":"/static/flowchart_x.png"`},
		{"blank text", http.MethodPost, "/generate", `{"text":""}`, http.StatusBadRequest, `"error":"No text provided"`},
		{"body too large", http.MethodPost, "/generate", `{"text":"` + strings.Repeat("a", 2048) + `"}`, http.StatusBadRequest, `exceeds 1024 bytes`},
		{"missing image", http.MethodGet, "/static/nope.png", "", http.StatusNotFound, `"error":"image not found"`},
		{"unknown route", http.MethodGet, "/nope", "", http.StatusNotFound, `"error":"Not found"`},
		{"wrong method", http.MethodGet, "/generate", "", http.StatusMethodNotAllowed, `"success":false`},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK, `test_http_requests_total`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, tt.method, tt.path, tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		})
	}

	assert.Equal(t, 1, gen.calls, "only the valid request reaches the pipeline")
}

func TestRouter_MetricsUseRoutePattern(t *testing.T) {
	h, _ := newTestRouter(t, &stubGenerator{}, 0)

	do(h, http.MethodGet, "/static/a.png", "")
	do(h, http.MethodGet, "/static/b.png", "")

	w := do(h, http.MethodGet, "/metrics", "")
	assert.Contains(t, w.Body.String(), `route="/static/{filename}"`)
}

func TestRouter_RateLimitsGenerate(t *testing.T) {
	gen := &stubGenerator{}
	h, _ := newTestRouter(t, gen, 2)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/generate", `{"text":"A"}`).Code)
	}

	w := do(h, http.MethodPost, "/generate", `{"text":"A"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 2, gen.calls)

	// other routes are not limited
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health", "").Code)
}

func TestRouter_RateLimitKeysOnForwardedHeadersOnlyWhenTrusted(t *testing.T) {
	generate := func(h http.Handler, forwardedFor string) int {
		r := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{"text":"A"}`))
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("X-Forwarded-For", forwardedFor)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	t.Run("rotating header does not reset the budget", func(t *testing.T) {
		h, _ := newTestRouterWithProxy(t, &stubGenerator{}, 2, false)

		assert.Equal(t, http.StatusOK, generate(h, "10.0.0.1"))
		assert.Equal(t, http.StatusOK, generate(h, "10.0.0.2"))
		assert.Equal(t, http.StatusTooManyRequests, generate(h, "10.0.0.3"))
	})

	t.Run("trusted proxy header separates clients", func(t *testing.T) {
		h, _ := newTestRouterWithProxy(t, &stubGenerator{}, 1, true)

		assert.Equal(t, http.StatusOK, generate(h, "10.0.0.1"))
		assert.Equal(t, http.StatusOK, generate(h, "10.0.0.2"))
		assert.Equal(t, http.StatusTooManyRequests, generate(h, "10.0.0.1"))
	})
}

func TestRouter_RecoversPanics(t *testing.T) {
	h, _ := newTestRouter(t, &stubGenerator{panic: true}, 0)

	w := do(h, http.MethodPost, "/generate", `{"text":"A"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp errors.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "Server error: panic: renderer exploded", resp.Error)
	assert.NotEmpty(t, resp.RequestID)
}
