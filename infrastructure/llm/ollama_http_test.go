package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"flowchart-backend/application/ports"
)

func TestOllamaHTTPRunner_Run(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(generateResponse{Response: `{"nodes": [{"id": "1", "text": "A"}]}`})
	}))
	defer server.Close()

	runner, err := NewOllamaHTTPRunner(HTTPRunnerConfig{Endpoint: server.URL + "/", Model: "llama3"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	out, err := runner.Run(context.Background(), "outline this")
	require.NoError(t, err)
	assert.Equal(t, `{"nodes": [{"id": "1", "text": "A"}]}`, out)
	assert.Equal(t, generateRequest{Model: "llama3", Prompt: "outline this", Stream: false}, got)
	assert.Equal(t, "http:"+server.URL, runner.Name())
}

func TestOllamaHTTPRunner_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
		wantErr error
	}{
		{
			name: "error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
			},
			wantErr: ports.ErrModelFailed,
		},
		{
			name: "error field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(generateResponse{Error: "out of memory"})
			},
			wantErr: ports.ErrModelFailed,
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
			wantErr: ports.ErrModelFailed,
		},
		{
			name: "slow server",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(5 * time.Second):
				}
			},
			timeout: 50 * time.Millisecond,
			wantErr: ports.ErrModelTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			runner, err := NewOllamaHTTPRunner(HTTPRunnerConfig{Endpoint: server.URL, Model: "llama3", Timeout: tt.timeout}, zaptest.NewLogger(t))
			require.NoError(t, err)

			_, err = runner.Run(context.Background(), "prompt")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOllamaHTTPRunner_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	runner, err := NewOllamaHTTPRunner(HTTPRunnerConfig{Endpoint: endpoint, Model: "llama3", Timeout: time.Second}, nil)
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), "prompt")
	assert.ErrorIs(t, err, ports.ErrModelNotFound)
}

func TestNewOllamaHTTPRunner_Validation(t *testing.T) {
	_, err := NewOllamaHTTPRunner(HTTPRunnerConfig{Model: "llama3"}, nil)
	assert.Error(t, err)

	_, err = NewOllamaHTTPRunner(HTTPRunnerConfig{Endpoint: "http://localhost:11434"}, nil)
	assert.Error(t, err)
}
