package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Model backends
const (
	ModelBackendCLI  = "cli"
	ModelBackendHTTP = "http"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string
	MaxBodyBytes  int64

	// Model runner configuration
	ModelBackend   string
	ModelCommand   string
	ModelName      string
	OllamaEndpoint string
	ModelTimeout   time.Duration

	// Renderer configuration
	RendererCommand  string
	RendererArgs     []string
	RenderTimeout    time.Duration
	RenderWidth      int
	RenderHeight     int
	RenderScale      int
	RenderBackground string

	// Files
	StaticDir string
	TempDir   string

	// Tree building
	RegistryKey string

	// Renderer circuit breaker
	BreakerMaxRequests      uint32
	BreakerInterval         time.Duration
	BreakerTimeout          time.Duration
	BreakerFailureThreshold float64
	BreakerMinRequests      uint32

	// AWS configuration
	AWSRegion    string
	EventBusName string

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string

	// Logging
	LogLevel string

	// Feature flags
	EnableMetrics      bool
	EnableCORS         bool
	CORSAllowedOrigins []string
	GenerateRateLimit  int
	TrustProxyHeaders  bool
}

// Lambda only allows writes below /tmp
const (
	lambdaStaticDir = "/tmp/flowchart/static"
	lambdaTempDir   = "/tmp/flowchart/tmp"
)

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	lambdaFunction := getEnv("AWS_LAMBDA_FUNCTION_NAME", "")
	isLambda := getEnvBool("IS_LAMBDA", false) || lambdaFunction != ""

	staticDir, tempDir := "static", "."
	if isLambda {
		staticDir, tempDir = lambdaStaticDir, lambdaTempDir
	}

	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":"+getEnv("PORT", "7860")),
		Environment:   getEnv("ENVIRONMENT", "development"),
		MaxBodyBytes:  int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		ModelBackend:   strings.ToLower(getEnv("MODEL_BACKEND", ModelBackendCLI)),
		ModelCommand:   getEnv("MODEL_COMMAND", "ollama"),
		ModelName:      getEnv("MODEL_NAME", "llama3"),
		OllamaEndpoint: getEnv("OLLAMA_ENDPOINT", "http://localhost:11434"),
		ModelTimeout:   getEnvDuration("MODEL_TIMEOUT", 60*time.Second),

		RendererCommand:  getEnv("RENDERER_COMMAND", "npx"),
		RendererArgs:     strings.Fields(getEnv("RENDERER_ARGS", "-y @mermaid-js/mermaid-cli")),
		RenderTimeout:    getEnvDuration("RENDER_TIMEOUT", 90*time.Second),
		RenderWidth:      getEnvInt("RENDER_WIDTH", 3000),
		RenderHeight:     getEnvInt("RENDER_HEIGHT", 2400),
		RenderScale:      getEnvInt("RENDER_SCALE", 3),
		RenderBackground: getEnv("RENDER_BACKGROUND", "white"),

		StaticDir: getEnv("STATIC_DIR", staticDir),
		TempDir:   getEnv("TEMP_DIR", tempDir),

		RegistryKey: strings.ToLower(getEnv("REGISTRY_KEY", "id")),

		BreakerMaxRequests:      uint32(getEnvInt("BREAKER_MAX_REQUESTS", 1)),
		BreakerInterval:         getEnvDuration("BREAKER_INTERVAL", 60*time.Second),
		BreakerTimeout:          getEnvDuration("BREAKER_TIMEOUT", 30*time.Second),
		BreakerFailureThreshold: getEnvFloat("BREAKER_FAILURE_THRESHOLD", 0.8),
		BreakerMinRequests:      uint32(getEnvInt("BREAKER_MIN_REQUESTS", 5)),

		AWSRegion:    getEnv("AWS_REGION", "us-west-2"),
		EventBusName: getEnv("EVENT_BUS_NAME", ""),

		// Lambda configuration
		IsLambda:           isLambda,
		LambdaFunctionName: lambdaFunction,

		// Logging and features
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		EnableMetrics:      getEnvBool("ENABLE_METRICS", true),
		EnableCORS:         getEnvBool("ENABLE_CORS", true),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		GenerateRateLimit:  getEnvInt("GENERATE_RATE_LIMIT", 30),
		TrustProxyHeaders:  getEnvBool("TRUST_PROXY_HEADERS", false),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	var errs []error

	switch c.ModelBackend {
	case ModelBackendCLI:
		if c.ModelCommand == "" {
			errs = append(errs, errors.New("MODEL_COMMAND is required for the cli backend"))
		}
	case ModelBackendHTTP:
		if c.OllamaEndpoint == "" {
			errs = append(errs, errors.New("OLLAMA_ENDPOINT is required for the http backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("MODEL_BACKEND must be %q or %q, got %q", ModelBackendCLI, ModelBackendHTTP, c.ModelBackend))
	}

	if c.RegistryKey != "id" && c.RegistryKey != "text" {
		errs = append(errs, fmt.Errorf("REGISTRY_KEY must be \"id\" or \"text\", got %q", c.RegistryKey))
	}
	if c.RendererCommand == "" {
		errs = append(errs, errors.New("RENDERER_COMMAND is required"))
	}
	if c.ModelTimeout <= 0 || c.RenderTimeout <= 0 {
		errs = append(errs, errors.New("MODEL_TIMEOUT and RENDER_TIMEOUT must be positive"))
	}
	if c.RenderWidth <= 0 || c.RenderHeight <= 0 || c.RenderScale <= 0 {
		errs = append(errs, errors.New("RENDER_WIDTH, RENDER_HEIGHT and RENDER_SCALE must be positive"))
	}
	if c.StaticDir == "" {
		errs = append(errs, errors.New("STATIC_DIR is required"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("MAX_BODY_BYTES must be positive"))
	}
	if c.BreakerFailureThreshold <= 0 || c.BreakerFailureThreshold > 1 {
		errs = append(errs, errors.New("BREAKER_FAILURE_THRESHOLD must be in (0, 1]"))
	}
	if c.GenerateRateLimit < 0 {
		errs = append(errs, errors.New("GENERATE_RATE_LIMIT must not be negative"))
	}

	return errors.Join(errs...)
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// WriteTimeout is long enough to cover a model call followed by a render
func (c *Config) WriteTimeout() time.Duration {
	return c.ModelTimeout + c.RenderTimeout + 30*time.Second
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
