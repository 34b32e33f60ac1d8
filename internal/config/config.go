package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	DatabaseURL string
	ServerPort  string
	FrontendURL string

	// Model provider credentials. A provider with an empty key is simply
	// not registered; requests naming it fall back to the default.
	OpenAIKey    string
	AnthropicKey string
	GoogleKey    string

	DefaultProvider string
	OpenAIBaseURL   string
	OpenAIModel     string
	AnthropicModel  string
	GoogleModel     string

	TranscriptionModel string
	EvaluationModel    string

	DefaultTimezone string

	EnableHSTS bool
	RedisURL   string

	// RabbitMQURL enables the async trace export pipeline when set.
	RabbitMQURL      string
	RabbitMQPrefetch int
	TraceEndpoint    string
	TraceAPIKey      string
	TraceProject     string

	OpenAPISpecPath string

	WorkerDebugMode bool
	ServerDebugMode bool
	OTELEnabled     bool
	OTELEndpoint    string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:8100"),
		OpenAIKey:          getEnv("OPENAI_API_KEY", ""),
		AnthropicKey:       getEnv("ANTHROPIC_API_KEY", ""),
		GoogleKey:          getEnv("GOOGLE_API_KEY", ""),
		DefaultProvider:    getEnv("DEFAULT_PROVIDER", "openai"),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		AnthropicModel:     getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-20240620"),
		GoogleModel:        getEnv("GOOGLE_MODEL", "gemini-1.5-flash"),
		TranscriptionModel: getEnv("TRANSCRIPTION_MODEL", "whisper-1"),
		EvaluationModel:    getEnv("EVALUATION_MODEL", "gpt-4o-mini"),
		DefaultTimezone:    getEnv("DEFAULT_TIMEZONE", "America/New_York"),
		EnableHSTS:         getEnvBool("ENABLE_HSTS", false),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:        getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch:   getEnvInt("RABBITMQ_PREFETCH", 1),
		TraceEndpoint:      getEnv("TRACE_COLLECTOR_ENDPOINT", ""),
		TraceAPIKey:        getEnv("TRACE_COLLECTOR_API_KEY", ""),
		TraceProject:       getEnv("TRACE_PROJECT", "nestling"),
		OpenAPISpecPath:    getEnv("OPENAPI_SPEC_PATH", "api/openapi/openapi.yaml"),
		WorkerDebugMode:    getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:    getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:        getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

// HasProviderKey reports whether any model provider credential is configured.
func (c *Config) HasProviderKey() bool {
	return c.OpenAIKey != "" || c.AnthropicKey != "" || c.GoogleKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
