// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// OpenAI settings for the natural-language query endpoint.
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	QueryTimeout  time.Duration

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Modeling capability flags, resolved once at startup. Components branch
	// deterministically to their fallback strategy when a flag is false.
	ARIMAEnabled           bool
	IsolationForestEnabled bool

	// Operational settings.
	LogLevel            string
	CORSAllowedOrigin   string
	MaxRequestBodyBytes int64 // Maximum request body size in bytes.
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:                   envInt("NIKA_PORT", 8080),
		ReadTimeout:            envDuration("NIKA_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:           envDuration("NIKA_WRITE_TIMEOUT", 60*time.Second),
		OpenAIAPIKey:           envStr("OPENAI_API_KEY", ""),
		OpenAIBaseURL:          envStr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:            envStr("NIKA_QUERY_MODEL", "gpt-4o-mini"),
		QueryTimeout:           envDuration("NIKA_QUERY_TIMEOUT", 60*time.Second),
		OTELEndpoint:           envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:           envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		ServiceName:            envStr("OTEL_SERVICE_NAME", "nika-analytics"),
		ARIMAEnabled:           envBool("NIKA_ARIMA_ENABLED", true),
		IsolationForestEnabled: envBool("NIKA_IFOREST_ENABLED", true),
		LogLevel:               envStr("NIKA_LOG_LEVEL", "info"),
		CORSAllowedOrigin:      envStr("NIKA_CORS_ALLOWED_ORIGIN", "*"),
		MaxRequestBodyBytes:    int64(envInt("NIKA_MAX_REQUEST_BODY_BYTES", 16*1024*1024)), // 16 MB default
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: NIKA_PORT must be in (0, 65535]")
	}
	if c.MaxRequestBodyBytes <= 0 {
		return fmt.Errorf("config: NIKA_MAX_REQUEST_BODY_BYTES must be positive")
	}
	if c.OpenAIBaseURL == "" {
		return fmt.Errorf("config: OPENAI_BASE_URL must not be empty")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
