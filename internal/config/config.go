// Package config loads process-level configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration loaded from environment
// variables. It is immutable after Load() returns.
type Config struct {
	Port        int
	Environment string
	LogLevel    string

	DatabaseURL      string
	DatabaseMaxConns int

	RedisURL string

	DefaultProvider string
	DefaultModel    string
	LLMAPIKey       string
	LLMBaseURL      string

	EmbeddingModel      string
	EmbeddingDimensions int

	WebSearchEndpoint string
	WebSearchAPIKey   string

	// Request-level defaults; callers may override per request.
	Temperature          float64
	TopK                 int
	GuardrailThreshold   int
	MaxRetrievalAttempts int
	ConversationWindow   int
	MaxIterations        int

	EmbeddingCacheTTLSeconds int
	ToolRateLimitPerSecond  float64
	ToolRateLimitBurst      int

	FrontendURL string
}

// Load reads configuration from environment variables. DATABASE_URL is
// required; everything else has a sensible default.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("config.Load: DATABASE_URL is required")
	}

	cfg := &Config{
		Port:        envInt("PORT", 8080),
		Environment: envStr("ENVIRONMENT", "development"),
		LogLevel:    envStr("LOG_LEVEL", "info"),

		DatabaseURL:      dbURL,
		DatabaseMaxConns: envInt("DATABASE_MAX_CONNS", 25),

		RedisURL: envStr("REDIS_URL", "redis://localhost:6379/0"),

		DefaultProvider: envStr("DEFAULT_LLM_PROVIDER", "openai"),
		DefaultModel:    envStr("DEFAULT_LLM_MODEL", "gpt-4o-mini"),
		LLMAPIKey:       envStr("LLM_API_KEY", ""),
		LLMBaseURL:      envStr("LLM_BASE_URL", ""),

		EmbeddingModel:      envStr("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimensions: envInt("EMBEDDING_DIMENSIONS", 1536),

		WebSearchEndpoint: envStr("WEB_SEARCH_ENDPOINT", ""),
		WebSearchAPIKey:   envStr("WEB_SEARCH_API_KEY", ""),

		Temperature:          envFloat("DEFAULT_TEMPERATURE", 0.3),
		TopK:                 envInt("DEFAULT_TOP_K", 3),
		GuardrailThreshold:   envInt("DEFAULT_GUARDRAIL_THRESHOLD", 75),
		MaxRetrievalAttempts: envInt("DEFAULT_MAX_RETRIEVAL_ATTEMPTS", 3),
		ConversationWindow:   envInt("DEFAULT_CONVERSATION_WINDOW", 5),
		MaxIterations:        envInt("DEFAULT_MAX_ITERATIONS", 10),

		EmbeddingCacheTTLSeconds: envInt("EMBEDDING_CACHE_TTL_SECONDS", 900),
		ToolRateLimitPerSecond:  envFloat("TOOL_RATE_LIMIT_PER_SECOND", 5.0),
		ToolRateLimitBurst:      envInt("TOOL_RATE_LIMIT_BURST", 10),

		FrontendURL: envStr("FRONTEND_URL", "http://localhost:3000"),
	}

	return cfg, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
