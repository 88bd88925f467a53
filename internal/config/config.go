// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds all configuration for the ragsql service.
type Config struct {
	Database  DatabaseConfig
	Qdrant    QdrantConfig
	OpenAI    OpenAIConfig
	Retrieval RetrievalConfig
	Agent     AgentConfig
	HTTP      HTTPConfig
	Logging   LoggingConfig
}

// DatabaseConfig describes the target PostgreSQL connection.
// Environment variable names follow the usual postgres container conventions.
type DatabaseConfig struct {
	User     string `env:"POSTGRES_USER"     envDefault:"user"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:"password"`
	Host     string `env:"DB_HOST"           envDefault:"localhost"`
	Port     int    `env:"DB_PORT"           envDefault:"5432"`
	Name     string `env:"POSTGRES_DB"       envDefault:"ragdb"`
	// Schemas limits extraction to a comma-separated list of schema names.
	// Empty means all non-system schemas.
	Schemas []string `env:"RAGSQL_SCHEMAS" envSeparator:","`
}

// QdrantConfig describes the vector store connection.
type QdrantConfig struct {
	Host       string `env:"QDRANT_HOST"       envDefault:"localhost"`
	Port       int    `env:"QDRANT_PORT"       envDefault:"6334"`
	Collection string `env:"QDRANT_COLLECTION" envDefault:"schema_documents"`
}

// OpenAIConfig describes the embedding and chat models.
type OpenAIConfig struct {
	APIKey         string `env:"OPENAI_API_KEY"`
	EmbeddingModel string `env:"RAGSQL_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	ChatModel      string `env:"RAGSQL_CHAT_MODEL"      envDefault:"gpt-4o"`
}

// RetrievalConfig controls top-K context retrieval.
type RetrievalConfig struct {
	TopK int `env:"RAGSQL_RETRIEVAL_K" envDefault:"3"`
}

// AgentConfig controls the SQL generation agent.
type AgentConfig struct {
	// MaxAttempts bounds the generate-execute-retry loop.
	MaxAttempts int `env:"RAGSQL_AGENT_MAX_ATTEMPTS" envDefault:"3"`
}

// HTTPConfig describes the HTTP listener.
type HTTPConfig struct {
	Address string `env:"RAGSQL_HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	// MCPStdio switches the MCP surface from streamable HTTP to stdio.
	MCPStdio bool `env:"RAGSQL_MCP_STDIO" envDefault:"false"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level string `env:"RAGSQL_LOG_LEVEL" envDefault:"info"`
	JSON  bool   `env:"RAGSQL_LOG_JSON"  envDefault:"false"`
}

// Load parses configuration from the process environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	if cfg.Retrieval.TopK <= 0 {
		return nil, fmt.Errorf("RAGSQL_RETRIEVAL_K must be positive, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Agent.MaxAttempts <= 0 {
		return nil, fmt.Errorf("RAGSQL_AGENT_MAX_ATTEMPTS must be positive, got %d", cfg.Agent.MaxAttempts)
	}
	return cfg, nil
}

// DSN returns the PostgreSQL connection string. url.URL applies userinfo
// escaping, so credentials with reserved characters survive parsing.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	return u.String()
}

// MaskedDSN returns the connection string with the password replaced,
// safe for logging. The mask is alphanumeric so it passes through
// userinfo escaping verbatim.
func (d DatabaseConfig) MaskedDSN() string {
	masked := d
	masked.Password = "xxxxx"
	return masked.DSN()
}

// SlogLevel maps the configured level string to a slog.Level.
// Unknown values fall back to info.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
