package config

import (
	"log/slog"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "user", cfg.Database.User)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "ragdb", cfg.Database.Name)
	assert.Empty(t, cfg.Database.Schemas)
	assert.Equal(t, "localhost", cfg.Qdrant.Host)
	assert.Equal(t, 6334, cfg.Qdrant.Port)
	assert.Equal(t, "schema_documents", cfg.Qdrant.Collection)
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.ChatModel)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, 3, cfg.Agent.MaxAttempts)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Address)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("RAGSQL_SCHEMAS", "sales,public")
	t.Setenv("RAGSQL_RETRIEVAL_K", "5")
	t.Setenv("RAGSQL_AGENT_MAX_ATTEMPTS", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, []string{"sales", "public"}, cfg.Database.Schemas)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 2, cfg.Agent.MaxAttempts)
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestLoadRejectsNonPositiveBounds(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("RAGSQL_RETRIEVAL_K", "0")

	_, err := Load()
	require.Error(t, err)
}

func TestDSNMasking(t *testing.T) {
	d := DatabaseConfig{User: "app", Password: "s3cret", Host: "db", Port: 5432, Name: "ragdb"}

	assert.Equal(t, "postgres://app:s3cret@db:5432/ragdb", d.DSN())
	assert.Equal(t, "postgres://app:xxxxx@db:5432/ragdb", d.MaskedDSN())
	assert.NotContains(t, d.MaskedDSN(), "s3cret")
}

func TestDSNEscapesCredentials(t *testing.T) {
	d := DatabaseConfig{User: "app", Password: "p@ss word", Host: "db", Port: 5432, Name: "ragdb"}

	// Spaces and reserved characters are percent-encoded, never '+',
	// so userinfo parsing recovers the original password.
	dsn := d.DSN()
	assert.Equal(t, "postgres://app:p%40ss%20word@db:5432/ragdb", dsn)

	parsed, err := url.Parse(dsn)
	require.NoError(t, err)
	pass, _ := parsed.User.Password()
	assert.Equal(t, "p@ss word", pass)

	assert.Equal(t, "postgres://app:xxxxx@db:5432/ragdb", d.MaskedDSN())
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LoggingConfig{Level: "debug"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LoggingConfig{Level: "bogus"}.SlogLevel())
	assert.Equal(t, slog.LevelError, LoggingConfig{Level: "ERROR"}.SlogLevel())
}
