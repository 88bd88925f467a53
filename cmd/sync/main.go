// Package main provides the sync CLI for rebuilding the schema index.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ragsql/ragsql/internal/config"
	"github.com/ragsql/ragsql/internal/embedding"
	"github.com/ragsql/ragsql/internal/observability"
	"github.com/ragsql/ragsql/internal/rag"
	"github.com/ragsql/ragsql/internal/schema"
	"github.com/ragsql/ragsql/internal/sqlexec"
	"github.com/ragsql/ragsql/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "ragsql-sync",
	Short: "Schema index maintenance tool",
	Long:  "CLI tool for rebuilding the PostgreSQL schema index in Qdrant",
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Re-index the database schema",
	Long: `Extracts the current schema from PostgreSQL and rebuilds the vector index.

This command:
1. Connects to PostgreSQL and Qdrant and verifies health
2. Extracts table and view documents from the catalog
3. Generates an embedding for each document
4. Rebuilds the index atomically; readers keep the old index until the swap

Environment variables:
  POSTGRES_USER / POSTGRES_PASSWORD / POSTGRES_DB
                 Target database credentials
  DB_HOST        PostgreSQL hostname (default: localhost)
  DB_PORT        PostgreSQL port (default: 5432)
  QDRANT_HOST    Qdrant hostname (default: localhost)
  QDRANT_PORT    Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY OpenAI API key for embeddings (required)`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg.Logging.SlogLevel(), cfg.Logging.JSON, os.Stderr)

	fmt.Println("Starting sync...")
	fmt.Println()

	fmt.Printf("Connecting to PostgreSQL at %s:%d...\n", cfg.Database.Host, cfg.Database.Port)
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	executor := sqlexec.New(pool)
	if err := executor.Ping(ctx); err != nil {
		return fmt.Errorf("PostgreSQL health check failed: %w", err)
	}
	fmt.Println("PostgreSQL healthy")

	fmt.Printf("Connecting to Qdrant at %s:%d...\n", cfg.Qdrant.Host, cfg.Qdrant.Port)
	index, err := storage.NewIndex(cfg.Qdrant.Host, cfg.Qdrant.Port, cfg.Qdrant.Collection)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer index.Close()

	if err := index.Health(ctx); err != nil {
		return fmt.Errorf("Qdrant health check failed: %w", err)
	}
	fmt.Println("Qdrant healthy")

	client, err := embedding.NewClient(cfg.OpenAI.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	embedder := embedding.NewEmbedder(client, cfg.OpenAI.EmbeddingModel)

	svc := rag.NewService(&rag.Config{
		Extractor: schema.NewExtractor(pool, cfg.Database.Schemas, logger),
		Embedder:  embedder,
		Index:     index,
		Database:  executor,
		Logger:    logger,
	})

	fmt.Println()
	fmt.Println("Indexing schema documents...")
	report, err := svc.Ingest(ctx)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Sync complete!")
	fmt.Printf("  Indexed: %d\n", report.Indexed)
	fmt.Printf("  Skipped: %d\n", report.Skipped)
	fmt.Printf("  Duration: %s\n", report.Duration.Round(time.Millisecond))

	if len(report.SkippedDocuments) > 0 {
		fmt.Println()
		fmt.Println("Skipped documents:")
		for _, skipped := range report.SkippedDocuments {
			fmt.Printf("  - %s: %s\n", skipped.DocumentID, skipped.Reason)
		}
	}

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Millisecond))

	return nil
}
