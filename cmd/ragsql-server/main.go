// Package main provides the ragsql HTTP and MCP server entry point.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ragsql/ragsql/internal/agent"
	"github.com/ragsql/ragsql/internal/api"
	"github.com/ragsql/ragsql/internal/config"
	"github.com/ragsql/ragsql/internal/embedding"
	mcpserver "github.com/ragsql/ragsql/internal/mcp"
	"github.com/ragsql/ragsql/internal/observability"
	"github.com/ragsql/ragsql/internal/rag"
	"github.com/ragsql/ragsql/internal/retriever"
	"github.com/ragsql/ragsql/internal/schema"
	"github.com/ragsql/ragsql/internal/sqlexec"
	"github.com/ragsql/ragsql/internal/storage"
)

const httpShutdownTimeout = 10 * time.Second

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	logger := observability.NewLogger(cfg.Logging.SlogLevel(), cfg.Logging.JSON, os.Stderr)

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("failed to create connection pool: %v", err)
	}
	defer pool.Close()
	logger.Info("connected to postgres", "dsn", cfg.Database.MaskedDSN())

	index, err := storage.NewIndex(cfg.Qdrant.Host, cfg.Qdrant.Port, cfg.Qdrant.Collection)
	if err != nil {
		log.Fatalf("failed to connect to Qdrant: %v", err)
	}
	defer index.Close()

	client, err := embedding.NewClient(cfg.OpenAI.APIKey)
	if err != nil {
		log.Fatalf("failed to create OpenAI client: %v", err)
	}
	embedder := embedding.NewEmbedder(client, cfg.OpenAI.EmbeddingModel)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	executor := sqlexec.New(pool)
	svc := rag.NewService(&rag.Config{
		Extractor: schema.NewExtractor(pool, cfg.Database.Schemas, logger),
		Embedder:  embedder,
		Index:     index,
		Retriever: retriever.New(embedder, index, cfg.Retrieval.TopK, logger),
		Agent: agent.New(
			agent.NewOpenAIGenerator(client.Client(), cfg.OpenAI.ChatModel),
			executor,
			cfg.Agent.MaxAttempts,
			logger,
		),
		Database: executor,
		Logger:   logger,
		Metrics:  metrics,
	})

	// Index the schema before accepting queries. A database that cannot be
	// introspected is fatal; an index rebuild failure leaves a stale index
	// and is fatal too.
	report, err := svc.Ingest(ctx)
	if err != nil {
		log.Fatalf("initial schema ingestion failed: %v", err)
	}
	logger.Info("schema index ready",
		"indexed", report.Indexed,
		"skipped", report.Skipped,
		"duration", report.Duration)

	server := mcpserver.NewServer(&mcpserver.Config{Service: svc})

	if cfg.HTTP.MCPStdio {
		logger.Info("starting MCP server (stdio mode)")
		if err := server.Run(ctx); err != nil {
			logger.Error("mcp server error", "error", err)
			os.Exit(1)
		}
		return
	}

	mux := api.NewRouter(svc, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), logger)
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server))

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, stop := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer stop()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("starting HTTP server", "addr", cfg.HTTP.Address)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}
}
