// Package rag orchestrates schema ingestion and question answering.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ragsql/ragsql/internal/agent"
	"github.com/ragsql/ragsql/internal/observability"
	"github.com/ragsql/ragsql/internal/retriever"
	"github.com/ragsql/ragsql/internal/schema"
	"github.com/ragsql/ragsql/internal/storage"
)

var (
	// ErrExtraction marks a fatal catalog introspection failure; the run is
	// aborted and any previous index stays in place.
	ErrExtraction = errors.New("schema extraction failed")
	// ErrIngestInProgress is returned when an ingestion run is already
	// in flight. Ingestion is not re-entrant.
	ErrIngestInProgress = errors.New("ingestion already in progress")
)

// contextSeparator joins rendered documents in the response's context field.
const contextSeparator = "\n---\n"

// SchemaExtractor produces the full document collection from the catalog.
type SchemaExtractor interface {
	Extract(ctx context.Context) ([]*schema.Document, error)
}

// Embedder converts text into an embedding vector.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex stores embedding records and reports its size and health.
type VectorIndex interface {
	Rebuild(ctx context.Context, records []*storage.EmbeddingRecord) error
	Count(ctx context.Context) (uint64, error)
	Health(ctx context.Context) error
}

// ContextRetriever resolves a question to relevant schema documents.
type ContextRetriever interface {
	Retrieve(ctx context.Context, question string) ([]retriever.ScoredDocument, error)
}

// SQLAgent runs the generate-execute-retry loop.
type SQLAgent interface {
	Run(ctx context.Context, question, schemaContext string) *agent.Outcome
}

// DatabasePinger probes target database connectivity.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// QueryRequest is one natural-language question.
type QueryRequest struct {
	NaturalLanguageQuery string `json:"natural_language_query"`
}

// QueryResponse is the externally visible answer. Exactly one of Result
// and Error is set on completion; SQLQuery is nil only when generation
// never produced a statement.
type QueryResponse struct {
	NaturalLanguageQuery string  `json:"natural_language_query"`
	SQLQuery             *string `json:"sql_query"`
	Result               *string `json:"result"`
	ContextUsed          string  `json:"context_used"`
	Error                *string `json:"error"`
}

// SkippedDocument records one document dropped during ingestion.
type SkippedDocument struct {
	DocumentID string `json:"document_id"`
	Reason     string `json:"reason"`
}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	Indexed          int               `json:"indexed"`
	Skipped          int               `json:"skipped"`
	SkippedDocuments []SkippedDocument `json:"skipped_documents,omitempty"`
	Duration         time.Duration     `json:"duration"`
}

// HealthReport aggregates per-dependency status strings.
type HealthReport struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// Config holds service dependencies.
type Config struct {
	Extractor SchemaExtractor
	Embedder  Embedder
	Index     VectorIndex
	Retriever ContextRetriever
	Agent     SQLAgent
	Database  DatabasePinger
	Logger    *slog.Logger
	Metrics   *observability.Metrics
}

// Service sequences ingestion and query handling. Answer is stateless per
// request and safe for concurrent use; Ingest is guarded by a single
// in-flight flag.
type Service struct {
	extractor SchemaExtractor
	embedder  Embedder
	index     VectorIndex
	retriever ContextRetriever
	agent     SQLAgent
	db        DatabasePinger
	logger    *slog.Logger
	metrics   *observability.Metrics
	ingesting atomic.Bool
}

// NewService constructs the orchestrator from explicit dependencies.
func NewService(cfg *Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics(nil)
	}
	return &Service{
		extractor: cfg.Extractor,
		embedder:  cfg.Embedder,
		index:     cfg.Index,
		retriever: cfg.Retriever,
		agent:     cfg.Agent,
		db:        cfg.Database,
		logger:    logger,
		metrics:   metrics,
	}
}

// Ingest extracts the schema, embeds every document and rebuilds the
// vector index wholesale. Embedding failures skip the affected document;
// extraction or rebuild failures abort the run and leave any prior index
// untouched.
func (s *Service) Ingest(ctx context.Context) (*IngestReport, error) {
	if !s.ingesting.CompareAndSwap(false, true) {
		return nil, ErrIngestInProgress
	}
	defer s.ingesting.Store(false)

	start := time.Now()
	s.logger.Info("starting schema ingestion")

	docs, err := s.extractor.Extract(ctx)
	if err != nil {
		s.metrics.IngestRuns.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	report := &IngestReport{}
	records := make([]*storage.EmbeddingRecord, 0, len(docs))
	for _, doc := range docs {
		rendered := doc.RenderText()
		vector, err := s.embedder.EmbedText(ctx, rendered)
		if err != nil {
			s.logger.Warn("embedding failed, skipping document", "document", doc.ID(), "error", err)
			report.Skipped++
			report.SkippedDocuments = append(report.SkippedDocuments, SkippedDocument{
				DocumentID: doc.ID(),
				Reason:     err.Error(),
			})
			continue
		}
		records = append(records, &storage.EmbeddingRecord{
			DocumentID:   doc.ID(),
			SchemaName:   doc.Schema,
			RelationName: doc.Name,
			Kind:         string(doc.Kind),
			RenderedText: rendered,
			Vector:       vector,
		})
	}

	if err := s.index.Rebuild(ctx, records); err != nil {
		s.metrics.IngestRuns.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("rebuild index: %w", err)
	}

	report.Indexed = len(records)
	report.Duration = time.Since(start)

	s.metrics.IngestIndexed.Add(float64(report.Indexed))
	s.metrics.IngestSkipped.Add(float64(report.Skipped))
	s.metrics.IngestRuns.WithLabelValues("success").Inc()

	s.logger.Info("schema ingestion complete",
		"indexed", report.Indexed,
		"skipped", report.Skipped,
		"duration", report.Duration,
	)
	return report, nil
}

// Answer handles one question end to end. It never returns an error to
// its caller: every failure path is captured into the response.
func (s *Service) Answer(ctx context.Context, req QueryRequest) QueryResponse {
	resp := QueryResponse{NaturalLanguageQuery: req.NaturalLanguageQuery}

	question := strings.TrimSpace(req.NaturalLanguageQuery)
	if question == "" {
		resp.Error = ptr("natural_language_query must not be empty")
		s.metrics.QueriesTotal.WithLabelValues("invalid").Inc()
		return resp
	}

	retrievalStart := time.Now()
	docs, err := s.retriever.Retrieve(ctx, question)
	s.metrics.RetrievalDuration.Observe(time.Since(retrievalStart).Seconds())
	if err != nil {
		// Vector store trouble degrades to empty context rather than
		// failing the request.
		s.logger.Warn("context retrieval failed, proceeding without schema context", "error", err)
		docs = nil
	}

	rendered := make([]string, 0, len(docs))
	for _, doc := range docs {
		rendered = append(rendered, doc.RenderedText)
	}
	resp.ContextUsed = strings.Join(rendered, contextSeparator)

	out := s.agent.Run(ctx, question, resp.ContextUsed)
	s.metrics.AgentAttempts.Observe(float64(out.Attempts))

	if out.SQL != "" {
		resp.SQLQuery = ptr(out.SQL)
	}

	if out.State == agent.StateSuccess {
		resp.Result = ptr(out.Result)
		s.metrics.QueriesTotal.WithLabelValues("success").Inc()
		return resp
	}

	msg := "sql agent failed"
	if out.Err != nil {
		msg = out.Err.Error()
	}
	resp.Error = ptr(msg)
	s.metrics.QueriesTotal.WithLabelValues("failure").Inc()
	return resp
}

// Health probes each dependency and reports per-service status strings.
// Probes run on every call; nothing is cached between requests.
func (s *Service) Health(ctx context.Context) HealthReport {
	services := map[string]string{
		"llm":              "Initialized",
		"embeddings_model": "Initialized",
		"retriever":        "Initialized",
		"sql_agent":        "Initialized",
	}

	failures := 0

	if err := s.db.Ping(ctx); err != nil {
		services["postgresql_connection"] = "Error: " + err.Error()
		failures++
	} else {
		services["postgresql_connection"] = "OK"
	}

	if err := s.index.Health(ctx); err != nil {
		services["vector_store_connection"] = "Error: " + err.Error()
		failures++
	} else {
		services["vector_store_connection"] = "OK"
		if count, err := s.index.Count(ctx); err == nil {
			services["schema_index"] = fmt.Sprintf("%d documents", count)
		}
	}

	status := "ok"
	switch failures {
	case 1:
		status = "degraded"
	case 2:
		status = "error"
	}

	return HealthReport{Status: status, Services: services}
}

func ptr(s string) *string {
	return &s
}
