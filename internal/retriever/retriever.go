// Package retriever resolves a natural-language question to the most
// relevant schema documents in the vector index.
package retriever

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ragsql/ragsql/internal/storage"
)

// Embedder converts question text into a query vector.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Index answers nearest-neighbor queries over embedded schema documents.
type Index interface {
	Query(ctx context.Context, vector []float32, k int) ([]*storage.ScoredRecord, error)
}

// ScoredDocument is one retrieved schema document with its similarity score.
type ScoredDocument struct {
	DocumentID   string
	SchemaName   string
	RelationName string
	Kind         string
	RenderedText string
	Score        float32
}

// Retriever embeds questions and performs top-K retrieval.
type Retriever struct {
	embedder Embedder
	index    Index
	topK     int
	logger   *slog.Logger
}

// New creates a Retriever. A non-positive topK is clamped to 1 so the
// retriever always asks the index for at least one document.
func New(embedder Embedder, index Index, topK int, logger *slog.Logger) *Retriever {
	if topK < 1 {
		topK = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		topK:     topK,
		logger:   logger,
	}
}

// Retrieve returns up to topK schema documents ordered by descending
// similarity. An empty index yields an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]ScoredDocument, error) {
	vector, err := r.embedder.EmbedText(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	records, err := r.index.Query(ctx, vector, r.topK)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	docs := make([]ScoredDocument, 0, len(records))
	for _, rec := range records {
		docs = append(docs, ScoredDocument{
			DocumentID:   rec.DocumentID,
			SchemaName:   rec.SchemaName,
			RelationName: rec.RelationName,
			Kind:         rec.Kind,
			RenderedText: rec.RenderedText,
			Score:        rec.Score,
		})
	}

	r.logger.Debug("retrieved schema context", "question_len", len(question), "documents", len(docs))
	return docs, nil
}
