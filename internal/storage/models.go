package storage

// EmbeddingRecord is one indexed schema document: its identity, the
// embedding of its rendered text, and enough payload to rebuild retrieval
// context without a second catalog lookup.
type EmbeddingRecord struct {
	DocumentID   string // fully-qualified relation name: "sales.contracts"
	SchemaName   string
	RelationName string
	Kind         string // "table" or "view"
	RenderedText string // the embedding input, returned as retrieval context
	Vector       []float32
}

// ScoredRecord is a query hit with its similarity score.
type ScoredRecord struct {
	EmbeddingRecord
	Score float32
}

// VectorDimension is the embedding size for text-embedding-3-small.
// Matches embedding.Dimension.
const VectorDimension = 1536
