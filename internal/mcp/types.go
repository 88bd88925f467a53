// Package mcp exposes the question answering service as MCP tools.
package mcp

// QueryDatabaseInput defines the input parameters for the query_database tool.
type QueryDatabaseInput struct {
	// Question is the natural language question about the database.
	Question string `json:"question" jsonschema:"Natural language question about the database contents"`
}

// QueryDatabaseOutput contains the answering result.
type QueryDatabaseOutput struct {
	// Question echoes the input question.
	Question string `json:"question"`
	// SQL is the last SQL statement the agent produced, if any.
	SQL string `json:"sql,omitempty"`
	// Result is the serialized query result when execution succeeded.
	Result string `json:"result,omitempty"`
	// Error describes why the question could not be answered.
	Error string `json:"error,omitempty"`
	// ContextUsed is the schema context the agent worked with.
	ContextUsed string `json:"context_used,omitempty"`
}

// RefreshIndexInput defines the input for the refresh_schema_index tool.
// The tool takes no parameters.
type RefreshIndexInput struct{}

// RefreshIndexOutput reports the outcome of a schema re-index.
type RefreshIndexOutput struct {
	// Indexed is the number of schema documents written to the index.
	Indexed int `json:"indexed"`
	// Skipped is the number of documents dropped due to embedding failures.
	Skipped int `json:"skipped"`
	// SkippedDocuments lists the dropped documents with reasons.
	SkippedDocuments []SkippedDocument `json:"skipped_documents,omitempty"`
	// DurationSeconds is the wall-clock duration of the run.
	DurationSeconds float64 `json:"duration_seconds"`
}

// SkippedDocument identifies one document dropped during indexing.
type SkippedDocument struct {
	DocumentID string `json:"document_id"`
	Reason     string `json:"reason"`
}

// StatusInput defines the input for the get_index_status tool.
// The tool takes no parameters.
type StatusInput struct{}

// StatusOutput reports overall service health and index size.
type StatusOutput struct {
	// Status is "ok", "degraded", or "error".
	Status string `json:"status"`
	// Services maps each dependency to a short status string.
	Services map[string]string `json:"services"`
}
