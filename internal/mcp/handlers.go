package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ragsql/ragsql/internal/rag"
)

// Service is the subset of the answering service the tools need.
type Service interface {
	Answer(ctx context.Context, req rag.QueryRequest) rag.QueryResponse
	Ingest(ctx context.Context) (*rag.IngestReport, error)
	Health(ctx context.Context) rag.HealthReport
}

// makeQueryHandler creates the query_database tool handler.
// The agent loop never surfaces an error to the caller; failures are
// reported in the Error field so clients see the attempted SQL too.
func makeQueryHandler(svc Service) func(
	context.Context, *mcp.CallToolRequest, QueryDatabaseInput,
) (*mcp.CallToolResult, QueryDatabaseOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input QueryDatabaseInput) (
		*mcp.CallToolResult, QueryDatabaseOutput, error,
	) {
		if strings.TrimSpace(input.Question) == "" {
			return nil, QueryDatabaseOutput{}, fmt.Errorf("question must not be empty")
		}

		resp := svc.Answer(ctx, rag.QueryRequest{NaturalLanguageQuery: input.Question})

		out := QueryDatabaseOutput{
			Question:    resp.NaturalLanguageQuery,
			ContextUsed: resp.ContextUsed,
		}
		if resp.SQLQuery != nil {
			out.SQL = *resp.SQLQuery
		}
		if resp.Result != nil {
			out.Result = *resp.Result
		}
		if resp.Error != nil {
			out.Error = *resp.Error
		}
		return nil, out, nil
	}
}

// makeRefreshHandler creates the refresh_schema_index tool handler.
// Only one refresh runs at a time; a concurrent request fails fast.
func makeRefreshHandler(svc Service) func(
	context.Context, *mcp.CallToolRequest, RefreshIndexInput,
) (*mcp.CallToolResult, RefreshIndexOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input RefreshIndexInput) (
		*mcp.CallToolResult, RefreshIndexOutput, error,
	) {
		report, err := svc.Ingest(ctx)
		if err != nil {
			if errors.Is(err, rag.ErrIngestInProgress) {
				return nil, RefreshIndexOutput{}, fmt.Errorf("a schema index refresh is already running")
			}
			return nil, RefreshIndexOutput{}, fmt.Errorf("refresh failed: %w", err)
		}

		out := RefreshIndexOutput{
			Indexed:         report.Indexed,
			Skipped:         report.Skipped,
			DurationSeconds: report.Duration.Seconds(),
		}
		for _, s := range report.SkippedDocuments {
			out.SkippedDocuments = append(out.SkippedDocuments, SkippedDocument{
				DocumentID: s.DocumentID,
				Reason:     s.Reason,
			})
		}
		return nil, out, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler.
func makeStatusHandler(svc Service) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		health := svc.Health(ctx)
		return nil, StatusOutput{
			Status:   health.Status,
			Services: health.Services,
		}, nil
	}
}
