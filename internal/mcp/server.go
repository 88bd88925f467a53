package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with its tool dependencies.
type Server struct {
	server  *mcp.Server
	service Service
}

// Config holds server dependencies.
type Config struct {
	Service Service
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "ragsql-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_database",
		Description: "Answer a natural language question about the PostgreSQL database. Generates SQL grounded in the indexed schema, executes it, and returns the result.",
	}, makeQueryHandler(cfg.Service))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "refresh_schema_index",
		Description: "Re-extract the database schema and rebuild the vector index. Use after DDL changes so answers reflect the current schema.",
	}, makeRefreshHandler(cfg.Service))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Get the current health of the service and the number of schema documents in the vector index.",
	}, makeStatusHandler(cfg.Service))

	return &Server{
		server:  server,
		service: cfg.Service,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
