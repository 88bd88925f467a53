// Package observability provides structured logging and Prometheus metrics.
package observability

import (
	"io"
	"log/slog"
)

// NewLogger builds the service logger. JSON output is intended for
// container deployments, text for local development.
func NewLogger(level slog.Level, jsonOutput bool, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}
	return slog.New(handler).With(slog.String("service", "ragsql"))
}
