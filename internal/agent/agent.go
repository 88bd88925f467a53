// Package agent drives the bounded generate-execute-retry loop that turns
// a question plus schema context into an executed SQL statement.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ragsql/ragsql/internal/sqlexec"
)

var (
	// ErrGeneration marks failures to produce a usable SQL statement.
	ErrGeneration = errors.New("sql generation failed")
	// ErrNoSQLGenerated marks model output with no SQL-shaped content.
	ErrNoSQLGenerated = errors.New("model output contains no SQL statement")
	// ErrExecution marks exhaustion of the execution retry bound.
	ErrExecution = errors.New("sql execution failed")
)

// State is one step of the agent's finite state machine.
type State string

const (
	StatePlanning   State = "planning"
	StateGenerating State = "generating_sql"
	StateExecuting  State = "executing"
	StateRetrying   State = "retrying"
	StateSuccess    State = "success"
	StateFailure    State = "failure"
)

// NoContextNotice is injected as schema context when retrieval produced
// nothing, so the model knows it is working blind.
const NoContextNotice = "No schema context available."

// GenerateRequest carries everything the model needs for one generation
// attempt. PreviousSQL and PreviousError are set on retries so the model
// can self-correct.
type GenerateRequest struct {
	Question      string
	SchemaContext string
	Attempt       int
	PreviousSQL   string
	PreviousError string
}

// Generator produces a candidate SQL statement.
type Generator interface {
	GenerateSQL(ctx context.Context, req GenerateRequest) (string, error)
}

// Executor runs a candidate statement against the target database.
type Executor interface {
	Execute(ctx context.Context, sql string) (*sqlexec.Result, error)
}

// Outcome is the terminal result of one agent run.
type Outcome struct {
	State    State
	SQL      string // last attempted statement, empty if generation never produced one
	Result   string // serialized rows, populated only on success
	Attempts int
	Err      error
}

// Agent is the SQL generation state machine. Each Run owns its own state,
// so a single Agent is safe for concurrent use.
type Agent struct {
	generator   Generator
	executor    Executor
	maxAttempts int
	logger      *slog.Logger
}

// New creates an Agent with the given retry bound. maxAttempts counts
// generate-execute cycles, so 3 allows two self-corrections.
func New(generator Generator, executor Executor, maxAttempts int, logger *slog.Logger) *Agent {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		generator:   generator,
		executor:    executor,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Run executes the Planning -> GeneratingSQL -> Executing loop until
// success, a generation failure, or the retry bound is exhausted. The
// returned outcome is always terminal (Success or Failure).
func (a *Agent) Run(ctx context.Context, question, schemaContext string) *Outcome {
	out := &Outcome{State: StatePlanning}

	if schemaContext == "" {
		schemaContext = NoContextNotice
	}

	var prevSQL, prevErr string
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		out.Attempts = attempt
		out.State = StateGenerating

		sql, err := a.generator.GenerateSQL(ctx, GenerateRequest{
			Question:      question,
			SchemaContext: schemaContext,
			Attempt:       attempt,
			PreviousSQL:   prevSQL,
			PreviousError: prevErr,
		})
		if err != nil {
			a.logger.Warn("sql generation failed", "attempt", attempt, "error", err)
			out.State = StateFailure
			out.Err = fmt.Errorf("%w: %v", ErrGeneration, err)
			return out
		}
		out.SQL = sql

		out.State = StateExecuting
		res, execErr := a.executor.Execute(ctx, sql)
		if execErr == nil {
			serialized, err := res.Serialize()
			if err != nil {
				out.State = StateFailure
				out.Err = err
				return out
			}
			out.Result = serialized
			out.State = StateSuccess
			a.logger.Info("sql executed", "attempt", attempt, "rows", len(res.Rows))
			return out
		}

		a.logger.Warn("sql execution failed", "attempt", attempt, "error", execErr)
		prevSQL, prevErr = sql, execErr.Error()

		if attempt == a.maxAttempts {
			out.State = StateFailure
			out.Err = fmt.Errorf("%w after %d attempts: %v", ErrExecution, attempt, execErr)
			return out
		}
		out.State = StateRetrying
	}

	// Unreachable: the loop always returns from a terminal state.
	out.State = StateFailure
	out.Err = ErrExecution
	return out
}
