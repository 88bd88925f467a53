package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragsql/ragsql/internal/sqlexec"
)

// scriptedGenerator returns canned statements in order.
type scriptedGenerator struct {
	statements []string
	err        error
	requests   []GenerateRequest
}

func (g *scriptedGenerator) GenerateSQL(ctx context.Context, req GenerateRequest) (string, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return "", g.err
	}
	i := len(g.requests) - 1
	if i >= len(g.statements) {
		i = len(g.statements) - 1
	}
	return g.statements[i], nil
}

// scriptedExecutor fails the first failures executions, then succeeds.
type scriptedExecutor struct {
	failures int
	execErr  error
	calls    []string
}

func (e *scriptedExecutor) Execute(ctx context.Context, sql string) (*sqlexec.Result, error) {
	e.calls = append(e.calls, sql)
	if len(e.calls) <= e.failures {
		return nil, e.execErr
	}
	return &sqlexec.Result{
		Columns: []string{"contract_id"},
		Rows:    [][]any{{int64(7)}},
	}, nil
}

func TestRunSuccessFirstAttempt(t *testing.T) {
	gen := &scriptedGenerator{statements: []string{"SELECT contract_id FROM sales.contracts"}}
	exec := &scriptedExecutor{}

	out := New(gen, exec, 3, nil).Run(context.Background(), "list contracts", "Table: contracts (Schema: sales)")

	assert.Equal(t, StateSuccess, out.State)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, "SELECT contract_id FROM sales.contracts", out.SQL)
	assert.JSONEq(t, `{"columns":["contract_id"],"rows":[[7]]}`, out.Result)
	assert.NoError(t, out.Err)
}

// First statement has a syntax error, the corrected second attempt
// succeeds and the outcome carries the corrected statement.
func TestRunRetryWithErrorFeedback(t *testing.T) {
	gen := &scriptedGenerator{statements: []string{
		"SELECT * FORM sales.contracts",
		"SELECT * FROM sales.contracts",
	}}
	exec := &scriptedExecutor{failures: 1, execErr: errors.New(`syntax error at or near "FORM"`)}

	out := New(gen, exec, 3, nil).Run(context.Background(), "list contracts", "ctx")

	assert.Equal(t, StateSuccess, out.State)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, "SELECT * FROM sales.contracts", out.SQL)
	assert.NoError(t, out.Err)

	// The retry prompt carries the failing statement and database error.
	require.Len(t, gen.requests, 2)
	assert.Empty(t, gen.requests[0].PreviousError)
	assert.Equal(t, "SELECT * FORM sales.contracts", gen.requests[1].PreviousSQL)
	assert.Contains(t, gen.requests[1].PreviousError, "syntax error")
	assert.Equal(t, 2, gen.requests[1].Attempt)
}

func TestRunExhaustsRetryBound(t *testing.T) {
	gen := &scriptedGenerator{statements: []string{"SELECT * FROM missing_table"}}
	exec := &scriptedExecutor{failures: 100, execErr: errors.New(`relation "missing_table" does not exist`)}

	out := New(gen, exec, 3, nil).Run(context.Background(), "anything", "ctx")

	assert.Equal(t, StateFailure, out.State)
	assert.Equal(t, 3, out.Attempts)
	assert.Len(t, exec.calls, 3)
	// Last attempted statement is preserved.
	assert.Equal(t, "SELECT * FROM missing_table", out.SQL)
	require.Error(t, out.Err)
	assert.ErrorIs(t, out.Err, ErrExecution)
	assert.Contains(t, out.Err.Error(), "does not exist")
}

func TestRunGenerationFailure(t *testing.T) {
	gen := &scriptedGenerator{err: ErrNoSQLGenerated}
	exec := &scriptedExecutor{}

	out := New(gen, exec, 3, nil).Run(context.Background(), "anything", "ctx")

	assert.Equal(t, StateFailure, out.State)
	assert.Empty(t, out.SQL)
	assert.Empty(t, exec.calls)
	assert.ErrorIs(t, out.Err, ErrGeneration)
}

func TestRunInjectsNoContextNotice(t *testing.T) {
	gen := &scriptedGenerator{statements: []string{"SELECT 1"}}

	out := New(gen, &scriptedExecutor{}, 1, nil).Run(context.Background(), "anything", "")

	assert.Equal(t, StateSuccess, out.State)
	require.Len(t, gen.requests, 1)
	assert.Equal(t, NoContextNotice, gen.requests[0].SchemaContext)
}

func TestRunAttemptBoundNeverExceeded(t *testing.T) {
	for _, bound := range []int{1, 2, 5} {
		gen := &scriptedGenerator{statements: []string{"SELECT 1"}}
		exec := &scriptedExecutor{failures: 100, execErr: errors.New("boom")}

		out := New(gen, exec, bound, nil).Run(context.Background(), "q", "ctx")

		assert.Equal(t, StateFailure, out.State)
		assert.Equal(t, bound, out.Attempts)
		assert.Len(t, exec.calls, bound)
	}
}
