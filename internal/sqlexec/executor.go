// Package sqlexec executes generated SQL against the target database and
// serializes results into a stable textual form.
package sqlexec

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Result is a normalized SQL result. Row order is whatever the executed
// statement yields; no reordering happens here.
type Result struct {
	Columns      []string `json:"columns"`
	Rows         [][]any  `json:"rows"`
	RowsAffected int64    `json:"rows_affected,omitempty"`
}

// Serialize renders the result as compact JSON with database values
// normalized to JSON-friendly forms.
func (r *Result) Serialize() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("serialize result: %w", err)
	}
	return string(data), nil
}

// Executor runs SQL statements over a pgx connection pool. Each call uses
// its own pooled connection, so concurrent requests do not serialize here.
type Executor struct {
	pool *pgxpool.Pool
}

// New creates an Executor from an existing pool.
func New(pool *pgxpool.Pool) *Executor {
	return &Executor{pool: pool}
}

// Ping verifies database connectivity. Used by health reporting.
func (e *Executor) Ping(ctx context.Context) error {
	return e.pool.Ping(ctx)
}

// Execute runs one statement and captures its result. Row-returning
// statements populate Columns and Rows; others populate RowsAffected.
// Database errors are returned to the caller, which feeds them back into
// the generation loop.
func (e *Executor) Execute(ctx context.Context, sql string) (*Result, error) {
	rows, err := e.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Columns: []string{},
		Rows:    [][]any{},
	}

	fds := rows.FieldDescriptions()
	for _, fd := range fds {
		res.Columns = append(res.Columns, string(fd.Name))
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			rows.Close()
			return nil, err
		}
		normalized := make([]any, len(values))
		for i, v := range values {
			normalized[i] = normalizeValue(v)
		}
		res.Rows = append(res.Rows, normalized)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	res.RowsAffected = rows.CommandTag().RowsAffected()
	return res, nil
}

// normalizeValue converts driver-specific values into JSON-serializable
// forms: UUID byte arrays become canonical strings, raw bytes become hex,
// timestamps become RFC3339.
func normalizeValue(v any) any {
	switch value := v.(type) {
	case nil:
		return nil
	case [16]byte:
		return formatUUID(value[:])
	case []byte:
		if len(value) == 16 {
			return formatUUID(value)
		}
		return fmt.Sprintf(`\x%x`, value)
	case time.Time:
		return value.Format(time.RFC3339Nano)
	default:
		return v
	}
}

func formatUUID(b []byte) string {
	return fmt.Sprintf("%02x%02x%02x%02x-%02x%02x-%02x%02x-%02x%02x-%02x%02x%02x%02x%02x%02x",
		b[0], b[1], b[2], b[3], b[4], b[5], b[6], b[7],
		b[8], b[9], b[10], b[11], b[12], b[13], b[14], b[15])
}
