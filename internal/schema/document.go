// Package schema extracts catalog metadata from PostgreSQL and renders it
// as searchable schema documents.
package schema

import (
	"fmt"
	"strings"
)

// Kind distinguishes tables from views.
type Kind string

const (
	KindTable Kind = "table"
	KindView  Kind = "view"
)

// Column describes one column of a relation.
type Column struct {
	Name     string
	DataType string
	Nullable bool
	Comment  string
}

// Document is the unit of indexing: one table or view with its columns
// and any catalog comments.
type Document struct {
	Schema  string
	Name    string
	Kind    Kind
	Comment string
	Columns []Column
	// ViewDefinition holds the SQL body for views, empty for tables.
	ViewDefinition string
}

// ID returns the fully-qualified relation name used as document identity.
func (d *Document) ID() string {
	return d.Schema + "." + d.Name
}

// RenderText serializes the document into the fixed textual form used as
// embedding input. The output is deterministic for an unchanged document.
func (d *Document) RenderText() string {
	var b strings.Builder

	switch d.Kind {
	case KindView:
		fmt.Fprintf(&b, "View: %s (Schema: %s)\n", d.Name, d.Schema)
	default:
		fmt.Fprintf(&b, "Table: %s (Schema: %s)\n", d.Name, d.Schema)
	}
	if d.Comment != "" {
		fmt.Fprintf(&b, "Comment: %s\n", d.Comment)
	}
	if d.Kind == KindView && d.ViewDefinition != "" {
		fmt.Fprintf(&b, "Definition:\n%s\n", strings.TrimSpace(d.ViewDefinition))
	}
	b.WriteString("Columns:\n")
	for _, col := range d.Columns {
		nullability := "not null"
		if col.Nullable {
			nullability = "nullable"
		}
		fmt.Fprintf(&b, "  - %s (%s, %s)", col.Name, col.DataType, nullability)
		if col.Comment != "" {
			fmt.Fprintf(&b, ": %s", col.Comment)
		}
		b.WriteByte('\n')
	}

	return strings.TrimRight(b.String(), "\n")
}
