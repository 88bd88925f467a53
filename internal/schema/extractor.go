package schema

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// System schemas are never extracted, matching the catalog views' own
// bookkeeping namespaces.
const systemSchemaFilter = `
	NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
	AND %[1]s NOT LIKE 'pg_temp_%%'`

// Extractor introspects the PostgreSQL catalog and produces schema documents.
type Extractor struct {
	pool           *pgxpool.Pool
	includeSchemas []string
	logger         *slog.Logger
}

// NewExtractor creates an Extractor over the given connection pool.
// includeSchemas limits extraction to the named schemas; empty means all
// non-system schemas.
func NewExtractor(pool *pgxpool.Pool, includeSchemas []string, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		pool:           pool,
		includeSchemas: includeSchemas,
		logger:         logger,
	}
}

type relationRow struct {
	Schema  string
	Name    string
	IsView  bool
	Comment string
}

type columnRow struct {
	Schema   string
	Relation string
	Column
}

type viewRow struct {
	Schema     string
	Name       string
	Definition string
}

// Extract enumerates all eligible relations and returns one document per
// relation. A connection or catalog query failure is fatal; a database with
// zero eligible relations yields an empty, valid result.
func (e *Extractor) Extract(ctx context.Context) ([]*Document, error) {
	relations, err := e.queryRelations(ctx)
	if err != nil {
		return nil, fmt.Errorf("query relations: %w", err)
	}

	columns, err := e.queryColumns(ctx)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}

	views, err := e.queryViews(ctx)
	if err != nil {
		return nil, fmt.Errorf("query views: %w", err)
	}

	docs := assembleDocuments(relations, columns, views)
	if len(docs) == 0 {
		e.logger.Warn("no eligible relations found, schema index will be empty")
		return docs, nil
	}

	e.logger.Info("extracted schema documents", "count", len(docs))
	return docs, nil
}

func (e *Extractor) schemaPredicate(column string) (string, []any) {
	predicate := column + fmt.Sprintf(systemSchemaFilter, column)
	if len(e.includeSchemas) > 0 {
		predicate += fmt.Sprintf(" AND %s = ANY($1)", column)
		return predicate, []any{e.includeSchemas}
	}
	return predicate, nil
}

func (e *Extractor) queryRelations(ctx context.Context) ([]relationRow, error) {
	predicate, args := e.schemaPredicate("t.table_schema")
	query := fmt.Sprintf(`
		SELECT
			t.table_schema,
			t.table_name,
			t.table_type = 'VIEW',
			COALESCE(obj_description(format('%%I.%%I', t.table_schema, t.table_name)::regclass::oid), '')
		FROM information_schema.tables t
		WHERE t.table_type IN ('BASE TABLE', 'VIEW')
		  AND %s
		ORDER BY t.table_schema, t.table_name`, predicate)

	rows, err := e.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relations []relationRow
	for rows.Next() {
		var r relationRow
		if err := rows.Scan(&r.Schema, &r.Name, &r.IsView, &r.Comment); err != nil {
			return nil, err
		}
		relations = append(relations, r)
	}
	return relations, rows.Err()
}

func (e *Extractor) queryColumns(ctx context.Context) ([]columnRow, error) {
	predicate, args := e.schemaPredicate("c.table_schema")
	query := fmt.Sprintf(`
		SELECT
			c.table_schema,
			c.table_name,
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES',
			COALESCE(pgd.description, '')
		FROM information_schema.columns c
		LEFT JOIN pg_catalog.pg_statio_all_tables st
			ON c.table_schema = st.schemaname AND c.table_name = st.relname
		LEFT JOIN pg_catalog.pg_description pgd
			ON pgd.objoid = st.relid AND pgd.objsubid = c.ordinal_position
		WHERE %s
		ORDER BY c.table_schema, c.table_name, c.ordinal_position`, predicate)

	rows, err := e.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []columnRow
	for rows.Next() {
		var c columnRow
		if err := rows.Scan(&c.Schema, &c.Relation, &c.Name, &c.DataType, &c.Nullable, &c.Comment); err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

func (e *Extractor) queryViews(ctx context.Context) ([]viewRow, error) {
	predicate, args := e.schemaPredicate("v.table_schema")
	query := fmt.Sprintf(`
		SELECT v.table_schema, v.table_name, COALESCE(v.view_definition, '')
		FROM information_schema.views v
		WHERE %s
		ORDER BY v.table_schema, v.table_name`, predicate)

	rows, err := e.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []viewRow
	for rows.Next() {
		var v viewRow
		if err := rows.Scan(&v.Schema, &v.Name, &v.Definition); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// assembleDocuments joins the three catalog result sets into documents.
// Relation order is preserved from the catalog query, columns keep their
// ordinal order, so repeated runs over an unchanged schema produce
// identical documents.
func assembleDocuments(relations []relationRow, columns []columnRow, views []viewRow) []*Document {
	definitions := make(map[string]string, len(views))
	for _, v := range views {
		definitions[v.Schema+"."+v.Name] = v.Definition
	}

	columnsByRelation := make(map[string][]Column)
	for _, c := range columns {
		key := c.Schema + "." + c.Relation
		columnsByRelation[key] = append(columnsByRelation[key], c.Column)
	}

	docs := make([]*Document, 0, len(relations))
	for _, r := range relations {
		doc := &Document{
			Schema:  r.Schema,
			Name:    r.Name,
			Kind:    KindTable,
			Comment: r.Comment,
			Columns: columnsByRelation[r.Schema+"."+r.Name],
		}
		if r.IsView {
			doc.Kind = KindView
			doc.ViewDefinition = definitions[doc.ID()]
		}
		docs = append(docs, doc)
	}
	return docs
}
