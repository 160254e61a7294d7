package catalog

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"github.com/colsql/queryserver/internal/queryerr"
)

// PostgresCatalog resolves schemas by introspecting information_schema
// on a live Postgres database with a single batched query over a
// schema allowlist, narrowed to exactly the Catalog contract this
// engine needs: column names per table, nothing richer.
type PostgresCatalog struct {
	DB      *sql.DB
	Schemas []string // search order; defaults to {"public"}

	mu    sync.Mutex
	cache map[string]*schemaEntry
}

// NewPostgresCatalog returns a catalog backed by db, searching the
// given schemas (in order) for each table name.
func NewPostgresCatalog(db *sql.DB, schemas []string) *PostgresCatalog {
	if len(schemas) == 0 {
		schemas = []string{"public"}
	}
	return &PostgresCatalog{DB: db, Schemas: schemas, cache: make(map[string]*schemaEntry)}
}

func (c *PostgresCatalog) Exists(ctx context.Context, table string) bool {
	_, _, err := c.Schema(ctx, table)
	return err == nil
}

func (c *PostgresCatalog) Schema(ctx context.Context, table string) (map[string]bool, []string, error) {
	c.mu.Lock()
	if entry, ok := c.cache[table]; ok {
		c.mu.Unlock()
		return entry.lowered, entry.columns, nil
	}
	c.mu.Unlock()

	const q = `
		SELECT table_schema, column_name
		FROM information_schema.columns
		WHERE table_schema = ANY($1) AND table_name = $2
		ORDER BY ordinal_position`

	rows, err := c.DB.QueryContext(ctx, q, stringArray(c.Schemas), table)
	if err != nil {
		return nil, nil, queryerr.Wrap(queryerr.SchemaReadError, err, "failed to read schema for table %s", table)
	}
	defer rows.Close()

	bySchema := make(map[string][]string)
	for rows.Next() {
		var schema, name string
		if err := rows.Scan(&schema, &name); err != nil {
			return nil, nil, queryerr.Wrap(queryerr.SchemaReadError, err, "failed to read schema for table %s", table)
		}
		bySchema[schema] = append(bySchema[schema], name)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, queryerr.Wrap(queryerr.SchemaReadError, err, "failed to read schema for table %s", table)
	}

	// The first schema in search order that has the table wins.
	var columns []string
	for _, s := range c.Schemas {
		if cols := bySchema[s]; len(cols) > 0 {
			columns = cols
			break
		}
	}

	if len(columns) == 0 {
		return nil, nil, queryerr.New(queryerr.TableNotFound, "table %s not found", table)
	}

	lowered := make(map[string]bool, len(columns))
	for _, col := range columns {
		lowered[strings.ToLower(col)] = true
	}

	entry := &schemaEntry{lowered: lowered, columns: columns}
	c.mu.Lock()
	c.cache[table] = entry
	c.mu.Unlock()

	return lowered, columns, nil
}

// stringArray renders a Go string slice as a Postgres text[] literal,
// since database/sql has no generic array binding and pgx's stdlib
// driver accepts this form for ANY($1) comparisons.
type stringArray []string

func (a stringArray) Value() (interface{}, error) {
	return "{" + strings.Join(quoteAll(a), ",") + "}", nil
}

func quoteAll(vals []string) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return out
}
