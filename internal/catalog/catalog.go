// Package catalog resolves table and column metadata without reading a
// table's full data. Two backends satisfy the same Catalog contract:
// ParquetCatalog (directory of *.parquet files) and PostgresCatalog
// (a live Postgres database's information_schema).
package catalog

import "context"

// Catalog answers schema and existence questions for a named table.
type Catalog interface {
	// Schema returns the lowercased column-name set and the full,
	// original-case column list for table. Returns TableNotFound if the
	// table does not exist, SchemaReadError if it exists but its schema
	// cannot be read.
	Schema(ctx context.Context, table string) (names map[string]bool, columns []string, err error)

	// Exists reports whether table is known to the catalog.
	Exists(ctx context.Context, table string) bool
}
