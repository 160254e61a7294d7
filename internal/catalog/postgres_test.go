package catalog

import (
	"context"
	"embed"
	"io/fs"
	"testing"

	"github.com/colsql/queryserver/pkg/fixgres"
)

//go:embed testdata/migrations/*.sql
var migrationsFS embed.FS

func TestPostgresCatalogSchema(t *testing.T) {
	migrations, err := fs.Sub(migrationsFS, "testdata/migrations")
	if err != nil {
		t.Fatalf("failed to scope migrations fs: %v", err)
	}
	fixgres.BootOnce(t, fixgres.WithGooseUp(migrations))
	sbx := fixgres.NewSandbox(t)

	if _, err := sbx.DB.ExecContext(context.Background(), `
		CREATE TABLE employees (
			id INT PRIMARY KEY,
			name TEXT,
			age INT,
			dept_id INT
		)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	cat := NewPostgresCatalog(sbx.DB, []string{sbx.Schema})

	lowered, cols, err := cat.Schema(context.Background(), "employees")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cols) != 4 || !lowered["name"] || !lowered["dept_id"] {
		t.Fatalf("unexpected schema: %v", cols)
	}

	if cat.Exists(context.Background(), "ghost") {
		t.Fatalf("expected ghost table to not exist")
	}
}
