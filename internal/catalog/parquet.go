package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/parquet-go/parquet-go"

	"github.com/colsql/queryserver/internal/queryerr"
)

// ParquetCatalog resolves schemas by reading "<table>.parquet" files
// under DataDir, matching the original's use of pyarrow's
// parquet.read_schema.
type ParquetCatalog struct {
	DataDir string

	mu    sync.Mutex
	cache map[string]*schemaEntry
}

type schemaEntry struct {
	lowered map[string]bool
	columns []string
}

// NewParquetCatalog returns a catalog rooted at dataDir.
func NewParquetCatalog(dataDir string) *ParquetCatalog {
	return &ParquetCatalog{DataDir: dataDir, cache: make(map[string]*schemaEntry)}
}

func (c *ParquetCatalog) path(table string) string {
	return filepath.Join(c.DataDir, fmt.Sprintf("%s.parquet", table))
}

func (c *ParquetCatalog) Exists(ctx context.Context, table string) bool {
	_, err := os.Stat(c.path(table))
	return err == nil
}

func (c *ParquetCatalog) Schema(ctx context.Context, table string) (map[string]bool, []string, error) {
	c.mu.Lock()
	if entry, ok := c.cache[table]; ok {
		c.mu.Unlock()
		return entry.lowered, entry.columns, nil
	}
	c.mu.Unlock()

	path := c.path(table)
	if _, err := os.Stat(path); err != nil {
		return nil, nil, queryerr.New(queryerr.TableNotFound, "table %s not found", table)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, queryerr.Wrap(queryerr.SchemaReadError, err, "failed to open table %s", table)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, queryerr.Wrap(queryerr.SchemaReadError, err, "failed to stat table %s", table)
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, nil, queryerr.Wrap(queryerr.SchemaReadError, err, "failed to read schema for table %s", table)
	}

	fields := pf.Schema().Fields()
	columns := make([]string, 0, len(fields))
	lowered := make(map[string]bool, len(fields))
	for _, field := range fields {
		columns = append(columns, field.Name())
		lowered[strings.ToLower(field.Name())] = true
	}

	entry := &schemaEntry{lowered: lowered, columns: columns}
	c.mu.Lock()
	c.cache[table] = entry
	c.mu.Unlock()

	return lowered, columns, nil
}
