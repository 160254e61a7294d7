// Package table holds the in-memory, column-major representation of a
// loaded table and the loader that reads one off disk via parquet-go.
package table

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/colsql/queryserver/internal/queryerr"
	"github.com/colsql/queryserver/internal/value"
)

// Column is one column's worth of cell values, in row order.
type Column struct {
	Name   string
	Values []value.Value
}

// Table is a fully materialized, column-major in-memory table.
type Table struct {
	Columns  []Column
	RowCount int

	index map[string]int // lowercased column name -> Columns index
}

// New builds a Table from cols, deriving RowCount from the first column
// and indexing column names for Col lookups. Any code outside this
// package that assembles a Table (filtering, projecting, joining,
// sorting) must go through New rather than a raw struct literal, since
// the name index is unexported and would otherwise come back nil.
func New(cols []Column) *Table {
	rowCount := 0
	if len(cols) > 0 {
		rowCount = len(cols[0].Values)
	}
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		index[strings.ToLower(c.Name)] = i
	}
	return &Table{Columns: cols, RowCount: rowCount, index: index}
}

// GobEncode serializes only the exported Columns, for the result cache.
// RowCount and the name index are both derived from Columns on decode.
func (t *Table) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(t.Columns)
	return buf.Bytes(), err
}

// GobDecode rebuilds t through New so a cache round trip doesn't come
// back with a nil name index.
func (t *Table) GobDecode(data []byte) error {
	var cols []Column
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&cols); err != nil {
		return err
	}
	*t = *New(cols)
	return nil
}

// ColumnNames returns the table's column names in schema order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Col returns the column named name (case-insensitive), or false if
// the table has no such column.
func (t *Table) Col(name string) (Column, bool) {
	idx, ok := t.index[strings.ToLower(name)]
	if !ok {
		return Column{}, false
	}
	return t.Columns[idx], true
}

// Rename sets the name of column i and keeps the lookup index in sync.
// Use this instead of writing t.Columns[i].Name directly.
func (t *Table) Rename(i int, name string) {
	delete(t.index, strings.ToLower(t.Columns[i].Name))
	t.Columns[i].Name = name
	t.index[strings.ToLower(name)] = i
}

// Row returns the values of every column at row i, in column order.
func (t *Table) Row(i int) []value.Value {
	row := make([]value.Value, len(t.Columns))
	for c, col := range t.Columns {
		row[c] = col.Values[i]
	}
	return row
}

// Load reads "<dataDir>/<tableName>.parquet" into a column-major Table.
func Load(dataDir, tableName string) (*Table, error) {
	path := filepath.Join(dataDir, tableName+".parquet")
	f, err := os.Open(path)
	if err != nil {
		return nil, queryerr.New(queryerr.TableNotFound, "table %s not found", tableName)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, queryerr.Wrap(queryerr.SchemaReadError, err, "failed to stat table %s", tableName)
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, queryerr.Wrap(queryerr.SchemaReadError, err, "failed to open table %s", tableName)
	}

	fields := pf.Schema().Fields()
	cols := make([]Column, len(fields))
	for i, field := range fields {
		cols[i] = Column{Name: field.Name()}
	}

	reader := parquet.NewGenericReader[any](pf)
	defer reader.Close()

	buf := make([]parquet.Row, 128)
	for {
		n, err := reader.ReadRows(buf)
		for i := 0; i < n; i++ {
			row := buf[i]
			for colIdx, v := range row {
				cols[colIdx].Values = append(cols[colIdx].Values, fromParquetValue(v))
			}
		}
		if err != nil {
			break
		}
	}

	return New(cols), nil
}

func fromParquetValue(v parquet.Value) value.Value {
	switch v.Kind() {
	case parquet.Int32, parquet.Int64:
		return value.OfInt(v.Int64())
	case parquet.Float, parquet.Double:
		return value.OfFloat(v.Double())
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return value.OfString(string(v.ByteArray()))
	default:
		return value.OfString(v.String())
	}
}
