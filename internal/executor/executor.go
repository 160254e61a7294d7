// Package executor runs a validated Logical Plan against in-memory
// tables: filtering, projection, joins, sorting, and (for a single
// source table) a chunked parallel scan.
package executor

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/colsql/queryserver/internal/config"
	"github.com/colsql/queryserver/internal/plan"
	"github.com/colsql/queryserver/internal/queryerr"
	"github.com/colsql/queryserver/internal/table"
	"github.com/colsql/queryserver/internal/value"
)

// Loader reads a whole table into memory. table.Load satisfies this.
type Loader func(dataDir, tableName string) (*table.Table, error)

// Execute runs p against the tables named in p.SourceTables, loading
// each via load, and returns the final result table.
func Execute(ctx context.Context, p *plan.Plan, dataDir string, cfg *config.Config, load Loader) (*table.Table, error) {
	if len(p.SourceTables) == 0 {
		return nil, queryerr.New(queryerr.InvalidPredicate, "plan has no source tables")
	}

	loaded := make(map[string]*table.Table, len(p.SourceTables))
	for _, t := range p.SourceTables {
		tbl, err := load(dataDir, t)
		if err != nil {
			return nil, err
		}
		loaded[t] = tbl
	}

	if len(p.SourceTables) == 1 {
		srcTable := p.SourceTables[0]
		if cfg.ParallelLevel == 1 {
			return singleTableExecute(p, srcTable, loaded[srcTable])
		}
		return parallelExecuteSingleTable(p, srcTable, loaded[srcTable], cfg)
	}

	return multiTableExecute(p, p.SourceTables, loaded)
}

// singleTableExecute implements the serial single-table path: filter,
// then project, then sort.
func singleTableExecute(p *plan.Plan, t string, tbl *table.Table) (*table.Table, error) {
	filtered, err := filterTable(tbl, p.SingleFilters[t])
	if err != nil {
		return nil, err
	}
	projected := projectTable(filtered, p.Projections[t])
	return sortTable(projected, orderColumns(p, t), p.OrderDir)
}

// parallelExecuteSingleTable splits tbl into W·K-target chunks (capped
// at cfg.MaxChunkSize), filters and projects each chunk on a fixed-size
// worker pool, then reassembles in submission order and sorts once.
//
// Both the serial and parallel paths return the projected schema on an
// empty result; the source executor returned the table's original,
// unprojected columns in that case, which the engine's design notes
// call out as a divergence to fix.
func parallelExecuteSingleTable(p *plan.Plan, t string, tbl *table.Table, cfg *config.Config) (*table.Table, error) {
	chunks := chunkRanges(tbl.RowCount, cfg)

	type chunkResult struct {
		tbl *table.Table
		err error
	}
	results := make([]chunkResult, len(chunks))

	workers := cfg.ParallelLevel
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, r := range chunks {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, start, end int) {
			defer wg.Done()
			defer func() { <-sem }()
			chunk := sliceTable(tbl, start, end)
			filtered, err := filterTable(chunk, p.SingleFilters[t])
			if err != nil {
				results[i] = chunkResult{err: err}
				return
			}
			results[i] = chunkResult{tbl: projectTable(filtered, p.Projections[t])}
		}(i, r[0], r[1])
	}
	wg.Wait()

	projectedCols := p.Projections[t]
	merged := emptyProjected(tbl, projectedCols)
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		if r.tbl.RowCount == 0 {
			continue
		}
		appendRows(merged, r.tbl)
	}

	return sortTable(merged, orderColumns(p, t), p.OrderDir)
}

// chunkRanges computes [start,end) row ranges sized so the chunk
// count is approximately ParallelLevel*NumChunksPerWorker, capped by
// MaxChunkSize.
func chunkRanges(rowCount int, cfg *config.Config) [][2]int {
	if rowCount == 0 {
		return nil
	}
	target := cfg.ParallelLevel * cfg.NumChunksPerWorker
	if target < 1 {
		target = 1
	}
	chunkSize := int(math.Ceil(float64(rowCount) / float64(target)))
	if cfg.MaxChunkSize > 0 && chunkSize > cfg.MaxChunkSize {
		chunkSize = cfg.MaxChunkSize
	}
	if chunkSize < 1 {
		chunkSize = 1
	}

	var ranges [][2]int
	for start := 0; start < rowCount; start += chunkSize {
		end := start + chunkSize
		if end > rowCount {
			end = rowCount
		}
		ranges = append(ranges, [2]int{start, end})
	}
	return ranges
}

// multiTableExecute implements the multi-table path: per-table single
// filters and projections (each table keeps its join_filters columns
// even when they are not projected, so the join can match on them),
// then either an equi-join fold (join_filters present) or a full cross
// join, then a final sort.
func multiTableExecute(p *plan.Plan, tables []string, loaded map[string]*table.Table) (*table.Table, error) {
	filtered := make(map[string]*table.Table, len(tables))
	for _, t := range tables {
		f, err := filterTable(loaded[t], p.SingleFilters[t])
		if err != nil {
			return nil, err
		}
		proj := projectTable(f, p.Projections[t])
		for _, jf := range p.JoinFilters {
			for _, side := range [][2]string{{jf.LeftTable, jf.LeftCol}, {jf.RightTable, jf.RightCol}} {
				if _, have := proj.Col(side[1]); side[0] != t || have {
					continue
				}
				if col, ok := f.Col(side[1]); ok {
					proj = table.New(append(proj.Columns, col))
				}
			}
		}
		filtered[t] = proj
	}

	var joined *table.Table
	if len(p.JoinFilters) > 0 {
		joined = filtered[tables[0]]
		for _, jf := range p.JoinFilters {
			if jf.Op != "=" {
				return nil, queryerr.New(queryerr.NotSupported, "only equi-joins are supported, got %s", jf.Op)
			}
			joined = equiJoin(joined, filtered[jf.RightTable], jf.LeftTable, jf.LeftCol, jf.RightTable, jf.RightCol)
		}
	} else {
		joined = filtered[tables[0]]
		prefixColumns(joined, tables[0])
		for _, t := range tables[1:] {
			next := filtered[t]
			prefixColumns(next, t)
			joined = crossJoin(joined, next)
		}
	}

	return sortTable(joined, orderColumnsMulti(p), p.OrderDir)
}

func orderColumns(p *plan.Plan, t string) []string {
	cols := make([]string, 0, len(p.OrderBy))
	for _, spec := range p.OrderBy {
		if spec.Table == "" || spec.Table == t {
			cols = append(cols, spec.Col)
		}
	}
	return cols
}

func orderColumnsMulti(p *plan.Plan) []string {
	cols := make([]string, 0, len(p.OrderBy))
	for _, spec := range p.OrderBy {
		cols = append(cols, spec.Col)
	}
	return cols
}

// filterTable applies every single-table predicate as a conjunction.
func filterTable(tbl *table.Table, preds []plan.Predicate) (*table.Table, error) {
	if len(preds) == 0 {
		return tbl, nil
	}
	keep := make([]bool, tbl.RowCount)
	for i := range keep {
		keep[i] = true
	}
	for _, pred := range preds {
		col, ok := tbl.Col(pred.Column)
		if !ok {
			return nil, queryerr.New(queryerr.UnknownColumn, "column %s not found while filtering", pred.Column)
		}
		for i := 0; i < tbl.RowCount; i++ {
			if !keep[i] {
				continue
			}
			ok, err := evalPredicate(col.Values[i], pred.Op, pred.Literal)
			if err != nil {
				return nil, err
			}
			keep[i] = ok
		}
	}

	cols := make([]table.Column, len(tbl.Columns))
	for ci, col := range tbl.Columns {
		vals := make([]value.Value, 0, tbl.RowCount)
		for i, k := range keep {
			if k {
				vals = append(vals, col.Values[i])
			}
		}
		cols[ci] = table.Column{Name: col.Name, Values: vals}
	}
	return table.New(cols), nil
}

func evalPredicate(cell value.Value, op string, lit value.Value) (bool, error) {
	if op == "=" {
		if lit.IsString() || cell.IsString() {
			return strings.EqualFold(cell.GoString(), lit.GoString()), nil
		}
		return cell.Num() == lit.Num(), nil
	}
	if cell.IsString() {
		return false, queryerr.New(queryerr.TypeError, "operator %s not supported with string column", op)
	}
	ok, err := value.CompareNumeric(cell.Num(), op, lit)
	if err != nil {
		// CompareNumeric already raises a TypeError for a string
		// literal against a numeric column; anything else (an
		// unrecognized operator) is this executor's own fault.
		if qe, ok := err.(*queryerr.QueryError); ok {
			return false, qe
		}
		return false, queryerr.Wrap(queryerr.NotSupported, err, "operator %s not supported", op)
	}
	return ok, nil
}

// projectTable keeps only the named columns, in the requested order,
// matching column names case-insensitively. Unknown names are skipped,
// mirroring the source's "col.lower() in df" guard.
func projectTable(tbl *table.Table, cols []string) *table.Table {
	var out []table.Column
	for _, name := range cols {
		if col, ok := tbl.Col(name); ok {
			out = append(out, col)
		}
	}
	return table.New(out)
}

func emptyProjected(tbl *table.Table, cols []string) *table.Table {
	var out []table.Column
	for _, name := range cols {
		if col, ok := tbl.Col(name); ok {
			out = append(out, table.Column{Name: col.Name})
		}
	}
	return table.New(out)
}

func sliceTable(tbl *table.Table, start, end int) *table.Table {
	cols := make([]table.Column, len(tbl.Columns))
	for i, col := range tbl.Columns {
		cols[i] = table.Column{Name: col.Name, Values: col.Values[start:end]}
	}
	return table.New(cols)
}

// appendRows appends src's rows onto dst's columns in place. dst must
// already have its full column set (from emptyProjected); since the
// column slice's length never changes here, mutating Values in place
// doesn't disturb dst's name index.
func appendRows(dst, src *table.Table) {
	for i := range dst.Columns {
		dst.Columns[i].Values = append(dst.Columns[i].Values, src.Columns[i].Values...)
	}
	dst.RowCount += src.RowCount
}

// sortTable stably sorts tbl's rows by cols, all in the single shared
// direction dir. A NoOrder direction or empty cols list is a no-op.
func sortTable(tbl *table.Table, cols []string, dir plan.Dir) (*table.Table, error) {
	if dir == plan.NoOrder || len(cols) == 0 {
		return tbl, nil
	}
	sortCols := make([]table.Column, 0, len(cols))
	for _, name := range cols {
		col, ok := tbl.Col(name)
		if !ok {
			return nil, queryerr.New(queryerr.UnknownColumn, "ORDER BY column %s not found in result", name)
		}
		sortCols = append(sortCols, col)
	}

	idx := make([]int, tbl.RowCount)
	for i := range idx {
		idx[i] = i
	}
	asc := dir != plan.Desc
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		for _, col := range sortCols {
			c := compareValues(col.Values[ia], col.Values[ib])
			if c != 0 {
				if asc {
					return c < 0
				}
				return c > 0
			}
		}
		return false
	})

	cols := make([]table.Column, len(tbl.Columns))
	for ci, col := range tbl.Columns {
		vals := make([]value.Value, tbl.RowCount)
		for i, srcIdx := range idx {
			vals[i] = col.Values[srcIdx]
		}
		cols[ci] = table.Column{Name: col.Name, Values: vals}
	}
	return table.New(cols), nil
}

func compareValues(a, b value.Value) int {
	if a.IsString() || b.IsString() {
		return strings.Compare(a.GoString(), b.GoString())
	}
	switch {
	case a.Num() < b.Num():
		return -1
	case a.Num() > b.Num():
		return 1
	default:
		return 0
	}
}

// equiJoin inner-joins left and right on leftCol/rightCol, renaming any
// colliding column name with a "_<table>" suffix on each side.
func equiJoin(left, right *table.Table, leftTable, leftCol, rightTable, rightCol string) *table.Table {
	lc, _ := left.Col(leftCol)
	rc, _ := right.Col(rightCol)

	rightIndex := make(map[string][]int)
	for i, v := range rc.Values {
		key := v.GoString()
		rightIndex[key] = append(rightIndex[key], i)
	}

	leftNames := renameColliding(left, right, leftTable)
	rightNames := renameColliding(right, left, rightTable)

	cols := make([]table.Column, 0, len(left.Columns)+len(right.Columns))
	for i := range left.Columns {
		cols = append(cols, table.Column{Name: leftNames[i]})
	}
	for i := range right.Columns {
		cols = append(cols, table.Column{Name: rightNames[i]})
	}

	for li, v := range lc.Values {
		for _, ri := range rightIndex[v.GoString()] {
			col := 0
			for _, c := range left.Columns {
				cols[col].Values = append(cols[col].Values, c.Values[li])
				col++
			}
			for _, c := range right.Columns {
				cols[col].Values = append(cols[col].Values, c.Values[ri])
				col++
			}
		}
	}
	return table.New(cols)
}

func renameColliding(this, other *table.Table, thisTable string) []string {
	names := make([]string, len(this.Columns))
	for i, c := range this.Columns {
		if _, ok := other.Col(c.Name); ok {
			names[i] = fmt.Sprintf("%s_%s", c.Name, thisTable)
		} else {
			names[i] = c.Name
		}
	}
	return names
}

func prefixColumns(tbl *table.Table, tableName string) {
	for i, c := range tbl.Columns {
		tbl.Rename(i, fmt.Sprintf("%s.%s", tableName, c.Name))
	}
}

// crossJoin returns the cartesian product of left and right.
func crossJoin(left, right *table.Table) *table.Table {
	cols := make([]table.Column, 0, len(left.Columns)+len(right.Columns))
	for _, c := range left.Columns {
		cols = append(cols, table.Column{Name: c.Name})
	}
	for _, c := range right.Columns {
		cols = append(cols, table.Column{Name: c.Name})
	}

	for li := 0; li < left.RowCount; li++ {
		for ri := 0; ri < right.RowCount; ri++ {
			col := 0
			for _, c := range left.Columns {
				cols[col].Values = append(cols[col].Values, c.Values[li])
				col++
			}
			for _, c := range right.Columns {
				cols[col].Values = append(cols[col].Values, c.Values[ri])
				col++
			}
		}
	}
	return table.New(cols)
}
