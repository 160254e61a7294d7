// Package validator binds a parsed Logical Plan to the table catalog:
// expanding "*", resolving bare (unqualified) column references,
// checking every table/column reference exists, and splitting the
// WHERE clause into single-table and cross-table predicates.
package validator

import (
	"context"
	"strconv"
	"strings"

	"github.com/colsql/queryserver/internal/catalog"
	"github.com/colsql/queryserver/internal/plan"
	"github.com/colsql/queryserver/internal/queryerr"
	"github.com/colsql/queryserver/internal/value"
)

// Validate runs phases A-D against p in place, using cat to resolve
// schemas. p must already have passed the parser.
func Validate(ctx context.Context, p *plan.Plan, cat catalog.Catalog) error {
	if p == nil {
		return queryerr.New(queryerr.ParseError, "no logical plan generated")
	}

	if err := expandSelectAll(p); err != nil {
		return err
	}
	resolveSingleSourceShortcut(p)

	noneCols := append([]string(nil), p.Projections[plan.Unresolved]...)

	schemas := make(map[string]map[string]bool, len(p.SourceTables))
	fullCols := make(map[string][]string, len(p.SourceTables))
	for _, table := range p.SourceTables {
		lowered, cols, err := cat.Schema(ctx, table)
		if err != nil {
			return err
		}
		schemas[table] = lowered
		fullCols[table] = cols
	}

	for _, table := range p.SourceTables {
		if err := bindTableProjection(p, table, schemas[table], fullCols[table]); err != nil {
			return err
		}
	}

	if len(noneCols) > 0 {
		if err := resolveAmbiguousColumns(p, noneCols, schemas); err != nil {
			return err
		}
	}
	delete(p.Projections, plan.Unresolved)

	if err := pruneEmptyProjections(p); err != nil {
		return err
	}

	if err := validateOrderBy(p, schemas); err != nil {
		return err
	}

	if err := classifyWhereClause(p, schemas); err != nil {
		return err
	}

	return nil
}

// expandSelectAll implements Phase A: SELECT * is rewritten into an
// explicit "*" entry on every source table's projection list.
func expandSelectAll(p *plan.Plan) error {
	unresolved := p.Projections[plan.Unresolved]
	if len(unresolved) == 0 || unresolved[0] != "*" {
		return nil
	}
	for _, table := range p.SourceTables {
		p.Projections[table] = append([]string{"*"}, p.Projections[table]...)
	}
	if len(unresolved) == 1 {
		delete(p.Projections, plan.Unresolved)
	} else {
		p.Projections[plan.Unresolved] = unresolved[1:]
	}
	return nil
}

// resolveSingleSourceShortcut implements Phase B: when there is exactly
// one source table, every unattributed projection must belong to it.
func resolveSingleSourceShortcut(p *plan.Plan) {
	unresolved := p.Projections[plan.Unresolved]
	if len(unresolved) == 0 {
		return
	}
	if len(p.SourceTables) == 1 {
		table := p.SourceTables[0]
		p.Projections[table] = append(p.Projections[table], unresolved...)
		delete(p.Projections, plan.Unresolved)
	}
}

// bindTableProjection implements the schema-binding half of Phase C
// for one table's already-attributed projection list.
func bindTableProjection(p *plan.Plan, table string, lowered map[string]bool, fullCols []string) error {
	cols := p.Projections[table]
	out := make([]string, 0, len(cols)+len(fullCols))
	for _, col := range cols {
		if col == "*" {
			out = append(out, fullCols...)
			continue
		}
		if !lowered[strings.ToLower(col)] {
			return queryerr.New(queryerr.UnknownColumn, "column %s not found in table %s", col, table)
		}
		out = append(out, col)
	}
	p.Projections[table] = out
	return nil
}

// resolveAmbiguousColumns implements the rest of Phase C: bare columns
// are attributed to whichever single source table has a matching
// column; a column matching more than one table is an error.
func resolveAmbiguousColumns(p *plan.Plan, noneCols []string, schemas map[string]map[string]bool) error {
	matches := make(map[string][]string, len(noneCols))
	for _, col := range noneCols {
		for _, table := range p.SourceTables {
			if schemas[table][strings.ToLower(col)] {
				matches[col] = append(matches[col], table)
			}
		}
	}
	for _, col := range noneCols {
		tables := matches[col]
		switch len(tables) {
		case 0:
			return queryerr.New(queryerr.UnresolvedColumn, "could not resolve column %s against any source table", col)
		case 1:
			p.Projections[tables[0]] = append(p.Projections[tables[0]], col)
		default:
			return queryerr.New(queryerr.AmbiguousColumn, "column %s found in multiple tables %v", col, tables)
		}
	}
	return nil
}

// pruneEmptyProjections implements Phase D's cleanup: a source table
// with no projected columns is dropped from both the projection map
// and the source table list, and remaining columns are deduplicated
// while preserving first-seen order.
func pruneEmptyProjections(p *plan.Plan) error {
	sourceSet := make(map[string]bool, len(p.SourceTables))
	for _, t := range p.SourceTables {
		sourceSet[t] = true
	}
	for table := range p.Projections {
		if table != plan.Unresolved && !sourceSet[table] {
			return queryerr.New(queryerr.UnknownTable, "incorrect table name %s specified in projection", table)
		}
	}

	remaining := p.SourceTables[:0:0]
	for _, table := range p.SourceTables {
		if len(p.Projections[table]) == 0 {
			delete(p.Projections, table)
			continue
		}
		p.Projections[table] = dedupe(p.Projections[table])
		remaining = append(remaining, table)
	}
	p.SourceTables = remaining
	return nil
}

func dedupe(cols []string) []string {
	seen := make(map[string]bool, len(cols))
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func validateOrderBy(p *plan.Plan, schemas map[string]map[string]bool) error {
	if len(p.OrderBy) == 0 {
		return nil
	}
	sourceSet := make(map[string]bool, len(p.SourceTables))
	for _, t := range p.SourceTables {
		sourceSet[t] = true
	}

	matchCounts := make(map[string]int)
	for _, spec := range p.OrderBy {
		if spec.Table != "" {
			if !sourceSet[spec.Table] {
				return queryerr.New(queryerr.UnknownTable, "ORDER BY references unknown table %s", spec.Table)
			}
			if !schemas[spec.Table][strings.ToLower(spec.Col)] {
				return queryerr.New(queryerr.UnknownColumn, "ORDER BY column %s not found in table %s", spec.Col, spec.Table)
			}
			continue
		}
		matches := 0
		for _, table := range p.SourceTables {
			if schemas[table][strings.ToLower(spec.Col)] {
				matches++
			}
		}
		if matches == 0 {
			return queryerr.New(queryerr.UnknownColumn, "ORDER BY column %s not found in any source table", spec.Col)
		}
		matchCounts[spec.Col] = matches
	}
	for col, n := range matchCounts {
		if n > 1 {
			return queryerr.New(queryerr.AmbiguousColumn, "ambiguous ORDER BY column %s", col)
		}
	}
	return nil
}

// classifyWhereClause implements the second half of Phase D: the raw
// WHERE text is split on "and"/"or" (both treated as conjunction, a
// documented limitation — see the engine's design notes). Each clause
// is "LHS op RHS" where either side may be a quoted/numeric literal or
// a possibly-qualified identifier; identifier resolution mirrors
// projections (qualified -> validate against that table; bare ->
// unique source table). Two identifiers whose tables differ make a
// JoinPredicate; an identifier paired with a literal makes a
// single-table Predicate, with the literal always normalized to the
// right-hand operand. Two literals, or no identifier at all, fails
// InvalidPredicate.
func classifyWhereClause(p *plan.Plan, schemas map[string]map[string]bool) error {
	if p.RawFilter == "" {
		return nil
	}
	sourceSet := make(map[string]bool, len(p.SourceTables))
	for _, t := range p.SourceTables {
		sourceSet[t] = true
	}

	for _, clause := range splitClauses(p.RawFilter) {
		tokens := strings.Fields(clause)
		if len(tokens) != 3 {
			return queryerr.New(queryerr.InvalidPredicate, "malformed WHERE clause %q", clause)
		}
		leftTok, op, rightTok := tokens[0], tokens[1], tokens[2]

		leftLit, rightLit := isLiteralToken(leftTok), isLiteralToken(rightTok)
		if leftLit && !rightLit {
			leftTok, rightTok = rightTok, leftTok
			leftLit, rightLit = rightLit, leftLit
			op = flipOp(op)
		}
		if leftLit {
			// Both literal (the swap above only fires for exactly one
			// literal side), or neither side names a column at all.
			return queryerr.New(queryerr.InvalidPredicate, "WHERE clause %q has no column reference", clause)
		}

		leftTable, leftCol := splitQualified(leftTok)
		if leftTable != "" {
			if !sourceSet[leftTable] {
				return queryerr.New(queryerr.UnknownTable, "WHERE clause references unknown table %s", leftTable)
			}
			if !schemas[leftTable][strings.ToLower(leftCol)] {
				return queryerr.New(queryerr.UnknownColumn, "WHERE clause column %s not found in table %s", leftCol, leftTable)
			}
		}

		if rightLit {
			lit := value.Coerce(rightTok)
			table := leftTable
			if table == "" {
				t, err := singleMatch(leftCol, p.SourceTables, schemas)
				if err != nil {
					return err
				}
				table = t
			}
			p.SingleFilters[table] = append(p.SingleFilters[table], plan.Predicate{Column: leftCol, Op: op, Literal: lit})
			continue
		}

		rightTable, rightCol := splitQualified(rightTok)
		if rightTable != "" {
			if !sourceSet[rightTable] {
				return queryerr.New(queryerr.UnknownTable, "WHERE clause references unknown table %s", rightTable)
			}
			if !schemas[rightTable][strings.ToLower(rightCol)] {
				return queryerr.New(queryerr.UnknownColumn, "WHERE clause column %s not found in table %s", rightCol, rightTable)
			}
		} else {
			t, err := singleMatch(rightCol, p.SourceTables, schemas)
			if err != nil {
				return err
			}
			rightTable = t
		}

		left := leftTable
		if left == "" {
			t, err := singleMatch(leftCol, p.SourceTables, schemas)
			if err != nil {
				return err
			}
			left = t
		}
		if left == rightTable {
			return queryerr.New(queryerr.NotSupported, "WHERE clause %q compares two columns of the same table %s", clause, left)
		}
		p.JoinFilters = append(p.JoinFilters, plan.JoinPredicate{
			LeftTable: left, LeftCol: leftCol, Op: op,
			RightTable: rightTable, RightCol: rightCol,
		})
	}

	p.RawFilter = ""
	return nil
}

// isLiteralToken reports whether tok is a quoted string or a number,
// as opposed to a (possibly qualified) column identifier.
func isLiteralToken(tok string) bool {
	if len(tok) >= 2 {
		if (tok[0] == '\'' && tok[len(tok)-1] == '\'') || (tok[0] == '"' && tok[len(tok)-1] == '"') {
			return true
		}
	}
	_, err := strconv.ParseFloat(tok, 64)
	return err == nil
}

// flipOp reverses an ordered comparison operator, for when a clause's
// literal and identifier operands are swapped into canonical
// "identifier op literal" form.
func flipOp(op string) string {
	switch op {
	case "<":
		return ">"
	case ">":
		return "<"
	case "<=":
		return ">="
	case ">=":
		return "<="
	default:
		return op
	}
}

func singleMatch(col string, tables []string, schemas map[string]map[string]bool) (string, error) {
	var found []string
	for _, table := range tables {
		if schemas[table][strings.ToLower(col)] {
			found = append(found, table)
		}
	}
	switch len(found) {
	case 0:
		return "", queryerr.New(queryerr.UnknownColumn, "WHERE clause column %s not found in any source table", col)
	case 1:
		return found[0], nil
	default:
		return "", queryerr.New(queryerr.AmbiguousColumn, "ambiguous WHERE clause column %s", col)
	}
}

func splitQualified(tok string) (table, col string) {
	dot := strings.Index(tok, ".")
	if dot < 0 {
		return "", tok
	}
	return tok[:dot], tok[dot+1:]
}

// splitClauses breaks a lowercased WHERE string on the literal
// separators " and " / " or "; both are folded into one conjunction.
func splitClauses(filter string) []string {
	replaced := strings.ReplaceAll(filter, " and ", "\x00")
	replaced = strings.ReplaceAll(replaced, " or ", "\x00")
	parts := strings.Split(replaced, "\x00")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
