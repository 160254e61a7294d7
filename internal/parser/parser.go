// Package parser lexes and pattern-matches the accepted SQL subset
// (SELECT … FROM … [WHERE …] [ORDER BY … [ASC|DESC]]) into an
// unvalidated Logical Plan.
package parser

import (
	"strings"

	"github.com/colsql/queryserver/internal/plan"
	"github.com/colsql/queryserver/internal/queryerr"
)

const (
	kwSelect = "SELECT"
	kwFrom   = "FROM"
	kwWhere  = "WHERE"
	kwOrder  = "ORDER"
	kwBy     = "BY"
	kwAsc    = "ASC"
	kwDesc   = "DESC"
)

// Parse normalizes and tokenizes sqlText and produces an unvalidated
// Logical Plan, or a ParseError.
func Parse(sqlText string) (*plan.Plan, error) {
	text := strings.TrimSpace(sqlText)
	if text == "" {
		return nil, queryerr.New(queryerr.ParseError, "empty query")
	}
	text = strings.TrimSuffix(text, ";")
	upper := strings.ToUpper(text)
	tokens := strings.Fields(upper)

	if len(tokens) == 0 || tokens[0] != kwSelect {
		return nil, queryerr.New(queryerr.ParseError, "statement must begin with SELECT")
	}

	fromIdx := indexOf(tokens, kwFrom)
	if fromIdx == -1 {
		return nil, queryerr.New(queryerr.ParseError, "missing FROM clause")
	}

	whereIdx := indexOf(tokens, kwWhere)

	orderIdx := indexOf(tokens, kwOrder)
	if orderIdx != -1 {
		if orderIdx+1 >= len(tokens) || tokens[orderIdx+1] != kwBy {
			return nil, queryerr.New(queryerr.ParseError, "ORDER must be followed by BY")
		}
	}

	dirIdx, dir := findOrderDirection(tokens, orderIdx)

	// --- source tables: FROM+1 .. (WHERE, else ORDER, else end) ---
	sourceEnd := len(tokens)
	if whereIdx != -1 {
		sourceEnd = whereIdx
	} else if orderIdx != -1 {
		sourceEnd = orderIdx
	}
	sourceTokens := tokens[fromIdx+1 : sourceEnd]
	if len(sourceTokens) == 0 {
		return nil, queryerr.New(queryerr.ParseError, "FROM clause has no source tables")
	}
	sourceJoined := strings.ToLower(strings.Join(sourceTokens, ""))
	sourceTables := splitList(sourceJoined)
	if len(sourceTables) == 0 {
		return nil, queryerr.New(queryerr.ParseError, "FROM clause has no source tables")
	}

	// --- projections: SELECT+1 .. FROM ---
	projTokens := tokens[1:fromIdx]
	if len(projTokens) == 0 {
		return nil, queryerr.New(queryerr.ParseError, "SELECT list is empty")
	}
	projJoined := strings.Join(projTokens, "")
	projItems := splitList(projJoined)
	if len(projItems) == 0 {
		return nil, queryerr.New(queryerr.ParseError, "SELECT list is empty")
	}

	p := plan.New()
	p.SourceTables = sourceTables
	selectAll := false
	for _, item := range projItems {
		if item == "*" {
			p.Projections[plan.Unresolved] = append(p.Projections[plan.Unresolved], "*")
			selectAll = true
			continue
		}
		if dot := strings.Index(item, "."); dot >= 0 {
			table := strings.ToLower(item[:dot])
			col := strings.ToLower(item[dot+1:])
			p.Projections[table] = append(p.Projections[table], col)
			continue
		}
		lowered := strings.ToLower(item)
		p.Projections[plan.Unresolved] = append(p.Projections[plan.Unresolved], lowered)
	}
	p.SelectAll = selectAll

	// --- WHERE: WHERE+1 .. (ORDER else end), joined with spaces, lowercased ---
	if whereIdx != -1 {
		filterEnd := len(tokens)
		if orderIdx != -1 {
			filterEnd = orderIdx
		}
		filterTokens := tokens[whereIdx+1 : filterEnd]
		p.RawFilter = strings.ToLower(strings.Join(filterTokens, " "))
	}

	// --- ORDER BY: ORDER BY+2 .. (dir idx else end), joined with spaces, split on ',' ---
	if orderIdx != -1 {
		obyEnd := len(tokens)
		if dirIdx != -1 {
			obyEnd = dirIdx
		}
		obyTokens := tokens[orderIdx+2 : obyEnd]
		obyJoined := strings.Join(obyTokens, " ")
		for _, raw := range strings.Split(obyJoined, ",") {
			col := strings.ToLower(strings.TrimSpace(raw))
			if col == "" {
				continue
			}
			spec := plan.OrderSpec{Col: col}
			if dot := strings.Index(col, "."); dot >= 0 {
				spec.Table = col[:dot]
				spec.Col = col[dot+1:]
			}
			p.OrderBy = append(p.OrderBy, spec)
		}
		p.OrderDir = dir
	}

	return p, nil
}

// findOrderDirection mirrors the source's quirk of searching for the
// first ASC/DESC token in the whole statement rather than restricting
// the search to after ORDER BY: the grammar never lets ASC/DESC appear
// anywhere else, so the two searches agree in practice.
func findOrderDirection(tokens []string, orderIdx int) (int, plan.Dir) {
	if idx := indexOf(tokens, kwAsc); idx != -1 {
		return idx, plan.Asc
	}
	if idx := indexOf(tokens, kwDesc); idx != -1 {
		return idx, plan.Desc
	}
	if orderIdx != -1 {
		return -1, plan.Asc
	}
	return -1, plan.NoOrder
}

func indexOf(tokens []string, target string) int {
	for i, t := range tokens {
		if t == target {
			return i
		}
	}
	return -1
}

// splitList splits a comma-joined string into trimmed, non-empty items.
func splitList(s string) []string {
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
