package parser

import (
	"testing"

	"github.com/colsql/queryserver/internal/plan"
)

func TestParseSelectAll(t *testing.T) {
	p, err := Parse("SELECT * FROM employees")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.SelectAll {
		t.Fatalf("expected SelectAll")
	}
	if len(p.SourceTables) != 1 || p.SourceTables[0] != "employees" {
		t.Fatalf("unexpected source tables: %v", p.SourceTables)
	}
}

func TestParseQualifiedProjections(t *testing.T) {
	p, err := Parse("select emp.name, emp.age from employees")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.Projections["emp"]; len(got) != 2 || got[0] != "name" || got[1] != "age" {
		t.Fatalf("unexpected projections: %v", p.Projections)
	}
}

func TestParseBareProjectionGoesUnresolved(t *testing.T) {
	p, err := Parse("select name from employees")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.Projections[plan.Unresolved]; len(got) != 1 || got[0] != "name" {
		t.Fatalf("unexpected unresolved bucket: %v", p.Projections)
	}
}

func TestParseMultipleSourceTables(t *testing.T) {
	p, err := Parse("select * from employees, departments")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"employees", "departments"}
	if len(p.SourceTables) != len(want) {
		t.Fatalf("unexpected source tables: %v", p.SourceTables)
	}
	for i := range want {
		if p.SourceTables[i] != want[i] {
			t.Fatalf("unexpected source tables: %v", p.SourceTables)
		}
	}
}

func TestParseWhereClauseLowercasedAndJoinedWithSpaces(t *testing.T) {
	p, err := Parse("SELECT * FROM employees WHERE age > 28")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.RawFilter != "age > 28" {
		t.Fatalf("unexpected raw filter: %q", p.RawFilter)
	}
}

func TestParseOrderByDefaultsToAscending(t *testing.T) {
	p, err := Parse("SELECT * FROM employees ORDER BY age")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.OrderDir != plan.Asc {
		t.Fatalf("expected default ASC, got %v", p.OrderDir)
	}
	if len(p.OrderBy) != 1 || p.OrderBy[0].Col != "age" {
		t.Fatalf("unexpected order by: %v", p.OrderBy)
	}
}

func TestParseOrderByExplicitDescending(t *testing.T) {
	p, err := Parse("SELECT * FROM employees ORDER BY age, name DESC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.OrderDir != plan.Desc {
		t.Fatalf("expected DESC, got %v", p.OrderDir)
	}
	if len(p.OrderBy) != 2 || p.OrderBy[0].Col != "age" || p.OrderBy[1].Col != "name" {
		t.Fatalf("unexpected order by: %v", p.OrderBy)
	}
}

func TestParseOrderByQualifiedColumn(t *testing.T) {
	p, err := Parse("SELECT * FROM employees ORDER BY emp.age")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.OrderBy) != 1 || p.OrderBy[0].Table != "emp" || p.OrderBy[0].Col != "age" {
		t.Fatalf("unexpected order by: %v", p.OrderBy)
	}
}

func TestParseNoOrderByLeavesDirEmpty(t *testing.T) {
	p, err := Parse("SELECT * FROM employees")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.OrderDir != plan.NoOrder {
		t.Fatalf("expected NoOrder, got %v", p.OrderDir)
	}
}

func TestParseRejectsEmptyQuery(t *testing.T) {
	if _, err := Parse("   "); err == nil {
		t.Fatalf("expected error for empty query")
	}
}

func TestParseRejectsMissingSelect(t *testing.T) {
	if _, err := Parse("UPDATE employees SET age = 1"); err == nil {
		t.Fatalf("expected error for non-SELECT statement")
	}
}

func TestParseRejectsMissingFrom(t *testing.T) {
	if _, err := Parse("SELECT * WHERE age > 1"); err == nil {
		t.Fatalf("expected error for missing FROM")
	}
}

func TestParseRejectsOrderWithoutBy(t *testing.T) {
	if _, err := Parse("SELECT * FROM employees ORDER age"); err == nil {
		t.Fatalf("expected error for ORDER without BY")
	}
}

func TestParseTrimsTrailingSemicolon(t *testing.T) {
	p, err := Parse("SELECT * FROM employees;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.SourceTables) != 1 || p.SourceTables[0] != "employees" {
		t.Fatalf("unexpected source tables: %v", p.SourceTables)
	}
}

func TestParseIsCaseInsensitiveOnKeywords(t *testing.T) {
	p, err := Parse("sElEcT * fRoM Employees wHeRe Age > 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.RawFilter != "age > 1" {
		t.Fatalf("unexpected raw filter: %q", p.RawFilter)
	}
}
