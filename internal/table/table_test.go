package table

import (
	"testing"

	"github.com/colsql/queryserver/internal/value"
)

func buildTable(rows []employeeFixture) *Table {
	names := make([]value.Value, len(rows))
	cities := make([]value.Value, len(rows))
	for i, r := range rows {
		names[i] = value.OfString(r.Name)
		cities[i] = value.OfString(r.City)
	}
	return New([]Column{
		{Name: "name", Values: names},
		{Name: "city", Values: cities},
	})
}

func TestColLookupIsCaseInsensitive(t *testing.T) {
	rows := deterministicFixtures(42, 3)
	tbl := buildTable(rows)

	col, ok := tbl.Col("NAME")
	if !ok {
		t.Fatalf("expected to find column NAME case-insensitively")
	}
	if col.Values[0].String() != rows[0].Name {
		t.Fatalf("got %q, want %q", col.Values[0].String(), rows[0].Name)
	}
}

func TestColLookupMissingColumn(t *testing.T) {
	tbl := buildTable(deterministicFixtures(1, 1))
	if _, ok := tbl.Col("salary"); ok {
		t.Fatalf("expected no salary column")
	}
}

func TestRowReturnsValuesInColumnOrder(t *testing.T) {
	rows := deterministicFixtures(7, 2)
	tbl := buildTable(rows)
	row := tbl.Row(1)
	if len(row) != 2 || row[0].String() != rows[1].Name || row[1].String() != rows[1].City {
		t.Fatalf("unexpected row: %v", row)
	}
}

func TestColumnNamesPreservesSchemaOrder(t *testing.T) {
	tbl := buildTable(deterministicFixtures(3, 1))
	names := tbl.ColumnNames()
	if len(names) != 2 || names[0] != "name" || names[1] != "city" {
		t.Fatalf("unexpected column names: %v", names)
	}
}

func TestDeterministicFixturesAreReproducible(t *testing.T) {
	a := deterministicFixtures(99, 5)
	b := deterministicFixtures(99, 5)
	for i := range a {
		if a[i].Name != b[i].Name || a[i].City != b[i].City {
			t.Fatalf("expected same seed to reproduce identical fixtures, row %d differs", i)
		}
	}
}
