package cache

import "testing"

func TestNormalizeQueryCollapsesWhitespaceAndCase(t *testing.T) {
	got := NormalizeQuery("  SELECT  *   FROM Employees\n WHERE age > 1  ")
	want := "select * from employees where age > 1"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestKeyIsStableForEquivalentQueries(t *testing.T) {
	a := Key("SELECT * FROM employees")
	b := Key("  select   *  from   employees  ")
	if a != b {
		t.Fatalf("expected equal keys for equivalent queries, got %q vs %q", a, b)
	}
}

func TestKeyDiffersForDifferentQueries(t *testing.T) {
	a := Key("SELECT * FROM employees")
	b := Key("SELECT * FROM departments")
	if a == b {
		t.Fatalf("expected different keys for different queries")
	}
}
