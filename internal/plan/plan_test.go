package plan

import "testing"

func TestNewReturnsInitializedMaps(t *testing.T) {
	p := New()
	if p.Projections == nil || p.SingleFilters == nil {
		t.Fatalf("expected New to initialize Projections and SingleFilters maps")
	}
	p.Projections["employees"] = append(p.Projections["employees"], "name")
	if len(p.Projections["employees"]) != 1 {
		t.Fatalf("expected projection write to succeed on a fresh plan")
	}
}

func TestProjectionOrderPreservesSourceOrderAndDropsEmpty(t *testing.T) {
	p := New()
	p.SourceTables = []string{"departments", "employees"}
	p.Projections["employees"] = []string{"name"}
	p.Projections["departments"] = nil

	got := p.ProjectionOrder()
	want := []string{"employees"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestUnresolvedSentinelIsEmptyString(t *testing.T) {
	if Unresolved != "" {
		t.Fatalf("expected Unresolved sentinel to be the empty string")
	}
}
