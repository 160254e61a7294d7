package value

import "testing"

func TestCoerceInt(t *testing.T) {
	v := Coerce("42")
	if v.Kind() != Int || v.Int() != 42 {
		t.Fatalf("expected Int(42), got kind=%v int=%d", v.Kind(), v.Int())
	}
}

func TestCoerceFloat(t *testing.T) {
	v := Coerce("3.14")
	if v.Kind() != Float || v.Float() != 3.14 {
		t.Fatalf("expected Float(3.14), got kind=%v float=%f", v.Kind(), v.Float())
	}
}

func TestCoerceStringFallback(t *testing.T) {
	v := Coerce("engineering")
	if v.Kind() != Str || v.String() != "engineering" {
		t.Fatalf("expected Str(engineering), got kind=%v str=%q", v.Kind(), v.String())
	}
}

func TestCoerceStripsQuotes(t *testing.T) {
	for _, tok := range []string{"'chicago'", "\"chicago\""} {
		v := Coerce(tok)
		if v.Kind() != Str || v.String() != "chicago" {
			t.Fatalf("Coerce(%q): expected Str(chicago), got kind=%v str=%q", tok, v.Kind(), v.String())
		}
	}
}

func TestCoerceQuotedNumberStaysString(t *testing.T) {
	v := Coerce("'42'")
	if v.Kind() != Str || v.String() != "42" {
		t.Fatalf("expected quoted number to stay a string, got kind=%v str=%q", v.Kind(), v.String())
	}
}

func TestGoStringFormatsEachKind(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{OfInt(7), "7"},
		{OfFloat(2.5), "2.5"},
		{OfString("hi"), "hi"},
	}
	for _, c := range cases {
		if got := c.v.GoString(); got != c.want {
			t.Fatalf("GoString() = %q, want %q", got, c.want)
		}
	}
}

func TestGobRoundTripPreservesKindAndValue(t *testing.T) {
	for _, v := range []Value{OfInt(99), OfFloat(1.5), OfString("marketing")} {
		data, err := v.GobEncode()
		if err != nil {
			t.Fatalf("GobEncode: %v", err)
		}
		var out Value
		if err := out.GobDecode(data); err != nil {
			t.Fatalf("GobDecode: %v", err)
		}
		if out.Kind() != v.Kind() || out.GoString() != v.GoString() {
			t.Fatalf("round trip mismatch: got %+v, want %+v", out, v)
		}
	}
}

func TestCompareNumericOrderedOps(t *testing.T) {
	cases := []struct {
		cell float64
		op   string
		lit  Value
		want bool
	}{
		{5, "<", OfInt(10), true},
		{5, ">", OfInt(10), false},
		{5, "<=", OfInt(5), true},
		{5, ">=", OfFloat(5.0), true},
		{5, "=", OfInt(5), true},
	}
	for _, c := range cases {
		got, err := CompareNumeric(c.cell, c.op, c.lit)
		if err != nil {
			t.Fatalf("CompareNumeric(%v, %q, %v): unexpected error %v", c.cell, c.op, c.lit, err)
		}
		if got != c.want {
			t.Fatalf("CompareNumeric(%v, %q, %v) = %v, want %v", c.cell, c.op, c.lit, got, c.want)
		}
	}
}

func TestCompareNumericRejectsStringLiteral(t *testing.T) {
	if _, err := CompareNumeric(5, "<", OfString("abc")); err == nil {
		t.Fatalf("expected error comparing numeric cell to string literal")
	}
}

func TestCompareNumericRejectsUnknownOp(t *testing.T) {
	if _, err := CompareNumeric(5, "!=", OfInt(5)); err == nil {
		t.Fatalf("expected error for unsupported operator")
	}
}
