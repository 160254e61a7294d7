// Package value implements the dynamically typed column cell used as the
// WHERE-clause literal and as a generic row cell: an integer, a
// floating-point number, or a string.
package value

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"strconv"
	"strings"

	"github.com/colsql/queryserver/internal/queryerr"
)

// Kind tags which variant a Value holds.
type Kind int

const (
	Int Kind = iota
	Float
	Str
)

// Value is a tagged union over int64, float64, and string, standing in
// for the source's dynamically typed cell.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

func OfInt(i int64) Value    { return Value{kind: Int, i: i} }
func OfFloat(f float64) Value { return Value{kind: Float, f: f} }
func OfString(s string) Value { return Value{kind: Str, s: s} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsString() bool { return v.kind == Str }
func (v Value) Int() int64     { return v.i }
func (v Value) Float() float64 { return v.f }
func (v Value) String() string { return v.s }

// Num returns the value as a float64, for numeric comparisons regardless
// of whether the underlying cell is an int or a float column.
func (v Value) Num() float64 {
	if v.kind == Int {
		return float64(v.i)
	}
	return v.f
}

// gobForm is Value's exported mirror: gob cannot see unexported
// struct fields, so encode/decode go through this instead.
type gobForm struct {
	Kind Kind
	I    int64
	F    float64
	S    string
}

func (v Value) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(gobForm{Kind: v.kind, I: v.i, F: v.f, S: v.s})
	return buf.Bytes(), err
}

func (v *Value) GobDecode(data []byte) error {
	var g gobForm
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return err
	}
	v.kind, v.i, v.f, v.s = g.Kind, g.I, g.F, g.S
	return nil
}

func (v Value) GoString() string {
	switch v.kind {
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		return v.s
	}
}

// Coerce implements the literal coercion rule from the data model: a
// token containing '.' that parses as a float becomes Float; else if it
// parses as an integer, Int; otherwise Str, with surrounding quotes
// stripped.
func Coerce(token string) Value {
	stripped := stripQuotes(token)
	if stripped != token {
		return OfString(stripped)
	}

	if strings.Contains(token, ".") {
		if f, err := strconv.ParseFloat(token, 64); err == nil {
			return OfFloat(f)
		}
	}
	if i, err := strconv.ParseInt(token, 10, 64); err == nil {
		return OfInt(i)
	}
	return OfString(token)
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// CompareNumeric implements the ordered comparison ops for a literal Value
// against a native numeric cell value (int64 or float64, passed as a
// float64). Returns a TypeError if the literal is a string.
func CompareNumeric(cellNum float64, op string, lit Value) (bool, error) {
	if lit.IsString() {
		return false, queryerr.New(queryerr.TypeError, "ordered comparison %s against string literal", op)
	}
	ln := lit.Num()
	switch op {
	case "<":
		return cellNum < ln, nil
	case ">":
		return cellNum > ln, nil
	case "<=":
		return cellNum <= ln, nil
	case ">=":
		return cellNum >= ln, nil
	case "=":
		return cellNum == ln, nil
	default:
		return false, fmt.Errorf("operator %s not supported", op)
	}
}
