// Package queryerr defines the single error type surfaced across the
// parser, catalog, validator, and executor stages.
package queryerr

import "fmt"

// Kind classifies a query failure per the fault table in the engine spec.
type Kind string

const (
	ParseError       Kind = "ParseError"
	TableNotFound    Kind = "TableNotFound"
	SchemaReadError  Kind = "SchemaReadError"
	UnknownTable     Kind = "UnknownTable"
	UnknownColumn    Kind = "UnknownColumn"
	UnresolvedColumn Kind = "UnresolvedColumn"
	AmbiguousColumn  Kind = "AmbiguousColumn"
	InvalidPredicate Kind = "InvalidPredicate"
	TypeError        Kind = "TypeError"
	NotSupported     Kind = "NotSupported"
)

// QueryError is the error type every stage returns. Cause, when set, is
// unwrapped by errors.Is/As.
type QueryError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *QueryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *QueryError) Unwrap() error { return e.Cause }

func New(kind Kind, format string, args ...any) *QueryError {
	return &QueryError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, cause error, format string, args ...any) *QueryError {
	return &QueryError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err is a *QueryError of the given kind. Kind values
// aren't themselves errors, so errors.Is cannot compare them; err is not
// unwrapped.
func Is(err error, kind Kind) bool {
	qe, ok := err.(*QueryError)
	if !ok {
		return false
	}
	return qe.Kind == kind
}
