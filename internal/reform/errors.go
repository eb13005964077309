package reform

import (
	"fmt"
	"strings"
)

// #region error-types

// SchemaError reports a malformed reform document: bad JSON, or a shape
// the reform schema rejects. Nothing is applied when it is returned.
type SchemaError struct {
	Detail string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("reform schema: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("reform schema: %s", e.Detail)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// UnknownParameterError reports a provision naming a parameter absent
// from the baseline registry.
type UnknownParameterError struct {
	Param string
}

func (e *UnknownParameterError) Error() string {
	return fmt.Sprintf("unknown parameter %s: not in baseline registry", e.Param)
}

// YearRangeError reports an override year outside the baseline's window.
type YearRangeError struct {
	Param     string
	Year      int
	StartYear int
	EndYear   int
}

func (e *YearRangeError) Error() string {
	return fmt.Sprintf("parameter %s: year %d outside baseline range [%d,%d]",
		e.Param, e.Year, e.StartYear, e.EndYear)
}

// ArityError reports an array override whose length does not match the
// baseline's expected arity.
type ArityError struct {
	Param string
	Year  int
	Want  int
	Got   int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("parameter %s year %d: expected %d elements, got %d",
		e.Param, e.Year, e.Want, e.Got)
}

// ValueTypeError reports an override whose JSON type does not match the
// baseline's declared value type.
type ValueTypeError struct {
	Param string
	Year  int
	Want  string
	Got   string
}

func (e *ValueTypeError) Error() string {
	return fmt.Sprintf("parameter %s year %d: expected %s value, got %s",
		e.Param, e.Year, e.Want, e.Got)
}

// RangeError reports an override value outside the baseline's min/max
// bounds for the parameter.
type RangeError struct {
	Param string
	Year  int
	Value float64
	Bound float64
	Op    string // "min" | "max"
}

func (e *RangeError) Error() string {
	rel := "<"
	if e.Op == "max" {
		rel = ">"
	}
	return fmt.Sprintf("parameter %s year %d: value %g %s %s value %g",
		e.Param, e.Year, e.Value, rel, e.Op, e.Bound)
}

// #endregion error-types

// #region validation-errors

// ValidationErrors aggregates every violation found in one pass over a
// document, so a reform author can fix the whole file at once.
type ValidationErrors []error

func (ve ValidationErrors) Error() string {
	lines := make([]string, len(ve))
	for i, err := range ve {
		lines[i] = "ERROR: " + err.Error()
	}
	return strings.Join(lines, "\n")
}

// Unwrap exposes the individual violations to errors.Is / errors.As.
func (ve ValidationErrors) Unwrap() []error { return ve }

// #endregion validation-errors
