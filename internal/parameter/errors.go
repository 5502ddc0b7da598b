package parameter

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("parameter validation failed")
	// ErrMissingRequired matches every *MissingRequiredError.
	ErrMissingRequired = errors.New("missing required parameter")
)

// Kind classifies a validation failure.
type Kind string

const (
	PatternMismatch   Kind = "PATTERN_MISMATCH"
	RangeViolation    Kind = "RANGE_VIOLATION"
	FormatError       Kind = "FORMAT_ERROR"
	NotAllowed        Kind = "NOT_ALLOWED"
	InvalidDefinition Kind = "INVALID_DEFINITION"
)

// ValidationError describes why a candidate value was rejected for a parameter.
type ValidationError struct {
	Parameter string
	Kind      Kind
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("parameter %q: %s", e.Parameter, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// MissingRequiredError lists every required parameter without a value.
type MissingRequiredError struct {
	Names []string
}

func (e *MissingRequiredError) Error() string {
	return "missing required parameters: " + strings.Join(e.Names, ", ")
}

func (e *MissingRequiredError) Is(target error) bool {
	return target == ErrMissingRequired
}

func newError(name string, kind Kind, format string, args ...any) *ValidationError {
	return &ValidationError{Parameter: name, Kind: kind, Message: fmt.Sprintf(format, args...)}
}
