package domain

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotFound is wrapped by stores and registries when a record does not exist.
var ErrNotFound = errors.New("not found")

// InvalidInputError reports a numeric or required-field precondition that a
// caller violated.
type InvalidInputError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// IsInvalidInput reports whether err, or anything it wraps, is an InvalidInputError.
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}

func invalidInput(field string, value any, reason string) *InvalidInputError {
	return &InvalidInputError{Field: field, Value: value, Reason: reason}
}

// requirePositive rejects zero, negative and non-finite values.
func requirePositive(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalidInput(field, v, "must be a finite number")
	}
	if v <= 0 {
		return invalidInput(field, v, "must be greater than zero")
	}
	return nil
}

// requireNonNegative rejects negative and non-finite values.
func requireNonNegative(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalidInput(field, v, "must be a finite number")
	}
	if v < 0 {
		return invalidInput(field, v, "must not be negative")
	}
	return nil
}
