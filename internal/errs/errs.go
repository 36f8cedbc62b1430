// Package errs holds the error values shared by the domain services and the
// HTTP layer. Services wrap these with fmt.Errorf("...: %w", err) and handlers
// map them to status codes with errors.Is / errors.As.
package errs

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/diewo77/go-partners/validation"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound covers both missing records and records owned by another partner.
	ErrNotFound = errors.New("not found")

	ErrConflict = errors.New("conflict")

	// ErrInvalidTransition is a conflict: the proposal is not in a state that allows the move.
	ErrInvalidTransition = fmt.Errorf("%w: invalid transition", ErrConflict)

	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError reports field level problems with caller input.
type ValidationError struct {
	Violations validation.Violations
}

// Invalid wraps violations into an error. It returns nil when there are none.
func Invalid(v validation.Violations) error {
	if v.Empty() {
		return nil
	}
	return &ValidationError{Violations: v}
}

// Field is a shortcut for a single violation.
func Field(field, code string) error {
	return &ValidationError{Violations: validation.Violations{field: code}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Violations))
	for k := range e.Violations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Violations[k])
	}
	return "validation failed (" + strings.Join(parts, ", ") + ")"
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
