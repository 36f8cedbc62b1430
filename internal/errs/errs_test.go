package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/diewo77/go-partners/validation"
)

func TestInvalid(t *testing.T) {
	if err := Invalid(validation.Violations{}); err != nil {
		t.Fatalf("expected nil for no violations, got %v", err)
	}
	err := Invalid(validation.Violations{"title": "required", "email": "invalid_format"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	want := "validation failed (email: invalid_format, title: required)"
	if err.Error() != want {
		t.Fatalf("got %q want %q", err.Error(), want)
	}
}

func TestWrappedErrorsKeepIdentity(t *testing.T) {
	err := fmt.Errorf("proposal 4 is APPROVED: %w", ErrInvalidTransition)
	if !errors.Is(err, ErrInvalidTransition) || !errors.Is(err, ErrConflict) {
		t.Fatalf("wrapped transition error lost its identity: %v", err)
	}
	if errors.Is(ErrConflict, ErrInvalidTransition) {
		t.Fatal("a plain conflict is not an invalid transition")
	}
	var ve *ValidationError
	if !errors.As(fmt.Errorf("create: %w", Field("status", "not_allowed")), &ve) || ve.Violations["status"] != "not_allowed" {
		t.Fatalf("expected a ValidationError with status, got %+v", ve)
	}
}
