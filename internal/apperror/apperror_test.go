package apperror

import (
	"errors"
	"fmt"
	"testing"
)

// Table-driven: each case checks that errors.Is() identifies the error kind,
// including when the AppError is wrapped by an outer fmt.Errorf.
func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("application", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("companyName", "Please provide a company name"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Invalid wraps ErrValidation",
			err:       Invalid([]Violation{{Field: "status", Message: "bad status"}}),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("user", "a@b.com"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Forbidden wraps ErrForbidden",
			err:       Forbidden("not yours"),
			target:    ErrForbidden,
			wantMatch: true,
		},
		{
			name:      "Unauthenticated wraps ErrUnauthenticated",
			err:       Unauthenticated("Invalid credentials"),
			target:    ErrUnauthenticated,
			wantMatch: true,
		},
		{
			name:      "wrapped NotFound still matches",
			err:       fmt.Errorf("getting application: %w", NotFound("application", "x")),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrForbidden",
			err:       NotFound("application", "abc123"),
			target:    ErrForbidden,
			wantMatch: false,
		},
		{
			name:      "Unauthenticated does NOT match ErrNotFound",
			err:       Unauthenticated("Invalid credentials"),
			target:    ErrNotFound,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("application", "abc123"),
			wantMessage: "application not found with id abc123",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("name", "name is required"),
			wantMessage: "name is required",
		},
		{
			name: "Invalid joins messages in order",
			err: Invalid([]Violation{
				{Field: "companyName", Message: "Please provide a company name"},
				{Field: "salary", Message: "Salary cannot be negative"},
			}),
			wantMessage: "Please provide a company name, Salary cannot be negative",
		},
		{
			name:        "Conflict message includes resource and id",
			err:         Conflict("user", "a@b.com"),
			wantMessage: "user conflict with id a@b.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("application", "abc123")
	if unwrapped := err.Unwrap(); unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("email", "invalid email format")

	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
	if len(err.Violations) != 1 || err.Violations[0].Field != "email" {
		t.Errorf("Violations = %+v, want one entry for email", err.Violations)
	}
}

func TestInvalid_FieldOnlySetForSingleViolation(t *testing.T) {
	one := Invalid([]Violation{{Field: "status", Message: "bad"}})
	if one.Field != "status" {
		t.Errorf("Field = %q, want %q", one.Field, "status")
	}

	many := Invalid([]Violation{{Field: "a", Message: "x"}, {Field: "b", Message: "y"}})
	if many.Field != "" {
		t.Errorf("Field = %q, want empty for multi-field errors", many.Field)
	}
	if len(many.Violations) != 2 {
		t.Errorf("len(Violations) = %d, want 2", len(many.Violations))
	}
}
