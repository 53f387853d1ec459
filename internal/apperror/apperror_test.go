package apperror

import (
	"errors"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("account", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("first_name", "first name is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("email", "an account with this email already exists"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("Invalid username or password"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "Forbidden wraps ErrForbidden",
			err:       Forbidden("staff access required"),
			target:    ErrForbidden,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("account", "abc123"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "Unauthorized does NOT match ErrConflict",
			err:       Unauthorized("Invalid username or password"),
			target:    ErrConflict,
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
			err:         NotFound("account", "abc123"),
			wantMessage: "account not found with id abc123",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("pincode", "pincode must be at most 10 characters"),
			wantMessage: "pincode must be at most 10 characters",
		},
		{
			name:        "Conflict uses custom message",
			err:         Conflict("username", "an account with this username already exists"),
			wantMessage: "an account with this username already exists",
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

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("email", "enter a valid email address")

	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
}

func TestFormErrorAccumulates(t *testing.T) {
	form := NewFormError()
	if form.HasErrors() {
		t.Fatal("new FormError should have no errors")
	}

	form.AddError(ValidationFailed("email", "enter a valid email address"))
	form.AddError(ValidationFailed("email", "email must be at most 254 characters"))
	form.AddError(ValidationFailed("city", "city is required"))

	if !form.HasErrors() {
		t.Fatal("FormError should report errors after AddError")
	}
	if got := len(form.Fields["email"]); got != 2 {
		t.Errorf("len(Fields[email]) = %d, want 2", got)
	}
	if got := len(form.Fields["city"]); got != 1 {
		t.Errorf("len(Fields[city]) = %d, want 1", got)
	}
}

func TestFormErrorNonFieldErrors(t *testing.T) {
	form := NewFormError()
	form.AddError(&AppError{Err: ErrValidation, Message: "the two password fields did not match"})

	msgs, ok := form.Fields[NonFieldErrors]
	if !ok || len(msgs) != 1 {
		t.Fatalf("expected one message under %q, got %v", NonFieldErrors, form.Fields)
	}
}

func TestFormErrorUnwrap(t *testing.T) {
	t.Run("validation only unwraps to ErrValidation", func(t *testing.T) {
		form := NewFormError()
		form.AddError(ValidationFailed("state", "state is required"))

		if !errors.Is(form, ErrValidation) {
			t.Error("FormError with only validation errors should match ErrValidation")
		}
		if errors.Is(form, ErrConflict) {
			t.Error("FormError with only validation errors should not match ErrConflict")
		}
	})

	t.Run("any conflict unwraps to ErrConflict", func(t *testing.T) {
		form := NewFormError()
		form.AddError(ValidationFailed("state", "state is required"))
		form.AddError(Conflict("email", "an account with this email already exists"))

		if !errors.Is(form, ErrConflict) {
			t.Error("FormError containing a conflict should match ErrConflict")
		}
	})
}
