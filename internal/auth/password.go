// Package auth provides credential handling for the account service:
// bcrypt password hashing, the password strength policy applied at
// registration, JWT session tokens, and the middleware that guards
// protected routes.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/careportal/internal/apperror"
)

// defaultCost is the bcrypt work factor. Cost 12 takes roughly 250ms on a
// modern server — negligible for login, expensive for brute force.
const defaultCost = 12

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// PasswordService provides bcrypt hashing, verification, and the
// registration-time strength policy.
//
// It's a struct (not free functions) so the cost can be lowered in tests;
// cost 4 makes hashing run in milliseconds without changing the logic
// under test.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest creates a PasswordService with a custom (low)
// bcrypt cost. Not for production use.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash hashes the given plaintext password with bcrypt. The output is a
// self-contained string embedding the salt and cost; store it directly.
//
// Returns an error if the plaintext exceeds 72 bytes — bcrypt silently
// truncates beyond that, so we reject it explicitly.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks whether a plaintext password matches a stored bcrypt
// hash. Returns nil on a match. bcrypt compares in constant time, so this
// is safe against timing probes.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return fmt.Errorf("auth: invalid password")
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

// CheckPolicy applies the password strength policy used at registration:
//
//   - at least MinPasswordLength characters
//   - at most 72 bytes (the bcrypt input limit)
//   - not entirely numeric
//   - not identical to the username (case-insensitive)
//
// Each violation is returned as a separate validation error against the
// password field so the form can report all of them at once.
func (p *PasswordService) CheckPolicy(password, username string) []*apperror.AppError {
	var violations []*apperror.AppError

	if len(password) < MinPasswordLength {
		violations = append(violations, apperror.ValidationFailed("password1",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength)))
	}
	if len(password) > 72 {
		violations = append(violations, apperror.ValidationFailed("password1",
			"password must be at most 72 bytes"))
	}
	if password != "" && isEntirelyNumeric(password) {
		violations = append(violations, apperror.ValidationFailed("password1",
			"password cannot be entirely numeric"))
	}
	if username != "" && strings.EqualFold(password, username) {
		violations = append(violations, apperror.ValidationFailed("password1",
			"password cannot be the same as the username"))
	}

	return violations
}

func isEntirelyNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
