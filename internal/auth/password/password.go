// Package password hashes and verifies account passwords with bcrypt. bcrypt
// generates and embeds a per-hash salt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "wanderlog/pkg/domain-errors"
)

// ErrMismatch is returned by Verify when the password does not match.
var ErrMismatch = errors.New("password mismatch")

// Hasher hashes passwords at a fixed bcrypt cost.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher; a cost outside bcrypt's range falls back to
// bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash creates a salted bcrypt hash of the password.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "password is too long")
		}
		return "", fmt.Errorf("could not hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify checks a plaintext password against a bcrypt hash.
func (h *Hasher) Verify(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		return fmt.Errorf("could not verify password: %w", err)
	}
	return nil
}
