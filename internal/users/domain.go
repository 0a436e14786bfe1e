// Package users persists per-tenant user accounts and their role
// assignments. Token issuance and session handling live outside this
// service; only the account record and credential hash are kept here.
package users

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/portcullis-iam/portcullis/internal/shared"
)

// User represents one account. RoleID is a soft reference: deleting the role
// does not cascade, lookups against a vanished role simply deny.
type User struct {
	Tenant       string    `json:"-"`
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	RoleID       string    `json:"role_id"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HashPassword derives a bcrypt hash for storage.
func HashPassword(plain string) (string, error) {
	if len(plain) < 8 {
		return "", fmt.Errorf("%w: password must be at least 8 characters", shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("users: hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a candidate password against the stored hash.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
