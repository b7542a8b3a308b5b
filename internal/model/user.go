package model

import (
	"strings"
	"time"
)

// User is a registered account.
//
// Email is stored normalised (trimmed, lower-case), which is what makes the
// UNIQUE constraint on the column a case-insensitive uniqueness check.
//
// PasswordHash is never serialised. Users who only ever signed in through
// GitHub have an empty hash, and password login for them always fails.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"fullName"`
	PasswordHash string    `json:"-"`
	GitHubID     *int64    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NormalizeEmail is applied to every address before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
