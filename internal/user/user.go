// Package user provides the User aggregate and its persistence.
// Users are created on first successful credential verification by
// upserting on the external identity subject id.
package user

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a user cannot be found.
var ErrNotFound = errors.New("user not found")

// User represents an account synced from the identity provider.
type User struct {
	// ID is the internal unique identifier.
	ID string `json:"id"`
	// SubjectID is the external identity subject id (unique).
	SubjectID string `json:"subject_id"`
	// Email is the user's email address.
	Email string `json:"email"`
	// FullName is the user's display name.
	FullName string `json:"full_name"`
	// Credits is the remaining credit balance. Never negative.
	Credits int `json:"credits"`
	// CreatedAt is when the user was first synced.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the user was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository defines the interface for user persistence.
type Repository interface {
	// Upsert inserts the user or, if a row with the same SubjectID
	// exists, updates its email and name. The stored row is returned.
	Upsert(ctx context.Context, u User) (User, error)

	// FindBySubject retrieves a user by external subject id.
	// Returns ErrNotFound if the user does not exist.
	FindBySubject(ctx context.Context, subjectID string) (User, error)

	// UpdateCredits sets the credit balance for the given subject id
	// and returns the updated row. Returns ErrNotFound if absent.
	UpdateCredits(ctx context.Context, subjectID string, credits int) (User, error)
}
