// Package portfolio provides the Portfolio aggregate: a user-uploaded
// source document plus structured metadata used as generation input.
package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a portfolio does not exist or is not owned
// by the caller. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("portfolio not found or unauthorized")

// Portfolio represents one uploaded résumé/portfolio entry.
// Immutable after creation except for deletion.
type Portfolio struct {
	// ID is the unique identifier.
	ID string `json:"id"`
	// UserID is the owning user's internal id.
	UserID string `json:"user_id"`
	// Title is the display title.
	Title string `json:"title"`
	// DocumentPath is the blob-store key of the uploaded source
	// document, empty when no document was uploaded.
	DocumentPath string `json:"pdf_path,omitempty"`
	// RawData is arbitrary structured metadata supplied at upload time.
	RawData json.RawMessage `json:"raw_data,omitempty"`
	// CreatedAt is when the portfolio was created.
	CreatedAt time.Time `json:"created_at"`
}

// Repository defines the interface for portfolio persistence.
type Repository interface {
	// Save persists a new portfolio.
	Save(ctx context.Context, p Portfolio) error

	// FindByIDForUser retrieves a portfolio by id, scoped to the owner.
	// Returns ErrNotFound when the row is absent or owned by another user.
	FindByIDForUser(ctx context.Context, id, userID string) (Portfolio, error)

	// ListByUser returns the user's portfolios, newest first.
	ListByUser(ctx context.Context, userID string) ([]Portfolio, error)

	// Delete removes a portfolio scoped to the owner.
	// Returns ErrNotFound when the row is absent or owned by another user.
	Delete(ctx context.Context, id, userID string) error
}
