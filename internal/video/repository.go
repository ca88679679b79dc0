package video

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a video does not exist or is not owned by
// the caller. Ownership failures are indistinguishable from nonexistence
// so record existence never leaks across users.
var ErrNotFound = errors.New("video not found or unauthorized")

// Repository defines the interface for video job persistence.
// Each job's pipeline is the sole writer of its own row; the repository
// only needs to serialize per-row updates by identifier.
type Repository interface {
	// Save persists a new job record.
	Save(ctx context.Context, v *Video) error

	// FindByIDForUser retrieves a job by id, scoped to the owner.
	// Returns ErrNotFound when the row is absent or owned by another user.
	FindByIDForUser(ctx context.Context, id, userID string) (*Video, error)

	// Update writes the job's current state back to its row.
	// Returns ErrNotFound if the row no longer exists.
	Update(ctx context.Context, v *Video) error
}
