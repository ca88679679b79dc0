package video

import (
	"context"
	"sync"
	"time"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// It uses a map with RWMutex for thread-safe access.
// Suitable for development and testing; swap for Postgres in production.
type MemoryRepository struct {
	mu     sync.RWMutex
	videos map[string]*Video
}

// NewMemoryRepository creates a new in-memory video repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{videos: make(map[string]*Video)}
}

// Save persists a new job record.
// Creates a clone to avoid external mutations.
func (r *MemoryRepository) Save(_ context.Context, v *Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.videos[v.ID] = v.Clone()
	return nil
}

// FindByIDForUser retrieves a job by id scoped to the owner.
// Returns a clone to prevent external mutations.
func (r *MemoryRepository) FindByIDForUser(_ context.Context, id, userID string) (*Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.videos[id]
	if !ok || v.UserID != userID {
		return nil, ErrNotFound
	}
	return v.Clone(), nil
}

// Update writes the job's state back to its row.
func (r *MemoryRepository) Update(_ context.Context, v *Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.videos[v.ID]; !ok {
		return ErrNotFound
	}
	updated := v.Clone()
	updated.UpdatedAt = time.Now()
	r.videos[v.ID] = updated
	return nil
}
