package user

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository keyed by
// subject id. Suitable for development and testing.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]User // subject id -> user
}

// NewMemoryRepository creates a new in-memory user repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]User)}
}

// Upsert inserts or updates a user by subject id.
func (r *MemoryRepository) Upsert(_ context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if existing, ok := r.users[u.SubjectID]; ok {
		existing.Email = u.Email
		existing.FullName = u.FullName
		existing.UpdatedAt = now
		r.users[u.SubjectID] = existing
		return existing, nil
	}

	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now
	r.users[u.SubjectID] = u
	return u, nil
}

// FindBySubject retrieves a user by subject id.
func (r *MemoryRepository) FindBySubject(_ context.Context, subjectID string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[subjectID]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// UpdateCredits sets the credit balance for a subject id.
func (r *MemoryRepository) UpdateCredits(_ context.Context, subjectID string, credits int) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[subjectID]
	if !ok {
		return User{}, ErrNotFound
	}
	u.Credits = credits
	u.UpdatedAt = time.Now()
	r.users[subjectID] = u
	return u, nil
}
