package portfolio

import (
	"context"
	"sort"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// Suitable for development and testing.
type MemoryRepository struct {
	mu         sync.RWMutex
	portfolios map[string]Portfolio
}

// NewMemoryRepository creates a new in-memory portfolio repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{portfolios: make(map[string]Portfolio)}
}

// Save persists a portfolio.
func (r *MemoryRepository) Save(_ context.Context, p Portfolio) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.portfolios[p.ID] = p
	return nil
}

// FindByIDForUser retrieves a portfolio by id scoped to the owner.
func (r *MemoryRepository) FindByIDForUser(_ context.Context, id, userID string) (Portfolio, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.portfolios[id]
	if !ok || p.UserID != userID {
		return Portfolio{}, ErrNotFound
	}
	return p, nil
}

// ListByUser returns the user's portfolios, newest first.
func (r *MemoryRepository) ListByUser(_ context.Context, userID string) ([]Portfolio, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Portfolio, 0)
	for _, p := range r.portfolios {
		if p.UserID == userID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Delete removes a portfolio scoped to the owner.
func (r *MemoryRepository) Delete(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.portfolios[id]
	if !ok || p.UserID != userID {
		return ErrNotFound
	}
	delete(r.portfolios, id)
	return nil
}
