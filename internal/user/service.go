package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vidifolio/api/internal/auth"
)

// ErrNegativeCredits is returned when a credit patch would go below zero.
var ErrNegativeCredits = errors.New("credits must not be negative")

// Service exposes user sync and credit operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a user service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Sync upserts a user from verified identity claims. Missing email and
// name claims are substituted the same way the dashboard expects.
func (s *Service) Sync(ctx context.Context, claims auth.Claims) (User, error) {
	email := claims.Email
	if email == "" && len(claims.Subject) >= 8 {
		email = fmt.Sprintf("user_%s@vidifolio.app", claims.Subject[len(claims.Subject)-8:])
	}
	name := claims.FullName
	if name == "" {
		name = "User"
	}

	u, err := s.repo.Upsert(ctx, User{
		SubjectID: claims.Subject,
		Email:     email,
		FullName:  name,
	})
	if err != nil {
		return User{}, fmt.Errorf("sync user %s: %w", claims.Subject, err)
	}

	s.logger.Info("user synced",
		slog.String("user_id", u.ID),
		slog.String("subject_id", u.SubjectID),
	)
	return u, nil
}

// BySubject resolves the internal user row for a verified subject id.
func (s *Service) BySubject(ctx context.Context, subjectID string) (User, error) {
	return s.repo.FindBySubject(ctx, subjectID)
}

// Credits returns the caller's remaining credit balance.
func (s *Service) Credits(ctx context.Context, subjectID string) (int, error) {
	u, err := s.repo.FindBySubject(ctx, subjectID)
	if err != nil {
		return 0, err
	}
	return u.Credits, nil
}

// SetCredits replaces the caller's credit balance. Deduction is not wired
// into the generation pipeline; the dashboard adjusts balances directly.
func (s *Service) SetCredits(ctx context.Context, subjectID string, credits int) (User, error) {
	if credits < 0 {
		return User{}, ErrNegativeCredits
	}
	return s.repo.UpdateCredits(ctx, subjectID, credits)
}
