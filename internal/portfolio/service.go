package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/vidifolio/api/internal/storage"
)

// ErrTitleRequired is returned when a portfolio is created without a title.
var ErrTitleRequired = errors.New("title is required")

// Document is an uploaded source file accompanying a portfolio.
type Document struct {
	// Filename is the client-supplied file name.
	Filename string
	// ContentType is the MIME type of the file.
	ContentType string
	// Body streams the file content.
	Body io.Reader
}

// CreateInput contains the fields for creating a portfolio.
type CreateInput struct {
	Title string
	// RawData is optional structured metadata.
	RawData json.RawMessage
	// Document is the optional source document to store.
	Document *Document
}

// Service owns portfolio creation, listing and deletion. The uploaded
// document is stored in the blob store before the record is inserted.
type Service struct {
	repo   Repository
	store  storage.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a portfolio service.
func NewService(repo Repository, store storage.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Create stores the optional document and inserts the portfolio record.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (Portfolio, error) {
	if in.Title == "" {
		return Portfolio{}, ErrTitleRequired
	}

	docPath := ""
	if in.Document != nil {
		// Key namespace: user id + upload timestamp, collision-free.
		safeName := url.PathEscape(in.Document.Filename)
		docPath = fmt.Sprintf("portfolios/%s/%d_%s", userID, s.now().UnixMilli(), safeName)

		contentType := in.Document.ContentType
		if contentType == "" {
			contentType = "application/pdf"
		}

		if _, err := s.store.Upload(ctx, docPath, contentType, in.Document.Body); err != nil {
			return Portfolio{}, fmt.Errorf("document upload failed: %w", err)
		}
	}

	p := Portfolio{
		ID:           uuid.NewString(),
		UserID:       userID,
		Title:        in.Title,
		DocumentPath: docPath,
		RawData:      in.RawData,
		CreatedAt:    s.now(),
	}

	if err := s.repo.Save(ctx, p); err != nil {
		return Portfolio{}, fmt.Errorf("save portfolio: %w", err)
	}

	s.logger.Info("portfolio created",
		slog.String("portfolio_id", p.ID),
		slog.String("user_id", userID),
		slog.Bool("has_document", docPath != ""),
	)
	return p, nil
}

// List returns the user's portfolios, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Portfolio, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Get retrieves a single portfolio scoped to the owner.
func (s *Service) Get(ctx context.Context, id, userID string) (Portfolio, error) {
	return s.repo.FindByIDForUser(ctx, id, userID)
}

// Delete removes a portfolio scoped to the owner.
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	return s.repo.Delete(ctx, id, userID)
}
