package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vidifolio/api/internal/portfolio"
)

// ErrTerminalPatch is returned when a patch would modify fields that are
// only valid in a different lifecycle state.
var ErrTerminalPatch = errors.New("video_url can only be set on a completed video")

// ErrEmptyVideoURL is returned when a patch would clear the artifact URL.
// A COMPLETED record always carries a non-empty video_url.
var ErrEmptyVideoURL = errors.New("video_url must not be empty")

// TaskRunner schedules a job's background pipeline. The default runner
// detaches a goroutine; tests substitute a synchronous runner.
type TaskRunner interface {
	Go(fn func())
}

// GoRunner runs each task on its own goroutine.
type GoRunner struct{}

// Go detaches fn from the caller.
func (GoRunner) Go(fn func()) { go fn() }

// Patch is the typed set of fields a caller may update on their own
// record. Status is deliberately not patchable: lifecycle transitions
// stay monotonic and belong to the pipeline alone.
type Patch struct {
	// VideoURL replaces the artifact location. Only valid on a
	// COMPLETED record.
	VideoURL *string `json:"video_url,omitempty"`
	// Note replaces the metadata annotation.
	Note *string `json:"note,omitempty"`
}

// Service is the job lifecycle manager. Submit creates the durable
// PROCESSING record, detaches the generation pipeline, and returns
// immediately; the caller observes the outcome by polling Get.
type Service struct {
	videos     Repository
	portfolios portfolio.Repository
	strategy   GenerationStrategy
	runner     TaskRunner
	logger     *slog.Logger
	model      string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithTaskRunner replaces the background task runner.
func WithTaskRunner(r TaskRunner) ServiceOption {
	return func(s *Service) { s.runner = r }
}

// NewService creates the job lifecycle manager.
func NewService(
	videos Repository,
	portfolios portfolio.Repository,
	strategy GenerationStrategy,
	model string,
	logger *slog.Logger,
	opts ...ServiceOption,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		videos:     videos,
		portfolios: portfolios,
		strategy:   strategy,
		runner:     GoRunner{},
		logger:     logger,
		model:      model,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates the request, persists the PROCESSING record, launches
// the pipeline in the background and returns the record immediately.
// The record exists durably before the first provider call is issued:
// a crash mid-generation leaves an inspectable PROCESSING row rather
// than losing the request.
func (s *Service) Submit(ctx context.Context, userID, portfolioID string, style VisualStyle) (*Video, error) {
	if !style.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStyle, style)
	}

	p, err := s.portfolios.FindByIDForUser(ctx, portfolioID, userID)
	if err != nil {
		return nil, err
	}

	v := New(userID, portfolioID, s.model, style)
	if err := s.videos.Save(ctx, v); err != nil {
		return nil, fmt.Errorf("save video record: %w", err)
	}

	s.logger.Info("video job created",
		slog.String("video_id", v.ID),
		slog.String("user_id", userID),
		slog.String("portfolio_id", portfolioID),
		slog.String("visual_style", string(style)),
	)

	// Detach from the request lifecycle: the response is sent before the
	// pipeline finishes, so the pipeline must not die with the request
	// context.
	bg := context.WithoutCancel(ctx)
	job := v.Clone()
	s.runner.Go(func() {
		s.runPipeline(bg, job, p)
	})

	return v, nil
}

// Get retrieves a job scoped to the owner. Terminal records are
// immutable, so repeated polls of a finished job return identical data.
func (s *Service) Get(ctx context.Context, id, userID string) (*Video, error) {
	return s.videos.FindByIDForUser(ctx, id, userID)
}

// Update applies a typed patch to the caller's own record.
func (s *Service) Update(ctx context.Context, id, userID string, patch Patch) (*Video, error) {
	v, err := s.videos.FindByIDForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if patch.VideoURL != nil {
		if v.Status != StatusCompleted {
			return nil, ErrTerminalPatch
		}
		if *patch.VideoURL == "" {
			return nil, ErrEmptyVideoURL
		}
		v.VideoURL = *patch.VideoURL
	}
	if patch.Note != nil {
		v.Metadata.Note = *patch.Note
	}

	if err := s.videos.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// runPipeline drives one job to a terminal state. Every failure is
// converted into a persisted FAILED record; nothing escapes to the
// submitting request, and one job's failure never touches another job's
// row or in-flight pipeline.
func (s *Service) runPipeline(ctx context.Context, v *Video, p portfolio.Portfolio) {
	res, err := s.strategy.Generate(ctx, v, p)
	if err != nil {
		s.failJob(ctx, v, err)
		return
	}

	v.Metadata.Prompt = res.Prompt
	v.Metadata.Segments = res.Segments
	v.Metadata.ExtensionCount = res.ExtensionCount
	v.Metadata.Mock = res.Mock
	v.Metadata.Note = res.Note

	// Complete a clone so v stays PROCESSING: if the COMPLETED write is
	// rejected the job can still be failed (terminal states are final).
	done := v.Clone()
	if err := done.Complete(res.VideoURL); err != nil {
		s.failJob(ctx, v, err)
		return
	}
	if err := s.videos.Update(ctx, done); err != nil {
		s.failJob(ctx, v, fmt.Errorf("persist completed job: %w", err))
		return
	}

	s.logger.Info("video job completed",
		slog.String("video_id", v.ID),
		slog.Int("segments", len(res.Segments)),
		slog.Int("extension_count", res.ExtensionCount),
	)
}

// failJob persists the FAILED terminal state with the error description.
func (s *Service) failJob(ctx context.Context, v *Video, cause error) {
	s.logger.Error("video generation failed",
		slog.String("video_id", v.ID),
		slog.String("error", cause.Error()),
	)

	if err := v.Fail(cause.Error()); err != nil {
		s.logger.Error("invalid failure transition",
			slog.String("video_id", v.ID),
			slog.String("status", string(v.Status)),
		)
		return
	}
	if err := s.videos.Update(ctx, v); err != nil {
		s.logger.Error("failed to persist failed job",
			slog.String("video_id", v.ID),
			slog.String("error", err.Error()),
		)
	}
}
