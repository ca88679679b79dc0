package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vidifolio/api/internal/generator"
	"github.com/vidifolio/api/internal/portfolio"
	"github.com/vidifolio/api/internal/prompt"
	"github.com/vidifolio/api/internal/storage"
)

// ErrSegmentPlanRequired is returned when a segmented strategy is
// constructed without segment durations.
var ErrSegmentPlanRequired = errors.New("at least one segment duration is required")

// Compile-time check that SegmentedStrategy implements GenerationStrategy.
var _ GenerationStrategy = (*SegmentedStrategy)(nil)

// SegmentedStrategy builds one continuous video by chaining provider
// calls: the first segment is generated from the prompt alone, each
// subsequent call extends the previous segment's output. Calls are
// strictly sequential; segment n is issued only after segment n-1's
// operation is terminal and successful.
type SegmentedStrategy struct {
	gen     generator.Generator
	prompts prompt.Builder
	store   storage.Store
	logger  *slog.Logger

	model        string
	durations    []int32
	pollInterval time.Duration
	pollTimeout  time.Duration
	signedTTL    time.Duration
	now          func() time.Time
}

// SegmentedConfig configures the segmented strategy.
type SegmentedConfig struct {
	// Model is the provider model identifier recorded in metadata.
	Model string
	// Durations are the per-segment clip lengths; their sum is the
	// target total duration.
	Durations []int32
	// PollInterval is the fixed delay between operation status checks.
	PollInterval time.Duration
	// PollTimeout bounds the total wait per operation.
	PollTimeout time.Duration
	// SignedURLTTL is the validity of document URLs handed to the
	// prompting model.
	SignedURLTTL time.Duration
}

// NewSegmentedStrategy creates the segmented-extension strategy.
func NewSegmentedStrategy(
	gen generator.Generator,
	prompts prompt.Builder,
	store storage.Store,
	cfg SegmentedConfig,
	logger *slog.Logger,
) (*SegmentedStrategy, error) {
	if len(cfg.Durations) == 0 {
		return nil, ErrSegmentPlanRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SegmentedStrategy{
		gen:          gen,
		prompts:      prompts,
		store:        store,
		logger:       logger,
		model:        cfg.Model,
		durations:    cfg.Durations,
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
		signedTTL:    cfg.SignedURLTTL,
		now:          time.Now,
	}, nil
}

// Generate runs the full segmented pipeline for one job.
func (s *SegmentedStrategy) Generate(ctx context.Context, v *Video, p portfolio.Portfolio) (Result, error) {
	sb := s.storyboard(ctx, p, v.Metadata.VisualStyle)
	parts := []string{sb.Part1, sb.Part2, sb.Part3}

	segments := make([]Segment, 0, len(s.durations))
	var reference *generator.Artifact

	for i, duration := range s.durations {
		part := parts[len(parts)-1]
		if i < len(parts) {
			part = parts[i]
		}

		op, err := s.gen.Start(ctx, generator.Request{
			Model:           s.model,
			Prompt:          part,
			DurationSeconds: duration,
			Reference:       reference,
		})
		if err != nil {
			return Result{}, fmt.Errorf("segment %d: submit: %w", i+1, err)
		}

		op, err = generator.WaitForOperation(ctx, s.gen, op, s.pollInterval, s.pollTimeout)
		if err != nil {
			return Result{}, fmt.Errorf("segment %d: %w", i+1, err)
		}

		s.logger.Info("segment completed",
			slog.String("video_id", v.ID),
			slog.Int("step", i+1),
			slog.String("operation", op.Ref),
		)

		segments = append(segments, Segment{
			Step:            i + 1,
			OperationRef:    op.Ref,
			DurationSeconds: duration,
			Status:          "completed",
		})
		reference = op.Video
	}

	url, err := s.persist(ctx, v, reference)
	if err != nil {
		return Result{}, err
	}

	return Result{
		VideoURL:       url,
		Prompt:         strings.Join(parts, "\n\n"),
		Segments:       segments,
		ExtensionCount: len(s.durations) - 1,
	}, nil
}

// storyboard derives the 3-part storyboard, substituting the templated
// fallback when derivation errors or returns an incomplete result.
// Prompt derivation never aborts the pipeline.
func (s *SegmentedStrategy) storyboard(ctx context.Context, p portfolio.Portfolio, style VisualStyle) prompt.Storyboard {
	in := prompt.Inputs{
		Title:      p.Title,
		RawData:    p.RawData,
		Style:      string(style),
		StyleHints: style.Hints(),
	}

	if p.DocumentPath != "" {
		url, err := s.store.SignedURL(ctx, p.DocumentPath, s.signedTTL)
		if err != nil {
			s.logger.Warn("signed URL for source document failed, prompting without it",
				slog.String("portfolio_id", p.ID),
				slog.String("error", err.Error()),
			)
		} else {
			in.DocumentURL = url
		}
	}

	sb, err := s.prompts.Storyboard(ctx, in)
	if err != nil || !sb.Complete() {
		if err != nil {
			s.logger.Warn("storyboard derivation failed, using fallback prompt",
				slog.String("portfolio_id", p.ID),
				slog.String("error", err.Error()),
			)
		}
		return prompt.FallbackStoryboard(p.Title, string(style))
	}
	return sb
}

// persist downloads the final artifact from the provider and re-uploads
// it to the blob store, since the provider URL is transient.
func (s *SegmentedStrategy) persist(ctx context.Context, v *Video, artifact *generator.Artifact) (string, error) {
	body, err := s.gen.Fetch(ctx, artifact)
	if err != nil {
		return "", fmt.Errorf("fetch final artifact: %w", err)
	}
	defer func() { _ = body.Close() }()

	key := fmt.Sprintf("videos/%s/%d.mp4", v.UserID, s.now().UnixMilli())
	url, err := s.store.Upload(ctx, key, "video/mp4", body)
	if err != nil {
		return "", fmt.Errorf("store final artifact: %w", err)
	}
	return url, nil
}
