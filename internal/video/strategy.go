package video

import (
	"context"
	"fmt"
	"time"

	"github.com/vidifolio/api/internal/portfolio"
)

// Result is the outcome of a successful generation run.
type Result struct {
	// VideoURL is the final artifact location in the blob store.
	VideoURL string
	// Prompt is the derived prompt text used for generation.
	Prompt string
	// Segments is the ordered list of provider calls made.
	Segments []Segment
	// ExtensionCount is the number of extension calls actually used.
	ExtensionCount int
	// Mock marks results produced without a real provider call.
	Mock bool
	// Note carries an optional strategy annotation.
	Note string
}

// GenerationStrategy produces the video for one job. The mock and
// segmented strategies are interchangeable behind this interface,
// selected by configuration.
type GenerationStrategy interface {
	Generate(ctx context.Context, v *Video, p portfolio.Portfolio) (Result, error)
}

// Compile-time check that MockStrategy implements GenerationStrategy.
var _ GenerationStrategy = (*MockStrategy)(nil)

// MockStrategy simulates generation with a fixed delay and a sample
// video URL, incurring no provider cost. Used in development and demos.
type MockStrategy struct {
	// Delay is how long the simulated generation takes.
	Delay time.Duration
	// SampleURL is the video URL reported on completion.
	SampleURL string
}

// Generate waits out the configured delay and reports the sample video.
func (s *MockStrategy) Generate(ctx context.Context, v *Video, _ portfolio.Portfolio) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, fmt.Errorf("mock generation cancelled: %w", ctx.Err())
	case <-time.After(s.Delay):
	}

	segments := make([]Segment, 0, 3)
	for step := 1; step <= 3; step++ {
		segments = append(segments, Segment{
			Step:   step,
			Status: "completed",
			Mock:   true,
		})
	}

	return Result{
		VideoURL:       s.SampleURL,
		Prompt:         fmt.Sprintf("Mock generation for style %q", v.Metadata.VisualStyle),
		Segments:       segments,
		ExtensionCount: 0,
		Mock:           true,
		Note:           "Generated by mock strategy (no provider cost)",
	}, nil
}
