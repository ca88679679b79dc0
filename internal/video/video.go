// Package video provides the Video aggregate and the job lifecycle
// manager for asynchronous generation requests. A Video row is the
// durable record of one generation job: created PROCESSING before any
// provider call, flipped exactly once to COMPLETED or FAILED.
package video

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a generation job.
type Status string

const (
	// StatusProcessing indicates the background pipeline is running.
	StatusProcessing Status = "PROCESSING"
	// StatusCompleted indicates the job finished with a stored video.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the job encountered an error.
	StatusFailed Status = "FAILED"
)

// IsTerminal returns true if the status permits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
// Transitions are monotonic and one-way; terminal states are final.
var validTransitions = map[Status][]Status{
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusCompleted:  {},
	StatusFailed:     {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// VisualStyle is the closed enumeration of supported generation styles.
type VisualStyle string

const (
	// StyleStandardTech is a sleek, minimal high-tech look.
	StyleStandardTech VisualStyle = "standard tech"
	// StyleCyberpunk is a neon-lit futuristic look.
	StyleCyberpunk VisualStyle = "cyberpunk"
	// StyleNatureClean is a natural-light organic look.
	StyleNatureClean VisualStyle = "nature clean"
)

// ErrInvalidStyle is returned for an unrecognized visual style.
var ErrInvalidStyle = errors.New("unrecognized visual style")

// IsValid returns true if the style is a recognized value.
func (s VisualStyle) IsValid() bool {
	switch s {
	case StyleStandardTech, StyleCyberpunk, StyleNatureClean:
		return true
	default:
		return false
	}
}

// Hints returns the style description used when prompting.
func (s VisualStyle) Hints() string {
	switch s {
	case StyleStandardTech:
		return "standard tech: Sleek, minimalistic, high-tech glass/metal, blue and white lighting, clean UI overlays."
	case StyleCyberpunk:
		return "cyberpunk: Neon colors (pink, cyan), night city, rain-slicked streets, futuristic hardware, glitch effects."
	case StyleNatureClean:
		return "nature clean: Natural daylight, soft greens/browns, organic textures, airy atmosphere, eco-friendly tech."
	default:
		return string(s)
	}
}

// Segment records one provider call within a job.
type Segment struct {
	// Step is the 1-based position in the generation sequence.
	Step int `json:"step"`
	// OperationRef is the provider's operation reference.
	OperationRef string `json:"operation,omitempty"`
	// DurationSeconds is the clip length requested for this call.
	DurationSeconds int32 `json:"duration_seconds,omitempty"`
	// Status is the segment outcome, "completed" once terminal.
	Status string `json:"status"`
	// Mock marks segments produced by the mock strategy.
	Mock bool `json:"mock,omitempty"`
}

// Metadata is the structured ai_metadata stored with each job.
type Metadata struct {
	// Model is the provider model identifier.
	Model string `json:"model"`
	// VisualStyle is the requested style.
	VisualStyle VisualStyle `json:"visual_style"`
	// Prompt is the derived prompt text, set once generation ran.
	Prompt string `json:"prompt,omitempty"`
	// Segments is the ordered list of provider calls made.
	Segments []Segment `json:"segments"`
	// ExtensionCount is the number of extension calls actually used.
	ExtensionCount int `json:"extension_count"`
	// Error is the failure description. Present iff status is FAILED.
	Error string `json:"error,omitempty"`
	// Mock marks records produced without a real provider call.
	Mock bool `json:"mock,omitempty"`
	// Note carries a strategy annotation, if any.
	Note string `json:"note,omitempty"`
}

// Video represents one generation job and its lifecycle state.
type Video struct {
	// ID is the unique identifier.
	ID string `json:"id"`
	// UserID is the owning user's internal id.
	UserID string `json:"user_id"`
	// PortfolioID is the source portfolio.
	PortfolioID string `json:"portfolio_id"`
	// Status is the current lifecycle state.
	Status Status `json:"status"`
	// VideoURL is the final artifact location. Non-empty iff COMPLETED.
	VideoURL string `json:"video_url,omitempty"`
	// Metadata is the structured generation metadata.
	Metadata Metadata `json:"ai_metadata"`
	// CreatedAt is when the job was submitted.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the record was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a PROCESSING job record with the metadata skeleton.
func New(userID, portfolioID, model string, style VisualStyle) *Video {
	now := time.Now()
	return &Video{
		ID:          uuid.NewString(),
		UserID:      userID,
		PortfolioID: portfolioID,
		Status:      StatusProcessing,
		Metadata: Metadata{
			Model:          model,
			VisualStyle:    style,
			Segments:       []Segment{},
			ExtensionCount: 0,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status.
// Returns ErrInvalidTransition if the transition is not allowed.
func (v *Video) TransitionTo(status Status) error {
	if !canTransition(v.Status, status) {
		return ErrInvalidTransition
	}
	v.Status = status
	v.UpdatedAt = time.Now()
	return nil
}

// Complete transitions the job to COMPLETED with the final artifact URL.
func (v *Video) Complete(videoURL string) error {
	if err := v.TransitionTo(StatusCompleted); err != nil {
		return err
	}
	v.VideoURL = videoURL
	return nil
}

// Fail transitions the job to FAILED with an error description.
func (v *Video) Fail(errMsg string) error {
	if err := v.TransitionTo(StatusFailed); err != nil {
		return err
	}
	v.Metadata.Error = errMsg
	return nil
}

// IsTerminal returns true if the job is in a terminal state.
func (v *Video) IsTerminal() bool {
	return v.Status.IsTerminal()
}

// Clone creates a deep copy of the record for safe reads.
func (v *Video) Clone() *Video {
	out := *v
	out.Metadata.Segments = make([]Segment, len(v.Metadata.Segments))
	copy(out.Metadata.Segments, v.Metadata.Segments)
	return &out
}
