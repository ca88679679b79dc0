// Package generator provides the port for long-running video generation
// providers and the polling loop that drives an operation to completion.
package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Static errors for generation operations.
var (
	// ErrOperationFailed is returned when the provider reports an
	// operation-level error.
	ErrOperationFailed = errors.New("generator: operation failed")
	// ErrNoVideoReturned is returned when an operation completes without
	// producing an artifact.
	ErrNoVideoReturned = errors.New("generator: operation completed but no video returned")
	// ErrPollTimeout is returned when an operation does not reach a
	// terminal state within the allowed wait.
	ErrPollTimeout = errors.New("generator: timed out waiting for operation")
)

// Artifact references a generated or reference video. Providers may
// return a transient URI, inline bytes, or both.
type Artifact struct {
	// URI is a provider-hosted (usually short-lived) location.
	URI string
	// Data holds the video bytes when returned inline.
	Data []byte
	// MIMEType is the media type, typically video/mp4.
	MIMEType string
}

// Request describes one generation call. When Reference is set the
// provider continues from the referenced clip instead of starting fresh.
type Request struct {
	// Model is the provider model identifier.
	Model string
	// Prompt is the scene description.
	Prompt string
	// DurationSeconds is the requested clip length.
	DurationSeconds int32
	// Reference is the prior segment to extend, nil for the first call.
	Reference *Artifact
}

// Operation is one in-flight provider operation.
type Operation struct {
	// Ref is the provider's operation reference.
	Ref string
	// Done reports whether the operation reached a terminal state.
	Done bool
	// Error is the provider's error description for failed operations.
	Error string
	// Video is the resulting artifact, set once Done with no Error.
	Video *Artifact

	// raw carries the provider's native operation handle between polls.
	raw any
}

// Generator defines the interface for video generation providers.
type Generator interface {
	// Start submits a generation request and returns the new operation.
	Start(ctx context.Context, req Request) (*Operation, error)

	// Poll refreshes the operation's state.
	Poll(ctx context.Context, op *Operation) (*Operation, error)

	// Fetch opens the artifact's content for reading.
	// The caller is responsible for closing the returned ReadCloser.
	Fetch(ctx context.Context, a *Artifact) (io.ReadCloser, error)
}

// WaitForOperation polls op at a fixed interval until it reaches a
// terminal state, then returns it. The wait is bounded: a stuck upstream
// operation fails with ErrPollTimeout instead of polling forever.
func WaitForOperation(ctx context.Context, g Generator, op *Operation, interval, timeout time.Duration) (*Operation, error) {
	deadline := time.Now().Add(timeout)

	for !op.Done {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s after %s", ErrPollTimeout, op.Ref, timeout)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for operation %s: %w", op.Ref, ctx.Err())
		case <-time.After(interval):
		}

		next, err := g.Poll(ctx, op)
		if err != nil {
			return nil, fmt.Errorf("poll operation %s: %w", op.Ref, err)
		}
		op = next
	}

	if op.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrOperationFailed, op.Error)
	}
	if op.Video == nil {
		return nil, ErrNoVideoReturned
	}
	return op, nil
}
