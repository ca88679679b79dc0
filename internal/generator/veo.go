package generator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Compile-time check that VeoGenerator implements Generator.
var _ Generator = (*VeoGenerator)(nil)

// VeoGenerator drives Google's Veo long-running video API through the
// genai SDK. Segment extension passes the prior clip as source video.
type VeoGenerator struct {
	client     *genai.Client
	httpClient *http.Client
	apiKey     string
	logger     *slog.Logger
}

// NewVeoGenerator creates a Veo-backed generator over the given client.
// The API key is needed separately for authenticated artifact downloads.
func NewVeoGenerator(client *genai.Client, apiKey string, logger *slog.Logger) *VeoGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &VeoGenerator{
		client:     client,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		apiKey:     apiKey,
		logger:     logger,
	}
}

// Start submits a generation request to Veo.
func (g *VeoGenerator) Start(ctx context.Context, req Request) (*Operation, error) {
	cfg := &genai.GenerateVideosConfig{
		NumberOfVideos:  1,
		DurationSeconds: genai.Ptr(req.DurationSeconds),
		Resolution:      "720p",
		AspectRatio:     "16:9",
	}

	g.logger.Info("starting veo generation",
		slog.String("model", req.Model),
		slog.Int("duration_sec", int(req.DurationSeconds)),
		slog.Bool("extension", req.Reference != nil),
	)

	var op *genai.GenerateVideosOperation
	var err error
	if req.Reference != nil {
		source := &genai.GenerateVideosSource{
			Prompt: req.Prompt,
			Video: &genai.Video{
				URI:        req.Reference.URI,
				VideoBytes: req.Reference.Data,
				MIMEType:   refMIMEType(req.Reference),
			},
		}
		op, err = g.client.Models.GenerateVideosFromSource(ctx, req.Model, source, cfg)
	} else {
		op, err = g.client.Models.GenerateVideos(ctx, req.Model, req.Prompt, nil, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("veo generate: %w", err)
	}

	return fromVeoOperation(op), nil
}

// Poll refreshes the operation's state from the provider.
func (g *VeoGenerator) Poll(ctx context.Context, op *Operation) (*Operation, error) {
	raw, ok := op.raw.(*genai.GenerateVideosOperation)
	if !ok {
		return nil, fmt.Errorf("veo poll: operation %s has no provider handle", op.Ref)
	}

	next, err := g.client.Operations.GetVideosOperation(ctx, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("veo operation status: %w", err)
	}

	return fromVeoOperation(next), nil
}

// Fetch opens the artifact content. Inline bytes are served directly;
// otherwise the provider's download URI is fetched over HTTP. Direct
// Google API URIs require the API key header.
func (g *VeoGenerator) Fetch(ctx context.Context, a *Artifact) (io.ReadCloser, error) {
	if len(a.Data) > 0 {
		return io.NopCloser(bytes.NewReader(a.Data)), nil
	}
	if a.URI == "" {
		return nil, ErrNoVideoReturned
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URI, nil)
	if err != nil {
		return nil, fmt.Errorf("build artifact request: %w", err)
	}
	if strings.Contains(a.URI, "generativelanguage.googleapis.com") {
		req.Header.Set("x-goog-api-key", g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download artifact: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("download artifact from %s: status %d", a.URI, resp.StatusCode)
	}
	return resp.Body, nil
}

// fromVeoOperation maps the SDK operation onto the port type.
func fromVeoOperation(op *genai.GenerateVideosOperation) *Operation {
	out := &Operation{
		Ref:  op.Name,
		Done: op.Done,
		raw:  op,
	}

	if op.Error != nil {
		out.Error = fmt.Sprintf("%v", op.Error)
		return out
	}

	if op.Done && op.Response != nil && len(op.Response.GeneratedVideos) > 0 {
		v := op.Response.GeneratedVideos[0].Video
		if v != nil {
			out.Video = &Artifact{
				URI:      v.URI,
				Data:     v.VideoBytes,
				MIMEType: v.MIMEType,
			}
		}
	}
	return out
}

func refMIMEType(a *Artifact) string {
	if a.MIMEType != "" {
		return a.MIMEType
	}
	return "video/mp4"
}
