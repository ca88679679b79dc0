package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidifolio/api/internal/generator"
	"github.com/vidifolio/api/internal/portfolio"
	"github.com/vidifolio/api/internal/prompt"
)

// fakeGenerator completes every operation on the first poll-free pass
// and records the submitted requests in order.
type fakeGenerator struct {
	requests []generator.Request
	failAt   int // 1-based step that fails, 0 for none
	fetched  *generator.Artifact
}

func (g *fakeGenerator) Start(_ context.Context, req generator.Request) (*generator.Operation, error) {
	g.requests = append(g.requests, req)
	step := len(g.requests)
	if g.failAt == step {
		return nil, fmt.Errorf("step %d rejected", step)
	}
	return &generator.Operation{
		Ref:  fmt.Sprintf("op-%d", step),
		Done: true,
		Video: &generator.Artifact{
			URI:      fmt.Sprintf("https://provider/videos/%d", step),
			MIMEType: "video/mp4",
		},
	}, nil
}

func (g *fakeGenerator) Poll(_ context.Context, op *generator.Operation) (*generator.Operation, error) {
	return op, nil
}

func (g *fakeGenerator) Fetch(_ context.Context, a *generator.Artifact) (io.ReadCloser, error) {
	g.fetched = a
	return io.NopCloser(bytes.NewReader([]byte("mp4-bytes"))), nil
}

// fakeStore records uploads and answers signed-URL requests.
type fakeStore struct {
	uploads    map[string][]byte
	lastKey    string
	signedKeys []string
	signErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{uploads: make(map[string][]byte)}
}

func (s *fakeStore) Upload(_ context.Context, key, _ string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.uploads[key] = data
	s.lastKey = key
	return "https://cdn.test/" + key, nil
}

func (s *fakeStore) Download(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.uploads[key]
	if !ok {
		return nil, errors.New("missing object")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStore) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if s.signErr != nil {
		return "", s.signErr
	}
	s.signedKeys = append(s.signedKeys, key)
	return "https://signed.test/" + key, nil
}

// fakeBuilder returns a fixed storyboard or an error.
type fakeBuilder struct {
	sb     prompt.Storyboard
	err    error
	inputs []prompt.Inputs
}

func (b *fakeBuilder) Storyboard(_ context.Context, in prompt.Inputs) (prompt.Storyboard, error) {
	b.inputs = append(b.inputs, in)
	if b.err != nil {
		return prompt.Storyboard{}, b.err
	}
	return b.sb, nil
}

func newSegmented(t *testing.T, gen generator.Generator, b prompt.Builder, store *fakeStore) *SegmentedStrategy {
	t.Helper()
	s, err := NewSegmentedStrategy(gen, b, store, SegmentedConfig{
		Model:        "veo-3.1-fast-generate-preview",
		Durations:    []int32{8, 8, 4},
		PollInterval: time.Millisecond,
		PollTimeout:  time.Second,
		SignedURLTTL: time.Hour,
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return s
}

func TestNewSegmentedStrategy_RequiresDurations(t *testing.T) {
	_, err := NewSegmentedStrategy(&fakeGenerator{}, &fakeBuilder{}, newFakeStore(), SegmentedConfig{}, nil)
	assert.ErrorIs(t, err, ErrSegmentPlanRequired)
}

func TestSegmentedStrategy_DurationsAndChaining(t *testing.T) {
	gen := &fakeGenerator{}
	builder := &fakeBuilder{sb: prompt.Storyboard{Part1: "hook", Part2: "core", Part3: "outro"}}
	store := newFakeStore()
	s := newSegmented(t, gen, builder, store)

	v := New("user-1", "portfolio-1", "veo-3.1-fast-generate-preview", StyleCyberpunk)
	res, err := s.Generate(context.Background(), v, portfolio.Portfolio{ID: "portfolio-1", UserID: "user-1", Title: "My Resume"})
	require.NoError(t, err)

	// Exactly one provider call per planned duration, in order.
	require.Len(t, gen.requests, 3)
	assert.Equal(t, int32(8), gen.requests[0].DurationSeconds)
	assert.Equal(t, int32(8), gen.requests[1].DurationSeconds)
	assert.Equal(t, int32(4), gen.requests[2].DurationSeconds)

	// First call starts fresh, each later call extends the previous output.
	assert.Nil(t, gen.requests[0].Reference)
	require.NotNil(t, gen.requests[1].Reference)
	assert.Equal(t, "https://provider/videos/1", gen.requests[1].Reference.URI)
	require.NotNil(t, gen.requests[2].Reference)
	assert.Equal(t, "https://provider/videos/2", gen.requests[2].Reference.URI)

	// Storyboard parts map one-to-one onto segments.
	assert.Equal(t, "hook", gen.requests[0].Prompt)
	assert.Equal(t, "core", gen.requests[1].Prompt)
	assert.Equal(t, "outro", gen.requests[2].Prompt)

	assert.Equal(t, 2, res.ExtensionCount)
	assert.Equal(t, "hook\n\ncore\n\noutro", res.Prompt)
	require.Len(t, res.Segments, 3)
	for i, seg := range res.Segments {
		assert.Equal(t, i+1, seg.Step)
		assert.Equal(t, fmt.Sprintf("op-%d", i+1), seg.OperationRef)
		assert.Equal(t, "completed", seg.Status)
	}

	// Final artifact is the last segment's output, re-uploaded to the store.
	require.NotNil(t, gen.fetched)
	assert.Equal(t, "https://provider/videos/3", gen.fetched.URI)
	assert.Contains(t, store.lastKey, "videos/user-1/")
	assert.Equal(t, "https://cdn.test/"+store.lastKey, res.VideoURL)
	assert.Equal(t, []byte("mp4-bytes"), store.uploads[store.lastKey])
}

func TestSegmentedStrategy_FallbackPromptOnBuilderError(t *testing.T) {
	gen := &fakeGenerator{}
	builder := &fakeBuilder{err: errors.New("prompt model unavailable")}
	s := newSegmented(t, gen, builder, newFakeStore())

	v := New("user-1", "portfolio-1", "m", StyleCyberpunk)
	res, err := s.Generate(context.Background(), v, portfolio.Portfolio{ID: "portfolio-1", Title: "My Resume"})
	require.NoError(t, err)

	want := "Cinematic showcase of My Resume with cyberpunk aesthetic."
	for _, req := range gen.requests {
		assert.Equal(t, want, req.Prompt)
	}
	assert.Contains(t, res.Prompt, want)
}

func TestSegmentedStrategy_FallbackPromptOnIncompleteStoryboard(t *testing.T) {
	gen := &fakeGenerator{}
	builder := &fakeBuilder{sb: prompt.Storyboard{Part1: "hook only"}}
	s := newSegmented(t, gen, builder, newFakeStore())

	v := New("user-1", "portfolio-1", "m", StyleNatureClean)
	_, err := s.Generate(context.Background(), v, portfolio.Portfolio{ID: "portfolio-1", Title: "Site"})
	require.NoError(t, err)

	want := "Cinematic showcase of Site with nature clean aesthetic."
	require.Len(t, gen.requests, 3)
	for _, req := range gen.requests {
		assert.Equal(t, want, req.Prompt)
	}
}

func TestSegmentedStrategy_SignsDocumentForPrompting(t *testing.T) {
	gen := &fakeGenerator{}
	builder := &fakeBuilder{sb: prompt.Storyboard{Part1: "a", Part2: "b", Part3: "c"}}
	store := newFakeStore()
	s := newSegmented(t, gen, builder, store)

	p := portfolio.Portfolio{ID: "portfolio-1", Title: "Resume", DocumentPath: "portfolios/user-1/1_resume.pdf"}
	_, err := s.Generate(context.Background(), New("user-1", p.ID, "m", StyleStandardTech), p)
	require.NoError(t, err)

	require.Len(t, builder.inputs, 1)
	assert.Equal(t, "https://signed.test/portfolios/user-1/1_resume.pdf", builder.inputs[0].DocumentURL)
	assert.Equal(t, "standard tech", builder.inputs[0].Style)
}

func TestSegmentedStrategy_SignedURLFailureDoesNotAbort(t *testing.T) {
	gen := &fakeGenerator{}
	builder := &fakeBuilder{sb: prompt.Storyboard{Part1: "a", Part2: "b", Part3: "c"}}
	store := newFakeStore()
	store.signErr = errors.New("presign unavailable")
	s := newSegmented(t, gen, builder, store)

	p := portfolio.Portfolio{ID: "portfolio-1", Title: "Resume", DocumentPath: "portfolios/user-1/1_resume.pdf"}
	_, err := s.Generate(context.Background(), New("user-1", p.ID, "m", StyleStandardTech), p)
	require.NoError(t, err)

	require.Len(t, builder.inputs, 1)
	assert.Empty(t, builder.inputs[0].DocumentURL)
}

func TestSegmentedStrategy_FailureMidSequenceStops(t *testing.T) {
	gen := &fakeGenerator{failAt: 2}
	builder := &fakeBuilder{sb: prompt.Storyboard{Part1: "a", Part2: "b", Part3: "c"}}
	store := newFakeStore()
	s := newSegmented(t, gen, builder, store)

	v := New("user-1", "portfolio-1", "m", StyleCyberpunk)
	_, err := s.Generate(context.Background(), v, portfolio.Portfolio{ID: "portfolio-1", Title: "R"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "segment 2")
	// No third call, nothing persisted.
	assert.Len(t, gen.requests, 2)
	assert.Empty(t, store.uploads)
}
