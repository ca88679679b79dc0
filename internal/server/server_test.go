package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidifolio/api/internal/auth"
	"github.com/vidifolio/api/internal/portfolio"
	"github.com/vidifolio/api/internal/storage"
	"github.com/vidifolio/api/internal/user"
	"github.com/vidifolio/api/internal/video"
)

const testOrigin = "http://localhost:5173"

// syncRunner completes pipelines inline so GET observes terminal state
// without sleeping.
type syncRunner struct{}

func (syncRunner) Go(fn func()) { fn() }

// stubStrategy completes every job with a fixed URL.
type stubStrategy struct {
	url string
	err error
}

func (s *stubStrategy) Generate(_ context.Context, v *video.Video, _ portfolio.Portfolio) (video.Result, error) {
	if s.err != nil {
		return video.Result{}, s.err
	}
	return video.Result{
		VideoURL: s.url,
		Prompt:   fmt.Sprintf("Cinematic showcase with %s aesthetic.", v.Metadata.VisualStyle),
		Segments: []video.Segment{
			{Step: 1, OperationRef: "op-1", DurationSeconds: 8, Status: "completed"},
			{Step: 2, OperationRef: "op-2", DurationSeconds: 8, Status: "completed"},
			{Step: 3, OperationRef: "op-3", DurationSeconds: 4, Status: "completed"},
		},
		ExtensionCount: 2,
	}, nil
}

type testEnv struct {
	server   *httptest.Server
	verifier *auth.JWTVerifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	userSvc := user.NewService(user.NewMemoryRepository(), logger)
	portfolioRepo := portfolio.NewMemoryRepository()
	portfolioSvc := portfolio.NewService(portfolioRepo, store, logger)
	videoSvc := video.NewService(
		video.NewMemoryRepository(),
		portfolioRepo,
		&stubStrategy{url: "https://cdn.test/videos/final.mp4"},
		"veo-3.1-fast-generate-preview",
		logger,
		video.WithTaskRunner(syncRunner{}),
	)

	verifier := auth.NewJWTVerifier("test-secret")
	handlers := NewHandlers(videoSvc, portfolioSvc, userSvc, logger)
	router := NewRouter(handlers, verifier, logger, Config{AllowedOrigins: []string{testOrigin}})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, verifier: verifier}
}

// token issues a valid bearer token for the given subject.
func (e *testEnv) token(t *testing.T, subject string) string {
	t.Helper()
	tok, err := e.verifier.Sign(auth.Claims{Subject: subject, Email: subject + "@example.com", FullName: "Test User"}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// sync registers the subject and returns its internal user id.
func (e *testEnv) sync(t *testing.T, token string) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/auth/sync", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	u, ok := body["user"].(map[string]any)
	require.True(t, ok)
	return u["id"].(string)
}

// createPortfolio uploads a titled portfolio and returns its id.
func (e *testEnv) createPortfolio(t *testing.T, token, title string) string {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", title))
	require.NoError(t, mw.WriteField("raw_data", `{"skills":["go","sql"]}`))
	fw, err := mw.CreateFormFile("pdf", "resume.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.7 test"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp := e.do(t, http.MethodPost, "/portfolio", token, &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	return body["id"].(string)
}

func TestHealthUnauthenticated(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health", "", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestGenerateLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "subject-alice")
	env.sync(t, token)
	portfolioID := env.createPortfolio(t, token, "My Resume")

	// Submit returns 201 with the snapshot taken before the pipeline ran.
	resp := env.do(t, http.MethodPost, "/videos/generate", token,
		strings.NewReader(fmt.Sprintf(`{"portfolio_id":%q,"visual_style":"cyberpunk"}`, portfolioID)),
		"application/json")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody(t, resp)

	assert.Equal(t, "PROCESSING", created["status"])
	assert.Equal(t, portfolioID, created["portfolio_id"])
	assert.NotEmpty(t, created["id"])
	_, hasURL := created["video_url"]
	assert.False(t, hasURL)

	// The pipeline already ran inline; polling observes the terminal state.
	videoID := created["id"].(string)
	resp = env.do(t, http.MethodGet, "/videos/"+videoID, token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody(t, resp)

	assert.Equal(t, "COMPLETED", got["status"])
	assert.Equal(t, "https://cdn.test/videos/final.mp4", got["video_url"])

	meta, ok := got["ai_metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "cyberpunk", meta["visual_style"])
	assert.Equal(t, "veo-3.1-fast-generate-preview", meta["model"])
	assert.Contains(t, meta["prompt"], "cyberpunk")
	assert.Len(t, meta["segments"], 3)
	assert.Equal(t, float64(2), meta["extension_count"])

	// Terminal records are immutable: a second poll returns the same data.
	resp = env.do(t, http.MethodGet, "/videos/"+videoID, token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	again := decodeBody(t, resp)
	assert.Equal(t, got["status"], again["status"])
	assert.Equal(t, got["video_url"], again["video_url"])

	// The query-parameter form is equivalent to the path form.
	resp = env.do(t, http.MethodGet, "/videos?id="+videoID, token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	byQuery := decodeBody(t, resp)
	assert.Equal(t, got["status"], byQuery["status"])
	assert.Equal(t, got["video_url"], byQuery["video_url"])
}

func TestGenerateRejectsUnknownStyle(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "subject-alice")
	env.sync(t, token)
	portfolioID := env.createPortfolio(t, token, "My Resume")

	resp := env.do(t, http.MethodPost, "/videos/generate", token,
		strings.NewReader(fmt.Sprintf(`{"portfolio_id":%q,"visual_style":"vaporwave"}`, portfolioID)),
		"application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Contains(t, body["error"], "visual style")
}

func TestGenerateRejectsForeignPortfolio(t *testing.T) {
	env := newTestEnv(t)

	alice := env.token(t, "subject-alice")
	env.sync(t, alice)
	portfolioID := env.createPortfolio(t, alice, "Alice's Resume")

	bob := env.token(t, "subject-bob")
	env.sync(t, bob)

	resp := env.do(t, http.MethodPost, "/videos/generate", bob,
		strings.NewReader(fmt.Sprintf(`{"portfolio_id":%q,"visual_style":"cyberpunk"}`, portfolioID)),
		"application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetVideoUniformNotFound(t *testing.T) {
	env := newTestEnv(t)

	alice := env.token(t, "subject-alice")
	env.sync(t, alice)
	portfolioID := env.createPortfolio(t, alice, "My Resume")

	resp := env.do(t, http.MethodPost, "/videos/generate", alice,
		strings.NewReader(fmt.Sprintf(`{"portfolio_id":%q,"visual_style":"cyberpunk"}`, portfolioID)),
		"application/json")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	videoID := decodeBody(t, resp)["id"].(string)

	bob := env.token(t, "subject-bob")
	env.sync(t, bob)

	// Someone else's video and a nonexistent id are indistinguishable.
	for _, id := range []string{videoID, "00000000-0000-0000-0000-000000000000"} {
		resp := env.do(t, http.MethodGet, "/videos/"+id, bob, nil, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "Video not found or unauthorized", body["error"])
	}
}

func TestPatchVideo(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "subject-alice")
	env.sync(t, token)
	portfolioID := env.createPortfolio(t, token, "My Resume")

	resp := env.do(t, http.MethodPost, "/videos/generate", token,
		strings.NewReader(fmt.Sprintf(`{"portfolio_id":%q,"visual_style":"cyberpunk"}`, portfolioID)),
		"application/json")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	videoID := decodeBody(t, resp)["id"].(string)

	resp = env.do(t, http.MethodPatch, "/videos/"+videoID, token,
		strings.NewReader(`{"video_url":"https://cdn.test/replacement.mp4"}`), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "https://cdn.test/replacement.mp4", body["video_url"])
	assert.Equal(t, "COMPLETED", body["status"])

	// Clearing the URL of a completed record is rejected.
	resp = env.do(t, http.MethodPatch, "/videos/"+videoID, token,
		strings.NewReader(`{"video_url":""}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/videos/"+videoID, token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, "https://cdn.test/replacement.mp4", body["video_url"])
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	protected := []struct {
		method, path string
	}{
		{http.MethodPost, "/auth/sync"},
		{http.MethodGet, "/user/credit"},
		{http.MethodGet, "/portfolio"},
		{http.MethodPost, "/videos/generate"},
		{http.MethodGet, "/videos/some-id"},
	}

	for _, ep := range protected {
		resp := env.do(t, ep.method, ep.path, "", nil, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s without token", ep.method, ep.path)
		_ = resp.Body.Close()

		resp = env.do(t, ep.method, ep.path, "not-a-valid-token", nil, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s with forged token", ep.method, ep.path)
		_ = resp.Body.Close()
	}
}

func TestExpiredToken(t *testing.T) {
	env := newTestEnv(t)

	expired, err := env.verifier.Sign(auth.Claims{Subject: "subject-alice"}, -time.Hour)
	require.NoError(t, err)

	resp := env.do(t, http.MethodGet, "/portfolio", expired, nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUnsyncedUserRejected(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "subject-never-synced")

	resp := env.do(t, http.MethodGet, "/portfolio", token, nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "User not found.", body["error"])
}

func TestPortfolioEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "subject-alice")
	env.sync(t, token)

	// Empty list is [] rather than null.
	resp := env.do(t, http.MethodGet, "/portfolio", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.JSONEq(t, "[]", string(raw))

	portfolioID := env.createPortfolio(t, token, "My Resume")

	resp = env.do(t, http.MethodGet, "/portfolio", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	_ = resp.Body.Close()
	require.Len(t, list, 1)
	assert.Equal(t, "My Resume", list[0]["title"])
	assert.NotEmpty(t, list[0]["pdf_path"])

	// Deleting someone else's portfolio fails without revealing existence.
	bob := env.token(t, "subject-bob")
	env.sync(t, bob)
	resp = env.do(t, http.MethodDelete, "/portfolio/"+portfolioID, bob, nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	resp = env.do(t, http.MethodDelete, "/portfolio/"+portfolioID, token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "Deleted.", body["message"])
}

func TestCreatePortfolioRequiresMultipart(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "subject-alice")
	env.sync(t, token)

	resp := env.do(t, http.MethodPost, "/portfolio", token,
		strings.NewReader(`{"title":"nope"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Contains(t, body["error"], "multipart/form-data")
}

func TestCreditEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "subject-alice")
	env.sync(t, token)

	resp := env.do(t, http.MethodGet, "/user/credit", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, float64(0), body["credits"])

	resp = env.do(t, http.MethodPatch, "/user/credit", token,
		strings.NewReader(`{"credits":42}`), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, float64(42), body["credits"])

	resp = env.do(t, http.MethodPatch, "/user/credit", token,
		strings.NewReader(`{"credits":-1}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	resp = env.do(t, http.MethodPatch, "/user/credit", token,
		strings.NewReader(`{}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodOptions, env.server.URL+"/videos/generate", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := env.server.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, testOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "PATCH")
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestCORSDisallowedOrigin(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example.com")

	resp, err := env.server.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestFailedGenerationSurfacesViaPolling(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	portfolioRepo := portfolio.NewMemoryRepository()
	portfolioSvc := portfolio.NewService(portfolioRepo, store, logger)
	userSvc := user.NewService(user.NewMemoryRepository(), logger)
	videoSvc := video.NewService(
		video.NewMemoryRepository(),
		portfolioRepo,
		&stubStrategy{err: fmt.Errorf("provider quota exceeded")},
		"veo-3.1-fast-generate-preview",
		logger,
		video.WithTaskRunner(syncRunner{}),
	)
	verifier := auth.NewJWTVerifier("test-secret")
	handlers := NewHandlers(videoSvc, portfolioSvc, userSvc, logger)
	srv := httptest.NewServer(NewRouter(handlers, verifier, logger, Config{AllowedOrigins: []string{testOrigin}}))
	t.Cleanup(srv.Close)
	failEnv := &testEnv{server: srv, verifier: verifier}

	token := failEnv.token(t, "subject-alice")
	failEnv.sync(t, token)
	portfolioID := failEnv.createPortfolio(t, token, "My Resume")

	resp := failEnv.do(t, http.MethodPost, "/videos/generate", token,
		strings.NewReader(fmt.Sprintf(`{"portfolio_id":%q,"visual_style":"cyberpunk"}`, portfolioID)),
		"application/json")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	videoID := decodeBody(t, resp)["id"].(string)

	resp = failEnv.do(t, http.MethodGet, "/videos/"+videoID, token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody(t, resp)

	assert.Equal(t, "FAILED", got["status"])
	_, hasURL := got["video_url"]
	assert.False(t, hasURL)
	meta := got["ai_metadata"].(map[string]any)
	assert.Equal(t, "provider quota exceeded", meta["error"])
}
