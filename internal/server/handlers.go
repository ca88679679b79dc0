package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/vidifolio/api/internal/portfolio"
	"github.com/vidifolio/api/internal/user"
	"github.com/vidifolio/api/internal/video"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	videos     *video.Service
	portfolios *portfolio.Service
	users      *user.Service
	validator  *validator.Validate
	logger     *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(videos *video.Service, portfolios *portfolio.Service, users *user.Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		videos:     videos,
		portfolios: portfolios,
		users:      users,
		validator:  validator.New(),
		logger:     logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// GenerateVideo handles POST /videos/generate. It creates the PROCESSING
// record, detaches the generation pipeline, and returns 201 immediately.
func (h *Handlers) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req GenerateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "portfolio_id and visual_style are required")
		return
	}

	v, err := h.videos.Submit(r.Context(), u.ID, req.PortfolioID, video.VisualStyle(req.VisualStyle))
	if err != nil {
		switch {
		case errors.Is(err, portfolio.ErrNotFound):
			writeError(w, http.StatusBadRequest, portfolio.ErrNotFound.Error())
		case errors.Is(err, video.ErrInvalidStyle):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("video submit failed",
				slog.String("user_id", u.ID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusBadRequest, "failed to start video generation")
		}
		return
	}

	writeJSON(w, http.StatusCreated, v)
}

// GetVideo handles GET /videos/{id}. Ownership failures are reported
// identically to nonexistent ids.
func (h *Handlers) GetVideo(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	videoID := r.PathValue("id")
	if videoID == "" {
		videoID = r.URL.Query().Get("id")
	}
	if videoID == "" {
		writeError(w, http.StatusBadRequest, "video ID is required")
		return
	}

	v, err := h.videos.Get(r.Context(), videoID, u.ID)
	if err != nil {
		if errors.Is(err, video.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Video not found or unauthorized")
			return
		}
		h.logger.Error("video fetch failed",
			slog.String("video_id", videoID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "failed to get video")
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// UpdateVideo handles PATCH /videos/{id}.
func (h *Handlers) UpdateVideo(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	videoID := r.PathValue("id")
	if videoID == "" {
		writeError(w, http.StatusBadRequest, "video ID is required")
		return
	}

	var req UpdateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	v, err := h.videos.Update(r.Context(), videoID, u.ID, video.Patch{
		VideoURL: req.VideoURL,
		Note:     req.Note,
	})
	if err != nil {
		switch {
		case errors.Is(err, video.ErrNotFound):
			writeError(w, http.StatusNotFound, "Video not found or unauthorized")
		case errors.Is(err, video.ErrTerminalPatch), errors.Is(err, video.ErrEmptyVideoURL):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("video update failed",
				slog.String("video_id", videoID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusBadRequest, "failed to update video")
		}
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// currentUser resolves the caller's user row from the verified claims.
// Writes the error response and returns false when resolution fails.
func (h *Handlers) currentUser(w http.ResponseWriter, r *http.Request) (user.User, bool) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credentials")
		return user.User{}, false
	}

	u, err := h.users.BySubject(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, http.StatusBadRequest, "User not found.")
		return user.User{}, false
	}
	return u, true
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
