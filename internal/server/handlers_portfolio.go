package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vidifolio/api/internal/portfolio"
)

// maxUploadBytes caps multipart portfolio uploads at 32 MiB.
const maxUploadBytes = 32 << 20

// ListPortfolios handles GET /portfolio.
func (h *Handlers) ListPortfolios(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	list, err := h.portfolios.List(r.Context(), u.ID)
	if err != nil {
		h.logger.Error("portfolio list failed",
			slog.String("user_id", u.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "failed to list portfolios")
		return
	}
	if list == nil {
		list = []portfolio.Portfolio{}
	}

	writeJSON(w, http.StatusOK, list)
}

// CreatePortfolio handles POST /portfolio. The body must be
// multipart/form-data so a source document can accompany the metadata.
func (h *Handlers) CreatePortfolio(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		writeError(w, http.StatusBadRequest, "Content-Type must be multipart/form-data to support file uploads.")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "failed to decode form data")
		return
	}

	in := portfolio.CreateInput{Title: r.FormValue("title")}

	if raw := r.FormValue("raw_data"); raw != "" {
		if !json.Valid([]byte(raw)) {
			writeError(w, http.StatusBadRequest, "raw_data must be valid JSON")
			return
		}
		in.RawData = json.RawMessage(raw)
	}

	if file, header, err := r.FormFile("pdf"); err == nil {
		defer func() { _ = file.Close() }()
		in.Document = &portfolio.Document{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Body:        file,
		}
	} else if !errors.Is(err, http.ErrMissingFile) {
		writeError(w, http.StatusBadRequest, "failed to read pdf upload")
		return
	}

	p, err := h.portfolios.Create(r.Context(), u.ID, in)
	if err != nil {
		if errors.Is(err, portfolio.ErrTitleRequired) {
			writeError(w, http.StatusBadRequest, "Title is required.")
			return
		}
		h.logger.Error("portfolio create failed",
			slog.String("user_id", u.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "failed to create portfolio")
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

// DeletePortfolio handles DELETE /portfolio/{id}.
func (h *Handlers) DeletePortfolio(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	portfolioID := r.PathValue("id")
	if portfolioID == "" {
		portfolioID = r.URL.Query().Get("id")
	}
	if portfolioID == "" {
		writeError(w, http.StatusBadRequest, "Portfolio ID is required.")
		return
	}

	if err := h.portfolios.Delete(r.Context(), portfolioID, u.ID); err != nil {
		if errors.Is(err, portfolio.ErrNotFound) {
			writeError(w, http.StatusBadRequest, portfolio.ErrNotFound.Error())
			return
		}
		h.logger.Error("portfolio delete failed",
			slog.String("portfolio_id", portfolioID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "failed to delete portfolio")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Deleted."})
}
