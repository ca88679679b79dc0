package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vidifolio/api/internal/user"
)

// SyncUser handles POST /auth/sync. The verified claims are upserted
// into the users table keyed by subject id, creating the account on the
// first successful credential verification.
func (h *Handlers) SyncUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	u, err := h.users.Sync(r.Context(), claims)
	if err != nil {
		h.logger.Error("user sync failed",
			slog.String("subject_id", claims.Subject),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "failed to sync user")
		return
	}

	writeJSON(w, http.StatusOK, SyncResponse{User: u})
}

// GetCredit handles GET /user/credit.
func (h *Handlers) GetCredit(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	credits, err := h.users.Credits(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "User not found.")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read credits")
		return
	}

	writeJSON(w, http.StatusOK, CreditResponse{Credits: credits})
}

// PatchCredit handles PATCH /user/credit.
func (h *Handlers) PatchCredit(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	var req CreditPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "credits field is required")
		return
	}

	u, err := h.users.SetCredits(r.Context(), claims.Subject, *req.Credits)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			writeError(w, http.StatusBadRequest, "User not found.")
		case errors.Is(err, user.ErrNegativeCredits):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusBadRequest, "failed to update credits")
		}
		return
	}

	writeJSON(w, http.StatusOK, CreditResponse{Credits: u.Credits})
}
