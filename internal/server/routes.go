package server

import (
	"log/slog"
	"net/http"

	"github.com/vidifolio/api/internal/auth"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, verifier auth.Verifier, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)

	authed := AuthMiddleware(verifier)

	mux.Handle("POST /auth/sync", authed(http.HandlerFunc(h.SyncUser)))

	mux.Handle("GET /user/credit", authed(http.HandlerFunc(h.GetCredit)))
	mux.Handle("PATCH /user/credit", authed(http.HandlerFunc(h.PatchCredit)))

	mux.Handle("GET /portfolio", authed(http.HandlerFunc(h.ListPortfolios)))
	mux.Handle("POST /portfolio", authed(http.HandlerFunc(h.CreatePortfolio)))
	mux.Handle("DELETE /portfolio/{id}", authed(http.HandlerFunc(h.DeletePortfolio)))

	mux.Handle("POST /videos/generate", authed(http.HandlerFunc(h.GenerateVideo)))
	mux.Handle("GET /videos", authed(http.HandlerFunc(h.GetVideo)))
	mux.Handle("GET /videos/{id}", authed(http.HandlerFunc(h.GetVideo)))
	mux.Handle("PATCH /videos/{id}", authed(http.HandlerFunc(h.UpdateVideo)))

	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}
