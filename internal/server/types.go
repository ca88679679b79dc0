// Package server provides the HTTP layer: handlers, middleware, routes
// and request DTOs separated from domain types.
package server

// GenerateVideoRequest is the body for POST /videos/generate.
type GenerateVideoRequest struct {
	// PortfolioID references a portfolio owned by the caller.
	PortfolioID string `json:"portfolio_id" validate:"required"`
	// VisualStyle is one of the recognized style names.
	VisualStyle string `json:"visual_style" validate:"required"`
}

// UpdateVideoRequest is the body for PATCH /videos/{id}.
// Only these fields are patchable; lifecycle status is not.
type UpdateVideoRequest struct {
	VideoURL *string `json:"video_url,omitempty"`
	Note     *string `json:"note,omitempty"`
}

// CreditPatchRequest is the body for PATCH /user/credit.
type CreditPatchRequest struct {
	Credits *int `json:"credits" validate:"required"`
}

// CreditResponse is the response for the credit endpoints.
type CreditResponse struct {
	Credits int `json:"credits"`
}

// SyncResponse wraps the upserted user for POST /auth/sync.
type SyncResponse struct {
	User any `json:"user"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
}

// MessageResponse carries a simple confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
