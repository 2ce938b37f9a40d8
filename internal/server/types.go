// Package server provides the HTTP server for the frame thumbnail service.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeNotFound       = "NOT_FOUND"
	CodeDecodeFailed   = "DECODE_FAILED"
	CodeEncodeFailed   = "ENCODE_FAILED"
	CodeUnavailable    = "UNAVAILABLE"
	CodeInternal       = "INTERNAL_ERROR"
	CodeRateLimited    = "RATE_LIMITED"
)

// Response headers set on thumbnails.
const (
	// HeaderSubtitleStatus reports a requested subtitle that was not drawn.
	HeaderSubtitleStatus = "X-Subtitle-Status"
	// HeaderRequestID carries the request correlation ID.
	HeaderRequestID = "X-Request-ID"
)
