package server

import (
	"log/slog"
	"net/http"
	"time"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
	// RateLimitPerMinute caps thumbnail requests per client IP. Zero disables the limit.
	RateLimitPerMinute int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	var thumb http.Handler = http.HandlerFunc(h.Thumbnail)
	if cfg.RateLimitPerMinute > 0 {
		thumb = RateLimitMiddleware(cfg.RateLimitPerMinute, time.Minute)(thumb)
	}

	// Register routes with method-based patterns (Go 1.22+).
	// The literal routes are more specific than the wildcard and win.
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /metrics", h.Metrics)
	mux.Handle("GET /{name}", thumb)

	// Apply middleware chain
	chain := ChainMiddleware(
		RequestIDMiddleware,
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}
