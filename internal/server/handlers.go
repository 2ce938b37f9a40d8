package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maauso/framethumb/internal/thumbnail"
)

// Renderer renders thumbnails. *thumbnail.Service implements it.
type Renderer interface {
	Render(ctx context.Context, req thumbnail.Request) (*thumbnail.Result, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	renderer Renderer
	metrics  http.Handler
	logger   *slog.Logger
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithMetricsGatherer serves metrics from g instead of the default registry.
func WithMetricsGatherer(g prometheus.Gatherer) HandlerOption {
	return func(h *Handlers) {
		h.metrics = promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(renderer Renderer, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		renderer: renderer,
		metrics:  promhttp.Handler(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Metrics handles GET /metrics requests.
func (h *Handlers) Metrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// Thumbnail handles GET /{name} requests, e.g. GET /0a1b2c3d_12.jpg?w=640&s=1.
func (h *Handlers) Thumbnail(w http.ResponseWriter, r *http.Request) {
	req, err := thumbnail.ParseRequest(r.PathValue("name"), r.URL.Query())
	if err != nil {
		h.logger.Warn("invalid thumbnail request",
			slog.String("request_id", RequestIDFromContext(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		h.writeRenderError(w, err)
		return
	}

	// The renderer logs its own failures with their kind.
	res, err := h.renderer.Render(r.Context(), req)
	if err != nil {
		h.writeRenderError(w, err)
		return
	}

	header := w.Header()
	header.Set("Content-Type", res.Format.ContentType())
	header.Set("Content-Length", strconv.Itoa(len(res.Data)))
	if res.Subtitle != thumbnail.SubtitleNone {
		header.Set(HeaderSubtitleStatus, string(res.Subtitle))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Data); err != nil {
		h.logger.Debug("failed to write thumbnail",
			slog.String("request_id", RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
	}
}

// writeRenderError maps a thumbnail error kind to a status and error code.
func (h *Handlers) writeRenderError(w http.ResponseWriter, err error) {
	switch thumbnail.KindOf(err) {
	case thumbnail.InvalidRequest:
		writeError(w, http.StatusBadRequest, "invalid request", CodeInvalidRequest)
	case thumbnail.NotFound:
		writeError(w, http.StatusNotFound, "video not found", CodeNotFound)
	case thumbnail.DecodeFailure:
		writeError(w, http.StatusInternalServerError, "failed to decode frame", CodeDecodeFailed)
	case thumbnail.EncodeFailure:
		writeError(w, http.StatusInternalServerError, "failed to encode thumbnail", CodeEncodeFailed)
	case thumbnail.Unavailable:
		writeError(w, http.StatusServiceUnavailable, "service unavailable", CodeUnavailable)
	default:
		writeError(w, http.StatusInternalServerError, "internal server error", CodeInternal)
	}
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
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
