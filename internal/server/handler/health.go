package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthCheck probes one backing service.
type HealthCheck func(ctx context.Context) error

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	mode      string
	startedAt time.Time
	checks    map[string]HealthCheck
	logger    *slog.Logger
}

// NewHealthHandler creates a HealthHandler. checks maps a backend name
// ("postgres", "redis", "s3") to its probe; nil or empty is fine.
func NewHealthHandler(mode string, checks map[string]HealthCheck, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		mode:      mode,
		startedAt: time.Now().UTC(),
		checks:    checks,
		logger:    logger,
	}
}

// HealthCheck reports liveness and the state of each configured backend. Any
// failing probe turns the status to "degraded" with a 503.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.WarnContext(ctx, "handler: health probe failed",
				slog.String("backend", name),
				slog.String("error", err.Error()),
			)
			results[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":         status,
		"mode":           h.mode,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"checks":         results,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}
