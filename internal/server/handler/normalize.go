package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/marketnorm/internal/domain"
	"github.com/alanyoungcy/marketnorm/internal/normalize"
)

// NormalizeService normalizes uploaded snapshots and lists past runs.
type NormalizeService interface {
	Normalize(ctx context.Context, r io.Reader, variant string) (normalize.Result, error)
	ListRuns(ctx context.Context, opts domain.ListOpts) ([]domain.RunRecord, error)
}

// NormalizeHandler serves on-demand normalization and run history.
type NormalizeHandler struct {
	svc      NormalizeService
	maxBytes int64
	logger   *slog.Logger
}

// NewNormalizeHandler creates a NormalizeHandler. Request bodies larger than
// maxBodyMB megabytes are rejected with 413.
func NewNormalizeHandler(svc NormalizeService, maxBodyMB int, logger *slog.Logger) *NormalizeHandler {
	if maxBodyMB <= 0 {
		maxBodyMB = 64
	}
	return &NormalizeHandler{
		svc:      svc,
		maxBytes: int64(maxBodyMB) << 20,
		logger:   logger,
	}
}

// Normalize runs the requested variant over the snapshot in the request body
// and responds with the batch.
// POST /api/normalize?variant=rich|simple
func (h *NormalizeHandler) Normalize(w http.ResponseWriter, r *http.Request) {
	variant := r.URL.Query().Get("variant")
	if variant == "" {
		variant = domain.VariantRich
	}

	body := http.MaxBytesReader(w, r.Body, h.maxBytes)
	defer body.Close()

	result, err := h.svc.Normalize(r.Context(), body, variant)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "snapshot exceeds the request size limit")
		case errors.Is(err, domain.ErrUnknownVariant):
			writeError(w, http.StatusBadRequest, "variant must be rich or simple")
		case errors.Is(err, domain.ErrMalformedBatch):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.ErrorContext(r.Context(), "handler: normalize failed",
				slog.String("variant", variant),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to normalize snapshot")
		}
		return
	}

	writeJSON(w, http.StatusOK, result.Payload())
}

// listRunsResponse wraps the run history with its pagination.
type listRunsResponse struct {
	Runs   []domain.RunRecord `json:"runs"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

// ListRuns returns recent normalization runs with their batch statistics.
// since and until are optional RFC 3339 bounds on the run start time.
// GET /api/runs?limit=50&offset=0&since=2025-01-01T00:00:00Z
func (h *NormalizeHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	var err error
	if opts.Since, err = queryTime(r.URL.Query(), "since"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if opts.Until, err = queryTime(r.URL.Query(), "until"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runs, err := h.svc.ListRuns(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list runs failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	writeJSON(w, http.StatusOK, listRunsResponse{
		Runs:   runs,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}
