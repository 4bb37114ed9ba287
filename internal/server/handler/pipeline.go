package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// PipelineHandler queues on-demand runs for the pipeline loop.
type PipelineHandler struct {
	logger  *slog.Logger
	trigger chan<- struct{}
	now     func() time.Time
}

type triggerResponse struct {
	Status   string `json:"status"`
	QueuedAt string `json:"queued_at"`
}

// NewPipelineHandler creates a PipelineHandler with no run loop attached.
func NewPipelineHandler(logger *slog.Logger) *PipelineHandler {
	return &PipelineHandler{logger: logger, now: time.Now}
}

// WithTriggerChannel attaches the run loop's trigger channel. The channel
// should be buffered with capacity one; a full buffer means a run is pending.
func (h *PipelineHandler) WithTriggerChannel(ch chan<- struct{}) *PipelineHandler {
	h.trigger = ch
	return h
}

// TriggerPipeline queues one normalization run: 202 when queued, 409 when a
// run is already pending, 503 when no run loop is attached.
// POST /api/pipeline/trigger
func (h *PipelineHandler) TriggerPipeline(w http.ResponseWriter, r *http.Request) {
	if h.trigger == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline runner is not enabled")
		return
	}

	select {
	case h.trigger <- struct{}{}:
	default:
		h.logger.InfoContext(r.Context(), "handler: pipeline trigger rejected, run pending")
		writeError(w, http.StatusConflict, "a pipeline run is already pending")
		return
	}

	queuedAt := h.now().UTC().Format(time.RFC3339)
	h.logger.InfoContext(r.Context(), "handler: pipeline run queued", slog.String("queued_at", queuedAt))
	writeJSON(w, http.StatusAccepted, triggerResponse{Status: "queued", QueuedAt: queuedAt})
}
