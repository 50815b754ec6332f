package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
)

// StatusHandler answers job status queries.
type StatusHandler struct {
	registry interfaces.Registry
	logger   arbor.ILogger
}

// NewStatusHandler creates the status endpoint handler.
func NewStatusHandler(registry interfaces.Registry, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{registry: registry, logger: logger}
}

// StatusHandler handles GET /status/{process_id}.
func (h *StatusHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	processID := r.PathValue("process_id")
	job, err := h.registry.Get(r.Context(), processID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "unknown process id: "+processID)
			return
		}
		h.logger.Error().Err(err).Str("process_id", processID).Msg("Failed to load job")
		WriteError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	response := map[string]interface{}{
		"process_id": job.ProcessID,
		"state":      job.State,
		"created_at": job.CreatedAt,
	}
	if job.Error != "" {
		response["error"] = job.Error
	}
	if len(job.Warnings) > 0 {
		response["warnings"] = job.Warnings
	}

	WriteJSON(w, http.StatusOK, response)
}
