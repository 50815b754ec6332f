package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
)

// DownloadHandler serves the finished report artifact.
type DownloadHandler struct {
	registry interfaces.Registry
	logger   arbor.ILogger
}

// NewDownloadHandler creates the download endpoint handler.
func NewDownloadHandler(registry interfaces.Registry, logger arbor.ILogger) *DownloadHandler {
	return &DownloadHandler{registry: registry, logger: logger}
}

// DownloadHandler handles GET /download/{process_id}. The report is only
// served for jobs in the done state; an in-flight or failed job answers 409.
func (h *DownloadHandler) DownloadHandler(w http.ResponseWriter, r *http.Request) {
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

	if job.State != models.JobStateDone {
		WriteError(w, http.StatusConflict,
			fmt.Sprintf("report not available: job is %s", job.State))
		return
	}

	report, err := h.registry.GetArtifact(r.Context(), processID, models.ArtifactReport)
	if err != nil {
		h.logger.Error().Err(err).Str("process_id", processID).Msg("Failed to read report artifact")
		WriteError(w, http.StatusInternalServerError, "failed to read report")
		return
	}

	w.Header().Set("Content-Type", models.ArtifactReport.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", ReportFileName(job.InputName)))
	w.Header().Set("Content-Length", strconv.Itoa(len(report)))
	w.Write(report)
}
