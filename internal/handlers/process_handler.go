package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
	"github.com/ternarybob/scribo/internal/normalize"
	"github.com/ternarybob/scribo/internal/pipeline"
)

// maxUploadBytes bounds the multipart upload size (audio recordings are the
// largest expected input).
const maxUploadBytes = 256 << 20

// transcriptPreviewLimit caps the transcript echoed in the process response.
const transcriptPreviewLimit = 2000

// ProcessHandler accepts an upload and runs the pipeline to completion
// before responding. The pipeline runs on the application context so a
// dropped client connection cannot cancel a dispatched job.
type ProcessHandler struct {
	registry interfaces.Registry
	runner   *pipeline.Runner
	appCtx   context.Context
	logger   arbor.ILogger
}

// NewProcessHandler creates the process endpoint handler.
func NewProcessHandler(registry interfaces.Registry, runner *pipeline.Runner, appCtx context.Context, logger arbor.ILogger) *ProcessHandler {
	return &ProcessHandler{
		registry: registry,
		runner:   runner,
		appCtx:   appCtx,
		logger:   logger,
	}
}

// ProcessHandler handles POST /process: multipart field "file" in, report
// out. Unsupported extensions are rejected before any job is created.
func (h *ProcessHandler) ProcessHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid multipart request: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	kind, err := normalize.Classify(header.Filename)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read upload: "+err.Error())
		return
	}

	job, err := h.registry.Create(r.Context(), header.Filename, kind)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create job")
		WriteError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	final, err := h.runner.Run(h.appCtx, job.ProcessID, header.Filename, data)
	if err != nil {
		h.logger.Error().Err(err).Str("process_id", job.ProcessID).Msg("Failed to read job after pipeline")
		WriteError(w, http.StatusInternalServerError, "failed to read job state")
		return
	}

	if final.State != models.JobStateDone {
		WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"status":     "error",
			"process_id": final.ProcessID,
			"error":      final.Error,
		})
		return
	}

	preview, err := h.transcriptPreview(r.Context(), final.ProcessID)
	if err != nil {
		h.logger.Warn().Err(err).Str("process_id", final.ProcessID).Msg("Failed to read transcript artifact")
	}

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"status":            "success",
		"process_id":        final.ProcessID,
		"transcript":        preview,
		"transcript_length": final.TranscriptLength,
		"pdf_filename":      ReportFileName(final.InputName),
		"download_url":      "/download/" + final.ProcessID,
	})
}

func (h *ProcessHandler) transcriptPreview(ctx context.Context, processID string) (string, error) {
	data, err := h.registry.GetArtifact(ctx, processID, models.ArtifactTranscript)
	if err != nil {
		if errors.Is(err, models.ErrArtifactNotReady) {
			return "", nil
		}
		return "", err
	}
	return models.PreviewText(string(data), transcriptPreviewLimit), nil
}

// ReportFileName derives the served report name from the uploaded input
// name.
func ReportFileName(inputName string) string {
	stem := strings.TrimSuffix(inputName, filepath.Ext(inputName))
	if stem == "" {
		stem = "report"
	}
	return fmt.Sprintf("%s_report.pdf", stem)
}
