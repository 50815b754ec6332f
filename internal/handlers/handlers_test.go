package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/convert"
	"github.com/ternarybob/scribo/internal/extract"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
	"github.com/ternarybob/scribo/internal/normalize"
	"github.com/ternarybob/scribo/internal/pipeline"
	"github.com/ternarybob/scribo/internal/registry"
	"github.com/ternarybob/scribo/internal/render"
)

// fakeLLM returns a canned response for every chat call.
type fakeLLM struct {
	response string
}

func (f *fakeLLM) Chat(_ context.Context, _ []interfaces.Message) (string, error) {
	return f.response, nil
}

func (f *fakeLLM) Close() error { return nil }

const extractionResponse = `<<FIELD: Client Name>>
Jordan Avery
<<END>>
<<FIELD: Meeting Format>>
Phone
<<END>>`

type testEnv struct {
	mux      *http.ServeMux
	registry *registry.BadgerRegistry
}

// newTestEnv wires the full pipeline behind the HTTP surface with a fake
// model and the builtin converter.
func newTestEnv(t *testing.T, llm interfaces.LLMService) *testEnv {
	t.Helper()
	logger := common.GetLogger()
	dir := t.TempDir()

	reg, err := registry.NewBadgerRegistry(common.StorageConfig{
		Badger:    common.BadgerConfig{Path: filepath.Join(dir, "db")},
		Artifacts: common.ArtifactsConfig{Dir: filepath.Join(dir, "artifacts")},
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })

	schema := models.NewFieldSchema([]models.FieldDefinition{
		{Name: "Client Name", Instruction: "Full name of the client."},
		{Name: "Meeting Format", Constraint: models.FieldConstraint{
			Kind: models.ConstraintEnum, Enum: []string{"Face to Face", "Phone", "Video"},
		}},
	})

	templatePath := writeTestTemplate(t, dir, "Report for [Client Name] held via [Meeting Format].")
	tpl, err := render.LoadTemplate(templatePath, schema, "Not Available", logger)
	require.NoError(t, err)

	engine := extract.NewEngine(llm, schema, common.ExtractionConfig{
		Provider: "claude", MaxAttempts: 1, RetryBackoff: "1ms",
	}, logger)

	runner := pipeline.NewRunner(
		reg,
		normalize.NewService(nil, logger),
		engine,
		tpl,
		convert.NewBuiltinConverter(logger),
		common.PipelineConfig{},
		logger,
	)

	processHandler := NewProcessHandler(reg, runner, context.Background(), logger)
	statusHandler := NewStatusHandler(reg, logger)
	downloadHandler := NewDownloadHandler(reg, logger)
	apiHandler := NewAPIHandler()

	mux := http.NewServeMux()
	mux.HandleFunc("/process", processHandler.ProcessHandler)
	mux.HandleFunc("/status/{process_id}", statusHandler.StatusHandler)
	mux.HandleFunc("/download/{process_id}", downloadHandler.DownloadHandler)
	mux.HandleFunc("/api/health", apiHandler.HealthHandler)
	mux.HandleFunc("/api/version", apiHandler.VersionHandler)

	return &testEnv{mux: mux, registry: reg}
}

func writeTestTemplate(t *testing.T, dir, body string) string {
	t.Helper()
	document := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body><w:p><w:r><w:t>` + body + `</w:t></w:r></w:p></w:body>
</w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(document))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(dir, "template.docx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

// upload posts a multipart file to /process and returns the recorder.
func (e *testEnv) upload(t *testing.T, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/process", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestProcess_EndToEnd(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{response: extractionResponse})

	transcript := "Adviser: Good morning Jordan.\nClient: Morning, thanks for the call."
	rec := env.upload(t, "review_call.txt", []byte(transcript))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, transcript, body["transcript"])
	assert.Equal(t, float64(len(transcript)), body["transcript_length"])
	assert.Equal(t, "review_call_report.pdf", body["pdf_filename"])

	processID := body["process_id"].(string)
	assert.Equal(t, "/download/"+processID, body["download_url"])

	// Status reflects the terminal state.
	statusRec := env.get(t, "/status/"+processID)
	require.Equal(t, http.StatusOK, statusRec.Code)
	status := decodeBody(t, statusRec)
	assert.Equal(t, "done", status["state"])
	assert.NotContains(t, status, "error")

	// The report downloads as a PDF attachment.
	downloadRec := env.get(t, "/download/"+processID)
	require.Equal(t, http.StatusOK, downloadRec.Code)
	assert.Equal(t, "application/pdf", downloadRec.Header().Get("Content-Type"))
	assert.Contains(t, downloadRec.Header().Get("Content-Disposition"), "review_call_report.pdf")
	assert.True(t, bytes.HasPrefix(downloadRec.Body.Bytes(), []byte("%PDF")))
}

func TestProcess_UnsupportedExtension(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{response: extractionResponse})

	rec := env.upload(t, "slides.pptx", []byte("content"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "unsupported input type")
}

func TestProcess_MissingFileField(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{response: extractionResponse})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("other", "value"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/process", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcess_PipelineFailure(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{response: "this is not the expected grammar"})

	rec := env.upload(t, "meeting.txt", []byte("Adviser: Hello."))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["error"], "malformed extraction")

	// The failed job is still queryable but not downloadable.
	processID := body["process_id"].(string)
	statusRec := env.get(t, "/status/"+processID)
	require.Equal(t, http.StatusOK, statusRec.Code)
	assert.Equal(t, "failed", decodeBody(t, statusRec)["state"])

	downloadRec := env.get(t, "/download/"+processID)
	assert.Equal(t, http.StatusConflict, downloadRec.Code)
}

func TestStatus_Unknown(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{response: extractionResponse})

	rec := env.get(t, "/status/proc_nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownload_Unknown(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{response: extractionResponse})

	rec := env.get(t, "/download/proc_nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownload_NotDone(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{response: extractionResponse})

	job, err := env.registry.Create(context.Background(), "meeting.txt", models.SourceText)
	require.NoError(t, err)

	rec := env.get(t, "/download/"+job.ProcessID)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "created")
}

func TestHealthAndVersion(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{response: extractionResponse})

	rec := env.get(t, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])

	rec = env.get(t, "/api/version")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["version"])
}

func TestReportFileName(t *testing.T) {
	assert.Equal(t, "meeting_report.pdf", ReportFileName("meeting.txt"))
	assert.Equal(t, "call.recording_report.pdf", ReportFileName("call.recording.mp3"))
	assert.Equal(t, "report_report.pdf", ReportFileName(".txt"))
}
