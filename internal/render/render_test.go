package render

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/models"
)

func testSchema() *models.FieldSchema {
	return models.NewFieldSchema([]models.FieldDefinition{
		{Name: "Client Name"},
		{Name: "Meeting Date"},
		{Name: "Executive Summary"},
	})
}

// writeTemplate builds a minimal docx archive containing the given document
// body text and writes it to a temp file.
func writeTemplate(t *testing.T, body string) string {
	t.Helper()

	document := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body><w:p><w:r><w:t>` + body + `</w:t></w:r></w:p></w:body>
</w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		"[Content_Types].xml": `<?xml version="1.0"?><Types/>`,
		"word/document.xml":   document,
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "template.docx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

// documentOf extracts the document body XML from a rendered archive.
func documentOf(t *testing.T, data []byte) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(content)
	}
	t.Fatal("rendered archive has no word/document.xml")
	return ""
}

func TestLoadTemplate(t *testing.T) {
	path := writeTemplate(t, "Report for [Client Name] on [Meeting Date]. [Client Name] attended.")

	tpl, err := LoadTemplate(path, testSchema(), "Not Available", common.GetLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"Client Name", "Meeting Date"}, tpl.Placeholders())
}

func TestLoadTemplate_UnknownPlaceholder(t *testing.T) {
	path := writeTemplate(t, "Hello [Nonexistent Field]")

	_, err := LoadTemplate(path, testSchema(), "Not Available", common.GetLogger())
	assert.ErrorIs(t, err, models.ErrUnknownPlaceholder)
}

func TestLoadTemplate_NotAnArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.docx")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))

	_, err := LoadTemplate(path, testSchema(), "Not Available", common.GetLogger())
	assert.ErrorIs(t, err, models.ErrTemplateLoad)
}

func TestLoadTemplate_Missing(t *testing.T) {
	_, err := LoadTemplate(filepath.Join(t.TempDir(), "nope.docx"), testSchema(), "Not Available", common.GetLogger())
	assert.ErrorIs(t, err, models.ErrTemplateLoad)
}

func TestRender(t *testing.T) {
	path := writeTemplate(t, "Report for [Client Name] on [Meeting Date]. [Client Name] attended.")
	tpl, err := LoadTemplate(path, testSchema(), "Not Available", common.GetLogger())
	require.NoError(t, err)

	record := &models.ExtractionRecord{Fields: map[string]string{
		"Client Name":       "Avery & Sons",
		"Meeting Date":      "14-March-2025",
		"Executive Summary": models.NotFoundMarker,
	}}

	out, err := tpl.Render(record)
	require.NoError(t, err)

	document := documentOf(t, out)
	assert.Contains(t, document, "Report for Avery &amp; Sons on 14-March-2025.")
	// Every occurrence receives the value.
	assert.Equal(t, 2, strings.Count(document, "Avery &amp; Sons"))
	assert.NotContains(t, document, "[Client Name]")
	assert.NotContains(t, document, "[Meeting Date]")
}

func TestRender_NotFoundText(t *testing.T) {
	path := writeTemplate(t, "Summary: [Executive Summary]")
	tpl, err := LoadTemplate(path, testSchema(), "Not Available", common.GetLogger())
	require.NoError(t, err)

	record := &models.ExtractionRecord{Fields: map[string]string{
		"Executive Summary": models.NotFoundMarker,
	}}

	out, err := tpl.Render(record)
	require.NoError(t, err)
	assert.Contains(t, documentOf(t, out), "Summary: Not Available")
}

func TestRender_MultilineValue(t *testing.T) {
	path := writeTemplate(t, "Summary: [Executive Summary]")
	tpl, err := LoadTemplate(path, testSchema(), "", common.GetLogger())
	require.NoError(t, err)

	record := &models.ExtractionRecord{Fields: map[string]string{
		"Executive Summary": "First point.\nSecond point.",
	}}

	out, err := tpl.Render(record)
	require.NoError(t, err)
	assert.Contains(t, documentOf(t, out), "First point.</w:t><w:br/><w:t>Second point.")
}

func TestRender_ValueContainingPlaceholderTextIsLiteral(t *testing.T) {
	path := writeTemplate(t, "Name: [Client Name]. Date: [Meeting Date].")
	tpl, err := LoadTemplate(path, testSchema(), "Not Available", common.GetLogger())
	require.NoError(t, err)

	record := &models.ExtractionRecord{Fields: map[string]string{
		"Client Name":  "call me [Meeting Date]",
		"Meeting Date": "14-March-2025",
	}}

	out, err := tpl.Render(record)
	require.NoError(t, err)

	document := documentOf(t, out)
	assert.Contains(t, document, "Name: call me [Meeting Date]. Date: 14-March-2025.")
	assert.Equal(t, 1, strings.Count(document, "14-March-2025"))
}

func TestRender_Deterministic(t *testing.T) {
	path := writeTemplate(t, "Report for [Client Name].")
	tpl, err := LoadTemplate(path, testSchema(), "Not Available", common.GetLogger())
	require.NoError(t, err)

	record := &models.ExtractionRecord{Fields: map[string]string{
		"Client Name": "Jordan Avery",
	}}

	first, err := tpl.Render(record)
	require.NoError(t, err)
	second, err := tpl.Render(record)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
