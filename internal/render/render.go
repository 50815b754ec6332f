package render

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/scribo/internal/models"
)

// zipEpoch is the fixed modification time stamped on every archive entry so
// that rendering the same record twice produces byte-identical output.
var zipEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Render substitutes every placeholder occurrence with its extracted value
// and repacks the archive. Multiple occurrences of the same placeholder all
// receive the same value. Substitution is a single pass over the original
// document, so placeholder text arriving inside a field value is rendered
// literally rather than substituted again. Not-found values render as the
// configured default text.
func (t *Template) Render(record *models.ExtractionRecord) ([]byte, error) {
	document := placeholderRe.ReplaceAllStringFunc(t.document, func(match string) string {
		name := match[1 : len(match)-1]
		value, ok := record.Value(name)
		if !ok || value == models.NotFoundMarker {
			value = t.notFoundText
		}
		return escapeValue(value)
	})

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, entry := range t.entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     entry.name,
			Method:   zip.Deflate,
			Modified: zipEpoch,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to write archive entry %s: %w", entry.name, err)
		}

		data := entry.data
		if entry.name == documentEntry {
			data = []byte(document)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("failed to write archive entry %s: %w", entry.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	t.logger.Debug().
		Int("placeholders", len(t.placeholders)).
		Int("bytes", buf.Len()).
		Msg("Report document rendered")

	return buf.Bytes(), nil
}

// escapeValue makes an extracted value safe for the document XML. Newlines
// in narrative values become explicit line breaks.
func escapeValue(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '\n':
			b.WriteString("</w:t><w:br/><w:t>")
		case '\r':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
