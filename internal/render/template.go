package render

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/models"
)

const documentEntry = "word/document.xml"

// placeholderRe matches [Field Name] markers in the document body.
var placeholderRe = regexp.MustCompile(`\[([^\[\]]+)\]`)

// Template is a parsed report template: the original archive entries plus
// the placeholder names discovered in the document body. Loaded once at
// startup and shared read-only by all jobs.
type Template struct {
	entries      []templateEntry
	document     string
	placeholders []string
	notFoundText string
	logger       arbor.ILogger
}

type templateEntry struct {
	name string
	data []byte
}

// LoadTemplate reads and validates the template archive. Every placeholder
// in the document body must name a schema field; an unknown placeholder is
// fatal here rather than at render time, so a bad template can never produce
// a half-substituted report.
func LoadTemplate(path string, schema *models.FieldSchema, notFoundText string, logger arbor.ILogger) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrTemplateLoad, path, err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a valid docx archive: %v", models.ErrTemplateLoad, path, err)
	}

	t := &Template{notFoundText: notFoundText, logger: logger}

	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrTemplateLoad, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrTemplateLoad, err)
		}

		if f.Name == documentEntry {
			t.document = string(content)
		}
		t.entries = append(t.entries, templateEntry{name: f.Name, data: content})
	}

	if t.document == "" {
		return nil, fmt.Errorf("%w: %s has no %s", models.ErrTemplateLoad, path, documentEntry)
	}

	seen := make(map[string]bool)
	for _, m := range placeholderRe.FindAllStringSubmatch(t.document, -1) {
		name := m[1]
		if _, ok := schema.Lookup(name); !ok {
			return nil, fmt.Errorf("%w: [%s] has no field definition", models.ErrUnknownPlaceholder, name)
		}
		if !seen[name] {
			seen[name] = true
			t.placeholders = append(t.placeholders, name)
		}
	}

	logger.Info().
		Str("path", path).
		Int("placeholders", len(t.placeholders)).
		Msg("Report template loaded")

	return t, nil
}

// Placeholders returns the distinct placeholder names in discovery order.
func (t *Template) Placeholders() []string {
	return t.placeholders
}
