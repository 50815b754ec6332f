package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/scribo/internal/models"
)

var (
	fieldOpenRe = regexp.MustCompile(`^<<\s*FIELD\s*:\s*(.+?)\s*>>$`)
	fieldEndRe  = regexp.MustCompile(`^<<\s*END\s*>>$`)
	codeFenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\n(.*?)\n?```$")
)

// stripCodeFences removes a single wrapping markdown code fence. Models
// sometimes fence the whole response despite instructions not to.
func stripCodeFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if m := codeFenceRe.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	return trimmed
}

// ParseResponse parses the model output into field values. Parsing is
// whitespace-lenient: a schema field the model omitted entirely is recorded
// as not found with a warning, since the transcript may simply never mention
// it. Structural violations (unrecognized fields, duplicates, stray text,
// unterminated blocks) are classified as models.ErrMalformedExtraction.
func ParseResponse(raw string, schema *models.FieldSchema) (map[string]string, []models.Warning, error) {
	fields := make(map[string]string, schema.Len())

	var (
		current string
		body    []string
		inBlock bool
	)

	for _, line := range strings.Split(stripCodeFences(raw), "\n") {
		trimmed := strings.TrimSpace(line)

		if m := fieldOpenRe.FindStringSubmatch(trimmed); m != nil {
			if inBlock {
				return nil, nil, fmt.Errorf("%w: field %q opened before %q was closed", models.ErrMalformedExtraction, m[1], current)
			}
			current = m[1]
			body = body[:0]
			inBlock = true
			continue
		}

		if fieldEndRe.MatchString(trimmed) {
			if !inBlock {
				return nil, nil, fmt.Errorf("%w: end marker outside a field block", models.ErrMalformedExtraction)
			}
			if _, dup := fields[current]; dup {
				return nil, nil, fmt.Errorf("%w: field %q appears more than once", models.ErrMalformedExtraction, current)
			}
			if _, known := schema.Lookup(current); !known {
				return nil, nil, fmt.Errorf("%w: unrecognized field %q", models.ErrMalformedExtraction, current)
			}
			fields[current] = strings.TrimSpace(strings.Join(body, "\n"))
			inBlock = false
			continue
		}

		if inBlock {
			body = append(body, line)
			continue
		}
		if trimmed != "" {
			return nil, nil, fmt.Errorf("%w: unexpected text outside field blocks: %q", models.ErrMalformedExtraction, trimmed)
		}
	}

	if inBlock {
		return nil, nil, fmt.Errorf("%w: field %q has no end marker", models.ErrMalformedExtraction, current)
	}

	// A field the model never answered is recorded as not found rather than
	// failing the job: the transcript may genuinely not mention it.
	var warnings []models.Warning
	for _, f := range schema.Fields() {
		if _, ok := fields[f.Name]; !ok {
			fields[f.Name] = models.NotFoundMarker
			warnings = append(warnings, models.Warning{
				Field:   f.Name,
				Message: "field missing from model output, recorded as not found",
			})
		}
	}

	// Empty bodies mean the model skipped the value line entirely.
	for name, value := range fields {
		if value == "" {
			fields[name] = models.NotFoundMarker
		}
	}

	return fields, warnings, nil
}
