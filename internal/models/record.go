package models

import "encoding/json"

// NotFoundMarker is the explicit value recorded for a field the model could
// not locate in the transcript.
const NotFoundMarker = "NOT_FOUND"

// ExtractionRecord maps every schema field name to its extracted value or
// NotFoundMarker. The key set always equals the schema's field name set.
type ExtractionRecord struct {
	Fields   map[string]string `json:"fields"`
	Warnings []Warning         `json:"warnings,omitempty"`
}

// Value returns the extracted value for a field name.
func (r *ExtractionRecord) Value(name string) (string, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// Found reports whether the field was extracted with a real value.
func (r *ExtractionRecord) Found(name string) bool {
	v, ok := r.Fields[name]
	return ok && v != NotFoundMarker
}

// MarshalIndent renders the record as the persisted record.json artifact.
func (r *ExtractionRecord) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
