package models

// ConstraintKind classifies the optional value-domain constraint of a field.
type ConstraintKind string

const (
	ConstraintNone ConstraintKind = ""
	ConstraintEnum ConstraintKind = "enum"
	ConstraintDate ConstraintKind = "date"
)

// FieldConstraint restricts the value domain of an extracted field.
// Enum holds the allowed values for ConstraintEnum; DateFormat holds a Go
// reference-time layout for ConstraintDate.
type FieldConstraint struct {
	Kind       ConstraintKind `json:"kind"`
	Enum       []string       `json:"enum,omitempty"`
	DateFormat string         `json:"date_format,omitempty"`
}

// FieldDefinition is one entry of the field schema: a unique field name, the
// extraction instruction handed to the model, and an optional constraint.
type FieldDefinition struct {
	Name        string          `json:"name"`
	Instruction string          `json:"instruction"`
	Constraint  FieldConstraint `json:"constraint"`
}

// FieldSchema is the ordered, read-only collection of field definitions
// loaded once at startup and shared by all jobs without synchronization.
type FieldSchema struct {
	fields []FieldDefinition
	index  map[string]int
}

// NewFieldSchema builds a schema from ordered definitions. Callers (the
// loader) are responsible for rejecting duplicates beforehand.
func NewFieldSchema(fields []FieldDefinition) *FieldSchema {
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		index[f.Name] = i
	}
	return &FieldSchema{fields: fields, index: index}
}

// Fields returns the definitions in declaration order.
func (s *FieldSchema) Fields() []FieldDefinition {
	return s.fields
}

// Len returns the number of field definitions.
func (s *FieldSchema) Len() int {
	return len(s.fields)
}

// Lookup returns the definition for name.
func (s *FieldSchema) Lookup(name string) (FieldDefinition, bool) {
	i, ok := s.index[name]
	if !ok {
		return FieldDefinition{}, false
	}
	return s.fields[i], true
}
