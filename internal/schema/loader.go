package schema

import (
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/models"
	"github.com/xuri/excelize/v2"
)

// Loader reads the extraction rules workbook into a field schema. The
// workbook is tabular: one row per field with name, instruction, and an
// optional constraint column.
type Loader struct {
	logger arbor.ILogger
}

// NewLoader creates a schema loader.
func NewLoader(logger arbor.ILogger) *Loader {
	return &Loader{logger: logger}
}

// Load parses the workbook at path. The schema is loaded once at startup;
// any error here is fatal to the process. A workbook that parses but
// declares zero fields is also an error.
func (l *Loader) Load(path, sheet string) (*models.FieldSchema, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules workbook %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %q has no field rows", sheet)
	}

	nameCol, instrCol, constraintCol, err := headerColumns(rows[0])
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}

	seen := make(map[string]bool)
	var fields []models.FieldDefinition
	for i, row := range rows[1:] {
		name := cell(row, nameCol)
		if name == "" {
			continue
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate field %q at row %d", name, i+2)
		}
		seen[name] = true

		constraint, err := parseConstraint(cell(row, constraintCol))
		if err != nil {
			return nil, fmt.Errorf("field %q at row %d: %w", name, i+2, err)
		}

		fields = append(fields, models.FieldDefinition{
			Name:        name,
			Instruction: cell(row, instrCol),
			Constraint:  constraint,
		})
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("sheet %q declares zero fields", sheet)
	}

	l.logger.Info().
		Str("path", path).
		Str("sheet", sheet).
		Int("fields", len(fields)).
		Msg("Field schema loaded")

	return models.NewFieldSchema(fields), nil
}

// headerColumns resolves column indexes from the header row. The field name
// column is mandatory; instruction and constraint columns are optional.
func headerColumns(header []string) (nameCol, instrCol, constraintCol int, err error) {
	nameCol, instrCol, constraintCol = -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "field", "field name", "name":
			nameCol = i
		case "description", "instruction":
			instrCol = i
		case "constraint", "rule", "format":
			constraintCol = i
		}
	}
	if nameCol < 0 {
		return 0, 0, 0, fmt.Errorf("header row has no field name column")
	}
	return nameCol, instrCol, constraintCol, nil
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// dateTokens maps workbook date-format tokens onto Go reference-time layout
// elements. Longer tokens are replaced first.
var dateTokens = [][2]string{
	{"YYYY", "2006"},
	{"Month", "January"},
	{"Mon", "Jan"},
	{"MM", "01"},
	{"DD", "02"},
	{"YY", "06"},
}

// parseConstraint interprets the constraint cell. Supported forms:
//
//	(empty)                         no constraint
//	enum: value | value | value    enumeration of allowed values
//	date: DD-Month-YYYY            date format (workbook tokens)
func parseConstraint(raw string) (models.FieldConstraint, error) {
	if raw == "" {
		return models.FieldConstraint{}, nil
	}

	kind, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return models.FieldConstraint{}, fmt.Errorf("malformed constraint %q", raw)
	}
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "enum":
		var values []string
		for _, v := range strings.Split(rest, "|") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return models.FieldConstraint{}, fmt.Errorf("enum constraint %q has no values", raw)
		}
		return models.FieldConstraint{Kind: models.ConstraintEnum, Enum: values}, nil

	case "date":
		if rest == "" {
			return models.FieldConstraint{}, fmt.Errorf("date constraint %q has no format", raw)
		}
		layout := rest
		for _, tok := range dateTokens {
			layout = strings.ReplaceAll(layout, tok[0], tok[1])
		}
		return models.FieldConstraint{Kind: models.ConstraintDate, DateFormat: layout}, nil

	default:
		return models.FieldConstraint{}, fmt.Errorf("unknown constraint kind %q", kind)
	}
}
