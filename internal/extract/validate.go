package extract

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/scribo/internal/models"
)

var validate = validator.New()

// constraintTag translates a field constraint into a validator tag
// expression. Enum values are quoted so multi-word values survive the tag
// parameter split.
func constraintTag(c models.FieldConstraint) string {
	switch c.Kind {
	case models.ConstraintEnum:
		quoted := make([]string, len(c.Enum))
		for i, v := range c.Enum {
			quoted[i] = "'" + v + "'"
		}
		return "oneof=" + strings.Join(quoted, " ")
	case models.ConstraintDate:
		return "datetime=" + c.DateFormat
	default:
		return ""
	}
}

// ApplyConstraints checks every extracted value against its field constraint.
// A violation never fails the record: the value is downgraded to the
// not-found marker and a warning is recorded instead. Not-found values are
// exempt from validation.
func ApplyConstraints(fields map[string]string, schema *models.FieldSchema) []models.Warning {
	var warnings []models.Warning

	for _, f := range schema.Fields() {
		value := fields[f.Name]
		if value == models.NotFoundMarker {
			continue
		}

		tag := constraintTag(f.Constraint)
		if tag == "" {
			continue
		}

		if err := validate.Var(value, tag); err != nil {
			warnings = append(warnings, models.Warning{
				Field:   f.Name,
				Message: constraintViolation(f.Constraint, value),
			})
			fields[f.Name] = models.NotFoundMarker
		}
	}

	return warnings
}

func constraintViolation(c models.FieldConstraint, value string) string {
	switch c.Kind {
	case models.ConstraintEnum:
		return fmt.Sprintf("value %q is not one of: %s", value, strings.Join(c.Enum, ", "))
	case models.ConstraintDate:
		return fmt.Sprintf("value %q does not match date format %s", value, c.DateFormat)
	default:
		return fmt.Sprintf("value %q violates field constraint", value)
	}
}
