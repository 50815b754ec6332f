package extract

import (
	"fmt"
	"strings"

	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
)

const systemPrompt = `You are an assistant that extracts structured facts from financial advisory meeting transcripts.

The transcript is a conversation between a financial adviser and one or more clients. Extract information about the CLIENT, not the adviser, unless a field explicitly asks about the adviser.

For every field listed in the request, output exactly one block in this form:

<<FIELD: field name>>
extracted value
<<END>>

Rules:
- Output one block per requested field, in any order, and nothing else.
- If the transcript does not contain the information for a field, the block body must be exactly NOT_FOUND.
- Never invent values. Never merge fields. Never add fields that were not requested.
- Values may span multiple lines when the field calls for narrative text.
- Do not wrap the output in markdown code fences.`

// BuildMessages assembles the extraction conversation: a fixed system prompt
// describing the output grammar plus a user message carrying the per-field
// instructions and the transcript.
func BuildMessages(schema *models.FieldSchema, transcript *models.Transcript) []interfaces.Message {
	var b strings.Builder

	b.WriteString("Extract the following fields from the transcript below.\n\nFields:\n")
	for _, f := range schema.Fields() {
		fmt.Fprintf(&b, "- %s", f.Name)
		if f.Instruction != "" {
			fmt.Fprintf(&b, ": %s", f.Instruction)
		}
		switch f.Constraint.Kind {
		case models.ConstraintEnum:
			fmt.Fprintf(&b, " (answer must be one of: %s)", strings.Join(f.Constraint.Enum, ", "))
		case models.ConstraintDate:
			fmt.Fprintf(&b, " (answer must be a date formatted like %s)", f.Constraint.DateFormat)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nTranscript:\n---\n")
	b.WriteString(transcript.Text)
	b.WriteString("\n---\n")

	return []interfaces.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: b.String()},
	}
}
