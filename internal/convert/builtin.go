package convert

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/models"
	"github.com/ternarybob/scribo/internal/normalize"
)

// BuiltinConverter renders the report text with fpdf for hosts without
// LibreOffice. Formatting is plain text only; the docx paragraphs are laid
// out top to bottom with automatic page breaks.
type BuiltinConverter struct {
	logger arbor.ILogger
}

// NewBuiltinConverter creates the fallback converter.
func NewBuiltinConverter(logger arbor.ILogger) *BuiltinConverter {
	return &BuiltinConverter{logger: logger}
}

// Convert extracts the document text and renders it as a PDF.
func (c *BuiltinConverter) Convert(ctx context.Context, document []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, err := normalize.ExtractDocumentText(document)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrConversion, err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 11)

	width, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	pdf.MultiCell(width-left-right, 6, text, "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrConversion, err)
	}

	out := buf.Bytes()
	if err := verifyPDF(out); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("docx_bytes", len(document)).
		Int("pdf_bytes", len(out)).
		Msg("Document converted with builtin engine")

	return out, nil
}
