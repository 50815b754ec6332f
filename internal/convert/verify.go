package convert

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
)

// NewConverter creates the conversion engine selected by converter.engine.
func NewConverter(cfg common.ConverterConfig, logger arbor.ILogger) (interfaces.Converter, error) {
	switch cfg.Engine {
	case "libreoffice":
		return NewLibreOfficeConverter(cfg, logger), nil
	case "builtin":
		return NewBuiltinConverter(logger), nil
	default:
		return nil, fmt.Errorf("unsupported converter engine: %s", cfg.Engine)
	}
}

// verifyPDF confirms the engine output parses as a PDF with at least one
// page. Engines can exit zero and still emit garbage; downloads must never
// serve bytes that fail this check.
func verifyPDF(data []byte) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	count, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return fmt.Errorf("%w: output is not a readable pdf: %v", models.ErrConversion, err)
	}
	if count < 1 {
		return fmt.Errorf("%w: output has no pages", models.ErrConversion)
	}
	return nil
}
