package convert

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/models"
)

// LibreOfficeConverter renders docx to PDF by shelling out to the external
// LibreOffice binary. Any nonzero exit is fatal to the job: conversion
// failures indicate a corrupted intermediate document, not a transient
// condition.
type LibreOfficeConverter struct {
	binary  string
	timeout time.Duration
	logger  arbor.ILogger
}

// NewLibreOfficeConverter creates a converter around the configured binary.
func NewLibreOfficeConverter(cfg common.ConverterConfig, logger arbor.ILogger) *LibreOfficeConverter {
	binary := cfg.Binary
	if binary == "" {
		binary = "libreoffice"
	}
	return &LibreOfficeConverter{
		binary:  binary,
		timeout: common.ParseDurationOr(cfg.Timeout, 2*time.Minute),
		logger:  logger,
	}
}

// Convert writes the document to a scratch directory, runs the headless
// conversion, and returns the verified PDF bytes.
func (c *LibreOfficeConverter) Convert(ctx context.Context, document []byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "scribo-convert-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrConversion, err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "report.docx")
	if err := os.WriteFile(input, document, 0o644); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrConversion, err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(timeoutCtx, c.binary,
		"--headless", "--convert-to", "pdf", "--outdir", dir, input)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%w: %s exited: %v: %s",
			models.ErrConversion, c.binary, err, strings.TrimSpace(string(output)))
	}

	pdf, err := os.ReadFile(filepath.Join(dir, "report.pdf"))
	if err != nil {
		return nil, fmt.Errorf("%w: no output produced: %v", models.ErrConversion, err)
	}

	if err := verifyPDF(pdf); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("docx_bytes", len(document)).
		Int("pdf_bytes", len(pdf)).
		Msg("Document converted")

	return pdf, nil
}
