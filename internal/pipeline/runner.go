package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/extract"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
)

// Normalizer turns an uploaded file into a transcript.
type Normalizer interface {
	Normalize(ctx context.Context, filename string, data []byte) (*models.Transcript, error)
}

// Extractor produces the structured record for a transcript.
type Extractor interface {
	Extract(ctx context.Context, transcript *models.Transcript) (*extract.Result, error)
}

// Renderer populates the report template from a record.
type Renderer interface {
	Render(record *models.ExtractionRecord) ([]byte, error)
}

// Runner drives one job through the pipeline stages, advancing the registry
// state machine and persisting each stage's artifacts as it goes. Any stage
// error fails the job; a failed registry write is surfaced but cannot
// un-fail the stage.
type Runner struct {
	registry   interfaces.Registry
	normalizer Normalizer
	extractor  Extractor
	renderer   Renderer
	converter  interfaces.Converter

	normalizeTimeout time.Duration
	extractTimeout   time.Duration
	convertTimeout   time.Duration

	logger arbor.ILogger
}

// NewRunner assembles the pipeline from its stage collaborators.
func NewRunner(
	registry interfaces.Registry,
	normalizer Normalizer,
	extractor Extractor,
	renderer Renderer,
	converter interfaces.Converter,
	cfg common.PipelineConfig,
	logger arbor.ILogger,
) *Runner {
	return &Runner{
		registry:         registry,
		normalizer:       normalizer,
		extractor:        extractor,
		renderer:         renderer,
		converter:        converter,
		normalizeTimeout: common.ParseDurationOr(cfg.NormalizeTimeout, 15*time.Minute),
		extractTimeout:   common.ParseDurationOr(cfg.ExtractTimeout, 10*time.Minute),
		convertTimeout:   common.ParseDurationOr(cfg.ConvertTimeout, 5*time.Minute),
		logger:           logger,
	}
}

// Run executes the full pipeline for a freshly created job. The returned job
// reflects the terminal registry state. Run should be called with the
// application context, not a request context, so a dropped client cannot
// cancel a dispatched job.
func (r *Runner) Run(ctx context.Context, processID string, filename string, data []byte) (*models.Job, error) {
	start := time.Now()

	if err := r.execute(ctx, processID, filename, data); err != nil {
		if failErr := r.registry.Fail(ctx, processID, err); failErr != nil {
			r.logger.Error().
				Err(failErr).
				Str("process_id", processID).
				Msg("Failed to record job failure")
		}
		r.logger.Warn().
			Err(err).
			Str("process_id", processID).
			Dur("duration", time.Since(start)).
			Msg("Pipeline failed")
		return r.registry.Get(ctx, processID)
	}

	r.logger.Info().
		Str("process_id", processID).
		Dur("duration", time.Since(start)).
		Msg("Pipeline completed")

	return r.registry.Get(ctx, processID)
}

func (r *Runner) execute(ctx context.Context, processID, filename string, data []byte) error {
	// Normalize.
	if err := r.registry.Advance(ctx, processID, models.JobStateNormalizing); err != nil {
		return err
	}

	transcript, err := withTimeout(ctx, r.normalizeTimeout, func(stageCtx context.Context) (*models.Transcript, error) {
		return r.normalizer.Normalize(stageCtx, filename, data)
	})
	if err != nil {
		return fmt.Errorf("normalize: %w", err)
	}

	if err := r.registry.Advance(ctx, processID, models.JobStateExtracting,
		interfaces.Artifact{Kind: models.ArtifactTranscript, Data: []byte(transcript.Text)},
	); err != nil {
		return err
	}

	// Extract.
	result, err := withTimeout(ctx, r.extractTimeout, func(stageCtx context.Context) (*extract.Result, error) {
		return r.extractor.Extract(stageCtx, transcript)
	})
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	recordJSON, err := result.Record.MarshalIndent()
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	if err := r.registry.Advance(ctx, processID, models.JobStateRendering,
		interfaces.Artifact{Kind: models.ArtifactReasoning, Data: []byte(result.Reasoning)},
		interfaces.Artifact{Kind: models.ArtifactRecord, Data: recordJSON},
	); err != nil {
		return err
	}
	if err := r.registry.AddWarnings(ctx, processID, result.Record.Warnings); err != nil {
		return err
	}

	// Render.
	document, err := r.renderer.Render(result.Record)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if err := r.registry.Advance(ctx, processID, models.JobStateConverting,
		interfaces.Artifact{Kind: models.ArtifactDocument, Data: document},
	); err != nil {
		return err
	}

	// Convert.
	report, err := withTimeout(ctx, r.convertTimeout, func(stageCtx context.Context) ([]byte, error) {
		return r.converter.Convert(stageCtx, document)
	})
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}

	return r.registry.Advance(ctx, processID, models.JobStateDone,
		interfaces.Artifact{Kind: models.ArtifactReport, Data: report},
	)
}

// withTimeout bounds one stage. A zero timeout leaves the parent context
// unbounded.
func withTimeout[T any](ctx context.Context, timeout time.Duration, stage func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return stage(ctx)
	}
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return stage(stageCtx)
}
