package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
	"golang.org/x/time/rate"
)

// Result carries the structured record together with the raw model output,
// which is persisted verbatim as the reasoning artifact.
type Result struct {
	Record    *models.ExtractionRecord
	Reasoning string
}

// Engine drives field extraction against the language-model collaborator.
// Transport failures are retried with doubling backoff; parsing and
// validation failures are deterministic for a given transcript and surface
// immediately.
type Engine struct {
	llm         interfaces.LLMService
	schema      *models.FieldSchema
	limiter     *rate.Limiter
	maxAttempts int
	backoff     time.Duration
	logger      arbor.ILogger
}

// NewEngine creates an extraction engine. A requests-per-minute setting of
// zero disables pacing.
func NewEngine(llm interfaces.LLMService, schema *models.FieldSchema, cfg common.ExtractionConfig, logger arbor.ILogger) *Engine {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}

	return &Engine{
		llm:         llm,
		schema:      schema,
		limiter:     limiter,
		maxAttempts: maxAttempts,
		backoff:     common.ParseDurationOr(cfg.RetryBackoff, 2*time.Second),
		logger:      logger,
	}
}

// Extract runs the full extraction for one transcript: prompt, model call,
// parse, constraint check. The returned record covers every schema field.
func (e *Engine) Extract(ctx context.Context, transcript *models.Transcript) (*Result, error) {
	messages := BuildMessages(e.schema, transcript)

	raw, err := e.chatWithRetry(ctx, messages)
	if err != nil {
		return nil, err
	}

	fields, warnings, err := ParseResponse(raw, e.schema)
	if err != nil {
		e.logger.Warn().
			Err(err).
			Int("response_length", len(raw)).
			Msg("Model output failed to parse")
		return nil, err
	}

	warnings = append(warnings, ApplyConstraints(fields, e.schema)...)
	for _, w := range warnings {
		e.logger.Warn().
			Str("field", w.Field).
			Str("reason", w.Message).
			Msg("Field value downgraded to not found")
	}

	e.logger.Info().
		Int("fields", len(fields)).
		Int("warnings", len(warnings)).
		Msg("Extraction completed")

	return &Result{
		Record:    &models.ExtractionRecord{Fields: fields, Warnings: warnings},
		Reasoning: raw,
	}, nil
}

// chatWithRetry calls the model, retrying only on transport-level failures.
// Backoff doubles per attempt.
func (e *Engine) chatWithRetry(ctx context.Context, messages []interfaces.Message) (string, error) {
	backoff := e.backoff

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		raw, err := e.llm.Chat(ctx, messages)
		if err == nil {
			return raw, nil
		}

		var transportErr *interfaces.TransportError
		if !errors.As(err, &transportErr) {
			return "", err
		}

		lastErr = err
		e.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", e.maxAttempts).
			Msg("Model transport failure")

		if attempt == e.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return "", fmt.Errorf("extraction failed after %d attempts: %w", e.maxAttempts, lastErr)
}
