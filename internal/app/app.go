package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/convert"
	"github.com/ternarybob/scribo/internal/extract"
	"github.com/ternarybob/scribo/internal/handlers"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
	"github.com/ternarybob/scribo/internal/normalize"
	"github.com/ternarybob/scribo/internal/pipeline"
	"github.com/ternarybob/scribo/internal/registry"
	"github.com/ternarybob/scribo/internal/render"
	"github.com/ternarybob/scribo/internal/schema"
	"github.com/ternarybob/scribo/internal/services/llm"
	"github.com/ternarybob/scribo/internal/transcribe"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	ctx       context.Context
	cancelCtx context.CancelFunc

	// Pipeline components
	Registry   interfaces.Registry
	Schema     *models.FieldSchema
	Template   *render.Template
	LLMService interfaces.LLMService
	Runner     *pipeline.Runner

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	ProcessHandler  *handlers.ProcessHandler
	StatusHandler   *handlers.StatusHandler
	DownloadHandler *handlers.DownloadHandler
}

// New initializes the application with all dependencies. The field schema
// and report template are loaded here: a missing or malformed rules workbook
// or template is fatal, since the process could never serve a valid job.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}
	a.ctx, a.cancelCtx = context.WithCancel(context.Background())

	fieldSchema, err := schema.NewLoader(logger).Load(cfg.Schema.Path, cfg.Schema.Sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to load field schema: %w", err)
	}
	a.Schema = fieldSchema

	template, err := render.LoadTemplate(cfg.Template.Path, fieldSchema, cfg.Template.NotFoundText, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load report template: %w", err)
	}
	a.Template = template

	reg, err := registry.NewBadgerRegistry(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize job registry: %w", err)
	}
	a.Registry = reg

	llmService, err := llm.NewLLMService(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM service: %w", err)
	}
	a.LLMService = llmService

	// The transcriber is optional: without credentials, audio jobs fail at
	// normalize time while transcript uploads keep working.
	var transcriber interfaces.Transcriber
	if cfg.Transcription.APIKey != "" {
		transcriber = transcribe.NewAssemblyAIClient(cfg.Transcription, logger)
	} else {
		logger.Warn().Msg("No transcription API key configured; audio uploads will be rejected")
	}

	converter, err := convert.NewConverter(cfg.Converter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize converter: %w", err)
	}

	a.Runner = pipeline.NewRunner(
		a.Registry,
		normalize.NewService(transcriber, logger),
		extract.NewEngine(llmService, fieldSchema, cfg.Extraction, logger),
		template,
		converter,
		cfg.Pipeline,
		logger,
	)

	a.APIHandler = handlers.NewAPIHandler()
	a.ProcessHandler = handlers.NewProcessHandler(a.Registry, a.Runner, a.ctx, logger)
	a.StatusHandler = handlers.NewStatusHandler(a.Registry, logger)
	a.DownloadHandler = handlers.NewDownloadHandler(a.Registry, logger)

	logger.Info().
		Int("schema_fields", fieldSchema.Len()).
		Int("template_placeholders", len(template.Placeholders())).
		Str("provider", cfg.Extraction.Provider).
		Str("converter", cfg.Converter.Engine).
		Msg("Application initialized")

	return a, nil
}

// Close releases application resources in reverse initialization order.
func (a *App) Close() error {
	a.cancelCtx()

	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}
	if a.Registry != nil {
		if err := a.Registry.Close(); err != nil {
			return fmt.Errorf("failed to close registry: %w", err)
		}
	}
	return nil
}
