package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/interfaces"
)

// NewLLMService creates the LLM service implementation selected by
// extraction.provider. Provider selection is a startup decision; a job never
// switches providers mid-flight.
func NewLLMService(cfg *common.Config, logger arbor.ILogger) (interfaces.LLMService, error) {
	logger.Info().Str("provider", cfg.Extraction.Provider).Msg("Initializing LLM service")

	switch cfg.Extraction.Provider {
	case "claude":
		return NewClaudeService(&cfg.Claude, logger)
	case "gemini":
		return NewGeminiService(&cfg.Gemini, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Extraction.Provider)
	}
}
