package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/interfaces"
	"google.golang.org/genai"
)

func testConfig() *common.Config {
	cfg := common.DefaultConfig()
	cfg.Claude.APIKey = "test-anthropic-key"
	cfg.Gemini.APIKey = "test-gemini-key"
	return cfg
}

func TestNewLLMService_Claude(t *testing.T) {
	cfg := testConfig()
	cfg.Extraction.Provider = "claude"

	svc, err := NewLLMService(cfg, common.GetLogger())
	require.NoError(t, err)
	assert.IsType(t, &ClaudeService{}, svc)
	assert.NoError(t, svc.Close())
}

func TestNewLLMService_Gemini(t *testing.T) {
	cfg := testConfig()
	cfg.Extraction.Provider = "gemini"

	svc, err := NewLLMService(cfg, common.GetLogger())
	require.NoError(t, err)
	assert.IsType(t, &GeminiService{}, svc)
	assert.NoError(t, svc.Close())
}

func TestNewLLMService_UnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.Extraction.Provider = "gpt"

	_, err := NewLLMService(cfg, common.GetLogger())
	assert.ErrorContains(t, err, "unsupported LLM provider")
}

func TestNewLLMService_MissingKey(t *testing.T) {
	cfg := testConfig()
	cfg.Extraction.Provider = "claude"
	cfg.Claude.APIKey = ""

	_, err := NewLLMService(cfg, common.GetLogger())
	assert.ErrorContains(t, err, "API key is required")
}

func TestConvertMessagesToClaude(t *testing.T) {
	messages := []interfaces.Message{
		{Role: "system", Content: "You extract fields."},
		{Role: "user", Content: "Here is the transcript."},
		{Role: "assistant", Content: "Understood."},
		{Role: "user", Content: "Extract now."},
	}

	converted, system, err := convertMessagesToClaude(messages)
	require.NoError(t, err)
	assert.Equal(t, "You extract fields.", system)
	assert.Len(t, converted, 3)
}

func TestConvertMessagesToClaude_NoUser(t *testing.T) {
	_, _, err := convertMessagesToClaude([]interfaces.Message{
		{Role: "system", Content: "only system"},
	})
	assert.Error(t, err)
}

func TestConvertMessagesToGemini(t *testing.T) {
	messages := []interfaces.Message{
		{Role: "system", Content: "You extract fields."},
		{Role: "user", Content: "Here is the transcript."},
		{Role: "assistant", Content: "Understood."},
	}

	converted, system, err := convertMessagesToGemini(messages)
	require.NoError(t, err)
	assert.Equal(t, "You extract fields.", system)
	require.Len(t, converted, 2)
	assert.Equal(t, genai.RoleUser, converted[0].Role)
	assert.Equal(t, genai.RoleModel, converted[1].Role)
}

func TestIsClaudeTransportError(t *testing.T) {
	assert.True(t, isClaudeTransportError(&anthropic.Error{StatusCode: 503}))
	assert.True(t, isClaudeTransportError(&anthropic.Error{StatusCode: 429}))
	assert.True(t, isClaudeTransportError(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.False(t, isClaudeTransportError(&anthropic.Error{StatusCode: 401}))
	assert.False(t, isClaudeTransportError(errors.New("bad prompt")))
}

func TestIsGeminiTransportError(t *testing.T) {
	assert.True(t, isGeminiTransportError(genai.APIError{Code: 500}))
	assert.True(t, isGeminiTransportError(genai.APIError{Code: 429}))
	assert.False(t, isGeminiTransportError(genai.APIError{Code: 400}))
	assert.False(t, isGeminiTransportError(errors.New("bad prompt")))
}
