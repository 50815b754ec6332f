package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/interfaces"
)

// ClaudeService implements the LLMService interface using Anthropic Claude API.
type ClaudeService struct {
	config    *common.ClaudeConfig
	logger    arbor.ILogger
	client    *anthropic.Client
	timeout   time.Duration
	maxTokens int
}

// convertMessagesToClaude converts []interfaces.Message to Claude MessageParam
// format. System messages are extracted separately for the System parameter;
// the rest keep their chronological ordering.
func convertMessagesToClaude(messages []interfaces.Message) ([]anthropic.MessageParam, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	hasUserMessage := false
	for _, msg := range messages {
		if msg.Role == "user" {
			hasUserMessage = true
			break
		}
	}
	if !hasUserMessage {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}

	claudeMessages := make([]anthropic.MessageParam, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		switch msg.Role {
		case "assistant":
			claudeMessages = append(claudeMessages, anthropic.NewAssistantMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		default:
			claudeMessages = append(claudeMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		}
	}

	return claudeMessages, systemText, nil
}

// NewClaudeService creates a new Claude LLM service instance.
func NewClaudeService(claudeConfig *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeService, error) {
	if claudeConfig.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required for Claude service (set via ANTHROPIC_API_KEY or claude.api_key in config)")
	}

	if claudeConfig.Model == "" {
		claudeConfig.Model = "claude-sonnet-4-20250514"
	}

	timeout := common.ParseDurationOr(claudeConfig.Timeout, 120*time.Second)

	maxTokens := claudeConfig.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	client := anthropic.NewClient(
		option.WithAPIKey(claudeConfig.APIKey),
	)

	service := &ClaudeService{
		config:    claudeConfig,
		logger:    logger,
		client:    &client,
		timeout:   timeout,
		maxTokens: maxTokens,
	}

	logger.Debug().
		Str("model", claudeConfig.Model).
		Dur("timeout", timeout).
		Float32("temperature", claudeConfig.Temperature).
		Int("max_tokens", maxTokens).
		Msg("Claude LLM service initialized successfully")

	return service, nil
}

// Chat generates a completion response based on the conversation history.
// Transport-level failures are wrapped in interfaces.TransportError so the
// caller can retry; request-level failures (auth, bad input) are returned
// as-is.
func (s *ClaudeService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty for chat completion")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Debug().
		Int("message_count", len(messages)).
		Msg("Starting Claude chat completion")

	response, err := s.generateCompletion(timeoutCtx, messages)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("message_count", len(messages)).
			Msg("Claude chat completion failed")
		if isClaudeTransportError(err) {
			return "", &interfaces.TransportError{Err: err}
		}
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	duration := time.Since(startTime)
	s.logger.Debug().
		Int("message_count", len(messages)).
		Int("response_length", len(response)).
		Dur("duration", duration).
		Msg("Claude chat completion completed successfully")

	return response, nil
}

// Close releases resources and performs cleanup operations.
func (s *ClaudeService) Close() error {
	s.logger.Debug().Msg("Closing Claude LLM service")
	s.client = nil
	return nil
}

// isClaudeTransportError classifies failures that are safe to retry with the
// same request: server-side errors, rate limits, request timeouts, and
// network-level failures. Auth and validation failures are not retryable.
func isClaudeTransportError(err error) bool {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return apierr.StatusCode >= 500 ||
			apierr.StatusCode == 429 ||
			apierr.StatusCode == 408
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// generateCompletion encapsulates the Claude API chat completion call.
func (s *ClaudeService) generateCompletion(ctx context.Context, messages []interfaces.Message) (string, error) {
	claudeMessages, systemText, err := convertMessagesToClaude(messages)
	if err != nil {
		return "", fmt.Errorf("failed to convert messages to Claude format: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(s.maxTokens),
		Messages:  claudeMessages,
	}

	if s.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(s.config.Temperature))
	}

	if systemText != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemText},
		}
	}

	resp, err := s.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}

	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from Claude API")
	}

	return response.String(), nil
}
