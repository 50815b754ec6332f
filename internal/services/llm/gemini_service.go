package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/interfaces"
	"google.golang.org/genai"
)

// GeminiService implements the LLMService interface using Google Gemini.
type GeminiService struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	timeout time.Duration
}

// convertMessagesToGemini converts []interfaces.Message to Gemini Content
// format. System messages are extracted separately for SystemInstruction;
// the rest keep their chronological ordering.
func convertMessagesToGemini(messages []interfaces.Message) ([]*genai.Content, string, error) {
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

	contents := make([]*genai.Content, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		var geminiRole string
		switch msg.Role {
		case "assistant":
			geminiRole = genai.RoleModel
		default:
			geminiRole = genai.RoleUser
		}

		contents = append(contents, &genai.Content{
			Role:  geminiRole,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}

	return contents, systemText, nil
}

// NewGeminiService creates a new Gemini LLM service instance.
func NewGeminiService(geminiConfig *common.GeminiConfig, logger arbor.ILogger) (*GeminiService, error) {
	if geminiConfig.APIKey == "" {
		return nil, fmt.Errorf("Google API key is required for Gemini service (set via GEMINI_API_KEY or gemini.api_key in config)")
	}

	if geminiConfig.Model == "" {
		geminiConfig.Model = "gemini-2.0-flash"
	}

	timeout := common.ParseDurationOr(geminiConfig.Timeout, 120*time.Second)

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  geminiConfig.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiService{
		config:  geminiConfig,
		logger:  logger,
		client:  client,
		timeout: timeout,
	}

	logger.Debug().
		Str("model", geminiConfig.Model).
		Dur("timeout", timeout).
		Msg("Gemini LLM service initialized successfully")

	return service, nil
}

// Chat generates a completion response based on the conversation history.
// Transport-level failures are wrapped in interfaces.TransportError so the
// caller can retry; request-level failures are returned as-is.
func (s *GeminiService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty for chat completion")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Debug().
		Int("message_count", len(messages)).
		Msg("Starting Gemini chat completion")

	response, err := s.generateCompletion(timeoutCtx, messages)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("message_count", len(messages)).
			Msg("Gemini chat completion failed")
		if isGeminiTransportError(err) {
			return "", &interfaces.TransportError{Err: err}
		}
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	duration := time.Since(startTime)
	s.logger.Debug().
		Int("message_count", len(messages)).
		Int("response_length", len(response)).
		Dur("duration", duration).
		Msg("Gemini chat completion completed successfully")

	return response, nil
}

// Close releases resources and performs cleanup operations.
func (s *GeminiService) Close() error {
	s.logger.Debug().Msg("Closing Gemini LLM service")
	s.client = nil
	return nil
}

// isGeminiTransportError classifies failures that are safe to retry with the
// same request: server-side errors, rate limits, request timeouts, and
// network-level failures.
func isGeminiTransportError(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 500 ||
			apiErr.Code == 429 ||
			apiErr.Code == 408
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// generateCompletion encapsulates the Gemini chat completion call.
func (s *GeminiService) generateCompletion(ctx context.Context, messages []interfaces.Message) (string, error) {
	geminiContents, systemText, err := convertMessagesToGemini(messages)
	if err != nil {
		return "", fmt.Errorf("failed to convert messages to Gemini format: %w", err)
	}

	config := &genai.GenerateContentConfig{}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.config.Model, geminiContents, config)
	if err != nil {
		return "", err
	}

	var response strings.Builder
	if resp != nil && len(resp.Candidates) > 0 {
		for _, candidate := range resp.Candidates {
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					response.WriteString(part.Text)
				}
			}
			if response.Len() > 0 {
				break
			}
		}
	}

	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from chat model")
	}

	return response.String(), nil
}
