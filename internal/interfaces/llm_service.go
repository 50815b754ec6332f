package interfaces

import "context"

// Message represents a single message in a model conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// LLMService abstracts the language-model collaborator used by the
// extraction engine. Implementations wrap transport-level failures
// (timeouts, 5xx responses) in TransportError so callers can apply a
// provider-agnostic retry policy.
type LLMService interface {
	// Chat generates a completion for the conversation history.
	Chat(ctx context.Context, messages []Message) (string, error)

	// Close releases provider resources.
	Close() error
}

// TransportError marks an LLM failure as transport-level (timeout, 5xx,
// rate limit) and therefore safe to retry with the same request.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "llm transport failure: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
