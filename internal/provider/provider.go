package provider

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var ErrMissingAPIKey = errors.New("API key is required")

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one model call. System carries the system instruction and is
// kept apart from Messages because every vendor places it differently.
type Request struct {
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Response represents the output from the model.
type Response struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StreamFunc receives text deltas as they arrive. Returning an error aborts
// the stream.
type StreamFunc func(delta string) error

// Provider defines the interface for AI model interactions.
type Provider interface {
	// Chat sends the request and waits for the complete response.
	Chat(ctx context.Context, req Request) (*Response, error)

	// Stream sends the request and delivers the reply incrementally. The
	// returned response holds the accumulated text.
	Stream(ctx context.Context, req Request, fn StreamFunc) (*Response, error)

	// Name returns the provider identifier (e.g., "gemini", "openai").
	Name() string
}

func lastUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
