package llm

import (
	"context"
)

// Role identifies the author of a chat message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single role/content pair in an ordered conversation
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is an opaque text-in/text-out generation request against one backend
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Usage reports token consumption as returned by the backend, zero when the
// backend omits it
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the extracted result of a generation request. Raw holds the
// unparsed backend payload for callers that need more than the content text.
type Response struct {
	Content string `json:"content"`
	Raw     string `json:"-"`
	Usage   Usage  `json:"usage"`
}

// Client is the remote-call abstraction for a single text-generation backend.
// Implementations classify every failure as either retryable or fatal (see
// RetryableError and FatalError) so the caller can decide whether to rotate
// to another backend.
type Client interface {
	ChatCompletion(ctx context.Context, req Request) (*Response, error)
}
