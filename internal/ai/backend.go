package ai

import (
	"context"
	"fmt"
)

// MessageRole is the speaker of a chat message.
type MessageRole string

const (
	MessageUser      MessageRole = "user"
	MessageAssistant MessageRole = "assistant"
)

// Message is one entry in a chat transcript.
type Message struct {
	Role    MessageRole
	Content string
}

// CompletionRequest is a single chat completion call.
type CompletionRequest struct {
	Model       string
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Completion is the text a backend produced plus its token usage.
type Completion struct {
	Text         string
	InputTokens  int64
	OutputTokens int64
}

// Model describes one model a backend can serve.
type Model struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// Backend is a chat-completion provider.
type Backend interface {
	// Name identifies the provider, e.g. "ollama"
	Name() string

	// URL is the endpoint the backend talks to, for health reports
	URL() string

	// Complete runs one chat completion
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)

	// ListModels returns the models the provider can serve
	ListModels(ctx context.Context) ([]Model, error)
}

// StatusError is an HTTP-level failure returned by a backend.
type StatusError struct {
	Backend    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Backend, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Backend, e.StatusCode, e.Body)
}
