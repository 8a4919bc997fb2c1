package provider

import (
	"context"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type (
	ChatMessage struct {
		Role    Role   `json:"role"`
		Content string `json:"content"`
	}

	CompletionRequest struct {
		Model       string        `json:"model,omitempty"`
		System      string        `json:"system,omitempty"`
		Messages    []ChatMessage `json:"messages"`
		MaxTokens   int64         `json:"max_tokens,omitempty"`
		Temperature float64       `json:"temperature,omitempty"`
	}

	// ChatService is the text-completion boundary. Implementations wrap
	// provider errors in errors.ErrUnavailable or errors.ErrInvalidInput so
	// nodes can pick a fallback without knowing the provider.
	ChatService interface {
		Complete(ctx context.Context, req CompletionRequest) (string, error)

		// CompleteJSON forces a JSON-object response and unmarshals it into
		// out.
		CompleteJSON(ctx context.Context, req CompletionRequest, out any) error
	}

	// Embedder generates embeddings for texts.
	Embedder interface {
		Embed(ctx context.Context, texts ...string) ([][]float32, error)
	}
)
