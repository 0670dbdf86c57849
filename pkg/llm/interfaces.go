// Package llm provides completion gateway clients for OpenAI-compatible
// and Anthropic endpoints.
package llm

import (
	"context"
)

// Completer defines the interface for text completion operations.
// Use this interface for dependency injection to enable mocking in tests.
type Completer interface {
	// Complete generates a completion for the given system and user prompts.
	// Returns the raw text response from the model.
	Complete(ctx context.Context, systemPrompt string, userPrompt string) (string, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// Ensure clients implement Completer at compile time.
var (
	_ Completer = (*OpenAIClient)(nil)
	_ Completer = (*AnthropicClient)(nil)
)
