package llm

import (
	"context"
)

// MockCompleter is a configurable mock for testing completion consumers.
// Set the function field to control behavior in tests.
type MockCompleter struct {
	// CompleteFunc is called when Complete is invoked.
	// If nil, returns empty string and nil error.
	CompleteFunc func(ctx context.Context, systemPrompt string, userPrompt string) (string, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Endpoint is returned by GetEndpoint. Defaults to "http://mock-endpoint".
	Endpoint string

	// Call tracking for verification
	CompleteCalls int
	// Prompts records the user prompt of each call, in order.
	Prompts []string
}

// NewMockCompleter creates a new mock with sensible defaults.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{
		Model:    "mock-model",
		Endpoint: "http://mock-endpoint",
	}
}

// Complete implements Completer.
func (m *MockCompleter) Complete(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	m.CompleteCalls++
	m.Prompts = append(m.Prompts, userPrompt)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, systemPrompt, userPrompt)
	}
	return "", nil
}

// GetModel implements Completer.
func (m *MockCompleter) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// GetEndpoint implements Completer.
func (m *MockCompleter) GetEndpoint() string {
	if m.Endpoint == "" {
		return "http://mock-endpoint"
	}
	return m.Endpoint
}

// Reset clears call tracking.
func (m *MockCompleter) Reset() {
	m.CompleteCalls = 0
	m.Prompts = nil
}

// Ensure MockCompleter implements Completer at compile time.
var _ Completer = (*MockCompleter)(nil)
