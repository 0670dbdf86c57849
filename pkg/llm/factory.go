package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// NewCompleter creates a Completer for the configured provider.
func NewCompleter(cfg *Config, logger *zap.Logger) (Completer, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIClient(cfg, logger)
	case "anthropic":
		return NewAnthropicClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Provider)
	}
}
