// Package llm provides the text-generation boundary and the kingdom's eight
// generation tasks built on top of it.
package llm

import (
	"context"
	"fmt"

	"github.com/talgya/evolving-kingdom/internal/config"
)

// Request is one chat-style completion: a system instruction, a user
// instruction and a sampling temperature.
type Request struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int // 0 lets the backend decide
}

// Provider submits a completion to an external model.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// NewProvider builds the backend named in cfg.Provider.
func NewProvider(ctx context.Context, cfg config.Config) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model)
	case config.ProviderGemini:
		return NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
	case config.ProviderAnthropic:
		return NewAnthropicProvider(cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}
