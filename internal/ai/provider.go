package ai

import (
	"context"
	"fmt"
)

// Provider is the narrow boundary to the text-generation service. Adapters
// own their provider-specific response shapes and the model-fallback retry,
// so callers only ever see prompt in, text out.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	Provider     string
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string
}

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY not set")
		}
		return NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	case "mock":
		return ProviderFunc(func(ctx context.Context, prompt string) (string, error) {
			return "{}", nil
		}), nil
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, prompt string) (string, error)

func (f ProviderFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
