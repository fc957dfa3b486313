package factory

import (
	"context"
	"fmt"

	"blueprint-research-be/pkg/llm"
	"blueprint-research-be/pkg/llm/anthropic"
	"blueprint-research-be/pkg/llm/gemini"
	"blueprint-research-be/pkg/llm/ollama"
	"blueprint-research-be/pkg/llm/openai"
)

// Credentials carries the per-vendor settings needed to build providers.
type Credentials struct {
	GeminiAPIKey    string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaBaseURL   string
}

// NewLLMProvider builds the provider for an id like "gemini/gemini-2.5-flash".
// A vendor with no configured key yields a provider that always fails, so the
// chain moves past it without being rate-limit cooled.
func NewLLMProvider(ctx context.Context, providerID string, creds Credentials) (llm.LLMProvider, error) {
	vendor, model := llm.SplitProviderID(providerID)
	switch vendor {
	case "gemini":
		if creds.GeminiAPIKey == "" {
			return unavailable(providerID, "GEMINI_API_KEY"), nil
		}
		return gemini.NewGeminiProvider(ctx, creds.GeminiAPIKey, model)
	case "openai":
		if creds.OpenAIAPIKey == "" {
			return unavailable(providerID, "OPENAI_API_KEY"), nil
		}
		return openai.NewOpenAIProvider(creds.OpenAIAPIKey, "", model, nil), nil
	case "anthropic":
		if creds.AnthropicAPIKey == "" {
			return unavailable(providerID, "ANTHROPIC_API_KEY"), nil
		}
		return anthropic.NewAnthropicProvider(creds.AnthropicAPIKey, "", model, nil), nil
	case "ollama":
		return ollama.NewOllamaProvider(creds.OllamaBaseURL, model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerID)
	}
}

// NewChain builds providers for every id, keyed by id.
func NewChain(ctx context.Context, ids []string, creds Credentials) (map[string]llm.LLMProvider, error) {
	out := make(map[string]llm.LLMProvider, len(ids))
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		p, err := NewLLMProvider(ctx, id, creds)
		if err != nil {
			return nil, err
		}
		out[id] = p
	}
	return out, nil
}

type unavailableProvider struct {
	id     string
	envVar string
}

func unavailable(id, envVar string) llm.LLMProvider {
	return &unavailableProvider{id: id, envVar: envVar}
}

func (u *unavailableProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "", fmt.Errorf("provider %s is not configured: %s is empty", u.id, u.envVar)
}

func (u *unavailableProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return u.Chat(ctx, nil, options...)
}
