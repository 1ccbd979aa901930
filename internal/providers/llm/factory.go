package llm

import (
	"context"
	"fmt"
	"strings"
)

const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderVertex = "vertex"

	GroqBaseURL      = "https://api.groq.com/openai/v1"
	DefaultGroqModel = "meta-llama/llama-4-scout-17b-16e-instruct"
)

// Factory creates providers from config. Per-user keys only apply to the
// OpenAI-compatible backends.
type Factory struct {
	Provider       string
	APIKey         string
	BaseURL        string
	Model          string
	VertexProject  string
	VertexLocation string
}

func (f *Factory) New(ctx context.Context) (Provider, error) {
	return f.create(ctx, f.APIKey)
}

// ForKey is New with the API key replaced, falling back to the configured
// one when key is blank.
func (f *Factory) ForKey(ctx context.Context, key string) (Provider, error) {
	if strings.TrimSpace(key) == "" {
		key = f.APIKey
	}
	return f.create(ctx, key)
}

func (f *Factory) create(ctx context.Context, key string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(f.Provider)) {
	case "", ProviderGroq:
		base := f.BaseURL
		if base == "" {
			base = GroqBaseURL
		}
		model := f.Model
		if model == "" {
			model = DefaultGroqModel
		}
		if key == "" {
			return nil, fmt.Errorf("groq: api key not configured")
		}
		return NewOpenAICompatible(key, base, model), nil
	case ProviderOpenAI:
		if key == "" {
			return nil, fmt.Errorf("openai: api key not configured")
		}
		return NewOpenAICompatible(key, f.BaseURL, f.Model), nil
	case ProviderVertex:
		return NewVertexGemini(ctx, f.VertexProject, f.VertexLocation, f.Model)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", f.Provider)
	}
}
