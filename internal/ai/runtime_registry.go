package ai

import (
	"context"
	"sort"
	"time"

	"github.com/KaramelBytes/edaprompt-cli/internal/errs"
)

// RuntimeFactory builds a Runtime from the generic config below.
type RuntimeFactory func(ctx context.Context, cfg RuntimeConfig) (Runtime, error)

// RuntimeConfig carries common knobs used by runtimes.
type RuntimeConfig struct {
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// APIKey is the provider credential (unused by Ollama).
	APIKey string
	// BaseURL overrides the OpenAI-compatible endpoint root.
	BaseURL string
	// Host is the Ollama address.
	Host string
}

var registry = map[string]RuntimeFactory{}

// RegisterRuntime registers a provider name with its factory.
func RegisterRuntime(name string, f RuntimeFactory) { registry[name] = f }

// Providers lists registered provider names, sorted.
func Providers() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NewRuntime creates a Runtime for the given provider.
func NewRuntime(ctx context.Context, name string, cfg RuntimeConfig) (Runtime, error) {
	f, ok := registry[name]
	if !ok {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown provider %q (known: %v)", name, Providers())
	}
	return f(ctx, cfg)
}

func init() {
	openAICompatible := func(defaultURL string) RuntimeFactory {
		return func(_ context.Context, c RuntimeConfig) (Runtime, error) {
			base := c.BaseURL
			if base == "" {
				base = defaultURL
			}
			return NewClientWithBaseURL(c.APIKey, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay, base), nil
		}
	}
	RegisterRuntime(ProviderOpenRouter, openAICompatible(DefaultOpenRouterURL))
	RegisterRuntime(ProviderOpenAI, openAICompatible(DefaultOpenAIURL))
	RegisterRuntime(ProviderOllama, func(_ context.Context, c RuntimeConfig) (Runtime, error) {
		return NewOllamaClient(c.Host, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay), nil
	})
	RegisterRuntime(ProviderGemini, func(ctx context.Context, c RuntimeConfig) (Runtime, error) {
		return NewGeminiClient(ctx, c.APIKey, c.HTTPTimeout)
	})
}
