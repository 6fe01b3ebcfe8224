package convert

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/ollama/ollama/api"
	openaisdk "github.com/openai/openai-go/v3"

	"github.com/skosovsky/promptsdk"
	"github.com/skosovsky/promptsdk/adapter"
	"github.com/skosovsky/promptsdk/adapter/anthropic"
	"github.com/skosovsky/promptsdk/adapter/gemini"
	"github.com/skosovsky/promptsdk/adapter/ollama"
	"github.com/skosovsky/promptsdk/adapter/openai"
)

// ErrUnknownProvider is returned when a provider name has no adapter.
var ErrUnknownProvider = errors.New("convert: unknown model provider")

// Converter converts prompts for one provider. Results are the adapter's pointer type
// (e.g. *openai.ChatCompletionNewParams) boxed in any.
type Converter interface {
	// Provider returns the provider this converter targets.
	Provider() promptsdk.ModelProvider
	// Convert returns the parameters or the conversion error.
	Convert(prompt *promptsdk.PromptVersion, vars promptsdk.Variables) (any, error)
	// ToParams returns the parameters, or an untyped nil after logging one warning.
	ToParams(prompt *promptsdk.PromptVersion, vars promptsdk.Variables) any
}

// Option configures the converters built by ForProvider and ToParams.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger handed to the provider adapter.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

var aliases = map[string]promptsdk.ModelProvider{
	"openai":       promptsdk.ProviderOpenAI,
	"azure_openai": promptsdk.ProviderAzureOpenAI,
	"azure":        promptsdk.ProviderAzureOpenAI,
	"anthropic":    promptsdk.ProviderAnthropic,
	"google":       promptsdk.ProviderGoogle,
	"gemini":       promptsdk.ProviderGoogle,
	"ollama":       promptsdk.ProviderOllama,
}

// ParseProvider resolves a provider name case-insensitively. Accepts the ModelProvider
// constants as well as adapter names such as "openai", "gemini" or "azure".
func ParseProvider(name string) (promptsdk.ModelProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "-", "_")
	if p, ok := aliases[key]; ok {
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

// Providers returns every provider with an adapter, sorted.
func Providers() []promptsdk.ModelProvider {
	seen := make([]promptsdk.ModelProvider, 0, len(aliases))
	for _, p := range aliases {
		if !slices.Contains(seen, p) {
			seen = append(seen, p)
		}
	}
	slices.Sort(seen)
	return seen
}

// ForProvider returns the converter for provider.
func ForProvider(provider promptsdk.ModelProvider, opts ...Option) (Converter, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	switch provider {
	case promptsdk.ProviderOpenAI:
		return boxed[openaisdk.ChatCompletionNewParams]{provider, openai.New(openai.WithLogger(o.logger))}, nil
	case promptsdk.ProviderAzureOpenAI:
		return boxed[openaisdk.ChatCompletionNewParams]{provider, openai.NewAzure(openai.WithLogger(o.logger))}, nil
	case promptsdk.ProviderAnthropic:
		return boxed[anthropicsdk.MessageNewParams]{provider, anthropic.New(anthropic.WithLogger(o.logger))}, nil
	case promptsdk.ProviderGoogle:
		return boxed[gemini.Request]{provider, gemini.New(gemini.WithLogger(o.logger))}, nil
	case promptsdk.ProviderOllama:
		return boxed[api.ChatRequest]{provider, ollama.New(ollama.WithLogger(o.logger))}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
}

// ToParams converts prompt for provider. An empty provider uses prompt.ModelProvider.
// Returns nil when the provider is unknown or conversion fails; failures are logged once.
func ToParams(provider promptsdk.ModelProvider, prompt *promptsdk.PromptVersion, vars promptsdk.Variables, opts ...Option) any {
	if prompt == nil {
		return nil
	}
	if provider == "" {
		provider = prompt.ModelProvider
	}
	c, err := ForProvider(provider, opts...)
	if err != nil {
		var o options
		for _, opt := range opts {
			opt(&o)
		}
		adapter.ReportFailure(o.logger, string(provider), prompt, err)
		return nil
	}
	return c.ToParams(prompt, vars)
}

// boxed adapts a typed adapter.Converter to Converter.
type boxed[P any] struct {
	provider promptsdk.ModelProvider
	c        adapter.Converter[P]
}

func (b boxed[P]) Provider() promptsdk.ModelProvider { return b.provider }

func (b boxed[P]) Convert(prompt *promptsdk.PromptVersion, vars promptsdk.Variables) (any, error) {
	p, err := b.c.Convert(prompt, vars)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ToParams never returns a typed nil pointer inside the interface.
func (b boxed[P]) ToParams(prompt *promptsdk.PromptVersion, vars promptsdk.Variables) any {
	if p := b.c.ToParams(prompt, vars); p != nil {
		return p
	}
	return nil
}
