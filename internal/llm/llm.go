package llm

import (
	"context"
	"fmt"
)

// Client issues one generation request against a generative text service.
// The summarization pipeline sends each prompt as a single user turn and
// takes the response text verbatim.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Option func(*clientOptions)

type clientOptions struct {
	baseURL string
}

func WithBaseURL(url string) Option {
	return func(o *clientOptions) {
		o.baseURL = url
	}
}

// NewClient builds a generation client for the configured provider.
// Gemini is the default wire target; openai and anthropic are alternates
// selected by config.
func NewClient(provider, apiKey, model string, opts ...Option) (Client, error) {
	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}

	switch provider {
	case "gemini":
		return newGeminiClient(apiKey, model, o)
	case "openai":
		return newOpenAIClient(apiKey, model, o)
	case "anthropic":
		return newAnthropicClient(apiKey, model, o)
	default:
		return nil, fmt.Errorf("unknown generation provider %q: supported providers are gemini, openai, anthropic", provider)
	}
}
