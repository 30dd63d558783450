package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Request is a single-turn prompt.
type Request struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
	// JSON asks the provider to constrain output to a JSON object.
	JSON bool
}

// Provider is the interface for LLM providers.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// StatusError reports a non-2xx answer from a provider API.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API returned %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Options configures CreateProvider.
type Options struct {
	Provider string // mistral, openai, gemini, ollama
	Model    string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
}

const (
	MistralBaseURL = "https://api.mistral.ai/v1"
	OllamaBaseURL  = "http://localhost:11434"
)

// CreateProvider creates an LLM provider based on configuration.
func CreateProvider(ctx context.Context, opts Options) (Provider, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}

	switch strings.ToLower(opts.Provider) {
	case "", "mistral":
		if opts.BaseURL == "" {
			opts.BaseURL = MistralBaseURL
		}
		if opts.APIKey == "" {
			return nil, fmt.Errorf("mistral API key not configured")
		}
		zap.S().Debugf("Using Mistral with model: %s", opts.Model)
		return NewOpenAIProvider("mistral", opts), nil
	case "openai":
		if opts.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key not configured")
		}
		zap.S().Debugf("Using OpenAI with model: %s", opts.Model)
		return NewOpenAIProvider("openai", opts), nil
	case "gemini":
		zap.S().Debugf("Using Gemini with model: %s", opts.Model)
		return NewGeminiProvider(ctx, opts)
	case "ollama":
		if opts.BaseURL == "" {
			opts.BaseURL = OllamaBaseURL
		}
		zap.S().Debugf("Using Ollama with model: %s", opts.Model)
		return NewOllamaProvider(opts.Model, opts.BaseURL, opts.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", opts.Provider)
	}
}
