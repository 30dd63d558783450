package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider talks to any OpenAI-compatible chat completions API.
// Mistral is served through it with a different base URL.
type OpenAIProvider struct {
	Model  string
	name   string
	client openai.Client
}

// NewOpenAIProvider creates a provider reporting itself as name.
func NewOpenAIProvider(name string, opts Options) *OpenAIProvider {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: opts.Timeout}),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &OpenAIProvider{
		Model:  opts.Model,
		name:   name,
		client: openai.NewClient(reqOpts...),
	}
}

func (o *OpenAIProvider) Name() string { return o.name }

// Generate sends a prompt as a single user message and returns the first choice.
func (o *OpenAIProvider) Generate(ctx context.Context, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: o.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			body := apiErr.RawJSON()
			if body == "" {
				body = apiErr.Message
			}
			return "", &StatusError{Provider: o.name, StatusCode: apiErr.StatusCode, Body: body}
		}
		return "", fmt.Errorf("%s API error: %w", o.name, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in %s response", o.name)
	}
	return resp.Choices[0].Message.Content, nil
}
