// ABOUTME: OpenAI Chat Completions adapter with base URL support for compatible providers.
// ABOUTME: Maps SDK errors onto ProviderError with retryability derived from the HTTP status.

package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// defaultMaxTokens bounds completions when the request does not set a limit.
const defaultMaxTokens = 4096

// OpenAIAdapter implements ProviderAdapter using the OpenAI Chat Completions
// API. A custom base URL enables OpenAI-compatible services.
type OpenAIAdapter struct {
	client openai.Client
}

// Compile-time check that OpenAIAdapter implements ProviderAdapter.
var _ ProviderAdapter = (*OpenAIAdapter)(nil)

// NewOpenAIAdapter creates an adapter with the given API key and an optional
// custom base URL (empty = api.openai.com).
func NewOpenAIAdapter(apiKey, baseURL string) *OpenAIAdapter {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIAdapter{client: openai.NewClient(opts...)}
}

// Name returns the provider name "openai".
func (a *OpenAIAdapter) Name() string { return "openai" }

// Complete sends a chat completion request and returns the first choice.
func (a *OpenAIAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:               req.Model,
		MaxCompletionTokens: openai.Int(int64(maxTokensFor(req))),
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))
	params.Messages = messages

	if req.ForceJSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, a.wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: a.Name(), Message: "response contained no choices", Retryable: true}
	}

	return &Response{
		Text:         resp.Choices[0].Message.Content,
		Model:        resp.Model,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

// Close releases adapter resources. The SDK client holds none.
func (a *OpenAIAdapter) Close() error { return nil }

// wrapError normalizes SDK errors into ProviderError. Context errors pass
// through untouched so callers can classify timeouts.
func (a *OpenAIAdapter) wrapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Provider:   a.Name(),
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Message,
			Retryable:  retryableStatus(apiErr.StatusCode),
			Err:        err,
		}
	}
	return &ProviderError{
		Provider:  a.Name(),
		Message:   fmt.Sprintf("request failed: %v", err),
		Retryable: true,
		Err:       err,
	}
}

// maxTokensFor returns the request's token limit or the adapter default.
func maxTokensFor(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return defaultMaxTokens
}
