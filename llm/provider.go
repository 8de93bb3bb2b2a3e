// ABOUTME: ProviderAdapter interface and the request/response contract for reasoning calls.
// ABOUTME: All provider failures surface through the same error types so the runtime treats them uniformly.

package llm

import (
	"context"
)

// Request is a single reasoning call. Provider routes the request when set;
// otherwise the client's default provider answers.
type Request struct {
	Provider string
	Model    string
	System   string
	Prompt   string

	// MaxTokens bounds the completion length. Zero means the adapter's
	// default.
	MaxTokens int

	// ForceJSON asks the provider for a JSON object response, used when the
	// caller declared a structured-output schema.
	ForceJSON bool
}

// Response is the provider's answer to a completion request.
type Response struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// ProviderAdapter is the interface all reasoning-provider adapters implement.
type ProviderAdapter interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
	Close() error
}
