// ABOUTME: Scripted provider adapter returning canned responses in order, for tests and dry runs.
// ABOUTME: Records every request it receives so tests can assert on prompts and models.

package llm

import (
	"context"
	"sync"
)

// ScriptedAdapter answers completion requests from a fixed response queue.
// When the queue runs dry it returns a non-retryable ProviderError, which
// makes an over-long test scenario fail loudly instead of looping.
type ScriptedAdapter struct {
	mu        sync.Mutex
	responses []string
	requests  []Request
}

// Compile-time check that ScriptedAdapter implements ProviderAdapter.
var _ ProviderAdapter = (*ScriptedAdapter)(nil)

// NewScriptedAdapter creates an adapter that replies with the given
// responses in order.
func NewScriptedAdapter(responses ...string) *ScriptedAdapter {
	return &ScriptedAdapter{responses: append([]string(nil), responses...)}
}

// Name returns the provider name "scripted".
func (a *ScriptedAdapter) Name() string { return "scripted" }

// Push appends responses to the queue.
func (a *ScriptedAdapter) Push(responses ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.responses = append(a.responses, responses...)
}

// Complete records the request and pops the next scripted response.
func (a *ScriptedAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, req)

	if len(a.responses) == 0 {
		return nil, &ProviderError{Provider: a.Name(), Message: "scripted responses exhausted", Retryable: false}
	}
	text := a.responses[0]
	a.responses = a.responses[1:]

	return &Response{Text: text, Model: req.Model}, nil
}

// Close is a no-op.
func (a *ScriptedAdapter) Close() error { return nil }

// Requests returns a copy of every request received so far.
func (a *ScriptedAdapter) Requests() []Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Request, len(a.requests))
	copy(out, a.requests)
	return out
}
