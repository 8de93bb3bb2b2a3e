// ABOUTME: Routing client over registered provider adapters with functional options.
// ABOUTME: Requests route by Request.Provider, falling back to the default provider.

package llm

import (
	"context"
	"fmt"
)

// Client routes completion requests to the correct provider adapter.
type Client struct {
	providers       map[string]ProviderAdapter
	defaultProvider string
}

// ClientOption is a functional option for configuring a Client.
type ClientOption func(*Client)

// WithProvider registers an adapter under the given name. The first
// provider registered becomes the default unless one is set explicitly.
func WithProvider(name string, adapter ProviderAdapter) ClientOption {
	return func(c *Client) {
		c.providers[name] = adapter
		if c.defaultProvider == "" {
			c.defaultProvider = name
		}
	}
}

// WithDefaultProvider sets the provider used when a Request does not
// specify one.
func WithDefaultProvider(name string) ClientOption {
	return func(c *Client) {
		c.defaultProvider = name
	}
}

// NewClient creates a Client with the given options applied.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{providers: make(map[string]ProviderAdapter)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// resolveProvider picks the adapter for a request.
func (c *Client) resolveProvider(req Request) (ProviderAdapter, error) {
	name := req.Provider
	if name == "" {
		name = c.defaultProvider
	}
	if name == "" {
		return nil, &ConfigurationError{Message: "no provider specified and no default provider configured"}
	}
	adapter, ok := c.providers[name]
	if !ok {
		return nil, &ConfigurationError{Message: fmt.Sprintf("provider %q not registered", name)}
	}
	return adapter, nil
}

// Complete sends a completion request to the appropriate provider adapter.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	adapter, err := c.resolveProvider(req)
	if err != nil {
		return nil, err
	}
	return adapter.Complete(ctx, req)
}

// Close shuts down all registered adapters, collecting any errors.
func (c *Client) Close() error {
	var combined error
	for name, adapter := range c.providers {
		if err := adapter.Close(); err != nil {
			if combined == nil {
				combined = fmt.Errorf("closing provider %q: %w", name, err)
			} else {
				combined = fmt.Errorf("%w; closing provider %q: %v", combined, name, err)
			}
		}
	}
	return combined
}
