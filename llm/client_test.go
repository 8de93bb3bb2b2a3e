// ABOUTME: Tests for the routing client, provider resolution, and error classification.
package llm

import (
	"context"
	"errors"
	"testing"
)

func TestClientRoutesByProviderName(t *testing.T) {
	a := NewScriptedAdapter("from a")
	b := NewScriptedAdapter("from b")
	client := NewClient(WithProvider("a", a), WithProvider("b", b))

	resp, err := client.Complete(context.Background(), Request{Provider: "b", Model: "m"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Text != "from b" {
		t.Errorf("routed to wrong adapter: %q", resp.Text)
	}
	if len(a.Requests()) != 0 || len(b.Requests()) != 1 {
		t.Errorf("request counts a=%d b=%d", len(a.Requests()), len(b.Requests()))
	}
}

func TestClientFirstProviderIsDefault(t *testing.T) {
	first := NewScriptedAdapter("first answer")
	client := NewClient(WithProvider("first", first), WithProvider("second", NewScriptedAdapter("x")))

	resp, err := client.Complete(context.Background(), Request{Model: "m"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Text != "first answer" {
		t.Errorf("default routing answered %q", resp.Text)
	}
}

func TestClientExplicitDefaultProvider(t *testing.T) {
	second := NewScriptedAdapter("second answer")
	client := NewClient(
		WithProvider("first", NewScriptedAdapter("x")),
		WithProvider("second", second),
		WithDefaultProvider("second"),
	)

	resp, err := client.Complete(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Text != "second answer" {
		t.Errorf("default routing answered %q", resp.Text)
	}
}

func TestClientUnknownProvider(t *testing.T) {
	client := NewClient(WithProvider("a", NewScriptedAdapter("x")))

	_, err := client.Complete(context.Background(), Request{Provider: "missing"})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error type = %T, want *ConfigurationError", err)
	}
	if IsRetryable(err) {
		t.Error("configuration errors must not be retryable")
	}
}

func TestClientNoProvidersConfigured(t *testing.T) {
	client := NewClient()
	if _, err := client.Complete(context.Background(), Request{}); err == nil {
		t.Fatal("Complete() with no providers succeeded")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"configuration", &ConfigurationError{Message: "bad"}, false},
		{"provider retryable", &ProviderError{Retryable: true}, true},
		{"provider permanent", &ProviderError{Retryable: false}, false},
		{"unknown error", errors.New("??"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryableStatus(t *testing.T) {
	for status, want := range map[int]bool{429: true, 500: true, 503: true, 400: false, 404: false} {
		if got := retryableStatus(status); got != want {
			t.Errorf("retryableStatus(%d) = %v, want %v", status, got, want)
		}
	}
}

func TestScriptedAdapterQueue(t *testing.T) {
	a := NewScriptedAdapter("one")
	a.Push("two")

	for _, want := range []string{"one", "two"} {
		resp, err := a.Complete(context.Background(), Request{Model: "m"})
		if err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
		if resp.Text != want {
			t.Errorf("Text = %q, want %q", resp.Text, want)
		}
		if resp.Model != "m" {
			t.Errorf("Model = %q, want request model echoed", resp.Model)
		}
	}

	_, err := a.Complete(context.Background(), Request{})
	var provErr *ProviderError
	if !errors.As(err, &provErr) || provErr.Retryable {
		t.Fatalf("exhausted queue error = %v, want permanent ProviderError", err)
	}

	if got := len(a.Requests()); got != 3 {
		t.Errorf("recorded %d requests, want 3", got)
	}
}
