// ABOUTME: Error types for the provider boundary: configuration problems and classified provider failures.
// ABOUTME: ProviderError.Retryable drives the runtime's retry policy uniformly across providers.

package llm

import (
	"errors"
	"fmt"
)

// ConfigurationError indicates the client or an adapter is miswired; these
// never resolve by retrying.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "llm configuration error: " + e.Message
}

// ProviderError is a failure returned by a concrete provider, normalized so
// the runtime treats all providers the same way.
type ProviderError struct {
	Provider   string
	StatusCode int // 0 when no HTTP status applies
	Message    string
	Retryable  bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// retryableStatus reports whether an HTTP status is transient.
func retryableStatus(status int) bool {
	return status == 429 || status >= 500
}

// IsRetryable reports whether an error from the provider boundary is worth
// retrying. Unknown error types default to retryable; configuration errors
// never are.
func IsRetryable(err error) bool {
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return false
	}
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Retryable
	}
	return err != nil
}
