// ABOUTME: Typed error hierarchy for provider failures with retryability classification.
// ABOUTME: Wraps provider SDK errors into ProviderError / RateLimitError / ContextLengthError.

package llm

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ProviderError is a failure reported by a model provider. StatusCode is zero
// for transport-level failures that never produced an HTTP response.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsRetryable reports whether the request may succeed on retry.
// Server errors and timeouts are retryable; client errors are not.
func (e *ProviderError) IsRetryable() bool {
	switch {
	case e.StatusCode >= 500:
		return true
	case e.StatusCode == 408 || e.StatusCode == 429:
		return true
	case e.StatusCode == 0:
		// Transport failure (connection reset, DNS, timeout).
		return true
	default:
		return false
	}
}

// RateLimitError is a 429 with an optional server-provided retry hint.
type RateLimitError struct {
	ProviderError
	RetryAfter time.Duration
}

// ContextLengthError indicates the request exceeded the model's context window.
type ContextLengthError struct {
	ProviderError
}

// IsRetryable is false: resending the same oversized request cannot succeed.
func (e *ContextLengthError) IsRetryable() bool { return false }

// retryable is implemented by errors that know their own retry semantics.
type retryable interface {
	IsRetryable() bool
}

// IsRetryable classifies an arbitrary error for the retry layer.
func IsRetryable(err error) bool {
	var r retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return false
}

// RetryAfterHint extracts a server-provided retry delay, if any.
func RetryAfterHint(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter, true
	}
	return 0, false
}

// IsContextOverflow reports whether the error indicates a context-window overflow.
func IsContextOverflow(err error) bool {
	var cl *ContextLengthError
	return errors.As(err, &cl)
}

var contextOverflowMarkers = []string{
	"context_length_exceeded",
	"context length",
	"maximum context",
	"too many tokens",
	"prompt is too long",
}

// classifyProviderError wraps a raw provider failure in the typed hierarchy.
func classifyProviderError(provider string, statusCode int, message string, cause error) error {
	pe := ProviderError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
		Err:        cause,
	}

	lower := strings.ToLower(message)
	for _, marker := range contextOverflowMarkers {
		if strings.Contains(lower, marker) {
			return &ContextLengthError{ProviderError: pe}
		}
	}

	if statusCode == 429 {
		return &RateLimitError{ProviderError: pe}
	}

	return &pe
}
