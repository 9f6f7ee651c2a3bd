package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrModelFatal is returned when every model in a fallback chain has
// failed; it aborts the current agent invocation.
var ErrModelFatal = errors.New("all models in fallback chain failed")

// apiErrorBody is the structured error some providers return.
type apiErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// APIError is one failed model call, classified for the fallback chain.
type APIError struct {
	Status    int
	Type      string
	Message   string
	transport bool
	cause     error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("api error (status %d, type %q): %s", e.Status, e.Type, e.Message)
	}
	return fmt.Sprintf("api error (type %q): %s", e.Type, e.Message)
}

func (e *APIError) Unwrap() error { return e.cause }

// retryableErrorTypes are provider error-body types the chain advances on.
var retryableErrorTypes = map[string]bool{
	"rate_limit_error":  true,
	"overloaded_error":  true,
	"server_error":      true,
	"timeout":           true,
	"service_unavailable": true,
}

// IsRetryable classifies a model-call failure: transport errors, timeouts,
// HTTP 408/429 and 5xx, and overload-style structured errors advance the
// fallback chain; other 4xx are fatal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.transport {
		return true
	}
	if retryableErrorTypes[apiErr.Type] {
		return true
	}
	switch {
	case apiErr.Status == http.StatusRequestTimeout,
		apiErr.Status == http.StatusTooManyRequests,
		apiErr.Status >= 500:
		return true
	}
	return false
}
