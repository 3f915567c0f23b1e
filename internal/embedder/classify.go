package embedder

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"google.golang.org/genai"
)

// httpStatusError is returned by the HTTP providers for non-2xx responses
type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Body)
}

// IsTransient reports whether a provider failure is worth retrying.
// Timeouts, rate limits, server errors and network failures are transient.
// Authentication failures, malformed input and malformed responses are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, ErrEmptyText) || errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrMalformedResponse) {
		return false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return transientStatus(statusErr.StatusCode)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return transientStatus(apiErr.Code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func transientStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	case code >= 500:
		return true
	default:
		return false
	}
}

// failureKind labels a failure for metrics
func failureKind(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}
