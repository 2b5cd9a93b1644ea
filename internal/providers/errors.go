package providers

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind classifies a provider failure for retry policy decisions.
type Kind int

const (
	// KindOther is any failure that should not be retried (bad input, auth, parse).
	KindOther Kind = iota
	// KindRateLimited is a rate-limit or quota exhaustion signal.
	KindRateLimited
	// KindServerUnavailable is a transient server-side failure.
	KindServerUnavailable
)

// String returns a human-readable name for the failure kind.
func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindServerUnavailable:
		return "server_unavailable"
	default:
		return "other"
	}
}

// RateLimitError indicates the upstream service rejected the request due to
// rate limiting or quota exhaustion.
type RateLimitError struct {
	Message    string
	StatusCode int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("rate limited (status %d)", e.StatusCode)
}

// ServerError indicates a transient server-side failure (5xx or equivalent).
type ServerError struct {
	Message    string
	StatusCode int
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server error (status %d)", e.StatusCode)
}

// Classify sorts a provider error into a retry class. Typed errors from the
// clients in this package win; for errors that arrive untagged (SDK transport
// errors, wrapped messages) it falls back to sniffing the status code and
// message text, since rate limiting and transient unavailability are the
// dominant real-world failure modes of these services.
func Classify(err error) Kind {
	if err == nil {
		return KindOther
	}

	var rle *RateLimitError
	if errors.As(err, &rle) {
		return KindRateLimited
	}
	var se *ServerError
	if errors.As(err, &se) {
		return KindServerUnavailable
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(msg, "429"),
		strings.Contains(lower, "resource exhausted"),
		strings.Contains(lower, "quota"):
		return KindRateLimited
	case strings.Contains(msg, "500"),
		strings.Contains(msg, "503"),
		strings.Contains(lower, "internal"),
		strings.Contains(lower, "unavailable"):
		return KindServerUnavailable
	default:
		return KindOther
	}
}

// IsRateLimitError returns the typed rate-limit error if err carries one.
func IsRateLimitError(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}

// classifyStatus maps an HTTP status code to a typed provider error.
// Non-retryable statuses come back as plain errors.
func classifyStatus(provider string, status int, body string) error {
	msg := fmt.Sprintf("%s error (status %d): %s", provider, status, body)
	switch {
	case status == 429:
		return &RateLimitError{Message: msg, StatusCode: status}
	case status >= 500:
		return &ServerError{Message: msg, StatusCode: status}
	default:
		return errors.New(msg)
	}
}
