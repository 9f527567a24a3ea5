package upstream

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
)

// DefaultRetrySeconds is reported when a rate-limited upstream gives no hint.
const DefaultRetrySeconds = 30.0

var retryHintRe = regexp.MustCompile(`(?i)retry in ([0-9.]+)s`)

// Error is a non-success response from an upstream API.
// Body holds the upstream error payload as received, for diagnostics.
type Error struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: bad status %d: %s", e.Service, e.StatusCode, e.Body)
}

// HTTPStatus returns the status to forward to the caller. Anything that is not
// already an HTTP error status is reported as a bad gateway.
func (e *Error) HTTPStatus() int {
	if e.StatusCode >= http.StatusBadRequest && e.StatusCode <= 599 {
		return e.StatusCode
	}
	return http.StatusBadGateway
}

// RateLimitError is an upstream 429.
type RateLimitError struct {
	Service      string
	RetrySeconds float64
	Body         string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited, retry in %gs", e.Service, e.RetrySeconds)
}

// NewRateLimitError builds a RateLimitError with the retry hint parsed from body.
func NewRateLimitError(service, body string) *RateLimitError {
	return &RateLimitError{
		Service:      service,
		RetrySeconds: RetryHint(body),
		Body:         body,
	}
}

// RetryHint extracts the "retry in Xs" delay from an upstream error text.
func RetryHint(body string) float64 {
	m := retryHintRe.FindStringSubmatch(body)
	if m == nil {
		return DefaultRetrySeconds
	}

	seconds, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return DefaultRetrySeconds
	}

	return seconds
}

// FromResponse classifies a non-success status and body.
func FromResponse(service string, status int, body string) error {
	if status == http.StatusTooManyRequests {
		return NewRateLimitError(service, body)
	}
	return &Error{Service: service, StatusCode: status, Body: body}
}
