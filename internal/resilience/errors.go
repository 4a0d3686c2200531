// Package resilience bounds and retries calls to scan collaborators.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError marks a collaborator failure that is safe to retry
// (rate limiting, 5xx, dropped connection).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as retryable. statusCode may be 0 when the failure
// did not come from an HTTP response.
func Transient(err error, statusCode int) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err, StatusCode: statusCode}
}

// NeutralError marks an outcome that says nothing about the collaborator's
// health. A Breaker neither counts nor resets on it.
type NeutralError struct {
	Err error
}

func (e *NeutralError) Error() string {
	return e.Err.Error()
}

func (e *NeutralError) Unwrap() error {
	return e.Err
}

// Neutral wraps err so a Breaker ignores it.
func Neutral(err error) error {
	if err == nil {
		return nil
	}
	return &NeutralError{Err: err}
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{"connection reset by peer", "broken pipe", "i/o timeout"} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
