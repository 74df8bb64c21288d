// Package resilience wraps external-service calls with per-service rate
// limiting, concurrency ceilings, and bounded retries with exponential
// backoff.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/sells-group/outreach-cli/internal/model"
)

// TransientError wraps an error that is safe to retry (429, 5xx, network
// timeout, or an explicit retryable signal from a client).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// AuthError wraps an authentication or authorization failure. Never retried.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return e.Err.Error() }
func (e *AuthError) Unwrap() error { return e.Err }

// NewAuthError marks an error as an auth failure.
func NewAuthError(err error) *AuthError { return &AuthError{Err: err} }

// PermanentError wraps a failure that retrying cannot fix (4xx other than
// 408/429, malformed request, missing resource). Never retried.
type PermanentError struct {
	Err        error
	StatusCode int
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// NewPermanentError marks an error as permanent.
func NewPermanentError(err error, statusCode int) *PermanentError {
	return &PermanentError{Err: err, StatusCode: statusCode}
}

// httpStatusCarrier is satisfied by client error types that record the HTTP
// status of a failed request (see the pkg service clients).
type httpStatusCarrier interface {
	error
	HTTPStatus() int
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, or matches common transient network patterns. Auth and
// permanent markers anywhere in the chain win over pattern matching.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ae *AuthError
	if errors.As(err, &ae) {
		return false
	}
	var pe *PermanentError
	if errors.As(err, &pe) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var sc httpStatusCarrier
	if errors.As(err, &sc) {
		return IsTransientHTTPStatus(sc.HTTPStatus())
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}

// ClassifyHTTPStatus converts an HTTP error status into the matching error
// wrapper so the retry policy treats it correctly.
func ClassifyHTTPStatus(err error, statusCode int) error {
	switch {
	case IsTransientHTTPStatus(statusCode):
		return NewTransientError(err, statusCode)
	case statusCode == 401 || statusCode == 403:
		return NewAuthError(err)
	default:
		return NewPermanentError(err, statusCode)
	}
}

// Classify maps an error to the boundary error code used in envelopes.
// A transient error that reaches classification has exhausted its retries.
func Classify(err error) model.ErrorCode {
	var ae *AuthError
	if errors.As(err, &ae) {
		return model.CodeAuthError
	}
	var sc httpStatusCarrier
	if errors.As(err, &sc) && (sc.HTTPStatus() == 401 || sc.HTTPStatus() == 403) {
		return model.CodeAuthError
	}
	if IsTransient(err) {
		return model.CodeRetryExhausted
	}
	return model.CodePermanentError
}
