package model

import "fmt"

// ErrorCode classifies a failure at an operation boundary.
type ErrorCode string

const (
	CodeValidationError  ErrorCode = "VALIDATION_ERROR"
	CodeAuthError        ErrorCode = "AUTH_ERROR"
	CodePermanentError   ErrorCode = "PERMANENT_ERROR"
	CodeRetryExhausted   ErrorCode = "RETRY_EXHAUSTED"
	CodeDNCBlocked       ErrorCode = "DNC_BLOCKED"
	CodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	CodeConflict         ErrorCode = "CONFLICT"
)

// Envelope is the uniform result wrapper used at every operation boundary:
// client calls, validation, phase execution, and batch runs all resolve to
// this shape. Either OK is true and Data is set, or OK is false and
// Code/Message (and optionally Details) describe the failure.
type Envelope[T any] struct {
	OK      bool           `json:"ok"`
	Data    T              `json:"data,omitempty"`
	Code    ErrorCode      `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Ok wraps data in a success envelope.
func Ok[T any](data T) Envelope[T] {
	return Envelope[T]{OK: true, Data: data}
}

// Fail builds a failure envelope with the given code and message.
func Fail[T any](code ErrorCode, message string) Envelope[T] {
	return Envelope[T]{OK: false, Code: code, Message: message}
}

// Failf builds a failure envelope with a formatted message.
func Failf[T any](code ErrorCode, format string, args ...any) Envelope[T] {
	return Envelope[T]{OK: false, Code: code, Message: fmt.Sprintf(format, args...)}
}

// FailErr builds a failure envelope from an error.
func FailErr[T any](code ErrorCode, err error) Envelope[T] {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Envelope[T]{OK: false, Code: code, Message: msg}
}

// WithDetails attaches structured details to a failure envelope.
func (e Envelope[T]) WithDetails(details map[string]any) Envelope[T] {
	e.Details = details
	return e
}

// Reason converts a failure envelope into a FailureReason suitable for
// persisting on a prospect. Returns nil for success envelopes.
func (e Envelope[T]) Reason() *FailureReason {
	if e.OK {
		return nil
	}
	return &FailureReason{Code: e.Code, Message: e.Message, Details: e.Details}
}
