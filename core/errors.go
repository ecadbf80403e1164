package core

import (
	"errors"
	"fmt"
	"time"
)

// ProviderError represents an error returned by a provider with full context.
// Err holds one of the sentinel errors below so callers can classify with errors.Is.
// Network errors also wrap the transport cause.
type ProviderError struct {
	Provider  string
	Status    int
	RequestID string
	Code      string
	Type      string
	Param     string
	Message   string

	// RetryAfter is the server-suggested wait before retrying, zero if absent.
	RetryAfter time.Duration

	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s: %s (status=%d, code=%s, request_id=%s)",
			e.Provider, e.Message, e.Status, e.Code, e.RequestID)
	}
	return fmt.Sprintf("%s: %s (status=%d, code=%s)",
		e.Provider, e.Message, e.Status, e.Code)
}

// Unwrap returns the underlying error for error chaining.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Sentinel errors for classification.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrServer       = errors.New("server error")
	ErrNetwork      = errors.New("network error")
	ErrDecode       = errors.New("decode error")
	ErrNotSupported = errors.New("operation not supported")
)

// Validation errors with actionable guidance.
var (
	ErrModelRequired = errors.New("model required: pass a model ID to Client.Chat(), e.g., client.Chat(\"gpt-4o-mini\")")
	ErrNoMessages    = errors.New("no messages: add at least one message using .System(), .User(), or .Assistant()")
	ErrEmptyMessage  = errors.New("empty message: every message needs content, parts, or tool calls")
)
