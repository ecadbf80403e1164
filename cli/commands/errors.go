package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/petal-labs/oaikit/cli/config"
	"github.com/petal-labs/oaikit/cli/keystore"
	"github.com/petal-labs/oaikit/core"
)

// Exit codes
const (
	ExitSuccess    = 0
	ExitValidation = 1
	ExitProvider   = 2
	ExitNetwork    = 3
)

// exitError wraps an error with an exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func (e *exitError) ExitCode() int {
	return e.code
}

func exitWithCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return classify(err)
}

// classify maps an error to an exit code. Errors are validation failures
// unless they came from the provider or the network.
func classify(err error) int {
	var pe *core.ProviderError
	switch {
	case errors.Is(err, core.ErrNetwork),
		errors.Is(err, context.DeadlineExceeded):
		return ExitNetwork
	case errors.As(err, &pe),
		errors.Is(err, core.ErrServer),
		errors.Is(err, core.ErrRateLimited),
		errors.Is(err, core.ErrUnauthorized),
		errors.Is(err, core.ErrNotFound),
		errors.Is(err, core.ErrConflict),
		errors.Is(err, core.ErrDecode),
		errors.Is(err, core.ErrNotSupported):
		return ExitProvider
	default:
		return ExitValidation
	}
}

// providerErr tags err with its exit code. Use it for errors returned by
// API calls.
func providerErr(err error) error {
	if err == nil {
		return nil
	}
	return exitWithCode(classify(err), err)
}

// validationErr formats a usage error.
func validationErr(format string, args ...any) error {
	return exitWithCode(ExitValidation, fmt.Errorf(format, args...))
}

// reportError writes err to stderr, as JSON with --json.
func (a *App) reportError(err error) {
	if a.jsonOutput {
		enc := json.NewEncoder(a.stderr)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]any{"error": errorBody(err)})
		return
	}

	var pe *core.ProviderError
	if errors.As(err, &pe) {
		fmt.Fprintf(a.stderr, "Error: %s\n", pe.Message)
		if pe.RequestID != "" {
			fmt.Fprintf(a.stderr, "  Provider: %s, Request ID: %s\n", pe.Provider, pe.RequestID)
		}
		return
	}
	fmt.Fprintf(a.stderr, "Error: %v\n", err)
}

func errorBody(err error) map[string]any {
	var pe *core.ProviderError
	if errors.As(err, &pe) {
		body := map[string]any{
			"type":     errorType(err),
			"message":  pe.Message,
			"provider": pe.Provider,
			"status":   pe.Status,
		}
		if pe.Code != "" {
			body["code"] = pe.Code
		}
		if pe.RequestID != "" {
			body["request_id"] = pe.RequestID
		}
		return body
	}
	return map[string]any{
		"type":    errorType(err),
		"message": err.Error(),
	}
}

func errorType(err error) string {
	var nf *keystore.ErrKeyNotFound
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, core.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, core.ErrNotFound):
		return "not_found"
	case errors.Is(err, core.ErrServer):
		return "server_error"
	case errors.Is(err, core.ErrNetwork):
		return "network_error"
	case errors.Is(err, core.ErrDecode):
		return "decode_error"
	case errors.Is(err, core.ErrNotSupported):
		return "not_supported"
	case errors.Is(err, core.ErrBadRequest):
		return "bad_request"
	case errors.As(err, &nf):
		return "missing_key"
	case errors.Is(err, config.ErrInvalidConfig):
		return "config_error"
	}
	switch ExitCode(err) {
	case ExitNetwork:
		return "network_error"
	case ExitProvider:
		return "provider_error"
	default:
		return "validation_error"
	}
}
