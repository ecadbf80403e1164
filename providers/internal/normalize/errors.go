// Package normalize provides shared provider error normalization helpers.
package normalize

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/petal-labs/oaikit/core"
)

// envelope matches {"error":{"message":"...","type":"...","code":"...","param":"..."}}.
// code and param are sometimes numbers or null, so they are decoded loosely.
type envelope struct {
	Error struct {
		Message string          `json:"message"`
		Type    string          `json:"type"`
		Code    json.RawMessage `json:"code"`
		Param   json.RawMessage `json:"param"`
	} `json:"error"`
}

// looseString renders a JSON scalar as text; null and absent become "".
func looseString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// OpenAIStyleProviderError normalizes an OpenAI-style error body.
// header may be nil; when present x-request-id and Retry-After are read from it.
func OpenAIStyleProviderError(provider string, status int, body []byte, header http.Header) error {
	var env envelope
	_ = json.Unmarshal(body, &env)

	message := env.Error.Message
	if message == "" {
		message = http.StatusText(status)
	}
	code := looseString(env.Error.Code)
	if code == "" {
		code = env.Error.Type
	}

	pe := &core.ProviderError{
		Provider: provider,
		Status:   status,
		Code:     code,
		Type:     env.Error.Type,
		Param:    looseString(env.Error.Param),
		Message:  message,
		Err:      SentinelForStatus(status),
	}
	if header != nil {
		pe.RequestID = header.Get("x-request-id")
		pe.RetryAfter = RetryAfter(header, time.Now())
	}
	return pe
}

// StreamError converts an error object embedded in an SSE stream.
func StreamError(provider string, body []byte) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error.Message == "" {
		return nil
	}
	sentinel := core.ErrServer
	if env.Error.Type == "invalid_request_error" {
		sentinel = core.ErrBadRequest
	}
	return &core.ProviderError{
		Provider: provider,
		Code:     looseString(env.Error.Code),
		Type:     env.Error.Type,
		Param:    looseString(env.Error.Param),
		Message:  env.Error.Message,
		Err:      sentinel,
	}
}

// RetryAfter parses Retry-After (seconds or HTTP date) and the
// retry-after-ms extension. It returns zero when absent or unparseable.
func RetryAfter(h http.Header, now time.Time) time.Duration {
	if ms := h.Get("retry-after-ms"); ms != "" {
		if v, err := strconv.ParseFloat(ms, 64); err == nil && v > 0 {
			return time.Duration(v * float64(time.Millisecond))
		}
	}
	ra := h.Get("Retry-After")
	if ra == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(ra, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := http.ParseTime(ra); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// NetworkError wraps transport failures as provider-specific network errors.
// The cause stays reachable through errors.Is and errors.As.
func NetworkError(provider string, err error) error {
	return &core.ProviderError{
		Provider: provider,
		Message:  err.Error(),
		Err:      fmt.Errorf("%w: %w", core.ErrNetwork, err),
	}
}

// DecodeError wraps decode/parsing failures as provider-specific decode errors.
func DecodeError(provider string, err error) error {
	return &core.ProviderError{
		Provider: provider,
		Message:  err.Error(),
		Err:      core.ErrDecode,
	}
}

// SentinelForStatus maps an HTTP status code to a core sentinel error.
func SentinelForStatus(status int) error {
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return core.ErrBadRequest
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return core.ErrUnauthorized
	case status == http.StatusNotFound:
		return core.ErrNotFound
	case status == http.StatusConflict:
		return core.ErrConflict
	case status == http.StatusTooManyRequests:
		return core.ErrRateLimited
	case status >= 500:
		return core.ErrServer
	case status >= 400:
		return core.ErrBadRequest
	default:
		return core.ErrServer
	}
}
