package normalize

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/petal-labs/oaikit/core"
)

func TestOpenAIStyleProviderError(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		header       http.Header
		wantCode     string
		wantParam    string
		wantMsg      string
		wantReqID    string
		wantSentinel error
	}{
		{
			name:         "bad request",
			status:       http.StatusBadRequest,
			body:         `{"error":{"message":"Invalid model","type":"invalid_request_error","code":"invalid_model","param":"model"}}`,
			header:       http.Header{"X-Request-Id": []string{"req-123"}},
			wantCode:     "invalid_model",
			wantParam:    "model",
			wantMsg:      "Invalid model",
			wantReqID:    "req-123",
			wantSentinel: core.ErrBadRequest,
		},
		{
			name:         "fallback to type",
			status:       http.StatusUnauthorized,
			body:         `{"error":{"message":"Invalid API key","type":"authentication_error","code":null}}`,
			wantCode:     "authentication_error",
			wantMsg:      "Invalid API key",
			wantSentinel: core.ErrUnauthorized,
		},
		{
			name:         "numeric code",
			status:       http.StatusTooManyRequests,
			body:         `{"error":{"message":"slow down","code":429}}`,
			wantCode:     "429",
			wantMsg:      "slow down",
			wantSentinel: core.ErrRateLimited,
		},
		{
			name:         "fallback to status text",
			status:       http.StatusBadGateway,
			body:         `<html>bad gateway</html>`,
			wantMsg:      "Bad Gateway",
			wantSentinel: core.ErrServer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := OpenAIStyleProviderError("test-provider", tt.status, []byte(tt.body), tt.header)

			var provErr *core.ProviderError
			if !errors.As(err, &provErr) {
				t.Fatal("expected *core.ProviderError")
			}
			if provErr.Status != tt.status {
				t.Errorf("Status = %d, want %d", provErr.Status, tt.status)
			}
			if provErr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", provErr.Code, tt.wantCode)
			}
			if provErr.Param != tt.wantParam {
				t.Errorf("Param = %q, want %q", provErr.Param, tt.wantParam)
			}
			if provErr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", provErr.Message, tt.wantMsg)
			}
			if provErr.RequestID != tt.wantReqID {
				t.Errorf("RequestID = %q, want %q", provErr.RequestID, tt.wantReqID)
			}
			if !errors.Is(err, tt.wantSentinel) {
				t.Errorf("error should wrap %v", tt.wantSentinel)
			}
		})
	}
}

func TestSentinelForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{400, core.ErrBadRequest},
		{401, core.ErrUnauthorized},
		{403, core.ErrUnauthorized},
		{404, core.ErrNotFound},
		{409, core.ErrConflict},
		{413, core.ErrBadRequest},
		{422, core.ErrBadRequest},
		{429, core.ErrRateLimited},
		{500, core.ErrServer},
		{503, core.ErrServer},
	}
	for _, tt := range tests {
		if got := SentinelForStatus(tt.status); got != tt.want {
			t.Errorf("SentinelForStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name   string
		header http.Header
		want   time.Duration
	}{
		{"absent", http.Header{}, 0},
		{"seconds", http.Header{"Retry-After": []string{"3"}}, 3 * time.Second},
		{"fractional", http.Header{"Retry-After": []string{"0.5"}}, 500 * time.Millisecond},
		{"milliseconds wins", http.Header{"Retry-After": []string{"3"}, "Retry-After-Ms": []string{"250"}}, 250 * time.Millisecond},
		{"http date", http.Header{"Retry-After": []string{now.Add(10 * time.Second).Format(http.TimeFormat)}}, 10 * time.Second},
		{"past date", http.Header{"Retry-After": []string{now.Add(-time.Minute).Format(http.TimeFormat)}}, 0},
		{"garbage", http.Header{"Retry-After": []string{"soon"}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RetryAfter(tt.header, now); got != tt.want {
				t.Errorf("RetryAfter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStreamError(t *testing.T) {
	err := StreamError("openai", []byte(`{"error":{"message":"context too long","type":"invalid_request_error","code":"context_length_exceeded"}}`))
	if !errors.Is(err, core.ErrBadRequest) {
		t.Errorf("err = %v, want ErrBadRequest", err)
	}
	if StreamError("openai", []byte(`{"choices":[]}`)) != nil {
		t.Error("non-error chunk should yield nil")
	}
}

func TestNetworkAndDecodeErrors(t *testing.T) {
	if err := NetworkError("p", errors.New("connection refused")); !errors.Is(err, core.ErrNetwork) {
		t.Errorf("NetworkError = %v", err)
	}

	cause := &net.OpError{Op: "dial", Net: "tcp", Err: context.DeadlineExceeded}
	err := NetworkError("p", cause)
	var opErr *net.OpError
	if !errors.As(err, &opErr) || opErr != cause {
		t.Errorf("NetworkError does not expose *net.OpError: %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) || !errors.Is(err, core.ErrNetwork) {
		t.Errorf("NetworkError chain = %v", err)
	}
	var pe *core.ProviderError
	if !errors.As(err, &pe) || pe.Message != cause.Error() {
		t.Errorf("ProviderError = %+v", pe)
	}
	if err := DecodeError("p", errors.New("bad json")); !errors.Is(err, core.ErrDecode) {
		t.Errorf("DecodeError = %v", err)
	}
}
