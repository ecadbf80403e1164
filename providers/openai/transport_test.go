package openai

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/petal-labs/oaikit/core"
)

func fastRetry(maxRetries int) core.RetryPolicy {
	return core.NewRetryPolicy(core.RetryConfig{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	})
}

func chatReq() *core.ChatRequest {
	return &core.ChatRequest{
		Model:    "gpt-4o",
		Messages: []core.Message{{Role: core.RoleUser, Content: "hi"}},
	}
}

const okChat = `{"id":"ok","model":"gpt-4o","choices":[{"message":{"role":"assistant","content":"done"}}]}`

func TestRetryOnRetryableStatus(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var calls atomic.Int32
			var bodies []string
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				bodies = append(bodies, string(body))
				if calls.Add(1) < 3 {
					w.WriteHeader(status)
					w.Write([]byte(`{"error":{"message":"try again"}}`))
					return
				}
				w.Write([]byte(okChat))
			}, WithRetryPolicy(fastRetry(3)))

			resp, err := p.Chat(context.Background(), chatReq())
			if err != nil {
				t.Fatalf("Chat() error = %v", err)
			}
			if resp.Output != "done" {
				t.Errorf("Output = %q", resp.Output)
			}
			if calls.Load() != 3 {
				t.Errorf("calls = %d, want 3", calls.Load())
			}
			for i, b := range bodies {
				if b != bodies[0] || b == "" {
					t.Errorf("attempt %d body = %q, want the original body resent", i, b)
				}
			}
		})
	}
}

func TestNoRetryOnClientErrors(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var calls atomic.Int32
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(status)
				w.Write([]byte(`{"error":{"message":"nope"}}`))
			}, WithRetryPolicy(fastRetry(3)))

			if _, err := p.Chat(context.Background(), chatReq()); err == nil {
				t.Fatal("expected error")
			}
			if calls.Load() != 1 {
				t.Errorf("calls = %d, want 1", calls.Load())
			}
		})
	}
}

func TestRetryGivesUp(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithRetryPolicy(fastRetry(2)))

	_, err := p.Chat(context.Background(), chatReq())
	if !errors.Is(err, core.ErrServer) {
		t.Errorf("err = %v, want ErrServer", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3 (1 + 2 retries)", calls.Load())
	}
}

func TestRetryAfterHeaderCaptured(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := p.Chat(context.Background(), chatReq())
	var pe *core.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v", err)
	}
	if pe.RetryAfter != 7*time.Second {
		t.Errorf("RetryAfter = %v, want 7s", pe.RetryAfter)
	}
}

func TestDefaultNoRetry(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	p.Chat(context.Background(), chatReq())
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 without a retry policy", calls.Load())
	}
}

func TestNetworkError(t *testing.T) {
	p := New("k", WithBaseURL("http://127.0.0.1:1"))
	_, err := p.Chat(context.Background(), chatReq())
	if !errors.Is(err, core.ErrNetwork) {
		t.Errorf("err = %v, want ErrNetwork", err)
	}
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		t.Errorf("err = %v, want the dial error reachable", err)
	}
}

func TestTimeout(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, WithTimeout(20*time.Millisecond))

	_, err := p.Chat(context.Background(), chatReq())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestDebugLogging(t *testing.T) {
	obsCore, logs := observer.New(zap.DebugLevel)
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-request-id", "req-log")
		w.Write([]byte(okChat))
	}, WithLogger(zap.New(obsCore)))

	if _, err := p.Chat(context.Background(), chatReq()); err != nil {
		t.Fatal(err)
	}
	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("got %d request logs, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/chat/completions" || fields["request_id"] != "req-log" || fields["status"] != int64(200) {
		t.Errorf("fields = %v", fields)
	}
	for k, v := range fields {
		if s, ok := v.(string); ok && (s == "test-key" || s == "Bearer test-key") {
			t.Errorf("field %s leaks the API key", k)
		}
	}
}
