package core

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net/http"
	"time"
)

// RetryPolicy determines retry behavior for failed requests.
type RetryPolicy interface {
	// NextDelay returns the delay before the next retry attempt and whether to retry.
	// attempt starts at 0 for the first retry after the initial failure.
	NextDelay(attempt int, err error) (delay time.Duration, ok bool)
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxRetries int           // Maximum number of retry attempts (default: 3)
	BaseDelay  time.Duration // Initial delay before first retry (default: 1s)
	MaxDelay   time.Duration // Maximum delay cap (default: 30s)
	Jitter     float64       // Jitter factor 0.0-1.0 (default: 0.2)
}

// DefaultRetryPolicy returns exponential backoff with jitter, max 3 retries, 30s max delay.
func DefaultRetryPolicy() RetryPolicy {
	return NewRetryPolicy(RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Jitter:     0.2,
	})
}

// NoRetry returns a policy that never retries.
func NoRetry() RetryPolicy {
	return noRetry{}
}

type noRetry struct{}

func (noRetry) NextDelay(int, error) (time.Duration, bool) { return 0, false }

// NewRetryPolicy creates a retry policy with the given configuration.
// Zero or out-of-range fields fall back to the defaults.
func NewRetryPolicy(cfg RetryConfig) RetryPolicy {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.Jitter < 0 || cfg.Jitter > 1 {
		cfg.Jitter = 0.2
	}
	return &exponentialBackoff{cfg: cfg}
}

type exponentialBackoff struct {
	cfg RetryConfig
}

func (e *exponentialBackoff) NextDelay(attempt int, err error) (time.Duration, bool) {
	if attempt >= e.cfg.MaxRetries {
		return 0, false
	}
	if !IsRetryable(err) {
		return 0, false
	}

	// baseDelay * 2^attempt, then jitter in [-j, +j]
	delay := float64(e.cfg.BaseDelay) * math.Pow(2, float64(attempt))
	if e.cfg.Jitter > 0 {
		jitterRange := delay * e.cfg.Jitter
		delay += (rand.Float64()*2 - 1) * jitterRange
	}

	var pe *ProviderError
	if errors.As(err, &pe) && pe.RetryAfter > 0 && float64(pe.RetryAfter) > delay {
		delay = float64(pe.RetryAfter)
	}

	if delay > float64(e.cfg.MaxDelay) {
		delay = float64(e.cfg.MaxDelay)
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay), true
}

// IsRetryable reports whether err is a transient failure worth retrying:
// rate limiting (429), server errors (5xx), and transport failures.
// Any other 4xx, decode failures, and context cancellation are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProviderError
	isProvider := errors.As(err, &pe)
	// Transport failures stay retryable even when they wrap a client timeout.
	if isProvider && pe.Status == 0 && errors.Is(pe.Err, ErrNetwork) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if isProvider && pe.Status != 0 {
		return IsRetryableStatus(pe.Status)
	}

	switch {
	case errors.Is(err, ErrDecode),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict):
		return false
	case errors.Is(err, ErrNetwork),
		errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrServer):
		return true
	}
	return false
}

// IsRetryableStatus reports whether an HTTP status code is retryable.
func IsRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status < 600)
}

// Retry runs fn until it succeeds, the policy gives up, or ctx is done.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	if policy == nil {
		policy = NoRetry()
	}
	for attempt := 0; ; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		delay, ok := policy.NextDelay(attempt, err)
		if !ok {
			return out, err
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
