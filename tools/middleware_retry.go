package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/petal-labs/oaikit/core"
)

// ErrRetryable marks a tool error as transient. Wrap it to opt into retries
// under DefaultRetryConfig.
var ErrRetryable = errors.New("retryable")

// RetryConfig configures WithRetry.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Retryable   func(error) bool // nil retries every error
}

// DefaultRetryConfig retries errors wrapping ErrRetryable or a retryable
// provider error, three attempts in total.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 100 * time.Millisecond,
		MaxWait:     5 * time.Second,
		Retryable: func(err error) bool {
			return errors.Is(err, ErrRetryable) || core.IsRetryable(err)
		},
	}
}

// WithRetry retries failed tool calls with exponential backoff.
func WithRetry(config RetryConfig) Middleware {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	policy := retryPolicy{config: config}

	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			var attempts int
			result, err := core.Retry(ctx, policy, func(ctx context.Context) (any, error) {
				attempts++
				return next(ctx, args)
			})
			if err != nil && attempts > 1 && ctx.Err() == nil {
				return nil, fmt.Errorf("tool %s failed after %d attempts: %w", toolName(ctx), attempts, err)
			}
			return result, err
		}
	}
}

// retryPolicy adapts RetryConfig to core.RetryPolicy.
type retryPolicy struct {
	config RetryConfig
}

func (p retryPolicy) NextDelay(attempt int, err error) (time.Duration, bool) {
	if attempt+1 >= p.config.MaxAttempts {
		return 0, false
	}
	if p.config.Retryable != nil && !p.config.Retryable(err) {
		return 0, false
	}
	wait := p.config.InitialWait << attempt
	if p.config.MaxWait > 0 && (wait > p.config.MaxWait || wait <= 0) {
		wait = p.config.MaxWait
	}
	return wait, true
}
