package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"golang.org/x/time/rate"
)

// RateLimiter blocks until a call may proceed. *rate.Limiter satisfies it.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// WithRateLimit limits calls to ratePerSecond with a burst of twice the
// rate, at least one.
func WithRateLimit(ratePerSecond float64) Middleware {
	burst := max(1, int(math.Ceil(ratePerSecond*2)))
	return WithRateLimiter(rate.NewLimiter(rate.Limit(ratePerSecond), burst))
}

// WithRateLimiter creates middleware using a custom rate limiter.
func WithRateLimiter(limiter RateLimiter) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			if err := limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("tool %s: rate limit: %w", toolName(ctx), err)
			}
			return next(ctx, args)
		}
	}
}
