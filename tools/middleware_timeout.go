package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/petal-labs/oaikit/core"
)

// TimeoutError reports a tool call cut off by WithTimeout. It matches both
// core.ErrToolTimeout and context.DeadlineExceeded.
type TimeoutError struct {
	Tool  string
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("tool %s: no result after %v", e.Tool, e.Limit)
}

func (e *TimeoutError) Unwrap() []error {
	return []error{core.ErrToolTimeout, context.DeadlineExceeded}
}

// WithTimeout gives each call at most limit to finish. A tool that ignores
// its context keeps running in the background and its late result is
// dropped. Cancellation by the caller is returned as is, not as a timeout.
// A non-positive limit disables the middleware.
func WithTimeout(limit time.Duration) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		if limit <= 0 {
			return next
		}
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			callCtx, cancel := context.WithTimeout(ctx, limit)
			defer cancel()

			type outcome struct {
				value any
				err   error
			}
			done := make(chan outcome, 1)
			go func() {
				v, err := next(callCtx, args)
				done <- outcome{v, err}
			}()

			var o outcome
			select {
			case o = <-done:
				if o.err == nil {
					return o.value, nil
				}
			case <-callCtx.Done():
			}
			switch {
			case ctx.Err() != nil:
				return nil, ctx.Err()
			case callCtx.Err() != nil:
				return nil, &TimeoutError{Tool: toolName(ctx), Limit: limit}
			}
			return o.value, o.err
		}
	}
}
