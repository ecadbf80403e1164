package tools

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// WithLogging logs each tool call at debug level and failures at warn.
// Arguments are not logged.
func WithLogging(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			start := time.Now()
			result, err := next(ctx, args)

			fields := []zap.Field{
				zap.String("tool", toolName(ctx)),
				zap.Duration("duration", time.Since(start)),
			}
			if tc := ToolContextFromContext(ctx); tc != nil && tc.CallID != "" {
				fields = append(fields, zap.String("call_id", tc.CallID))
			}
			if err != nil {
				logger.Warn("tool call failed", append(fields, zap.Error(err))...)
			} else {
				logger.Debug("tool call", fields...)
			}
			return result, err
		}
	}
}

// WithDetailedLogging is WithLogging plus the raw arguments.
// It may log sensitive data; use it only in development.
func WithDetailedLogging(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			logger.Debug("tool call start",
				zap.String("tool", toolName(ctx)),
				zap.ByteString("args", args))
			return WithLogging(logger)(next)(ctx, args)
		}
	}
}
