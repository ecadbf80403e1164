package tools

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// WithTracing records a span named "tool <name>" around each call.
func WithTracing(tracer trace.Tracer) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			name := toolName(ctx)
			attrs := []attribute.KeyValue{attribute.String("tool.name", name)}
			if tc := ToolContextFromContext(ctx); tc != nil && tc.CallID != "" {
				attrs = append(attrs, attribute.String("tool.call_id", tc.CallID))
			}

			ctx, span := tracer.Start(ctx, "tool "+name, trace.WithAttributes(attrs...))
			defer span.End()

			result, err := next(ctx, args)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return result, err
		}
	}
}
