package tools

import (
	"context"
	"encoding/json"
)

// ToolCallFunc is the function signature for tool execution.
type ToolCallFunc func(ctx context.Context, args json.RawMessage) (any, error)

// Middleware wraps a ToolCallFunc to add behavior before or after execution.
type Middleware func(next ToolCallFunc) ToolCallFunc

// ToolContext carries metadata about the current tool call to middleware.
type ToolContext struct {
	// ToolName is the name of the tool being called.
	ToolName string

	// CallID is the model-assigned call identifier, if the caller provides one.
	CallID string

	// Schema is the tool's parameter schema.
	Schema json.RawMessage

	// Metadata allows middleware to share data with each other.
	Metadata map[string]any
}

type toolContextKey struct{}

// ContextWithToolContext adds ToolContext to a context.
func ContextWithToolContext(ctx context.Context, tc *ToolContext) context.Context {
	return context.WithValue(ctx, toolContextKey{}, tc)
}

// ToolContextFromContext retrieves ToolContext from a context, or nil.
func ToolContextFromContext(ctx context.Context) *ToolContext {
	tc, _ := ctx.Value(toolContextKey{}).(*ToolContext)
	return tc
}

func toolName(ctx context.Context) string {
	if tc := ToolContextFromContext(ctx); tc != nil && tc.ToolName != "" {
		return tc.ToolName
	}
	return "unknown"
}

// Chain combines middleware into one. The first middleware is outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// ApplyMiddleware returns a tool that runs middleware around t.
func ApplyMiddleware(t Tool, middlewares ...Middleware) Tool {
	if len(middlewares) == 0 {
		return t
	}
	return &wrappedTool{
		Tool:    t,
		wrapped: Chain(middlewares...)(t.Call),
	}
}

type wrappedTool struct {
	Tool
	wrapped ToolCallFunc
}

// ParametersSchema implements core.SchemaProvider.
func (w *wrappedTool) ParametersSchema() json.RawMessage { return w.Schema().JSONSchema }

func (w *wrappedTool) Call(ctx context.Context, args json.RawMessage) (any, error) {
	tc := ToolContextFromContext(ctx)
	if tc == nil || tc.ToolName != w.Name() {
		callID := ""
		if tc != nil {
			callID = tc.CallID
		}
		tc = &ToolContext{
			ToolName: w.Name(),
			CallID:   callID,
			Schema:   w.Schema().JSONSchema,
			Metadata: make(map[string]any),
		}
		ctx = ContextWithToolContext(ctx, tc)
	}
	return w.wrapped(ctx, args)
}
