package tools

import (
	"context"
	"encoding/json"
	"slices"
)

// When applies middleware only to calls for which match returns true.
// The wrapped chain is built once per tool function, so stateful middleware
// such as rate limiters keep their state across calls.
func When(match func(toolName string) bool, middleware Middleware) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		wrapped := middleware(next)
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			if match(toolName(ctx)) {
				return wrapped(ctx, args)
			}
			return next(ctx, args)
		}
	}
}

// ForTools applies middleware only to the named tools.
func ForTools(toolNames []string, middleware Middleware) Middleware {
	return When(func(name string) bool { return slices.Contains(toolNames, name) }, middleware)
}

// ExceptTools applies middleware to every tool except the named ones.
func ExceptTools(toolNames []string, middleware Middleware) Middleware {
	return When(func(name string) bool { return !slices.Contains(toolNames, name) }, middleware)
}
