package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// SchemaValidator validates arguments against a JSON schema.
type SchemaValidator interface {
	Validate(schema json.RawMessage, data json.RawMessage) error
}

// SchemaValidatorFunc adapts a function to SchemaValidator.
type SchemaValidatorFunc func(schema, data json.RawMessage) error

// Validate calls f.
func (f SchemaValidatorFunc) Validate(schema, data json.RawMessage) error { return f(schema, data) }

// WithValidation validates arguments against the tool's schema before the
// call. Tools without a schema in their ToolContext pass through.
func WithValidation(validator SchemaValidator) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			tc := ToolContextFromContext(ctx)
			if tc == nil || len(tc.Schema) == 0 {
				return next(ctx, args)
			}
			if err := validator.Validate(tc.Schema, args); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArgs, tc.ToolName, err)
			}
			return next(ctx, args)
		}
	}
}

// WithBasicValidation rejects arguments that are not a JSON object.
// Empty arguments are allowed.
func WithBasicValidation() Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			if len(args) > 0 {
				var obj map[string]json.RawMessage
				if err := json.Unmarshal(args, &obj); err != nil {
					return nil, fmt.Errorf("%w: %s: arguments must be a JSON object", ErrInvalidArgs, toolName(ctx))
				}
			}
			return next(ctx, args)
		}
	}
}

// RequiredFields is a SchemaValidator that checks the schema's top-level
// "required" list is present in the arguments.
var RequiredFields SchemaValidator = SchemaValidatorFunc(func(schema, data json.RawMessage) error {
	var s struct {
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(schema, &s); err != nil {
		return fmt.Errorf("schema: %v", err)
	}
	if len(s.Required) == 0 {
		return nil
	}
	var obj map[string]json.RawMessage
	if len(data) > 0 {
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("arguments must be a JSON object")
		}
	}
	var missing []string
	for _, name := range s.Required {
		if _, ok := obj[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required fields %v", missing)
	}
	return nil
})
