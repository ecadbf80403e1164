// Package tools defines model-callable tools, a registry that executes them
// by name, and middleware that wraps their execution.
//
// A Registry satisfies core.ToolExecutor, so it plugs straight into
// core.RunTools:
//
//	reg := tools.NewRegistry()
//	reg.MustRegister(tools.NewFunc("get_weather", "Current weather for a city",
//		weatherSchema, func(ctx context.Context, in WeatherArgs) (any, error) {
//			return lookup(ctx, in.City)
//		}))
//	res, err := core.RunTools(ctx, client.Chat(model).Tools(reg.Definitions()...), reg, core.ToolLoopConfig{})
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/petal-labs/oaikit/core"
)

// Tool defines the interface for model-callable tools.
// Tools provide a schema describing their arguments and a Call method for execution.
//
// Any Tool also satisfies core.Tool, which only requires Name and Description.
// Use Definition to obtain a core.Tool that carries the schema as well.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description tells the model when to use the tool.
	Description() string

	// Schema returns the JSON Schema that describes the tool's parameters.
	Schema() ToolSchema

	// Call executes the tool with the raw JSON arguments from the model.
	Call(ctx context.Context, args json.RawMessage) (any, error)
}

// ToolSchema describes the parameters a tool accepts.
// JSONSchema must be a JSON Schema object.
type ToolSchema struct {
	// Example: {"type": "object", "properties": {"location": {"type": "string"}}}
	JSONSchema json.RawMessage `json:"json_schema"`
}

// Definition converts a Tool into the core.Tool sent with a chat request.
func Definition(t Tool) core.Tool {
	return core.ToolDefinition{
		FuncName:        t.Name(),
		FuncDescription: t.Description(),
		Parameters:      t.Schema().JSONSchema,
	}
}

// Func is a Tool backed by a typed handler. Arguments are decoded into T
// before the handler runs.
type Func[T any] struct {
	name        string
	description string
	schema      json.RawMessage
	handler     func(ctx context.Context, args T) (any, error)
}

// NewFunc creates a Tool from a typed handler. schema may be nil, in which
// case the tool advertises an empty object schema.
func NewFunc[T any](name, description string, schema json.RawMessage, handler func(ctx context.Context, args T) (any, error)) *Func[T] {
	if len(schema) == 0 {
		schema = json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return &Func[T]{name: name, description: description, schema: schema, handler: handler}
}

func (f *Func[T]) Name() string        { return f.name }
func (f *Func[T]) Description() string { return f.description }
func (f *Func[T]) Schema() ToolSchema  { return ToolSchema{JSONSchema: f.schema} }

// ParametersSchema implements core.SchemaProvider.
func (f *Func[T]) ParametersSchema() json.RawMessage { return f.schema }

// Call decodes args into T and invokes the handler.
func (f *Func[T]) Call(ctx context.Context, args json.RawMessage) (any, error) {
	in, err := DecodeArgs[T](args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.name, err)
	}
	return f.handler(ctx, *in)
}
