package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/petal-labs/oaikit/core"
)

var (
	// ErrDuplicateTool is returned when a tool name is already registered.
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrToolNotFound is returned by Execute for unknown tool names.
	ErrToolNotFound = errors.New("tool not found")
)

// Registry manages a collection of tools indexed by name.
// Registry is safe for concurrent use and implements core.ToolExecutor.
type Registry struct {
	mu         sync.RWMutex
	tools      map[string]Tool
	middleware []Middleware
}

var _ core.ToolExecutor = (*Registry)(nil)

// NewRegistry creates an empty registry. Middleware passed here wraps every
// tool executed through the registry.
func NewRegistry(middleware ...Middleware) *Registry {
	return &Registry{
		tools:      make(map[string]Tool),
		middleware: middleware,
	}
}

// Register adds a tool. It returns ErrDuplicateTool if the name is taken.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return errors.New("tool cannot be nil")
	}
	name := t.Name()
	if name == "" {
		return errors.New("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	r.tools[name] = ApplyMiddleware(t, r.middleware...)
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	return t, ok
}

// List returns the registered tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Definitions returns the registered tools as core.Tool values carrying
// their schemas, ready for ChatBuilder.Tools.
func (r *Registry) Definitions() []core.Tool {
	list := r.List()
	out := make([]core.Tool, len(list))
	for i, t := range list {
		out[i] = Definition(t)
	}
	return out
}

// Execute finds a tool by name and calls it with the given arguments.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (any, error) {
	tool, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	return tool.Call(ctx, args)
}
