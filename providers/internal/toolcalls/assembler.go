// Package toolcalls assembles tool calls that arrive in streamed fragments.
package toolcalls

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/petal-labs/oaikit/core"
)

// ErrInvalidJSON is returned when assembled tool arguments are not valid JSON.
var ErrInvalidJSON = errors.New("tool args invalid json")

// Fragment is one streamed tool-call delta. Only the first fragment of a call
// carries ID and Name; later ones carry argument text.
type Fragment struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

type partialCall struct {
	id   string
	name string
	args strings.Builder
}

// Assembler accumulates fragmented tool calls keyed by index.
// The zero value is not usable; call New.
type Assembler struct {
	calls map[int]*partialCall
}

// New creates a tool-call assembler.
func New() *Assembler {
	return &Assembler{calls: make(map[int]*partialCall)}
}

// Add applies a fragment, creating the call entry if needed.
func (a *Assembler) Add(f Fragment) {
	call, ok := a.calls[f.Index]
	if !ok {
		call = &partialCall{}
		a.calls[f.Index] = call
	}
	if f.ID != "" {
		call.id = f.ID
	}
	if f.Name != "" {
		call.name = f.Name
	}
	call.args.WriteString(f.Arguments)
}

// Len returns the number of calls seen so far.
func (a *Assembler) Len() int { return len(a.calls) }

// Finalize validates and returns the assembled calls in index order.
// Calls with no argument text get "{}".
func (a *Assembler) Finalize() ([]core.ToolCall, error) {
	if len(a.calls) == 0 {
		return nil, nil
	}

	indexes := make([]int, 0, len(a.calls))
	for idx := range a.calls {
		indexes = append(indexes, idx)
	}
	slices.Sort(indexes)

	out := make([]core.ToolCall, 0, len(indexes))
	for _, idx := range indexes {
		call := a.calls[idx]
		args := call.args.String()
		if strings.TrimSpace(args) == "" {
			args = "{}"
		}
		if !json.Valid([]byte(args)) {
			return nil, fmt.Errorf("tool call %q (index %d): %w", call.name, idx, ErrInvalidJSON)
		}
		out = append(out, core.ToolCall{
			ID:        call.id,
			Name:      call.name,
			Arguments: json.RawMessage(args),
		})
	}
	return out, nil
}
