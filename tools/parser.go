package tools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/petal-labs/oaikit/core"
)

// ErrInvalidArgs is returned when tool arguments cannot be decoded.
var ErrInvalidArgs = errors.New("invalid tool arguments")

// ParseArgs decodes the arguments of a tool call into T.
//
//	type WeatherArgs struct {
//	    Location string `json:"location"`
//	}
//
//	args, err := tools.ParseArgs[WeatherArgs](call)
func ParseArgs[T any](call core.ToolCall) (*T, error) {
	return DecodeArgs[T](call.Arguments)
}

// DecodeArgs decodes raw JSON arguments into T. Empty input decodes as {}.
func DecodeArgs[T any](raw json.RawMessage) (*T, error) {
	var result T
	if len(raw) == 0 {
		return &result, nil
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	return &result, nil
}
