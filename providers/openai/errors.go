package openai

import (
	"fmt"

	"github.com/petal-labs/oaikit/providers/internal/normalize"
	"github.com/petal-labs/oaikit/providers/internal/toolcalls"
)

// ErrToolArgsInvalidJSON is returned when tool call arguments contain invalid JSON.
var ErrToolArgsInvalidJSON = toolcalls.ErrInvalidJSON

func (p *OpenAI) networkError(err error) error {
	return normalize.NetworkError(p.ID(), err)
}

func (p *OpenAI) decodeError(err error) error {
	return normalize.DecodeError(p.ID(), err)
}

// wrap prefixes err with the provider ID, keeping it matchable with errors.Is.
func (p *OpenAI) wrap(err error) error {
	return fmt.Errorf("%s: %w", p.ID(), err)
}
