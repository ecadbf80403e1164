package openai

import (
	"context"
	"net/http"

	"github.com/petal-labs/oaikit/core"
)

// doChat performs a non-streaming chat completion request.
func (p *OpenAI) doChat(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
	if req.Model == "" {
		return nil, core.ErrModelRequired
	}
	body, err := buildChatRequest(req, false)
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := p.doJSON(ctx, http.MethodPost, chatCompletionsPath, nil, body, &resp); err != nil {
		return nil, err
	}
	out, err := mapChatResponse(&resp)
	if err != nil {
		return nil, p.wrap(err)
	}
	return out, nil
}
