package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/petal-labs/oaikit/core"
	"github.com/petal-labs/oaikit/providers/internal/normalize"
	"github.com/petal-labs/oaikit/providers/internal/sse"
	"github.com/petal-labs/oaikit/providers/internal/toolcalls"
)

// doStreamChat opens a streaming completion. Errors before the first byte
// are returned directly; later ones arrive on the stream's Err channel.
func (p *OpenAI) doStreamChat(ctx context.Context, req *core.ChatRequest) (*core.ChatStream, error) {
	if req.Model == "" {
		return nil, core.ErrModelRequired
	}
	wire, err := buildChatRequest(req, true)
	if err != nil {
		return nil, err
	}
	body, err := marshalJSON(wire)
	if err != nil {
		return nil, p.wrap(err)
	}

	resp, err := p.send(ctx, &apiRequest{
		method:      http.MethodPost,
		path:        chatCompletionsPath,
		body:        body,
		contentType: "application/json",
		accept:      "text/event-stream",
	})
	if err != nil {
		return nil, err
	}

	chunkCh := make(chan core.ChatChunk, 64)
	errCh := make(chan error, 1)
	finalCh := make(chan *core.ChatResponse, 1)

	go p.readStream(ctx, resp.Body, chunkCh, errCh, finalCh)

	return &core.ChatStream{
		Ch:    chunkCh,
		Err:   errCh,
		Final: finalCh,
	}, nil
}

func (p *OpenAI) readStream(
	ctx context.Context,
	body io.ReadCloser,
	chunkCh chan<- core.ChatChunk,
	errCh chan<- error,
	finalCh chan<- *core.ChatResponse,
) {
	defer close(chunkCh)
	defer close(errCh)
	defer close(finalCh)
	defer body.Close()

	// Unblock a pending read when the caller goes away.
	stop := context.AfterFunc(ctx, func() { _ = body.Close() })
	defer stop()

	fail := func(err error) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		errCh <- err
	}

	var (
		reader  = sse.NewReader(body)
		asm     = toolcalls.New()
		final   = &core.ChatResponse{}
		output  strings.Builder
		refusal strings.Builder
	)

	for {
		ev, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fail(p.networkError(err))
			return
		}
		if ev.Data == "" {
			continue
		}

		data := []byte(ev.Data)
		if streamErr := normalize.StreamError(p.ID(), data); streamErr != nil {
			fail(streamErr)
			return
		}

		var chunk chatChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			fail(p.decodeError(err))
			return
		}

		if chunk.ID != "" {
			final.ID = chunk.ID
		}
		if chunk.Model != "" {
			final.Model = core.ModelID(chunk.Model)
		}
		if chunk.Created != 0 {
			final.Created = chunk.Created
		}
		if chunk.SystemFingerprint != "" {
			final.SystemFingerprint = chunk.SystemFingerprint
		}
		if chunk.Usage != nil {
			final.Usage = mapUsage(*chunk.Usage)
		}

		for _, choice := range chunk.Choices {
			if choice.Index != 0 {
				continue
			}
			if choice.FinishReason != nil {
				final.FinishReason = *choice.FinishReason
			}
			refusal.WriteString(choice.Delta.Refusal)
			for _, tc := range choice.Delta.ToolCalls {
				asm.Add(toolcalls.Fragment{
					Index:     tc.Index,
					ID:        tc.ID,
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				})
			}
			if choice.Delta.Content == "" {
				continue
			}
			output.WriteString(choice.Delta.Content)
			select {
			case chunkCh <- core.ChatChunk{Delta: choice.Delta.Content}:
			case <-ctx.Done():
				fail(ctx.Err())
				return
			}
		}
	}

	if ctx.Err() != nil {
		fail(ctx.Err())
		return
	}

	calls, err := asm.Finalize()
	if err != nil {
		fail(p.wrap(err))
		return
	}
	final.Output = output.String()
	final.Refusal = refusal.String()
	final.ToolCalls = calls
	finalCh <- final
}
