package core

import (
	"context"
	"strings"
)

// ChatStream represents a streaming response from a provider.
//
// Channel rules:
//   - Providers MUST close Ch, Err, and Final when finished
//   - On context cancellation, providers MUST terminate promptly and close channels
//   - Err emits at most one error
//   - Final emits exactly once on success and never after an error
//   - Usage MAY be zero when the provider does not report it for streams
type ChatStream struct {
	// Ch emits text deltas in order.
	Ch <-chan ChatChunk

	// Err emits at most one error.
	Err <-chan error

	// Final carries the assembled response with usage and tool calls.
	// Output may be empty; DrainStream fills it from the deltas.
	Final <-chan *ChatResponse
}

// DrainStream accumulates all deltas and returns the final ChatResponse.
// It blocks until every channel of the stream is closed or ctx is done.
func DrainStream(ctx context.Context, s *ChatStream) (*ChatResponse, error) {
	if s == nil {
		return nil, ErrBadRequest
	}

	var (
		text      strings.Builder
		streamErr error
		final     *ChatResponse
	)

	ch, errCh, finalCh := s.Ch, s.Err, s.Final
	for ch != nil || errCh != nil || finalCh != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case chunk, ok := <-ch:
			if !ok {
				ch = nil
				continue
			}
			text.WriteString(chunk.Delta)
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil && streamErr == nil {
				streamErr = err
			}
		case resp, ok := <-finalCh:
			if !ok {
				finalCh = nil
				continue
			}
			final = resp
		}
	}

	if streamErr != nil {
		return nil, streamErr
	}
	if final == nil {
		final = &ChatResponse{}
	}
	if final.Output == "" {
		final.Output = text.String()
	}
	return final, nil
}

// streamObserver wraps a stream and reports its outcome once Err and Final
// have both closed. Ch is passed through untouched.
func streamObserver(s *ChatStream, done func(*ChatResponse, error)) *ChatStream {
	finalCh := make(chan *ChatResponse, 1)
	errCh := make(chan error, 1)

	go func() {
		var (
			final *ChatResponse
			err   error
		)
		inErr, inFinal := s.Err, s.Final
		for inErr != nil || inFinal != nil {
			select {
			case e, ok := <-inErr:
				if !ok {
					inErr = nil
					continue
				}
				if e != nil && err == nil {
					err = e
					errCh <- e
				}
			case r, ok := <-inFinal:
				if !ok {
					inFinal = nil
					continue
				}
				if final == nil {
					final = r
					finalCh <- r
				}
			}
		}
		close(errCh)
		close(finalCh)
		done(final, err)
	}()

	return &ChatStream{Ch: s.Ch, Err: errCh, Final: finalCh}
}
