package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// ToolExecutor executes tools by name. tools.Registry implements it.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args json.RawMessage) (any, error)
}

// ErrMaxIterations is returned when the model keeps requesting tools past
// ToolLoopConfig.MaxIterations.
var ErrMaxIterations = errors.New("tool loop: max iterations reached")

// ErrToolTimeout classifies a tool call that ran past its time limit.
var ErrToolTimeout = errors.New("tool timed out")

// ToolLoopConfig configures RunTools.
type ToolLoopConfig struct {
	// MaxIterations bounds the number of model calls. Default 10.
	MaxIterations int

	// MaxParallel bounds concurrent tool executions per turn. Default 4; 1 runs sequentially.
	MaxParallel int

	// ToolTimeout bounds a single tool execution. Zero means no timeout.
	ToolTimeout time.Duration

	// StopOnToolError aborts the loop on the first tool failure instead of
	// reporting the error to the model as the tool result.
	StopOnToolError bool

	// OnToolCall, if set, is invoked after each tool finishes. It may be
	// called from several goroutines at once.
	OnToolCall func(ToolExecution)
}

// DefaultToolLoopConfig returns the defaults used when fields are zero.
func DefaultToolLoopConfig() ToolLoopConfig {
	return ToolLoopConfig{MaxIterations: 10, MaxParallel: 4}
}

// ToolExecution records one tool call and its outcome.
type ToolExecution struct {
	Iteration int
	Call      ToolCall
	Result    any
	Err       error
	Duration  time.Duration
}

// ToolLoopResult is the outcome of RunTools.
type ToolLoopResult struct {
	Final      *ChatResponse
	Iterations int
	Usage      TokenUsage
	Calls      []ToolExecution
	Messages   []Message // full transcript sent on the last call plus the final reply
}

// RunTools runs the request in b, executing requested tool calls through
// exec and feeding their results back until the model answers without tools.
// b is not modified.
func RunTools(ctx context.Context, b *ChatBuilder, exec ToolExecutor, cfg ToolLoopConfig) (*ToolLoopResult, error) {
	if exec == nil {
		return nil, fmt.Errorf("tool loop: nil executor: %w", ErrBadRequest)
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 10
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 4
	}

	work := b.Clone()
	res := &ToolLoopResult{}

	for res.Iterations < cfg.MaxIterations {
		res.Iterations++
		resp, err := work.GetResponse(ctx)
		if err != nil {
			return res, err
		}
		res.Usage = res.Usage.Add(resp.Usage)
		work.Message(resp.AssistantMessage())

		if !resp.HasToolCalls() {
			res.Final = resp
			res.Messages = work.Request().Messages
			return res, nil
		}

		execs, err := runCalls(ctx, exec, resp.ToolCalls, res.Iterations, cfg)
		res.Calls = append(res.Calls, execs...)
		if err != nil {
			return res, err
		}
		for _, e := range execs {
			work.Message(Message{
				Role:       RoleTool,
				ToolCallID: e.Call.ID,
				Content:    toolContent(e),
			})
		}
	}

	res.Messages = work.Request().Messages
	return res, ErrMaxIterations
}

// runCalls executes calls with bounded parallelism. Results keep call order.
func runCalls(ctx context.Context, exec ToolExecutor, calls []ToolCall, iteration int, cfg ToolLoopConfig) ([]ToolExecution, error) {
	out := make([]ToolExecution, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxParallel)
	for i, call := range calls {
		g.Go(func() error {
			tctx := gctx
			if cfg.ToolTimeout > 0 {
				var cancel context.CancelFunc
				tctx, cancel = context.WithTimeout(gctx, cfg.ToolTimeout)
				defer cancel()
			}

			start := time.Now()
			result, err := exec.Execute(tctx, call.Name, call.Arguments)
			out[i] = ToolExecution{
				Iteration: iteration,
				Call:      call,
				Result:    result,
				Err:       err,
				Duration:  time.Since(start),
			}
			if cfg.OnToolCall != nil {
				cfg.OnToolCall(out[i])
			}
			if err != nil && cfg.StopOnToolError {
				return fmt.Errorf("tool %s: %w", call.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}

// toolContent renders a tool result as message content.
func toolContent(e ToolExecution) string {
	if e.Err != nil {
		return "error: " + e.Err.Error()
	}
	switch v := e.Result.(type) {
	case nil:
		return "null"
	case string:
		if v == "" {
			return `""`
		}
		return v
	case json.RawMessage:
		return string(v)
	}
	data, err := json.Marshal(e.Result)
	if err != nil {
		return "error: unencodable result: " + err.Error()
	}
	return string(data)
}
