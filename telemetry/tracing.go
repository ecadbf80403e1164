package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/oaikit/core"
)

// Attribute keys recorded on request spans.
const (
	AttrProvider         = attribute.Key("oaikit.provider")
	AttrModel            = attribute.Key("oaikit.model")
	AttrOperation        = attribute.Key("oaikit.operation")
	AttrAttempts         = attribute.Key("oaikit.attempts")
	AttrPromptTokens     = attribute.Key("oaikit.usage.prompt_tokens")
	AttrCompletionTokens = attribute.Key("oaikit.usage.completion_tokens")
	AttrTotalTokens      = attribute.Key("oaikit.usage.total_tokens")
	AttrHTTPStatus       = attribute.Key("http.response.status_code")
	AttrErrorCode        = attribute.Key("oaikit.error.code")
	AttrRequestID        = attribute.Key("oaikit.request_id")
)

// TracingHook records one span per request. Events carry no context, so
// spans are root spans backdated to the event's start time.
type TracingHook struct {
	tracer trace.Tracer
}

var _ core.TelemetryHook = (*TracingHook)(nil)

// NewTracingHook returns a hook recording spans with tracer.
func NewTracingHook(tracer trace.Tracer) *TracingHook {
	return &TracingHook{tracer: tracer}
}

// OnRequestStart is a no-op; the span is emitted whole at the end.
func (h *TracingHook) OnRequestStart(core.RequestStartEvent) {}

func (h *TracingHook) OnRequestEnd(e core.RequestEndEvent) {
	attrs := []attribute.KeyValue{
		AttrProvider.String(e.Provider),
		AttrModel.String(string(e.Model)),
		AttrOperation.String(e.Operation),
		AttrAttempts.Int(e.Attempts),
	}
	if e.Usage.TotalTokens > 0 {
		attrs = append(attrs,
			AttrPromptTokens.Int(e.Usage.PromptTokens),
			AttrCompletionTokens.Int(e.Usage.CompletionTokens),
			AttrTotalTokens.Int(e.Usage.TotalTokens),
		)
	}

	_, span := h.tracer.Start(context.Background(), "oaikit."+e.Operation,
		trace.WithTimestamp(e.Start),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)

	if e.Err != nil {
		var pe *core.ProviderError
		if errors.As(e.Err, &pe) {
			if pe.Status != 0 {
				span.SetAttributes(AttrHTTPStatus.Int(pe.Status))
			}
			if pe.Code != "" {
				span.SetAttributes(AttrErrorCode.String(pe.Code))
			}
			if pe.RequestID != "" {
				span.SetAttributes(AttrRequestID.String(pe.RequestID))
			}
		}
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, e.Err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(e.End))
}
