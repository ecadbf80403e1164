// Package telemetry provides core.TelemetryHook implementations backed by
// zap and OpenTelemetry.
//
//	client := core.NewClient(provider, core.WithTelemetry(telemetry.Multi(
//		telemetry.NewZapHook(logger),
//		telemetry.NewTracingHook(otel.Tracer("oaikit")),
//	)))
package telemetry

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/petal-labs/oaikit/core"
)

// ZapHook logs request lifecycle events. Starts are logged at debug level,
// completions at info and failures at warn.
type ZapHook struct {
	logger *zap.Logger
}

var _ core.TelemetryHook = (*ZapHook)(nil)

// NewZapHook returns a hook logging to logger. A nil logger disables logging.
func NewZapHook(logger *zap.Logger) *ZapHook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapHook{logger: logger}
}

func (h *ZapHook) OnRequestStart(e core.RequestStartEvent) {
	h.logger.Debug("request start",
		zap.String("provider", e.Provider),
		zap.String("model", string(e.Model)),
		zap.String("operation", e.Operation),
	)
}

func (h *ZapHook) OnRequestEnd(e core.RequestEndEvent) {
	fields := []zap.Field{
		zap.String("provider", e.Provider),
		zap.String("model", string(e.Model)),
		zap.String("operation", e.Operation),
		zap.Duration("duration", e.Duration()),
		zap.Int("attempts", e.Attempts),
	}
	if e.Usage.TotalTokens > 0 {
		fields = append(fields,
			zap.Int("prompt_tokens", e.Usage.PromptTokens),
			zap.Int("completion_tokens", e.Usage.CompletionTokens),
			zap.Int("total_tokens", e.Usage.TotalTokens),
		)
	}

	level := zapcore.InfoLevel
	msg := "request done"
	if e.Err != nil {
		level = zapcore.WarnLevel
		msg = "request failed"
		fields = append(fields, zap.Error(e.Err))
	}
	h.logger.Log(level, msg, fields...)
}

// Multi fans events out to every non-nil hook in order.
func Multi(hooks ...core.TelemetryHook) core.TelemetryHook {
	out := make(multiHook, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

type multiHook []core.TelemetryHook

func (m multiHook) OnRequestStart(e core.RequestStartEvent) {
	for _, h := range m {
		h.OnRequestStart(e)
	}
}

func (m multiHook) OnRequestEnd(e core.RequestEndEvent) {
	for _, h := range m {
		h.OnRequestEnd(e)
	}
}
