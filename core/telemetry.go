package core

import "time"

// TelemetryHook receives notifications about request lifecycle events.
//
// Events carry operational metadata only. They never include API keys,
// prompt content, or model output, so hooks may log or export them freely.
// New fields must keep that property.
type TelemetryHook interface {
	// OnRequestStart is called when a request to a provider begins.
	OnRequestStart(e RequestStartEvent)

	// OnRequestEnd is called when a request to a provider completes.
	OnRequestEnd(e RequestEndEvent)
}

// Operation names reported in telemetry events.
const (
	OpChat       = "chat"
	OpChatStream = "chat_stream"
	OpEmbed      = "embed"
	OpImage      = "image"
)

// RequestStartEvent contains metadata about a starting request.
type RequestStartEvent struct {
	Provider  string    // Provider identifier (e.g., "openai", "groq")
	Model     ModelID   // Model being called
	Operation string    // One of the Op* constants
	Start     time.Time // When the request started
}

// RequestEndEvent contains metadata about a completed request.
type RequestEndEvent struct {
	Provider  string
	Model     ModelID
	Operation string
	Start     time.Time
	End       time.Time
	Attempts  int        // Number of provider calls including retries
	Usage     TokenUsage // Token consumption, zero if unknown
	Err       error      // Error if request failed, nil on success
}

// Duration returns the elapsed time for the request.
func (e RequestEndEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// NoopTelemetryHook is a no-op implementation of TelemetryHook.
type NoopTelemetryHook struct{}

// OnRequestStart does nothing.
func (NoopTelemetryHook) OnRequestStart(RequestStartEvent) {}

// OnRequestEnd does nothing.
func (NoopTelemetryHook) OnRequestEnd(RequestEndEvent) {}

var _ TelemetryHook = NoopTelemetryHook{}
