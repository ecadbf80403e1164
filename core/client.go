package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Provider is the interface that chat backends must implement.
// Providers SHOULD be safe for concurrent calls.
type Provider interface {
	// ID returns the provider identifier (e.g., "openai", "groq").
	ID() string

	// Models returns the list of models known to this provider.
	Models() []ModelInfo

	// Supports reports whether the provider supports the given feature.
	Supports(feature Feature) bool

	// Chat sends a non-streaming chat request.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// StreamChat sends a streaming chat request. An error is returned only
	// if the stream could not be opened; later failures arrive on ChatStream.Err.
	StreamChat(ctx context.Context, req *ChatRequest) (*ChatStream, error)
}

// Client is the main entry point for talking to a provider.
// Client is safe for concurrent use.
type Client struct {
	provider  Provider
	telemetry TelemetryHook
	retry     RetryPolicy
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new Client with the given provider and options.
func NewClient(p Provider, opts ...ClientOption) *Client {
	c := &Client{
		provider:  p,
		telemetry: NoopTelemetryHook{},
		retry:     DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTelemetry sets the telemetry hook for the client.
func WithTelemetry(h TelemetryHook) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.telemetry = h
		}
	}
}

// WithRetryPolicy sets the retry policy for the client.
func WithRetryPolicy(r RetryPolicy) ClientOption {
	return func(c *Client) {
		if r != nil {
			c.retry = r
		}
	}
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider {
	return c.provider
}

// Chat returns a ChatBuilder for constructing and executing a chat request.
func (c *Client) Chat(model ModelID) *ChatBuilder {
	return &ChatBuilder{
		client: c,
		req:    ChatRequest{Model: model},
	}
}

// Embed generates embeddings if the provider implements EmbeddingProvider.
func (c *Client) Embed(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error) {
	ep, ok := c.provider.(EmbeddingProvider)
	if !ok {
		return nil, fmt.Errorf("%s: embeddings: %w", c.provider.ID(), ErrNotSupported)
	}
	if req == nil || req.Model == "" {
		return nil, ErrModelRequired
	}
	if len(req.Input) == 0 {
		return nil, fmt.Errorf("embeddings: no input: %w", ErrBadRequest)
	}

	var usage TokenUsage
	resp, err := instrument(ctx, c, OpEmbed, req.Model, func(ctx context.Context) (*EmbeddingResponse, error) {
		r, err := ep.CreateEmbeddings(ctx, req)
		if err == nil {
			usage = TokenUsage{PromptTokens: r.Usage.PromptTokens, TotalTokens: r.Usage.TotalTokens}
		}
		return r, err
	}, &usage)
	return resp, err
}

// GenerateImage generates images if the provider implements ImageGenerator.
func (c *Client) GenerateImage(ctx context.Context, req *ImageGenerateRequest) (*ImageResponse, error) {
	ig, ok := c.provider.(ImageGenerator)
	if !ok {
		return nil, fmt.Errorf("%s: images: %w", c.provider.ID(), ErrNotSupported)
	}
	if req == nil || req.Prompt == "" {
		return nil, fmt.Errorf("images: prompt required: %w", ErrBadRequest)
	}
	return instrument(ctx, c, OpImage, req.Model, func(ctx context.Context) (*ImageResponse, error) {
		return ig.GenerateImage(ctx, req)
	}, nil)
}

// instrument runs fn under the client's retry policy and reports it to the
// telemetry hook. usage, if non-nil, is read after fn succeeds.
func instrument[T any](ctx context.Context, c *Client, op string, model ModelID, fn func(context.Context) (T, error), usage *TokenUsage) (T, error) {
	start := time.Now()
	providerID := c.provider.ID()
	c.telemetry.OnRequestStart(RequestStartEvent{
		Provider:  providerID,
		Model:     model,
		Operation: op,
		Start:     start,
	})

	attempts := 0
	out, err := Retry(ctx, c.retry, func(ctx context.Context) (T, error) {
		attempts++
		return fn(ctx)
	})

	end := RequestEndEvent{
		Provider:  providerID,
		Model:     model,
		Operation: op,
		Start:     start,
		End:       time.Now(),
		Attempts:  attempts,
		Err:       err,
	}
	if usage != nil && err == nil {
		end.Usage = *usage
	}
	c.telemetry.OnRequestEnd(end)
	return out, err
}

// ChatBuilder provides a fluent API for building chat requests.
// ChatBuilder is NOT thread-safe; use Clone to branch a request.
type ChatBuilder struct {
	client *Client
	req    ChatRequest
}

// System appends a system message.
func (b *ChatBuilder) System(s string) *ChatBuilder {
	return b.Message(Message{Role: RoleSystem, Content: s})
}

// Developer appends a developer message.
func (b *ChatBuilder) Developer(s string) *ChatBuilder {
	return b.Message(Message{Role: RoleDeveloper, Content: s})
}

// User appends a user message.
func (b *ChatBuilder) User(s string) *ChatBuilder {
	return b.Message(Message{Role: RoleUser, Content: s})
}

// Assistant appends an assistant message.
func (b *ChatBuilder) Assistant(s string) *ChatBuilder {
	return b.Message(Message{Role: RoleAssistant, Content: s})
}

// Message appends an arbitrary message.
func (b *ChatBuilder) Message(m Message) *ChatBuilder {
	b.req.Messages = append(b.req.Messages, m)
	return b
}

// Messages appends several messages in order.
func (b *ChatBuilder) Messages(ms ...Message) *ChatBuilder {
	b.req.Messages = append(b.req.Messages, ms...)
	return b
}

// Temperature sets the temperature parameter.
func (b *ChatBuilder) Temperature(v float32) *ChatBuilder {
	b.req.Temperature = &v
	return b
}

// TopP sets nucleus sampling.
func (b *ChatBuilder) TopP(v float32) *ChatBuilder {
	b.req.TopP = &v
	return b
}

// MaxTokens sets the maximum tokens parameter.
func (b *ChatBuilder) MaxTokens(n int) *ChatBuilder {
	b.req.MaxTokens = &n
	return b
}

// Stop sets stop sequences.
func (b *ChatBuilder) Stop(seqs ...string) *ChatBuilder {
	b.req.Stop = seqs
	return b
}

// Seed requests deterministic sampling where supported.
func (b *ChatBuilder) Seed(n int64) *ChatBuilder {
	b.req.Seed = &n
	return b
}

// EndUser sets the end-user identifier sent with the request.
func (b *ChatBuilder) EndUser(id string) *ChatBuilder {
	b.req.User = id
	return b
}

// Tools sets the tools available for the request.
func (b *ChatBuilder) Tools(ts ...Tool) *ChatBuilder {
	b.req.Tools = ts
	return b
}

// ToolChoice sets how the model picks tools.
func (b *ChatBuilder) ToolChoice(c ToolChoice) *ChatBuilder {
	b.req.ToolChoice = c
	return b
}

// ParallelToolCalls toggles parallel tool calling.
func (b *ChatBuilder) ParallelToolCalls(enabled bool) *ChatBuilder {
	b.req.ParallelToolCalls = &enabled
	return b
}

// JSONMode asks for a JSON object response.
func (b *ChatBuilder) JSONMode() *ChatBuilder {
	b.req.ResponseFormat = &ResponseFormat{Type: ResponseFormatJSONObject}
	return b
}

// JSONSchema asks for a response matching schema.
func (b *ChatBuilder) JSONSchema(name string, schema json.RawMessage, strict bool) *ChatBuilder {
	b.req.ResponseFormat = &ResponseFormat{
		Type:       ResponseFormatJSONSchema,
		SchemaName: name,
		Schema:     schema,
		Strict:     strict,
	}
	return b
}

// Clone returns an independent copy of the builder.
func (b *ChatBuilder) Clone() *ChatBuilder {
	return &ChatBuilder{client: b.client, req: b.Request()}
}

// Request returns a copy of the request built so far.
func (b *ChatBuilder) Request() ChatRequest {
	req := b.req
	req.Messages = append([]Message(nil), b.req.Messages...)
	req.Tools = append([]Tool(nil), b.req.Tools...)
	req.Stop = append([]string(nil), b.req.Stop...)
	if b.req.ResponseFormat != nil {
		rf := *b.req.ResponseFormat
		req.ResponseFormat = &rf
	}
	return req
}

// validate checks that the request is well formed.
func (b *ChatBuilder) validate() error {
	if b.req.Model == "" {
		return ErrModelRequired
	}
	if len(b.req.Messages) == 0 {
		return ErrNoMessages
	}
	for i, msg := range b.req.Messages {
		if msg.Content == "" && len(msg.Parts) == 0 && len(msg.ToolCalls) == 0 {
			return fmt.Errorf("message %d (%s): %w", i, msg.Role, ErrEmptyMessage)
		}
	}
	return nil
}

// GetResponse executes the chat request and returns the response.
// It applies validation, telemetry, and retry logic.
func (b *ChatBuilder) GetResponse(ctx context.Context) (*ChatResponse, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	req := b.Request()

	var usage TokenUsage
	return instrument(ctx, b.client, OpChat, req.Model, func(ctx context.Context) (*ChatResponse, error) {
		resp, err := b.client.provider.Chat(ctx, &req)
		if err == nil {
			usage = resp.Usage
		}
		return resp, err
	}, &usage)
}

// Stream executes the chat request and returns a streaming response.
// Opening the stream is retried; once deltas flow, failures surface on Err.
func (b *ChatBuilder) Stream(ctx context.Context) (*ChatStream, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	req := b.Request()

	start := time.Now()
	providerID := b.client.provider.ID()
	hook := b.client.telemetry
	hook.OnRequestStart(RequestStartEvent{
		Provider:  providerID,
		Model:     req.Model,
		Operation: OpChatStream,
		Start:     start,
	})

	attempts := 0
	stream, err := Retry(ctx, b.client.retry, func(ctx context.Context) (*ChatStream, error) {
		attempts++
		return b.client.provider.StreamChat(ctx, &req)
	})
	if err != nil {
		hook.OnRequestEnd(RequestEndEvent{
			Provider:  providerID,
			Model:     req.Model,
			Operation: OpChatStream,
			Start:     start,
			End:       time.Now(),
			Attempts:  attempts,
			Err:       err,
		})
		return nil, err
	}

	return streamObserver(stream, func(final *ChatResponse, err error) {
		e := RequestEndEvent{
			Provider:  providerID,
			Model:     req.Model,
			Operation: OpChatStream,
			Start:     start,
			End:       time.Now(),
			Attempts:  attempts,
			Err:       err,
		}
		if final != nil {
			e.Usage = final.Usage
		}
		hook.OnRequestEnd(e)
	}), nil
}

// MessageBuilder provides a fluent API for building multimodal messages.
type MessageBuilder struct {
	parent *ChatBuilder
	role   Role
	parts  []ContentPart
}

// UserMultimodal starts building a multimodal user message.
func (b *ChatBuilder) UserMultimodal() *MessageBuilder {
	return &MessageBuilder{parent: b, role: RoleUser}
}

// Text adds a text part.
func (m *MessageBuilder) Text(s string) *MessageBuilder {
	m.parts = append(m.parts, TextPart{Text: s})
	return m
}

// ImageURL adds an image by URL (HTTPS or data URL).
func (m *MessageBuilder) ImageURL(url string) *MessageBuilder {
	m.parts = append(m.parts, ImagePart{URL: url})
	return m
}

// ImageURLWithDetail adds an image by URL with a specific detail level.
func (m *MessageBuilder) ImageURLWithDetail(url string, detail ImageDetail) *MessageBuilder {
	m.parts = append(m.parts, ImagePart{URL: url, Detail: detail})
	return m
}

// Audio adds base64-encoded audio in the given format ("wav" or "mp3").
func (m *MessageBuilder) Audio(data, format string) *MessageBuilder {
	m.parts = append(m.parts, AudioPart{Data: data, Format: format})
	return m
}

// FileID adds a file by ID from the Files API.
func (m *MessageBuilder) FileID(fileID string) *MessageBuilder {
	m.parts = append(m.parts, FilePart{FileID: fileID})
	return m
}

// FileData adds a file inline as base64.
func (m *MessageBuilder) FileData(filename, base64Data string) *MessageBuilder {
	m.parts = append(m.parts, FilePart{Filename: filename, FileData: base64Data})
	return m
}

// Done completes the message and returns to the ChatBuilder.
func (m *MessageBuilder) Done() *ChatBuilder {
	return m.parent.Message(Message{Role: m.role, Parts: m.parts})
}

// UserWithImageURL adds a user message with text and an image URL.
func (b *ChatBuilder) UserWithImageURL(text, imageURL string) *ChatBuilder {
	return b.UserMultimodal().Text(text).ImageURL(imageURL).Done()
}
