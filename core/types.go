package core

import "encoding/json"

// Feature represents a capability that a provider may support.
type Feature string

const (
	FeatureChat            Feature = "chat"
	FeatureChatStreaming   Feature = "chat_streaming"
	FeatureToolCalling     Feature = "tool_calling"
	FeatureStructuredJSON  Feature = "structured_json"
	FeatureVision          Feature = "vision"
	FeatureEmbeddings      Feature = "embeddings"
	FeatureImageGeneration Feature = "image_generation"
	FeatureAudio           Feature = "audio"
	FeatureModeration      Feature = "moderation"
	FeatureBatch           Feature = "batch"
)

// ModelInfo describes a model available from a provider.
type ModelInfo struct {
	ID           ModelID   `json:"id"`
	DisplayName  string    `json:"display_name"`
	Capabilities []Feature `json:"capabilities"`
}

// HasCapability reports whether the model supports the given feature.
func (m ModelInfo) HasCapability(f Feature) bool {
	for _, c := range m.Capabilities {
		if c == f {
			return true
		}
	}
	return false
}

// ModelID is a string identifier for a model.
type ModelID string

// Role represents a message participant role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleDeveloper Role = "developer"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message represents a single message in a conversation.
// For plain text use Content. For multimodal messages use Parts;
// if Parts is non-empty, Content is ignored.
type Message struct {
	Role       Role          `json:"role"`
	Name       string        `json:"name,omitempty"`
	Content    string        `json:"content,omitempty"`
	Parts      []ContentPart `json:"-"`
	ToolCalls  []ToolCall    `json:"tool_calls,omitempty"`   // assistant messages requesting tools
	ToolCallID string        `json:"tool_call_id,omitempty"` // RoleTool messages answering a call
}

// IsMultipart reports whether the message carries content parts.
func (m Message) IsMultipart() bool {
	return len(m.Parts) > 0
}

// TokenUsage tracks token consumption for a request.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add returns the sum of two usages.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
	}
}

// ToolCall represents a tool invocation requested by the model.
// Arguments MUST be valid JSON and are kept byte for byte as received.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult is the outcome of executing a tool call.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Content any    `json:"content"`
	IsError bool   `json:"is_error"`
}

// Tool is the minimal description of a callable function offered to the model.
// Tools that also implement SchemaProvider get their parameters schema sent.
type Tool interface {
	Name() string
	Description() string
}

// SchemaProvider is implemented by tools that describe their parameters.
type SchemaProvider interface {
	ParametersSchema() json.RawMessage
}

// ToolDefinition is a plain Tool implementation carrying its own schema.
type ToolDefinition struct {
	FuncName        string          `json:"name"`
	FuncDescription string          `json:"description"`
	Parameters      json.RawMessage `json:"parameters,omitempty"`
}

// Name returns the function name.
func (d ToolDefinition) Name() string { return d.FuncName }

// Description returns the function description.
func (d ToolDefinition) Description() string { return d.FuncDescription }

// ParametersSchema returns the JSON schema of the parameters.
func (d ToolDefinition) ParametersSchema() json.RawMessage { return d.Parameters }

// ToolChoice controls whether and which tool the model calls.
// Use ToolChoiceAuto, ToolChoiceNone, ToolChoiceRequired, or a function name.
type ToolChoice string

const (
	ToolChoiceAuto     ToolChoice = "auto"
	ToolChoiceNone     ToolChoice = "none"
	ToolChoiceRequired ToolChoice = "required"
)

// IsFunction reports whether the choice names a specific function.
func (c ToolChoice) IsFunction() bool {
	switch c {
	case "", ToolChoiceAuto, ToolChoiceNone, ToolChoiceRequired:
		return false
	default:
		return true
	}
}

// ResponseFormatType selects the output format of a chat completion.
type ResponseFormatType string

const (
	ResponseFormatText       ResponseFormatType = "text"
	ResponseFormatJSONObject ResponseFormatType = "json_object"
	ResponseFormatJSONSchema ResponseFormatType = "json_schema"
)

// ResponseFormat constrains model output.
type ResponseFormat struct {
	Type       ResponseFormatType `json:"type"`
	SchemaName string             `json:"schema_name,omitempty"`
	Schema     json.RawMessage    `json:"schema,omitempty"`
	Strict     bool               `json:"strict,omitempty"`
}

// ChatRequest represents a request to a chat model.
type ChatRequest struct {
	Model             ModelID         `json:"model"`
	Messages          []Message       `json:"messages"`
	Temperature       *float32        `json:"temperature,omitempty"`
	TopP              *float32        `json:"top_p,omitempty"`
	MaxTokens         *int            `json:"max_tokens,omitempty"`
	N                 *int            `json:"n,omitempty"`
	Stop              []string        `json:"stop,omitempty"`
	Seed              *int64          `json:"seed,omitempty"`
	User              string          `json:"user,omitempty"`
	Tools             []Tool          `json:"-"`
	ToolChoice        ToolChoice      `json:"tool_choice,omitempty"`
	ParallelToolCalls *bool           `json:"parallel_tool_calls,omitempty"`
	ResponseFormat    *ResponseFormat `json:"response_format,omitempty"`
}

// ChatResponse represents a response from a chat model.
// Only the first choice is surfaced.
type ChatResponse struct {
	ID                string     `json:"id"`
	Model             ModelID    `json:"model"`
	Created           int64      `json:"created,omitempty"`
	Output            string     `json:"output"`
	Refusal           string     `json:"refusal,omitempty"`
	FinishReason      string     `json:"finish_reason,omitempty"`
	SystemFingerprint string     `json:"system_fingerprint,omitempty"`
	Usage             TokenUsage `json:"usage"`
	ToolCalls         []ToolCall `json:"tool_calls,omitempty"`
}

// HasToolCalls reports whether the response contains any tool calls.
func (r *ChatResponse) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// FirstToolCall returns the first tool call, or nil if there are none.
//
//	if tc := resp.FirstToolCall(); tc != nil {
//	    // handle tool call
//	}
func (r *ChatResponse) FirstToolCall() *ToolCall {
	if len(r.ToolCalls) > 0 {
		return &r.ToolCalls[0]
	}
	return nil
}

// AssistantMessage returns the response as a message suitable for appending to history.
func (r *ChatResponse) AssistantMessage() Message {
	return Message{
		Role:      RoleAssistant,
		Content:   r.Output,
		ToolCalls: r.ToolCalls,
	}
}

// ChatChunk represents an incremental streaming response.
type ChatChunk struct {
	Delta string `json:"delta"`
}
