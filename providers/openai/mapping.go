package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/petal-labs/oaikit/core"
)

var emptyObjectSchema = json.RawMessage(`{"type":"object","properties":{}}`)

// buildChatRequest maps a core request onto the chat completions wire body.
func buildChatRequest(req *core.ChatRequest, stream bool) (*chatRequest, error) {
	msgs, err := mapMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	out := &chatRequest{
		Model:             string(req.Model),
		Messages:          msgs,
		Temperature:       req.Temperature,
		TopP:              req.TopP,
		MaxTokens:         req.MaxTokens,
		N:                 req.N,
		Stop:              req.Stop,
		Seed:              req.Seed,
		User:              req.User,
		Tools:             mapTools(req.Tools),
		ToolChoice:        mapToolChoice(req.ToolChoice),
		ParallelToolCalls: req.ParallelToolCalls,
		ResponseFormat:    mapResponseFormat(req.ResponseFormat),
	}
	if out.Tools == nil {
		// tool_choice and parallel_tool_calls are rejected without tools.
		out.ToolChoice = nil
		out.ParallelToolCalls = nil
	}
	if stream {
		out.Stream = true
		out.StreamOptions = &streamOptions{IncludeUsage: true}
	}
	return out, nil
}

func mapMessages(msgs []core.Message) ([]chatMessage, error) {
	out := make([]chatMessage, len(msgs))
	for i, m := range msgs {
		wm, err := toWireMessage(m)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out[i] = wm
	}
	return out, nil
}

// toWireMessage converts a core message. Multipart messages use the array
// form; an assistant message that only carries tool calls sends null content.
func toWireMessage(m core.Message) (chatMessage, error) {
	wm := chatMessage{
		Role:       string(m.Role),
		Name:       m.Name,
		ToolCallID: m.ToolCallID,
	}

	switch {
	case m.IsMultipart():
		parts := make([]contentPart, 0, len(m.Parts))
		for _, p := range m.Parts {
			cp, err := toWirePart(p)
			if err != nil {
				return chatMessage{}, err
			}
			parts = append(parts, cp)
		}
		wm.Content = messageContent{Parts: parts}
	case m.Role == core.RoleAssistant && len(m.ToolCalls) > 0 && m.Content == "":
	default:
		wm.Content = textContent(m.Content)
	}

	for _, tc := range m.ToolCalls {
		args := string(tc.Arguments)
		if args == "" {
			args = "{}"
		}
		wm.ToolCalls = append(wm.ToolCalls, toolCall{
			ID:       tc.ID,
			Type:     "function",
			Function: functionCall{Name: tc.Name, Arguments: args},
		})
	}
	return wm, nil
}

func toWirePart(p core.ContentPart) (contentPart, error) {
	switch v := p.(type) {
	case core.TextPart:
		return contentPart{Type: "text", Text: v.Text}, nil
	case *core.TextPart:
		return toWirePart(*v)
	case core.ImagePart:
		return contentPart{Type: "image_url", ImageURL: &imageURL{URL: v.URL, Detail: string(v.Detail)}}, nil
	case *core.ImagePart:
		return toWirePart(*v)
	case core.AudioPart:
		return contentPart{Type: "input_audio", InputAudio: &inputAudio{Data: v.Data, Format: v.Format}}, nil
	case *core.AudioPart:
		return toWirePart(*v)
	case core.FilePart:
		return contentPart{Type: "file", File: &fileRef{FileID: v.FileID, FileData: v.FileData, Filename: v.Filename}}, nil
	case *core.FilePart:
		return toWirePart(*v)
	default:
		return contentPart{}, fmt.Errorf("%w: unsupported content part %T", core.ErrBadRequest, p)
	}
}

// fromWireMessage is the inverse of toWireMessage.
func fromWireMessage(wm chatMessage) (core.Message, error) {
	m := core.Message{
		Role:       core.Role(wm.Role),
		Name:       wm.Name,
		ToolCallID: wm.ToolCallID,
	}
	if wm.Content.Text != nil {
		m.Content = *wm.Content.Text
	}
	for _, cp := range wm.Content.Parts {
		part, err := fromWirePart(cp)
		if err != nil {
			return core.Message{}, err
		}
		m.Parts = append(m.Parts, part)
	}
	calls, err := mapToolCalls(wm.ToolCalls)
	if err != nil {
		return core.Message{}, err
	}
	m.ToolCalls = calls
	return m, nil
}

func fromWirePart(cp contentPart) (core.ContentPart, error) {
	switch cp.Type {
	case "text":
		return core.TextPart{Text: cp.Text}, nil
	case "image_url":
		if cp.ImageURL == nil {
			return nil, fmt.Errorf("%w: image_url part without image_url", core.ErrDecode)
		}
		return core.ImagePart{URL: cp.ImageURL.URL, Detail: core.ImageDetail(cp.ImageURL.Detail)}, nil
	case "input_audio":
		if cp.InputAudio == nil {
			return nil, fmt.Errorf("%w: input_audio part without input_audio", core.ErrDecode)
		}
		return core.AudioPart{Data: cp.InputAudio.Data, Format: cp.InputAudio.Format}, nil
	case "file":
		if cp.File == nil {
			return nil, fmt.Errorf("%w: file part without file", core.ErrDecode)
		}
		return core.FilePart{FileID: cp.File.FileID, FileData: cp.File.FileData, Filename: cp.File.Filename}, nil
	default:
		return nil, fmt.Errorf("%w: unknown content part type %q", core.ErrDecode, cp.Type)
	}
}

// mapTools converts tools to function definitions. Tools that do not
// describe their parameters get an empty object schema.
func mapTools(tools []core.Tool) []chatTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]chatTool, len(tools))
	for i, t := range tools {
		var params json.RawMessage
		if sp, ok := t.(core.SchemaProvider); ok {
			params = sp.ParametersSchema()
		}
		if len(params) == 0 {
			params = emptyObjectSchema
		}
		out[i] = chatTool{
			Type: "function",
			Function: functionDef{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  params,
			},
		}
	}
	return out
}

func mapToolChoice(c core.ToolChoice) any {
	if c == "" {
		return nil
	}
	if !c.IsFunction() {
		return string(c)
	}
	var named namedToolChoice
	named.Type = "function"
	named.Function.Name = string(c)
	return named
}

func mapResponseFormat(f *core.ResponseFormat) *responseFormat {
	if f == nil || f.Type == "" {
		return nil
	}
	out := &responseFormat{Type: string(f.Type)}
	if f.Type == core.ResponseFormatJSONSchema {
		name := f.SchemaName
		if name == "" {
			name = "response"
		}
		out.JSONSchema = &jsonSchemaFormat{Name: name, Schema: f.Schema, Strict: f.Strict}
	}
	return out
}

// mapChatResponse surfaces the first choice of a completion.
func mapChatResponse(resp *chatResponse) (*core.ChatResponse, error) {
	result := &core.ChatResponse{
		ID:                resp.ID,
		Model:             core.ModelID(resp.Model),
		Created:           resp.Created,
		SystemFingerprint: resp.SystemFingerprint,
	}
	if resp.Usage != nil {
		result.Usage = mapUsage(*resp.Usage)
	}

	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		msg, err := fromWireMessage(choice.Message)
		if err != nil {
			return nil, err
		}
		result.Output = core.TextOf(msg)
		result.Refusal = choice.Message.Refusal
		result.FinishReason = choice.FinishReason
		result.ToolCalls = msg.ToolCalls
	}
	return result, nil
}

func mapUsage(u chatUsage) core.TokenUsage {
	return core.TokenUsage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

// mapToolCalls validates and converts wire tool calls. Arguments are kept verbatim.
func mapToolCalls(calls []toolCall) ([]core.ToolCall, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	result := make([]core.ToolCall, len(calls))
	for i, call := range calls {
		args := call.Function.Arguments
		if strings.TrimSpace(args) == "" {
			args = "{}"
		}
		if !json.Valid([]byte(args)) {
			return nil, fmt.Errorf("tool call %q: %w", call.Function.Name, ErrToolArgsInvalidJSON)
		}
		result[i] = core.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: json.RawMessage(args),
		}
	}
	return result, nil
}
