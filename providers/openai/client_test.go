package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/petal-labs/oaikit/core"
)

func TestChatSuccess(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Path = %q, want /chat/completions", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Authorization header incorrect")
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type header incorrect")
		}

		w.Header().Set("x-request-id", "req-abc123")
		w.Write([]byte(`{
			"id": "chatcmpl-123",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o",
			"system_fingerprint": "fp_1",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "Hello! How can I help you?"},
				"finish_reason": "stop"
			}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 8, "total_tokens": 18}
		}`))
	})

	resp, err := p.Chat(context.Background(), &core.ChatRequest{
		Model:    "gpt-4o",
		Messages: []core.Message{{Role: core.RoleUser, Content: "Hello"}},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	want := &core.ChatResponse{
		ID:                "chatcmpl-123",
		Model:             "gpt-4o",
		Created:           1700000000,
		Output:            "Hello! How can I help you?",
		FinishReason:      "stop",
		SystemFingerprint: "fp_1",
		Usage:             core.TokenUsage{PromptTokens: 10, CompletionTokens: 8, TotalTokens: 18},
	}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("Chat() mismatch (-want +got):\n%s", diff)
	}
}

func TestChatRequestMapping(t *testing.T) {
	var got map[string]any
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		w.Write([]byte(`{"id":"x","model":"gpt-4o","choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	})

	temp := float32(0.5)
	maxTokens := 100
	parallel := false
	req := &core.ChatRequest{
		Model: "gpt-4o",
		Messages: []core.Message{
			{Role: core.RoleSystem, Content: "be brief"},
			{Role: core.RoleUser, Parts: []core.ContentPart{
				core.TextPart{Text: "what is this?"},
				core.ImagePart{URL: "https://example.com/cat.png", Detail: core.ImageDetailLow},
			}},
		},
		Temperature:       &temp,
		MaxTokens:         &maxTokens,
		Stop:              []string{"END"},
		Tools:             []core.Tool{core.ToolDefinition{FuncName: "get_weather", FuncDescription: "Weather", Parameters: json.RawMessage(`{"type":"object"}`)}},
		ToolChoice:        "get_weather",
		ParallelToolCalls: &parallel,
		ResponseFormat:    &core.ResponseFormat{Type: core.ResponseFormatJSONSchema, SchemaName: "answer", Schema: json.RawMessage(`{"type":"object"}`), Strict: true},
	}
	if _, err := p.Chat(context.Background(), req); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	want := map[string]any{
		"model": "gpt-4o",
		"messages": []any{
			map[string]any{"role": "system", "content": "be brief"},
			map[string]any{"role": "user", "content": []any{
				map[string]any{"type": "text", "text": "what is this?"},
				map[string]any{"type": "image_url", "image_url": map[string]any{"url": "https://example.com/cat.png", "detail": "low"}},
			}},
		},
		"temperature": 0.5,
		"max_tokens":  float64(100),
		"stop":        []any{"END"},
		"tools": []any{map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        "get_weather",
				"description": "Weather",
				"parameters":  map[string]any{"type": "object"},
			},
		}},
		"tool_choice":         map[string]any{"type": "function", "function": map[string]any{"name": "get_weather"}},
		"parallel_tool_calls": false,
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "answer",
				"schema": map[string]any{"type": "object"},
				"strict": true,
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("request body mismatch (-want +got):\n%s", diff)
	}
}

func TestChatToolChoiceDroppedWithoutTools(t *testing.T) {
	req, err := buildChatRequest(&core.ChatRequest{
		Model:      "gpt-4o",
		Messages:   []core.Message{{Role: core.RoleUser, Content: "hi"}},
		ToolChoice: core.ToolChoiceRequired,
	}, false)
	if err != nil {
		t.Fatal(err)
	}
	if req.ToolChoice != nil {
		t.Errorf("ToolChoice = %v, want nil without tools", req.ToolChoice)
	}
}

func TestChatWithToolCalls(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "chatcmpl-456",
			"model": "gpt-4o",
			"choices": [{
				"message": {
					"role": "assistant",
					"content": null,
					"tool_calls": [{
						"id": "call_abc123",
						"type": "function",
						"function": {"name": "get_weather", "arguments": "{\"location\":\"San Francisco\",\"unit\":\"celsius\"}"}
					}]
				},
				"finish_reason": "tool_calls"
			}],
			"usage": {"prompt_tokens": 15, "completion_tokens": 20, "total_tokens": 35}
		}`))
	})

	resp, err := p.Chat(context.Background(), &core.ChatRequest{
		Model:    "gpt-4o",
		Messages: []core.Message{{Role: core.RoleUser, Content: "Weather in SF?"}},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Output != "" {
		t.Errorf("Output = %q, want empty", resp.Output)
	}
	if resp.FinishReason != "tool_calls" {
		t.Errorf("FinishReason = %q", resp.FinishReason)
	}
	want := []core.ToolCall{{
		ID:        "call_abc123",
		Name:      "get_weather",
		Arguments: json.RawMessage(`{"location":"San Francisco","unit":"celsius"}`),
	}}
	if diff := cmp.Diff(want, resp.ToolCalls); diff != "" {
		t.Errorf("ToolCalls mismatch (-want +got):\n%s", diff)
	}
}

func TestChatInvalidToolArgs(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"x","choices":[{"message":{"role":"assistant","tool_calls":[{"id":"c","type":"function","function":{"name":"f","arguments":"{not json"}}]}}]}`))
	})
	_, err := p.Chat(context.Background(), &core.ChatRequest{
		Model:    "gpt-4o",
		Messages: []core.Message{{Role: core.RoleUser, Content: "hi"}},
	})
	if !errors.Is(err, ErrToolArgsInvalidJSON) {
		t.Errorf("err = %v, want ErrToolArgsInvalidJSON", err)
	}
}

func TestChatEmptyToolArgs(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"x","choices":[{"message":{"role":"assistant","tool_calls":[{"id":"c","type":"function","function":{"name":"now","arguments":""}}]},"finish_reason":"tool_calls"}]}`))
	})
	resp, err := p.Chat(context.Background(), &core.ChatRequest{
		Model:    "gpt-4o",
		Messages: []core.Message{{Role: core.RoleUser, Content: "what time is it"}},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	want := []core.ToolCall{{ID: "c", Name: "now", Arguments: json.RawMessage(`{}`)}}
	if diff := cmp.Diff(want, resp.ToolCalls); diff != "" {
		t.Errorf("ToolCalls mismatch (-want +got):\n%s", diff)
	}
}

func TestChatRefusal(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"x","choices":[{"message":{"role":"assistant","content":null,"refusal":"I can't help with that."},"finish_reason":"stop"}]}`))
	})
	resp, err := p.Chat(context.Background(), &core.ChatRequest{
		Model:    "gpt-4o",
		Messages: []core.Message{{Role: core.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Refusal != "I can't help with that." {
		t.Errorf("Refusal = %q", resp.Refusal)
	}
}

func TestChatErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key","type":"invalid_request_error","code":"invalid_api_key"}}`, core.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, `{"error":{"message":"no access"}}`, core.ErrUnauthorized},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"bad","type":"invalid_request_error","param":"messages"}}`, core.ErrBadRequest},
		{"unprocessable", http.StatusUnprocessableEntity, `{"error":{"message":"bad"}}`, core.ErrBadRequest},
		{"not found", http.StatusNotFound, `{"error":{"message":"model not found","code":"model_not_found"}}`, core.ErrNotFound},
		{"conflict", http.StatusConflict, `{"error":{"message":"conflict"}}`, core.ErrConflict},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit_exceeded"}}`, core.ErrRateLimited},
		{"server", http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`, core.ErrServer},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, core.ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("x-request-id", "req-err")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := p.Chat(context.Background(), &core.ChatRequest{
				Model:    "gpt-4o",
				Messages: []core.Message{{Role: core.RoleUser, Content: "Hi"}},
			})
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("err = %v, want %v", err, tt.sentinel)
			}
			var pe *core.ProviderError
			if !errors.As(err, &pe) {
				t.Fatal("expected *core.ProviderError")
			}
			if pe.Status != tt.status || pe.RequestID != "req-err" || pe.Provider != "openai" {
				t.Errorf("ProviderError = %+v", pe)
			}
		})
	}
}

func TestChatRequiresModel(t *testing.T) {
	_, err := New("k").Chat(context.Background(), &core.ChatRequest{
		Messages: []core.Message{{Role: core.RoleUser, Content: "hi"}},
	})
	if !errors.Is(err, core.ErrModelRequired) {
		t.Errorf("err = %v, want ErrModelRequired", err)
	}
}

func TestChatDecodeError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [`))
	})
	_, err := p.Chat(context.Background(), &core.ChatRequest{
		Model:    "gpt-4o",
		Messages: []core.Message{{Role: core.RoleUser, Content: "hi"}},
	})
	if !errors.Is(err, core.ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

func TestChatThroughClient(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"x","model":"gpt-4o-mini","choices":[{"message":{"role":"assistant","content":"pong"}}]}`))
	})
	client := core.NewClient(p)
	resp, err := client.Chat(ModelGPT4oMini).User("ping").GetResponse(context.Background())
	if err != nil {
		t.Fatalf("GetResponse() error = %v", err)
	}
	if resp.Output != "pong" {
		t.Errorf("Output = %q, want pong", resp.Output)
	}
}
