package openai

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/petal-labs/oaikit/core"
)

const embeddingsPath = "/embeddings"

type embeddingRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
	Dimensions     *int     `json:"dimensions,omitempty"`
	User           string   `json:"user,omitempty"`
}

type embeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  embeddingUsage  `json:"usage"`
}

type embeddingData struct {
	Object    string         `json:"object"`
	Index     int            `json:"index"`
	Embedding embeddingValue `json:"embedding"`
}

type embeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// embeddingValue is a float array or a base64 string of little-endian
// float32s. A non-nil Base64 selects the string form, even when empty.
type embeddingValue struct {
	Floats []float32
	Base64 *string
}

// MarshalJSON emits the base64 form when set, otherwise the float array.
func (v embeddingValue) MarshalJSON() ([]byte, error) {
	if v.Base64 != nil {
		return json.Marshal(*v.Base64)
	}
	if v.Floats == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v.Floats)
}

func (v embeddingValue) base64() string {
	if v.Base64 == nil {
		return ""
	}
	return *v.Base64
}

// UnmarshalJSON accepts either shape and rejects anything else.
func (v *embeddingValue) UnmarshalJSON(data []byte) error {
	*v = embeddingValue{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("embedding: expected float array or base64 string, got empty input")
	}
	switch data[0] {
	case '[':
		floats := []float32{}
		if err := json.Unmarshal(data, &floats); err != nil {
			return fmt.Errorf("embedding: float array: %w", err)
		}
		v.Floats = floats
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("embedding: %w", err)
		}
		if _, err := core.DecodeBase64Vector(s); err != nil {
			return err
		}
		v.Base64 = &s
	default:
		return fmt.Errorf("embedding: expected float array or base64 string, got %s", jsonKind(data))
	}
	return nil
}
