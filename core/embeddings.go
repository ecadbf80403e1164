package core

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// EncodingFormat specifies the embedding output format.
type EncodingFormat string

const (
	// EncodingFormatFloat returns embeddings as float arrays.
	EncodingFormatFloat EncodingFormat = "float"
	// EncodingFormatBase64 returns embeddings as base64 little-endian float32 bytes.
	EncodingFormatBase64 EncodingFormat = "base64"
)

// EmbeddingInput represents a single text to embed with optional metadata.
// ID and Metadata are local bookkeeping and are echoed onto the matching vector.
type EmbeddingInput struct {
	Text     string            `json:"text"`
	ID       string            `json:"id,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// EmbeddingRequest represents a request to generate embeddings.
type EmbeddingRequest struct {
	Model          ModelID          `json:"model"`
	Input          []EmbeddingInput `json:"input"`
	EncodingFormat EncodingFormat   `json:"encoding_format,omitempty"`
	Dimensions     *int             `json:"dimensions,omitempty"`
	User           string           `json:"user,omitempty"`
}

// Texts is a convenience constructor for inputs without IDs.
func Texts(texts ...string) []EmbeddingInput {
	in := make([]EmbeddingInput, len(texts))
	for i, t := range texts {
		in[i] = EmbeddingInput{Text: t}
	}
	return in
}

// EmbeddingVector represents a single embedding result.
// Exactly one of Vector or VectorB64 is set, depending on the wire shape received.
type EmbeddingVector struct {
	Index     int               `json:"index"`
	ID        string            `json:"id,omitempty"`
	Vector    []float32         `json:"vector,omitempty"`
	VectorB64 string            `json:"vector_b64,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Floats returns the vector as floats regardless of the received encoding.
func (v EmbeddingVector) Floats() ([]float32, error) {
	if v.Vector != nil || v.VectorB64 == "" {
		return v.Vector, nil
	}
	return DecodeBase64Vector(v.VectorB64)
}

// DecodeBase64Vector decodes a base64 string of little-endian float32 values.
func DecodeBase64Vector(s string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("embedding base64: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("embedding base64: %d bytes is not a multiple of 4", len(raw))
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}

// EncodeBase64Vector is the inverse of DecodeBase64Vector.
func EncodeBase64Vector(v []float32) string {
	raw := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(f))
	}
	return base64.StdEncoding.EncodeToString(raw)
}

// EmbeddingUsage tracks token consumption for embeddings.
type EmbeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// EmbeddingResponse contains the generated embeddings.
type EmbeddingResponse struct {
	Vectors []EmbeddingVector `json:"vectors"`
	Model   ModelID           `json:"model"`
	Usage   EmbeddingUsage    `json:"usage"`
}

// EmbeddingProvider is an optional interface for providers that support embeddings.
type EmbeddingProvider interface {
	// CreateEmbeddings generates embeddings for the given input texts.
	CreateEmbeddings(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error)
}
