package openai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/petal-labs/oaikit/core"
)

// CreateEmbeddings generates embeddings for the given input texts.
// Vectors are returned in input order with IDs and metadata echoed back.
func (p *OpenAI) CreateEmbeddings(ctx context.Context, req *core.EmbeddingRequest) (*core.EmbeddingResponse, error) {
	if req.Model == "" {
		return nil, core.ErrModelRequired
	}
	if len(req.Input) == 0 {
		return nil, fmt.Errorf("%w: embedding input is empty", core.ErrBadRequest)
	}

	var resp embeddingResponse
	if err := p.doJSON(ctx, http.MethodPost, embeddingsPath, nil, buildEmbeddingRequest(req), &resp); err != nil {
		return nil, err
	}
	return mapEmbeddingResponse(p.ID(), req, &resp)
}

func buildEmbeddingRequest(req *core.EmbeddingRequest) *embeddingRequest {
	texts := make([]string, len(req.Input))
	for i, in := range req.Input {
		texts[i] = in.Text
	}
	return &embeddingRequest{
		Model:          string(req.Model),
		Input:          texts,
		EncodingFormat: string(req.EncodingFormat),
		Dimensions:     req.Dimensions,
		User:           req.User,
	}
}

func mapEmbeddingResponse(provider string, req *core.EmbeddingRequest, resp *embeddingResponse) (*core.EmbeddingResponse, error) {
	out := &core.EmbeddingResponse{
		Vectors: make([]core.EmbeddingVector, len(resp.Data)),
		Model:   core.ModelID(resp.Model),
		Usage: core.EmbeddingUsage{
			PromptTokens: resp.Usage.PromptTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}
	seen := make([]bool, len(resp.Data))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(resp.Data) || d.Index >= len(req.Input) || seen[d.Index] {
			return nil, &core.ProviderError{
				Provider: provider,
				Message:  fmt.Sprintf("embedding index %d out of range or repeated", d.Index),
				Err:      core.ErrDecode,
			}
		}
		seen[d.Index] = true
		in := req.Input[d.Index]
		out.Vectors[d.Index] = core.EmbeddingVector{
			Index:     d.Index,
			ID:        in.ID,
			Vector:    d.Embedding.Floats,
			VectorB64: d.Embedding.base64(),
			Metadata:  in.Metadata,
		}
	}
	return out, nil
}
