package openai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/petal-labs/oaikit/core"
)

const modelsPath = "/models"

// Model is a model as reported by the live /models endpoint.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ListModels lists the models available to the API key.
func (p *OpenAI) ListModels(ctx context.Context) ([]Model, error) {
	var page Page[Model]
	if err := p.doJSON(ctx, http.MethodGet, modelsPath, nil, nil, &page); err != nil {
		return nil, err
	}
	return page.Data, nil
}

// GetModel retrieves a single model.
func (p *OpenAI) GetModel(ctx context.Context, id core.ModelID) (*Model, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: model id is required", core.ErrBadRequest)
	}
	var m Model
	if err := p.doJSON(ctx, http.MethodGet, modelsPath+"/"+url.PathEscape(string(id)), nil, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
