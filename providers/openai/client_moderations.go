package openai

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/petal-labs/oaikit/core"
)

const moderationsPath = "/moderations"

// ModerationRequest classifies one or more texts.
type ModerationRequest struct {
	Model core.ModelID `json:"model,omitempty"`
	Input []string     `json:"input"`
}

// ModerationResponse holds one result per input, in order.
type ModerationResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Results []ModerationResult `json:"results"`
}

// ModerationResult is the classification of a single input.
type ModerationResult struct {
	Flagged        bool               `json:"flagged"`
	Categories     map[string]bool    `json:"categories"`
	CategoryScores map[string]float64 `json:"category_scores"`
}

// FlaggedCategories returns the names of flagged categories, sorted.
func (r ModerationResult) FlaggedCategories() []string {
	var out []string
	for name, flagged := range r.Categories {
		if flagged {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Moderate classifies texts against the content policy.
func (p *OpenAI) Moderate(ctx context.Context, req *ModerationRequest) (*ModerationResponse, error) {
	if len(req.Input) == 0 {
		return nil, fmt.Errorf("%w: moderation input is empty", core.ErrBadRequest)
	}
	var resp ModerationResponse
	if err := p.doJSON(ctx, http.MethodPost, moderationsPath, nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
