package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/petal-labs/oaikit/core"
)

func TestListAndGetModels(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models":
			w.Write([]byte(`{"object":"list","data":[{"id":"gpt-4o","object":"model","created":1,"owned_by":"openai"},{"id":"whisper-1","object":"model","created":2,"owned_by":"openai"}]}`))
		case "/models/gpt-4o":
			w.Write([]byte(`{"id":"gpt-4o","object":"model","created":1,"owned_by":"openai"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	list, err := p.ListModels(ctx)
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(list) != 2 || list[1].ID != "whisper-1" {
		t.Errorf("ListModels() = %+v", list)
	}

	m, err := p.GetModel(ctx, ModelGPT4o)
	if err != nil {
		t.Fatalf("GetModel() error = %v", err)
	}
	want := &Model{ID: "gpt-4o", Object: "model", Created: 1, OwnedBy: "openai"}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("GetModel() mismatch (-want +got):\n%s", diff)
	}

	if _, err := p.GetModel(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestModerate(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/moderations" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		var req ModerationRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Input) != 2 || req.Model != ModelOmniModerationLatest {
			t.Errorf("req = %+v", req)
		}
		w.Write([]byte(`{
			"id": "modr-1",
			"model": "omni-moderation-latest",
			"results": [
				{"flagged": false, "categories": {"violence": false}, "category_scores": {"violence": 0.01}},
				{"flagged": true, "categories": {"violence": true, "harassment": true, "sexual": false}, "category_scores": {"violence": 0.9}}
			]
		}`))
	})

	resp, err := p.Moderate(context.Background(), &ModerationRequest{
		Model: ModelOmniModerationLatest,
		Input: []string{"hello", "something bad"},
	})
	if err != nil {
		t.Fatalf("Moderate() error = %v", err)
	}
	if resp.Results[0].Flagged || !resp.Results[1].Flagged {
		t.Errorf("results = %+v", resp.Results)
	}
	if diff := cmp.Diff([]string{"harassment", "violence"}, resp.Results[1].FlaggedCategories()); diff != "" {
		t.Errorf("FlaggedCategories mismatch (-want +got):\n%s", diff)
	}
}

func TestModerateRequiresInput(t *testing.T) {
	if _, err := New("k").Moderate(context.Background(), &ModerationRequest{}); !errors.Is(err, core.ErrBadRequest) {
		t.Errorf("err = %v", err)
	}
}
