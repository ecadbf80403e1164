package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/petal-labs/oaikit/core"
)

func TestGenerateImage(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["prompt"] != "a red fox" || body["size"] != "1024x1024" || body["n"] != float64(2) {
			t.Errorf("body = %v", body)
		}
		w.Write([]byte(`{"created":1,"data":[{"b64_json":"aGVsbG8=","revised_prompt":"a red fox in snow"},{"url":"https://example.com/2.png"}]}`))
	})

	resp, err := p.GenerateImage(context.Background(), &core.ImageGenerateRequest{
		Model:  ModelDALLE3,
		Prompt: "a red fox",
		N:      2,
		Size:   core.ImageSize1024x1024,
	})
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if len(resp.Data) != 2 || resp.Data[1].URL == "" {
		t.Fatalf("Data = %+v", resp.Data)
	}
	data, err := resp.Data[0].Bytes()
	if err != nil || string(data) != "hello" {
		t.Errorf("Bytes() = %q, %v", data, err)
	}
}

func TestGenerateImageRequiresPrompt(t *testing.T) {
	if _, err := New("k").GenerateImage(context.Background(), &core.ImageGenerateRequest{}); !errors.Is(err, core.ErrBadRequest) {
		t.Errorf("err = %v", err)
	}
}

func TestEditImageMultipart(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/edits" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
			return
		}
		if r.FormValue("prompt") != "add a hat" || r.FormValue("model") != "gpt-image-1" || r.FormValue("n") != "" {
			t.Errorf("fields = %v", r.MultipartForm.Value)
		}
		images := r.MultipartForm.File["image[]"]
		if len(images) != 2 {
			t.Errorf("image[] count = %d", len(images))
			return
		}
		if ct := images[0].Header.Get("Content-Type"); ct != "image/png" {
			t.Errorf("Content-Type = %q, want image/png", ct)
		}
		mask, _, err := r.FormFile("mask")
		if err != nil {
			t.Errorf("mask missing: %v", err)
		} else {
			data, _ := io.ReadAll(mask)
			if string(data) != "MASK" {
				t.Errorf("mask = %q", data)
			}
		}
		w.Write([]byte(`{"created":2,"data":[{"b64_json":"eA=="}]}`))
	})

	resp, err := p.EditImage(context.Background(), &core.ImageEditRequest{
		Model:  ModelGPTImage1,
		Prompt: "add a hat",
		Images: []core.ImageInput{
			{Data: []byte("PNG1"), Filename: "a.png"},
			{Base64: "UE5HMg=="},
		},
		Mask: &core.ImageInput{Data: []byte("MASK")},
	})
	if err != nil {
		t.Fatalf("EditImage() error = %v", err)
	}
	if resp.Created != 2 {
		t.Errorf("Created = %d", resp.Created)
	}
}

func TestEditImageValidation(t *testing.T) {
	p := New("k")
	if _, err := p.EditImage(context.Background(), &core.ImageEditRequest{Prompt: "x"}); !errors.Is(err, core.ErrBadRequest) {
		t.Errorf("no images err = %v", err)
	}
	_, err := p.EditImage(context.Background(), &core.ImageEditRequest{Prompt: "x", Images: []core.ImageInput{{}}})
	if !errors.Is(err, core.ErrBadRequest) {
		t.Errorf("empty image err = %v", err)
	}
}

func TestCreateImageVariation(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/variations" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
			return
		}
		if r.FormValue("n") != "3" || r.FormValue("size") != "256x256" {
			t.Errorf("fields = %v", r.MultipartForm.Value)
		}
		if _, _, err := r.FormFile("image"); err != nil {
			t.Errorf("image missing: %v", err)
		}
		w.Write([]byte(`{"created":3,"data":[{"url":"u1"},{"url":"u2"},{"url":"u3"}]}`))
	})

	resp, err := p.CreateImageVariation(context.Background(), &core.ImageVariationRequest{
		Model: ModelDALLE2,
		Image: core.ImageInput{Data: []byte("PNG")},
		N:     3,
		Size:  core.ImageSize256x256,
	})
	if err != nil {
		t.Fatalf("CreateImageVariation() error = %v", err)
	}
	if len(resp.Data) != 3 {
		t.Errorf("Data = %+v", resp.Data)
	}
}
