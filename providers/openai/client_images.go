package openai

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/petal-labs/oaikit/core"
)

const (
	imageGenerationsPath = "/images/generations"
	imageEditsPath       = "/images/edits"
	imageVariationsPath  = "/images/variations"
)

// GenerateImage creates images from a text prompt.
func (p *OpenAI) GenerateImage(ctx context.Context, req *core.ImageGenerateRequest) (*core.ImageResponse, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("%w: image prompt is required", core.ErrBadRequest)
	}
	var resp core.ImageResponse
	if err := p.doJSON(ctx, http.MethodPost, imageGenerationsPath, nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EditImage edits one or more images guided by a prompt and optional mask.
func (p *OpenAI) EditImage(ctx context.Context, req *core.ImageEditRequest) (*core.ImageResponse, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("%w: image prompt is required", core.ErrBadRequest)
	}
	if len(req.Images) == 0 {
		return nil, fmt.Errorf("%w: at least one image is required", core.ErrBadRequest)
	}

	var resp core.ImageResponse
	err := p.doMultipart(ctx, imageEditsPath, func(w *multipart.Writer) error {
		field := "image"
		if len(req.Images) > 1 {
			field = "image[]"
		}
		for i, img := range req.Images {
			if err := writeImage(w, field, img, fmt.Sprintf("image_%d.png", i)); err != nil {
				return err
			}
		}
		if req.Mask != nil {
			if err := writeImage(w, "mask", *req.Mask, "mask.png"); err != nil {
				return err
			}
		}
		return writeFields(w,
			"prompt", req.Prompt,
			"model", string(req.Model),
			"n", itoa(req.N),
			"size", string(req.Size),
			"quality", string(req.Quality),
			"background", string(req.Background),
			"response_format", req.ResponseFormat,
			"user", req.User,
		)
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateImageVariation creates variations of a single image.
func (p *OpenAI) CreateImageVariation(ctx context.Context, req *core.ImageVariationRequest) (*core.ImageResponse, error) {
	var resp core.ImageResponse
	err := p.doMultipart(ctx, imageVariationsPath, func(w *multipart.Writer) error {
		if err := writeImage(w, "image", req.Image, "image.png"); err != nil {
			return err
		}
		return writeFields(w,
			"model", string(req.Model),
			"n", itoa(req.N),
			"size", string(req.Size),
			"response_format", req.ResponseFormat,
			"user", req.User,
		)
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func writeImage(w *multipart.Writer, field string, img core.ImageInput, fallbackName string) error {
	data, err := img.Bytes()
	if err != nil {
		return fmt.Errorf("%w: decode %s: %v", core.ErrBadRequest, field, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: %s has no data", core.ErrBadRequest, field)
	}
	name := img.Filename
	if name == "" {
		name = fallbackName
	}
	return writeFile(w, field, name, bytes.NewReader(data))
}

func itoa(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
