package core

import (
	"context"
	"encoding/base64"
)

// ImageSize represents supported image dimensions.
type ImageSize string

const (
	ImageSize256x256   ImageSize = "256x256"
	ImageSize512x512   ImageSize = "512x512"
	ImageSize1024x1024 ImageSize = "1024x1024"
	ImageSize1536x1024 ImageSize = "1536x1024"
	ImageSize1024x1536 ImageSize = "1024x1536"
	ImageSize1792x1024 ImageSize = "1792x1024"
	ImageSize1024x1792 ImageSize = "1024x1792"
	ImageSizeAuto      ImageSize = "auto"
)

// IsValid reports whether the image size is a recognized value.
func (s ImageSize) IsValid() bool {
	switch s {
	case ImageSize256x256, ImageSize512x512, ImageSize1024x1024,
		ImageSize1536x1024, ImageSize1024x1536, ImageSize1792x1024,
		ImageSize1024x1792, ImageSizeAuto:
		return true
	default:
		return false
	}
}

// ImageQuality represents the rendering quality level.
type ImageQuality string

const (
	ImageQualityLow      ImageQuality = "low"
	ImageQualityMedium   ImageQuality = "medium"
	ImageQualityHigh     ImageQuality = "high"
	ImageQualityStandard ImageQuality = "standard"
	ImageQualityHD       ImageQuality = "hd"
	ImageQualityAuto     ImageQuality = "auto"
)

// IsValid reports whether the image quality is a recognized value.
func (q ImageQuality) IsValid() bool {
	switch q {
	case ImageQualityLow, ImageQualityMedium, ImageQualityHigh,
		ImageQualityStandard, ImageQualityHD, ImageQualityAuto:
		return true
	default:
		return false
	}
}

// ImageFormat represents the output file format.
type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "png"
	ImageFormatJPEG ImageFormat = "jpeg"
	ImageFormatWebP ImageFormat = "webp"
)

// IsValid reports whether the image format is a recognized value.
func (f ImageFormat) IsValid() bool {
	switch f {
	case ImageFormatPNG, ImageFormatJPEG, ImageFormatWebP:
		return true
	default:
		return false
	}
}

// ImageBackground represents the background style.
type ImageBackground string

const (
	ImageBackgroundOpaque      ImageBackground = "opaque"
	ImageBackgroundTransparent ImageBackground = "transparent"
	ImageBackgroundAuto        ImageBackground = "auto"
)

// ImageGenerateRequest represents a request to generate images.
type ImageGenerateRequest struct {
	Model  ModelID `json:"model,omitempty"`
	Prompt string  `json:"prompt"`

	N              int             `json:"n,omitempty"`
	Size           ImageSize       `json:"size,omitempty"`
	Quality        ImageQuality    `json:"quality,omitempty"`
	Style          string          `json:"style,omitempty"` // "vivid" or "natural"
	Format         ImageFormat     `json:"output_format,omitempty"`
	Compression    *int            `json:"output_compression,omitempty"` // 0-100 for jpeg/webp
	Background     ImageBackground `json:"background,omitempty"`
	Moderation     string          `json:"moderation,omitempty"` // "auto" or "low"
	User           string          `json:"user,omitempty"`
	ResponseFormat string          `json:"response_format,omitempty"` // "b64_json" or "url"
}

// ImageEditRequest represents a request to edit images.
// Images and Mask are sent as multipart file fields.
type ImageEditRequest struct {
	Model  ModelID
	Prompt string
	Images []ImageInput
	Mask   *ImageInput

	N              int
	Size           ImageSize
	Quality        ImageQuality
	Background     ImageBackground
	ResponseFormat string
	User           string
}

// ImageVariationRequest asks for variations of a single square PNG.
type ImageVariationRequest struct {
	Model          ModelID
	Image          ImageInput
	N              int
	Size           ImageSize
	ResponseFormat string
	User           string
}

// ImageInput represents an input image for editing or variations.
type ImageInput struct {
	// One of these must be set.
	Data     []byte
	Base64   string
	Filename string // Optional filename hint, defaults to image.png
}

// Bytes returns the image data as bytes.
func (i ImageInput) Bytes() ([]byte, error) {
	if len(i.Data) > 0 {
		return i.Data, nil
	}
	if i.Base64 != "" {
		return base64.StdEncoding.DecodeString(i.Base64)
	}
	return nil, nil
}

// ImageResponse represents a response containing generated images.
type ImageResponse struct {
	Created int64       `json:"created"`
	Data    []ImageData `json:"data"`
	Usage   *ImageUsage `json:"usage,omitempty"`
}

// ImageData represents a single generated image.
type ImageData struct {
	B64JSON       string `json:"b64_json,omitempty"`
	URL           string `json:"url,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// Bytes decodes the inline image data. URL results must be fetched separately
// and return nil.
func (d ImageData) Bytes() ([]byte, error) {
	if d.B64JSON != "" {
		return base64.StdEncoding.DecodeString(d.B64JSON)
	}
	return nil, nil
}

// ImageUsage tracks token usage for image generation.
type ImageUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// ImageGenerator is an optional interface for providers that support images.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req *ImageGenerateRequest) (*ImageResponse, error)
	EditImage(ctx context.Context, req *ImageEditRequest) (*ImageResponse, error)
	CreateImageVariation(ctx context.Context, req *ImageVariationRequest) (*ImageResponse, error)
}
