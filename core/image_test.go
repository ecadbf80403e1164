package core

import (
	"bytes"
	"encoding/base64"
	"testing"
)

func TestImageSizeValidation(t *testing.T) {
	tests := []struct {
		size  ImageSize
		valid bool
	}{
		{ImageSize256x256, true},
		{ImageSize1024x1024, true},
		{ImageSize1792x1024, true},
		{ImageSizeAuto, true},
		{ImageSize("invalid"), false},
	}

	for _, tt := range tests {
		if got := tt.size.IsValid(); got != tt.valid {
			t.Errorf("ImageSize(%q).IsValid() = %v, want %v", tt.size, got, tt.valid)
		}
	}
}

func TestImageQualityValidation(t *testing.T) {
	for _, q := range []ImageQuality{ImageQualityLow, ImageQualityHD, ImageQualityAuto} {
		if !q.IsValid() {
			t.Errorf("ImageQuality(%q).IsValid() = false", q)
		}
	}
	if ImageQuality("ultra").IsValid() {
		t.Error("ImageQuality(ultra).IsValid() = true")
	}
}

func TestImageFormatValidation(t *testing.T) {
	if !ImageFormatWebP.IsValid() {
		t.Error("webp should be valid")
	}
	if ImageFormat("gif").IsValid() {
		t.Error("gif should be invalid")
	}
}

func TestImageBytes(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G'}
	enc := base64.StdEncoding.EncodeToString(raw)

	got, err := ImageData{B64JSON: enc}.Bytes()
	if err != nil || !bytes.Equal(got, raw) {
		t.Errorf("ImageData.Bytes() = %v, %v", got, err)
	}
	got, err = ImageData{URL: "https://example.com/a.png"}.Bytes()
	if err != nil || got != nil {
		t.Errorf("URL image Bytes() = %v, %v; want nil, nil", got, err)
	}

	got, err = ImageInput{Base64: enc}.Bytes()
	if err != nil || !bytes.Equal(got, raw) {
		t.Errorf("ImageInput.Bytes() = %v, %v", got, err)
	}
	got, _ = ImageInput{Data: raw, Base64: "ignored"}.Bytes()
	if !bytes.Equal(got, raw) {
		t.Error("Data should take precedence over Base64")
	}
}
