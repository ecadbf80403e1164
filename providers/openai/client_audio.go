package openai

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/petal-labs/oaikit/core"
)

const (
	transcriptionsPath = "/audio/transcriptions"
	translationsPath   = "/audio/translations"
	speechPath         = "/audio/speech"
)

// Transcribe converts speech to text.
func (p *OpenAI) Transcribe(ctx context.Context, req *TranscriptionRequest) (*Transcription, error) {
	if err := checkAudio(req.Model, req.File); err != nil {
		return nil, err
	}
	return p.audioText(ctx, transcriptionsPath, req.ResponseFormat, func(w *multipart.Writer) error {
		if err := writeFile(w, "file", audioName(req.Filename), req.File); err != nil {
			return err
		}
		if err := writeFields(w,
			"model", string(req.Model),
			"language", req.Language,
			"prompt", req.Prompt,
			"response_format", string(req.ResponseFormat),
			"temperature", formatFloat(req.Temperature),
		); err != nil {
			return err
		}
		for _, g := range req.TimestampGranularities {
			if err := w.WriteField("timestamp_granularities[]", g); err != nil {
				return fmt.Errorf("write timestamp_granularities field: %w", err)
			}
		}
		return nil
	})
}

// Translate converts speech in any supported language to English text.
func (p *OpenAI) Translate(ctx context.Context, req *TranslationRequest) (*Transcription, error) {
	if err := checkAudio(req.Model, req.File); err != nil {
		return nil, err
	}
	return p.audioText(ctx, translationsPath, req.ResponseFormat, func(w *multipart.Writer) error {
		if err := writeFile(w, "file", audioName(req.Filename), req.File); err != nil {
			return err
		}
		return writeFields(w,
			"model", string(req.Model),
			"prompt", req.Prompt,
			"response_format", string(req.ResponseFormat),
			"temperature", formatFloat(req.Temperature),
		)
	})
}

// audioText posts the form and decodes JSON formats; other formats are
// returned verbatim in Transcription.Text.
func (p *OpenAI) audioText(ctx context.Context, path string, format AudioResponseFormat, fill func(*multipart.Writer) error) (*Transcription, error) {
	if format.isJSON() {
		var out Transcription
		if err := p.doMultipart(ctx, path, fill, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}

	body, contentType, err := buildMultipart(fill)
	if err != nil {
		return nil, p.wrap(err)
	}
	rc, err := p.doRaw(ctx, &apiRequest{
		method:      http.MethodPost,
		path:        path,
		body:        body,
		contentType: contentType,
	})
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, p.networkError(err)
	}
	return &Transcription{Text: string(raw)}, nil
}

// Speech synthesizes audio. The caller must close the returned stream.
func (p *OpenAI) Speech(ctx context.Context, req *SpeechRequest) (io.ReadCloser, error) {
	if req.Model == "" {
		return nil, core.ErrModelRequired
	}
	if req.Input == "" || req.Voice == "" {
		return nil, fmt.Errorf("%w: speech input and voice are required", core.ErrBadRequest)
	}
	body, err := jsonBody(req)
	if err != nil {
		return nil, p.wrap(err)
	}
	return p.doRaw(ctx, &apiRequest{
		method:      http.MethodPost,
		path:        speechPath,
		body:        body,
		contentType: "application/json",
	})
}

func checkAudio(model core.ModelID, file io.Reader) error {
	if model == "" {
		return core.ErrModelRequired
	}
	if file == nil {
		return fmt.Errorf("%w: audio file is required", core.ErrBadRequest)
	}
	return nil
}

func audioName(name string) string {
	if name == "" {
		return "audio.mp3"
	}
	return name
}

func formatFloat(f *float32) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(float64(*f), 'f', -1, 32)
}
