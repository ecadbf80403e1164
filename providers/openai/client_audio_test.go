package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/petal-labs/oaikit/core"
)

func TestTranscribeJSON(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
			return
		}
		if r.FormValue("model") != "whisper-1" || r.FormValue("language") != "fr" || r.FormValue("temperature") != "0.2" {
			t.Errorf("fields = %v", r.MultipartForm.Value)
		}
		if got := r.MultipartForm.Value["timestamp_granularities[]"]; len(got) != 2 {
			t.Errorf("timestamp_granularities[] = %v", got)
		}
		_, hdr, err := r.FormFile("file")
		if err != nil || hdr.Filename != "clip.mp3" {
			t.Errorf("file = %v, %v", hdr, err)
		}
		w.Write([]byte(`{"text":"bonjour","language":"french","duration":1.5,"words":[{"word":"bonjour","start":0,"end":0.8}]}`))
	})

	temp := float32(0.2)
	out, err := p.Transcribe(context.Background(), &TranscriptionRequest{
		Model:                  ModelWhisper1,
		File:                   strings.NewReader("ID3"),
		Filename:               "clip.mp3",
		Language:               "fr",
		ResponseFormat:         AudioFormatVerboseJSON,
		Temperature:            &temp,
		TimestampGranularities: []string{"word", "segment"},
	})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if out.Text != "bonjour" || out.Duration != 1.5 || len(out.Words) != 1 {
		t.Errorf("Transcription = %+v", out)
	}
}

func TestTranslateRawFormat(t *testing.T) {
	const srt = "1\n00:00:00,000 --> 00:00:01,000\nhello\n"
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/translations" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		r.ParseMultipartForm(1 << 20)
		if r.FormValue("response_format") != "srt" {
			t.Errorf("response_format = %q", r.FormValue("response_format"))
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(srt))
	})

	out, err := p.Translate(context.Background(), &TranslationRequest{
		Model:          ModelWhisper1,
		File:           strings.NewReader("RIFF"),
		ResponseFormat: AudioFormatSRT,
	})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if out.Text != srt {
		t.Errorf("Text = %q", out.Text)
	}
}

func TestTranscribeValidation(t *testing.T) {
	p := New("k")
	if _, err := p.Transcribe(context.Background(), &TranscriptionRequest{File: strings.NewReader("x")}); !errors.Is(err, core.ErrModelRequired) {
		t.Errorf("err = %v", err)
	}
	if _, err := p.Translate(context.Background(), &TranslationRequest{Model: "whisper-1"}); !errors.Is(err, core.ErrBadRequest) {
		t.Errorf("err = %v", err)
	}
}

func TestSpeech(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		var req SpeechRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Voice != "alloy" || req.Input != "hello" || req.ResponseFormat != "wav" {
			t.Errorf("req = %+v", req)
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("RIFFDATA"))
	})

	rc, err := p.Speech(context.Background(), &SpeechRequest{Model: ModelTTS1, Input: "hello", Voice: "alloy", ResponseFormat: "wav"})
	if err != nil {
		t.Fatalf("Speech() error = %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "RIFFDATA" {
		t.Errorf("audio = %q", data)
	}
}

func TestSpeechError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"invalid voice","param":"voice"}}`))
	})
	_, err := p.Speech(context.Background(), &SpeechRequest{Model: ModelTTS1, Input: "x", Voice: "nobody"})
	var pe *core.ProviderError
	if !errors.As(err, &pe) || pe.Param != "voice" {
		t.Errorf("err = %v", err)
	}
}
