package openai

import (
	"io"

	"github.com/petal-labs/oaikit/core"
)

// AudioResponseFormat selects the transcription output format.
type AudioResponseFormat string

const (
	AudioFormatJSON        AudioResponseFormat = "json"
	AudioFormatVerboseJSON AudioResponseFormat = "verbose_json"
	AudioFormatText        AudioResponseFormat = "text"
	AudioFormatSRT         AudioResponseFormat = "srt"
	AudioFormatVTT         AudioResponseFormat = "vtt"
)

// isJSON reports whether responses in this format decode as JSON.
func (f AudioResponseFormat) isJSON() bool {
	return f == "" || f == AudioFormatJSON || f == AudioFormatVerboseJSON
}

// Audio models.
const (
	ModelWhisper1        core.ModelID = "whisper-1"
	ModelGPT4oTranscribe core.ModelID = "gpt-4o-transcribe"
	ModelGPT4oMiniTTS    core.ModelID = "gpt-4o-mini-tts"
	ModelTTS1            core.ModelID = "tts-1"
	ModelTTS1HD          core.ModelID = "tts-1-hd"
)

// TranscriptionRequest transcribes audio in its spoken language.
type TranscriptionRequest struct {
	Model          core.ModelID
	File           io.Reader
	Filename       string // extension selects the audio type, e.g. "speech.mp3"
	Language       string // ISO-639-1 hint
	Prompt         string
	ResponseFormat AudioResponseFormat
	Temperature    *float32

	// TimestampGranularities is "word" and/or "segment"; requires verbose_json.
	TimestampGranularities []string
}

// TranslationRequest translates audio into English text.
type TranslationRequest struct {
	Model          core.ModelID
	File           io.Reader
	Filename       string
	Prompt         string
	ResponseFormat AudioResponseFormat
	Temperature    *float32
}

// Transcription is the result of a transcription or translation.
// For text, srt and vtt formats only Text is set and holds the raw body.
type Transcription struct {
	Text     string                 `json:"text"`
	Language string                 `json:"language,omitempty"`
	Duration float64                `json:"duration,omitempty"`
	Words    []TranscriptionWord    `json:"words,omitempty"`
	Segments []TranscriptionSegment `json:"segments,omitempty"`
}

// TranscriptionWord is a word with timestamps in seconds.
type TranscriptionWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TranscriptionSegment is a segment of verbose_json output.
type TranscriptionSegment struct {
	ID               int     `json:"id"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	AvgLogprob       float64 `json:"avg_logprob,omitempty"`
	NoSpeechProb     float64 `json:"no_speech_prob,omitempty"`
	CompressionRatio float64 `json:"compression_ratio,omitempty"`
}

// SpeechRequest is the body of POST /audio/speech.
type SpeechRequest struct {
	Model          core.ModelID `json:"model"`
	Input          string       `json:"input"`
	Voice          string       `json:"voice"`
	Instructions   string       `json:"instructions,omitempty"`
	ResponseFormat string       `json:"response_format,omitempty"` // mp3, opus, aac, flac, wav, pcm
	Speed          *float64     `json:"speed,omitempty"`
}
