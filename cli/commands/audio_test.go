package commands

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeAudioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "speech.mp3")
	if err := os.WriteFile(path, []byte("ID3"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAudioTranscribe(t *testing.T) {
	audio := writeAudioFile(t)
	ta := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
			return
		}
		if r.FormValue("model") != "whisper-1" || r.FormValue("language") != "de" {
			t.Errorf("form = %v", r.MultipartForm.Value)
		}
		if _, hdr, err := r.FormFile("file"); err != nil || hdr.Filename != "speech.mp3" {
			t.Errorf("file = %v, %v", hdr, err)
		}
		writeJSON(w, map[string]any{
			"text":     "Hallo Welt",
			"language": "german",
			"segments": []map[string]any{{"id": 0, "start": 0, "end": 1.5, "text": " Hallo Welt"}},
		})
	})

	if err := ta.run("audio", "transcribe", audio, "--language", "de", "--format", "verbose_json"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	out := ta.stdout.String()
	if !strings.HasPrefix(out, "Hallo Welt\n") || !strings.Contains(out, "1.50] Hallo Welt") {
		t.Errorf("stdout = %q", out)
	}
}

func TestAudioTranslateText(t *testing.T) {
	audio := writeAudioFile(t)
	ta := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/translations" {
			t.Errorf("path = %s", r.URL.Path)
		}
		io.WriteString(w, "1\n00:00:00,000 --> 00:00:01,500\nHello world\n")
	})

	if err := ta.run("audio", "translate", audio, "--format", "srt"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(ta.stdout.String(), "00:00:00,000 --> 00:00:01,500\nHello world\n") {
		t.Errorf("stdout = %q", ta.stdout.String())
	}
}

func TestAudioTranscribeValidation(t *testing.T) {
	audio := writeAudioFile(t)
	ta := newTestApp(t, nil)
	if err := ta.run("audio", "transcribe", audio, "--format", "mp3"); ExitCode(err) != ExitValidation {
		t.Errorf("bad format: err = %v", err)
	}
	if err := ta.run("audio", "transcribe", audio, "--timestamps", "word"); ExitCode(err) != ExitValidation {
		t.Errorf("timestamps without verbose_json: err = %v", err)
	}
}

func TestAudioSpeak(t *testing.T) {
	var req map[string]any
	ta := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "audio/wav")
		io.WriteString(w, "RIFFdata")
	})

	out := filepath.Join(t.TempDir(), "hello.wav")
	if err := ta.run("audio", "speak", "Hello", "--voice", "nova", "--format", "wav", "--speed", "1.25", "-o", out); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if req["model"] != "gpt-4o-mini-tts" || req["voice"] != "nova" || req["response_format"] != "wav" || req["speed"] != 1.25 {
		t.Errorf("request = %v", req)
	}
	if data, _ := os.ReadFile(out); string(data) != "RIFFdata" {
		t.Errorf("output = %q", data)
	}
}

func TestAudioSpeakStdinToStdout(t *testing.T) {
	var req map[string]any
	ta := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&req)
		io.WriteString(w, "MP3")
	})
	ta.stdin = "line one\nline two\n"

	if err := ta.run("audio", "speak", "-", "-o", "-"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if req["input"] != "line one\nline two" {
		t.Errorf("input = %q", req["input"])
	}
	if _, ok := req["speed"]; ok {
		t.Error("speed should be omitted unless set")
	}
	if ta.stdout.String() != "MP3" {
		t.Errorf("stdout = %q", ta.stdout.String())
	}
}

func TestAudioSpeakValidation(t *testing.T) {
	ta := newTestApp(t, nil)
	if err := ta.run("audio", "speak", "hi", "--speed", "9"); ExitCode(err) != ExitValidation {
		t.Errorf("err = %v", err)
	}
	if err := ta.run("audio", "speak", "  "); ExitCode(err) != ExitValidation {
		t.Errorf("blank text: err = %v", err)
	}
}
