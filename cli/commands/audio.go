package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petal-labs/oaikit/providers/openai"
)

func (a *App) newAudioCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audio",
		Short: "Speech to text and text to speech",
	}
	cmd.AddCommand(
		a.newAudioTextCommand(false),
		a.newAudioTextCommand(true),
		a.newAudioSpeakCommand(),
	)
	return cmd
}

// newAudioTextCommand builds transcribe, or translate when translate is set.
func (a *App) newAudioTextCommand(translate bool) *cobra.Command {
	var (
		language    string
		prompt      string
		format      string
		temperature float32
		timestamps  []string
	)
	use, short := "transcribe <audio>", "Transcribe audio in its spoken language"
	if translate {
		use, short = "translate <audio>", "Translate audio into English text"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rf := openai.AudioResponseFormat(format)
			switch rf {
			case "", openai.AudioFormatJSON, openai.AudioFormatVerboseJSON,
				openai.AudioFormatText, openai.AudioFormatSRT, openai.AudioFormatVTT:
			default:
				return validationErr("invalid --format %q", format)
			}
			if len(timestamps) > 0 && rf != openai.AudioFormatVerboseJSON {
				return validationErr("--timestamps requires --format verbose_json")
			}
			r, err := a.openInput(args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			model, err := a.modelOr(openai.ModelWhisper1)
			if err != nil {
				return err
			}
			p, err := a.directProvider()
			if err != nil {
				return err
			}
			var temp *float32
			if cmd.Flags().Changed("temperature") {
				temp = &temperature
			}

			name := filepath.Base(args[0])
			var t *openai.Transcription
			if translate {
				t, err = p.Translate(cmd.Context(), &openai.TranslationRequest{
					Model: model, File: r, Filename: name,
					Prompt: prompt, ResponseFormat: rf, Temperature: temp,
				})
			} else {
				t, err = p.Transcribe(cmd.Context(), &openai.TranscriptionRequest{
					Model: model, File: r, Filename: name,
					Language: language, Prompt: prompt, ResponseFormat: rf, Temperature: temp,
					TimestampGranularities: timestamps,
				})
			}
			if err != nil {
				return providerErr(err)
			}
			return a.printTranscription(t, rf)
		},
	}
	if !translate {
		cmd.Flags().StringVar(&language, "language", "", "ISO-639-1 language hint")
		cmd.Flags().StringSliceVar(&timestamps, "timestamps", nil, "word and/or segment (verbose_json)")
	}
	cmd.Flags().StringVar(&prompt, "prompt", "", "text to guide style or vocabulary")
	cmd.Flags().StringVar(&format, "format", "", "json, verbose_json, text, srt or vtt")
	cmd.Flags().Float32Var(&temperature, "temperature", 0, "sampling temperature")
	return cmd
}

func (a *App) printTranscription(t *openai.Transcription, format openai.AudioResponseFormat) error {
	switch format {
	case openai.AudioFormatText, openai.AudioFormatSRT, openai.AudioFormatVTT:
		fmt.Fprint(a.stdout, t.Text)
		if !strings.HasSuffix(t.Text, "\n") {
			fmt.Fprintln(a.stdout)
		}
		return nil
	}
	if a.jsonOutput {
		return a.printJSON(t)
	}
	fmt.Fprintln(a.stdout, t.Text)
	for _, s := range t.Segments {
		fmt.Fprintf(a.stdout, "[%7.2f - %7.2f] %s\n", s.Start, s.End, strings.TrimSpace(s.Text))
	}
	return nil
}

func (a *App) newAudioSpeakCommand() *cobra.Command {
	var (
		voice        string
		instructions string
		format       string
		speed        float64
		output       string
	)
	cmd := &cobra.Command{
		Use:   "speak <text>",
		Short: "Synthesize speech",
		Long: `Synthesize speech from text. "-" reads the text from stdin.

Examples:
  oaikit audio speak "Hello there" -o hello.mp3
  oaikit audio speak - --voice nova --format wav -o out.wav < script.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := args[0]
			if text == "-" {
				lines, err := a.readLines("-")
				if err != nil {
					return err
				}
				text = strings.Join(lines, "\n")
			}
			if strings.TrimSpace(text) == "" {
				return validationErr("no text to speak")
			}
			if output == "" {
				output = "speech." + format
			}
			return a.speak(cmd.Context(), text, voice, instructions, format, speed, cmd.Flags().Changed("speed"), output)
		},
	}
	cmd.Flags().StringVar(&voice, "voice", "alloy", "voice name")
	cmd.Flags().StringVar(&instructions, "instructions", "", "tone or style instructions (gpt-4o-mini-tts)")
	cmd.Flags().StringVar(&format, "format", "mp3", "mp3, opus, aac, flac, wav or pcm")
	cmd.Flags().Float64Var(&speed, "speed", 1, "playback speed, 0.25 to 4")
	cmd.Flags().StringVarP(&output, "output", "o", "", `output path, "-" for stdout (default speech.<format>)`)
	return cmd
}

func (a *App) speak(ctx context.Context, text, voice, instructions, format string, speed float64, setSpeed bool, output string) error {
	if setSpeed && (speed < 0.25 || speed > 4) {
		return validationErr("--speed must be between 0.25 and 4")
	}
	model, err := a.modelOr(openai.ModelGPT4oMiniTTS)
	if err != nil {
		return err
	}
	p, err := a.directProvider()
	if err != nil {
		return err
	}
	req := &openai.SpeechRequest{
		Model:          model,
		Input:          text,
		Voice:          voice,
		Instructions:   instructions,
		ResponseFormat: format,
	}
	if setSpeed {
		req.Speed = &speed
	}
	audio, err := p.Speech(ctx, req)
	if err != nil {
		return providerErr(err)
	}
	defer audio.Close()

	n, err := a.writeOutput(output, audio)
	if err != nil {
		return providerErr(err)
	}
	if output != "-" {
		fmt.Fprintf(a.stderr, "wrote %d bytes to %s\n", n, output)
	}
	return nil
}
