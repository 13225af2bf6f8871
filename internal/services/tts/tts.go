// Package tts synthesizes narration with the OpenAI speech endpoint and
// stitches per-scene fragments into one track.
package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"topic2manim/internal/media/ffmpeg"
	"topic2manim/internal/media/ffprobe"
	"topic2manim/internal/services"
)

// Config captures the speech settings.
type Config struct {
	APIKey        string
	Model         string
	Voice         string
	BaseURL       string
	FFprobeBinary string
	HTTPClient    *http.Client
	MaxRetries    int
}

// Synthesizer implements narration on top of OpenAI speech, ffprobe and ffmpeg.
type Synthesizer struct {
	client  openai.Client
	model   string
	voice   string
	ffprobe string
	joiner  *ffmpeg.Runner
}

// New constructs a Synthesizer. joiner concatenates fragments.
func New(cfg Config, joiner *ffmpeg.Runner) *Synthesizer {
	opts := []option.RequestOption{option.WithAPIKey(strings.TrimSpace(cfg.APIKey))}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "tts-1"
	}
	voice := strings.ToLower(strings.TrimSpace(cfg.Voice))
	if voice == "" {
		voice = "alloy"
	}
	if joiner == nil {
		joiner = ffmpeg.New("")
	}
	return &Synthesizer{
		client:  openai.NewClient(opts...),
		model:   model,
		voice:   voice,
		ffprobe: cfg.FFprobeBinary,
		joiner:  joiner,
	}
}

// Synthesize writes an MP3 rendition of text to dest and returns its length
// in seconds. A fragment whose length cannot be probed is kept with a zero
// duration.
func (s *Synthesizer) Synthesize(ctx context.Context, text, dest string) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, services.Wrap(services.ErrValidation, "tts", "synthesize", "narration text is empty", nil)
	}
	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(s.model),
		Voice:          openai.AudioSpeechNewParamsVoice(s.voice),
		Input:          text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "tts", "synthesize", "speech request failed", err)
	}
	defer resp.Body.Close()

	if err := writeStream(resp.Body, dest); err != nil {
		return 0, err
	}
	duration, err := ffprobe.Duration(ctx, s.ffprobe, dest)
	if err != nil {
		return 0, nil
	}
	return duration, nil
}

// Concatenate joins fragments into dest in order.
func (s *Synthesizer) Concatenate(ctx context.Context, fragments []string, dest string) error {
	if err := s.joiner.Concat(ctx, fragments, dest); err != nil {
		return fmt.Errorf("concatenate narration: %w", err)
	}
	return nil
}

func writeStream(r io.Reader, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "tts", "write audio", "create fragment directory", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "tts", "write audio", "create fragment file", err)
	}
	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && n == 0 {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		_ = os.Remove(dest)
		return services.Wrap(services.ErrTransient, "tts", "write audio", "speech response incomplete", err)
	}
	return nil
}
