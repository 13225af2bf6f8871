package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
)

var (
	validProviders = map[string]struct{}{"auto": {}, "openai": {}, "claude": {}}
	validQualities = map[string]struct{}{"l": {}, "m": {}, "h": {}, "p": {}, "k": {}}
	validVoices    = map[string]struct{}{
		"alloy": {}, "ash": {}, "ballad": {}, "coral": {}, "echo": {}, "fable": {},
		"onyx": {}, "nova": {}, "sage": {}, "shimmer": {}, "verse": {},
	}
)

// Validate ensures the configuration is usable. Missing LLM credentials are not a
// configuration error here: submission reports them per request.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.MediaDir) == "" {
		return errors.New("paths.media_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ContentDir) == "" {
		return errors.New("paths.content_dir must be set")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind %q must be host:port: %w", c.Paths.APIBind, err)
	}
	return nil
}

func (c *Config) validateLLM() error {
	if _, ok := validProviders[c.LLM.DefaultProvider]; !ok {
		return fmt.Errorf("llm.default_provider %q must be one of auto, openai, claude", c.LLM.DefaultProvider)
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateTTS() error {
	if _, ok := validVoices[c.TTS.Voice]; !ok {
		return fmt.Errorf("tts.voice %q is not a supported voice", c.TTS.Voice)
	}
	return nil
}

func (c *Config) validateRender() error {
	if _, ok := validQualities[c.Render.Quality]; !ok {
		return fmt.Errorf("render.quality %q must be one of l, m, h, p, k", c.Render.Quality)
	}
	if c.Render.TimeoutSeconds <= 0 {
		return errors.New("render.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if _, err := cron.ParseStandard(c.Workflow.SweepSchedule); err != nil {
		return fmt.Errorf("workflow.sweep_schedule %q: %w", c.Workflow.SweepSchedule, err)
	}
	return nil
}
