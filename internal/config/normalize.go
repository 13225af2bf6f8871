package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeTTS()
	c.normalizeRender()
	c.normalizeFFmpeg()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.MediaDir) == "" {
		c.Paths.MediaDir = defaultMediaDir
	}
	if c.Paths.MediaDir, err = expandPath(c.Paths.MediaDir); err != nil {
		return fmt.Errorf("paths.media_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ContentDir) == "" {
		c.Paths.ContentDir = defaultContentDir
	}
	if c.Paths.ContentDir, err = expandPath(c.Paths.ContentDir); err != nil {
		return fmt.Errorf("paths.content_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.DefaultProvider = strings.ToLower(strings.TrimSpace(c.LLM.DefaultProvider))
	if c.LLM.DefaultProvider == "" {
		c.LLM.DefaultProvider = defaultProvider
	}
	c.LLM.OpenAIAPIKey = envFallback(c.LLM.OpenAIAPIKey, "OPENAI_API_KEY")
	c.LLM.ClaudeAPIKey = envFallback(c.LLM.ClaudeAPIKey, "CLAUDE_API_KEY", "ANTHROPIC_API_KEY")
	c.LLM.OpenAIModel = envFallback(c.LLM.OpenAIModel, "OPENAI_MODEL")
	if c.LLM.OpenAIModel == "" {
		c.LLM.OpenAIModel = defaultOpenAIModel
	}
	c.LLM.ClaudeModel = envFallback(c.LLM.ClaudeModel, "CLAUDE_MODEL")
	if c.LLM.ClaudeModel == "" {
		c.LLM.ClaudeModel = defaultClaudeModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeout
	}
}

func (c *Config) normalizeTTS() {
	c.TTS.Model = envFallback(c.TTS.Model, "TTS_MODEL")
	if c.TTS.Model == "" {
		c.TTS.Model = defaultTTSModel
	}
	c.TTS.Voice = strings.ToLower(envFallback(c.TTS.Voice, "VOICE"))
	if c.TTS.Voice == "" {
		c.TTS.Voice = defaultTTSVoice
	}
}

func (c *Config) normalizeRender() {
	c.Render.ManimBinary = strings.TrimSpace(c.Render.ManimBinary)
	if c.Render.ManimBinary == "" {
		c.Render.ManimBinary = defaultManimBinary
	}
	c.Render.Quality = strings.ToLower(strings.TrimSpace(c.Render.Quality))
	if c.Render.Quality == "" {
		c.Render.Quality = defaultRenderQuality
	}
	if c.Render.TimeoutSeconds <= 0 {
		c.Render.TimeoutSeconds = defaultRenderTimeout
	}
}

func (c *Config) normalizeFFmpeg() {
	c.FFmpeg.FFmpegBinary = strings.TrimSpace(c.FFmpeg.FFmpegBinary)
	if c.FFmpeg.FFmpegBinary == "" {
		c.FFmpeg.FFmpegBinary = defaultFFmpegBinary
	}
	c.FFmpeg.FFprobeBinary = strings.TrimSpace(c.FFmpeg.FFprobeBinary)
	if c.FFmpeg.FFprobeBinary == "" {
		c.FFmpeg.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.RetentionHours < 0 {
		c.Workflow.RetentionHours = 0
	}
	c.Workflow.SweepSchedule = strings.TrimSpace(c.Workflow.SweepSchedule)
	if c.Workflow.SweepSchedule == "" {
		c.Workflow.SweepSchedule = defaultSweepSchedule
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// envFallback returns value when set, otherwise the first non-empty variable among keys.
func envFallback(value string, keys ...string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	for _, key := range keys {
		if env, ok := os.LookupEnv(key); ok && strings.TrimSpace(env) != "" {
			return strings.TrimSpace(env)
		}
	}
	return ""
}
