package config

const (
	defaultConfigPath      = "~/.config/topic2manim/config.toml"
	defaultMediaDir        = "~/.local/share/topic2manim/media"
	defaultContentDir      = "~/.local/share/topic2manim/content"
	defaultLogDir          = "~/.local/share/topic2manim/logs"
	defaultAPIBind         = "127.0.0.1:5000"
	defaultProvider        = "auto"
	defaultOpenAIModel     = "gpt-4"
	defaultClaudeModel     = "claude-3-5-sonnet-20241022"
	defaultLLMTimeout      = 120
	defaultTTSModel        = "tts-1"
	defaultTTSVoice        = "alloy"
	defaultManimBinary     = "manim"
	defaultRenderQuality   = "l"
	defaultRenderTimeout   = 300
	defaultFFmpegBinary    = "ffmpeg"
	defaultFFprobeBinary   = "ffprobe"
	defaultRetentionHours  = 24
	defaultSweepSchedule   = "@every 10m"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultTTSEnabledValue = true
)

// Default returns a Config populated with repository defaults. Model and
// voice names stay empty so OPENAI_MODEL, CLAUDE_MODEL, TTS_MODEL and VOICE
// can fill them during Load before the built-in names apply.
func Default() Config {
	return Config{
		Paths: Paths{
			MediaDir:   defaultMediaDir,
			ContentDir: defaultContentDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		LLM: LLM{
			DefaultProvider: defaultProvider,
			TimeoutSeconds:  defaultLLMTimeout,
		},
		TTS: TTS{
			Enabled: defaultTTSEnabledValue,
		},
		Render: Render{
			ManimBinary:    defaultManimBinary,
			Quality:        defaultRenderQuality,
			TimeoutSeconds: defaultRenderTimeout,
		},
		FFmpeg: FFmpeg{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Workflow: Workflow{
			RetentionHours: defaultRetentionHours,
			SweepSchedule:  defaultSweepSchedule,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
