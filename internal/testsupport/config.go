package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"topic2manim/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// An OpenAI key is set so submissions resolve a provider; the API binds to an
// ephemeral port.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.MediaDir = filepath.Join(base, "media")
	cfgVal.Paths.ContentDir = filepath.Join(base, "content")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.LLM.OpenAIAPIKey = "sk-test"
	cfgVal.LLM.OpenAIModel = "gpt-4"
	cfgVal.LLM.ClaudeModel = "claude-3-5-sonnet-20241022"
	cfgVal.TTS.Model = "tts-1"
	cfgVal.TTS.Voice = "alloy"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithKeys sets the provider credentials on the test config. Empty values
// clear the credential.
func WithKeys(openAI, claude string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.OpenAIAPIKey = openAI
		b.cfg.LLM.ClaudeAPIKey = claude
	}
}

// WithNarration toggles the narration default.
func WithNarration(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TTS.Enabled = enabled
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the manim and ffmpeg tool
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"manim", "ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteScript(b.t, binDir, name, "exit 0\n")
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.MediaDir)
}
