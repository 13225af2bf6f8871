package main

import (
	"log/slog"
	"time"

	"topic2manim/internal/assembly"
	"topic2manim/internal/codegen"
	"topic2manim/internal/config"
	"topic2manim/internal/media/ffmpeg"
	"topic2manim/internal/narration"
	"topic2manim/internal/scenes"
	"topic2manim/internal/scripting"
	"topic2manim/internal/services/llm"
	"topic2manim/internal/services/manim"
	"topic2manim/internal/services/tts"
	"topic2manim/internal/stage"
	"topic2manim/internal/workflow"
)

func registerStages(mgr *workflow.Manager, cfg *config.Config, logger *slog.Logger) {
	clients := llm.NewSet(llm.Config{
		OpenAIKey:      cfg.LLM.OpenAIAPIKey,
		OpenAIModel:    cfg.LLM.OpenAIModel,
		ClaudeKey:      cfg.LLM.ClaudeAPIKey,
		ClaudeModel:    cfg.LLM.ClaudeModel,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	runner := ffmpeg.New(cfg.FFmpeg.FFmpegBinary)

	// A nil interface keeps narration off; a typed nil would look configured.
	var synth stage.Synthesizer
	if cfg.NarrationAvailable() {
		synth = tts.New(tts.Config{
			APIKey:        cfg.LLM.OpenAIAPIKey,
			Model:         cfg.TTS.Model,
			Voice:         cfg.TTS.Voice,
			FFprobeBinary: cfg.FFmpeg.FFprobeBinary,
		}, runner)
	}

	renderer := manim.New(manim.Config{
		Binary:   cfg.Render.ManimBinary,
		Quality:  cfg.Render.Quality,
		Timeout:  time.Duration(cfg.Render.TimeoutSeconds) * time.Second,
		MediaDir: cfg.Paths.MediaDir,
	})
	pipeline := scenes.NewPipeline(codegen.NewGenerator(clients, logger), renderer, cfg.Paths.ContentDir, logger)

	mgr.ConfigureStages(workflow.StageSet{
		Script:    scripting.NewHandler(scripting.NewGenerator(clients, logger), clients, cfg.Paths.ContentDir, logger),
		Narration: narration.NewHandler(synth, cfg.Paths.MediaDir, logger),
		Scenes: scenes.NewHandler(pipeline, scenes.HandlerOptions{
			MediaDir:    cfg.Paths.MediaDir,
			ManimBinary: cfg.Render.ManimBinary,
			KeepSources: cfg.Render.KeepSources,
		}, logger),
		Assembly: assembly.NewHandler(runner, assembly.Options{
			MediaDir:      cfg.Paths.MediaDir,
			FFmpegBinary:  cfg.FFmpeg.FFmpegBinary,
			FFprobeBinary: cfg.FFmpeg.FFprobeBinary,
		}, logger),
	})
}
