package stage

import (
	"context"

	"topic2manim/internal/services/llm"
)

// ScriptGenerator turns a topic into an ordered list of scenes.
type ScriptGenerator interface {
	Generate(ctx context.Context, provider llm.Provider, topic string) ([]Scene, error)
}

// Synthesizer produces narration audio.
type Synthesizer interface {
	// Synthesize writes speech for text to dest and returns its duration in
	// seconds. A zero duration means the length could not be measured.
	Synthesize(ctx context.Context, text, dest string) (float64, error)
	Concatenate(ctx context.Context, fragments []string, dest string) error
}

// SceneRequest is the input for generating one scene's animation code.
type SceneRequest struct {
	Provider      llm.Provider
	Index         int
	Text          string
	Animation     string
	AudioDuration float64
	Previous      Continuity
}

// CodeGenerator produces renderable animation source for one scene.
type CodeGenerator interface {
	Generate(ctx context.Context, req SceneRequest) (className, code string, err error)
}

// Renderer compiles a scene source file into a video clip.
type Renderer interface {
	Compile(ctx context.Context, sourcePath, className string) (string, error)
}

// Assembler joins clips and muxes narration.
type Assembler interface {
	Concat(ctx context.Context, inputs []string, dest string) error
	Mux(ctx context.Context, video, audio, dest string) error
}
