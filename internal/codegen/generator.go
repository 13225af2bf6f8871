// Package codegen asks an LLM for the Manim source of one scene, carrying the
// previous successful scene forward for continuity and the narration length
// for pacing.
package codegen

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"topic2manim/internal/logging"
	"topic2manim/internal/services"
	"topic2manim/internal/services/llm"
	"topic2manim/internal/stage"
)

const (
	codeTemperature = 0.5
	codeMaxTokens   = 4000
)

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	classPattern      = regexp.MustCompile(`(?m)^class\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
)

// ClientSource hands out the LLM client for a provider.
type ClientSource interface {
	Client(llm.Provider) (llm.Client, error)
}

type codePayload struct {
	Content   string `json:"content" jsonschema_description:"Complete Python source for the Manim scene."`
	ClassName string `json:"class_name" jsonschema_description:"Name of the Scene subclass defined in content."`
}

var codeSchema = llm.GenerateSchema[codePayload]()

// Generator produces Manim scene code.
type Generator struct {
	clients ClientSource
	logger  *slog.Logger
}

// NewGenerator constructs a code generator.
func NewGenerator(clients ClientSource, logger *slog.Logger) *Generator {
	return &Generator{clients: clients, logger: logging.NewComponentLogger(logger, "codegen")}
}

// Generate returns the class name and source for req. When the model omits
// the class name or returns one that the source does not define, the class
// declared in the source wins; failing that, Scene<index>.
func (g *Generator) Generate(ctx context.Context, req stage.SceneRequest) (string, string, error) {
	client, err := g.clients.Client(req.Provider)
	if err != nil {
		return "", "", err
	}
	content, err := client.CompleteJSON(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      userPrompt(req),
		Temperature: codeTemperature,
		MaxTokens:   codeMaxTokens,
		SchemaName:  "manim_scene",
		Schema:      codeSchema,
	})
	if err != nil {
		return "", "", services.Wrap(services.ErrTransient, "code", "complete",
			fmt.Sprintf("code request for scene %d failed", req.Index), err)
	}
	var payload codePayload
	if err := llm.DecodeLLMJSON(content, &payload); err != nil {
		return "", "", services.Wrap(services.ErrValidation, "code", "decode",
			fmt.Sprintf("code response for scene %d was not valid JSON", req.Index), err)
	}
	code := strings.TrimSpace(payload.Content)
	if code == "" {
		return "", "", services.Wrap(services.ErrValidation, "code", "decode",
			fmt.Sprintf("code response for scene %d had no content", req.Index), nil)
	}
	className := resolveClassName(strings.TrimSpace(payload.ClassName), code, req.Index)
	logging.WithContext(ctx, g.logger).Debug("scene code generated",
		logging.Int(logging.FieldSceneIndex, req.Index),
		logging.String("class_name", className),
		logging.Int("code_bytes", len(code)),
	)
	return className, code + "\n", nil
}

func resolveClassName(declared, code string, index int) string {
	defined := classPattern.FindAllStringSubmatch(code, -1)
	if identifierPattern.MatchString(declared) {
		for _, m := range defined {
			if m[1] == declared {
				return declared
			}
		}
		if len(defined) == 0 {
			return declared
		}
	}
	if len(defined) > 0 {
		return defined[len(defined)-1][1]
	}
	return fmt.Sprintf("Scene%d", index)
}
