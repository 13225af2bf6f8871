package scripting

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"topic2manim/internal/logging"
	"topic2manim/internal/services"
	"topic2manim/internal/services/llm"
	"topic2manim/internal/stage"
)

const (
	scriptTemperature = 0.8
	scriptMaxTokens   = 4000
)

// ClientSource hands out the LLM client for a provider.
type ClientSource interface {
	Client(llm.Provider) (llm.Client, error)
}

type scriptPayload struct {
	Scenes []sceneEntry `json:"scenes" jsonschema_description:"Ordered scenes of the video, between 6 and 8."`
}

type sceneEntry struct {
	Text      string `json:"text" jsonschema_description:"Narration for the scene, at most 2-3 short sentences."`
	Animation string `json:"animation" jsonschema_description:"Detailed description of the Manim animation for the scene."`
}

var scriptSchema = llm.GenerateSchema[scriptPayload]()

// Generator writes scene scripts with an LLM.
type Generator struct {
	clients ClientSource
	logger  *slog.Logger
}

// NewGenerator constructs a script generator.
func NewGenerator(clients ClientSource, logger *slog.Logger) *Generator {
	return &Generator{clients: clients, logger: logging.NewComponentLogger(logger, "script-writer")}
}

// Generate asks the provider for a script about topic and returns its scenes
// in order. Scenes with neither narration nor animation are dropped.
func (g *Generator) Generate(ctx context.Context, provider llm.Provider, topic string) ([]stage.Scene, error) {
	client, err := g.clients.Client(provider)
	if err != nil {
		return nil, err
	}
	content, err := client.CompleteJSON(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      userPrompt(topic),
		Temperature: scriptTemperature,
		MaxTokens:   scriptMaxTokens,
		SchemaName:  "video_script",
		Schema:      scriptSchema,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "script", "complete", "script request failed", err)
	}
	entries, err := decodeScript(content)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, g.logger), "script response not parseable", "script_decode_failed",
			logging.String("snippet", llm.SummarizeSnippet(content)),
			logging.String(logging.FieldImpact, "job fails without a script"),
			logging.Error(err),
		)
		return nil, services.Wrap(services.ErrValidation, "script", "decode", "script response was not valid JSON", err)
	}

	scenes := make([]stage.Scene, 0, len(entries))
	for _, e := range entries {
		text := strings.TrimSpace(e.Text)
		animation := strings.TrimSpace(e.Animation)
		if text == "" && animation == "" {
			continue
		}
		scenes = append(scenes, stage.Scene{Text: text, Animation: animation})
	}
	logging.WithContext(ctx, g.logger).Debug("script decoded",
		logging.String("provider", string(provider)),
		logging.String("model", client.Model()),
		logging.Int("scenes", len(scenes)),
	)
	return scenes, nil
}

// decodeScript accepts either the {"scenes": [...]} object or a bare array.
func decodeScript(content string) ([]sceneEntry, error) {
	var raw json.RawMessage
	if err := llm.DecodeLLMJSON(content, &raw); err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var entries []sceneEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("decode scene array: %w", err)
		}
		return entries, nil
	}
	var payload scriptPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode script object: %w", err)
	}
	return payload.Scenes, nil
}
