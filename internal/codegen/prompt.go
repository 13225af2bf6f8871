package codegen

import (
	"fmt"
	"strings"

	"topic2manim/internal/stage"
)

const systemPrompt = "You are an expert in Manim Community Edition (v0.19). " +
	"You write simple, working Python code that runs without errors. " +
	"Never use self.camera.frame inside a Scene. Always answer with valid JSON."

func continuitySection(prev stage.Continuity) string {
	if prev.Empty() {
		return "CONTEXT: This is the FIRST scene of the video.\n"
	}
	return fmt.Sprintf(`PREVIOUS SCENE (keep visual and narrative continuity):
- Previous narration: %s
- Previous animation: %s
- Previous code:
`+"```python\n%s\n```"+`

Keep the style consistent with the previous scene and take into account
what was left on screen when it ended.
`, orNA(prev.Text), orNA(prev.Animation), orNA(prev.Code))
}

func pacingSection(seconds float64) string {
	if seconds > 0 {
		return fmt.Sprintf(`AUDIO SYNCHRONISATION:
- The narration for this scene lasts exactly %.2f seconds
- The animation must last exactly %.2f seconds in total
- Tune run_time values and self.wait() calls so that animations plus waits add up to %.2f seconds
- With three animations, each could take about %.2f seconds, with short pauses between them
`, seconds, seconds, seconds, seconds/3)
	}
	return `TIMING:
- The scene lasts roughly 6 to 8 seconds
- Keep run_time short (0.5 to 1.5 seconds)
- Keep self.wait() to at most 0.5 to 1 second
`
}

func userPrompt(req stage.SceneRequest) string {
	var b strings.Builder
	b.WriteString(continuitySection(req.Previous))
	b.WriteString("\nWrite Manim Python code for this educational animation.\n\n")
	fmt.Fprintf(&b, "CURRENT CONTENT:\n- Narration: %s\n- Animation: %s\n\n", req.Text, req.Animation)
	b.WriteString(pacingSection(req.AudioDuration))
	b.WriteString(technicalRules)
	fmt.Fprintf(&b, "\nName the class Scene%d unless another name fits better.\n", req.Index)
	return b.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

const technicalRules = `
TECHNICAL RULES:
1. The class inherits from Scene (not MovingCameraScene or ThreeDScene)
2. self.camera.frame does not exist in Scene; zoom with object.animate.scale(factor)
3. Use only basic animations: Write, Create, FadeIn, FadeOut, Transform, ReplacementTransform
4. No complex 3D animations
5. Never create empty Text or Paragraph objects, and never position one

COLOURS:
- Only WHITE, BLACK, RED, GREEN, BLUE, YELLOW, PURPLE, ORANGE, PINK, GRAY
- No variants such as RED_A or ORANGE_D; use hex strings like "#FF5733" for anything else

SCREEN SPACE:
- FadeOut old elements before showing new ones; never write text over text
- At most 2 or 3 text elements on screen at once, separated with .to_edge() or .shift()
- Texts longer than 80 characters use Paragraph(..., width=11, font_size=24-36)
- Short titles use font_size 40-48; never exceed width=12

STRUCTURE:
` + "```python" + `
from manim import *

class ClassName(Scene):
    def construct(self):
        text = Text("Hello")
        self.play(Write(text))
        self.wait(1)
        self.play(FadeOut(text))
` + "```" + `

ANSWER FORMAT (JSON only):
{"content": "complete Python code (use single quotes inside the code)", "class_name": "ClassName"}

The code must run without errors. Escape quotes correctly inside the JSON.
`
