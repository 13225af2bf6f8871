package scripting

import "fmt"

const systemPrompt = "You are an expert writer of short educational video scripts. " +
	"You always answer with valid JSON and no surrounding text. " +
	"Write in the same language as the topic: a Spanish topic gets a Spanish script, an English topic an English one."

func userPrompt(topic string) string {
	return fmt.Sprintf(`Write an educational script about this topic: %s

INSTRUCTIONS:
- Make it engaging and accurate
- Split it into 6 to 8 scenes in a logical order
- For each scene give:
  1. "text": the narration, brief and concise
  2. "animation": a detailed description of the Manim animation shown while the text is read
- Do not mention commercial brands or logos
- Describe the visuals only; do not write Python or Manim code
- Animation descriptions must be specific enough to implement in Manim

LANGUAGE:
- Script and animation descriptions use the same language as the topic

TIMING:
- The whole video lasts at most 60 seconds
- Each scene lasts roughly 6 to 8 seconds
- Each narration is at most 2 to 3 short sentences
- Animations are simple and quick

OUTPUT FORMAT:
Answer with a JSON object of this shape and nothing else:
{"scenes": [{"text": "...", "animation": "..."}]}

Example scene:
{"text": "Language models read text by turning it into numbers.", "animation": "Show the word 'Hello' centred. Split it into coloured token boxes, then morph each box into its numeric ID."}`, topic)
}
