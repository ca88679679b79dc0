package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// Compile-time check that GeminiBuilder implements Builder.
var _ Builder = (*GeminiBuilder)(nil)

// GeminiBuilder derives the storyboard with a Gemini multimodal call,
// passing the portfolio metadata and, when present, the uploaded source
// document as additional context.
type GeminiBuilder struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiBuilder creates a storyboard builder over the given client.
func NewGeminiBuilder(client *genai.Client, model string, logger *slog.Logger) *GeminiBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiBuilder{client: client, model: model, logger: logger}
}

// Storyboard asks the prompting model for a 3-part storyboard. Errors
// propagate to the caller, which substitutes the templated fallback.
func (b *GeminiBuilder) Storyboard(ctx context.Context, in Inputs) (Storyboard, error) {
	parts := []*genai.Part{{Text: b.instructions(in)}}

	if in.DocumentURL != "" {
		parts = append(parts, &genai.Part{
			FileData: &genai.FileData{
				FileURI:  in.DocumentURL,
				MIMEType: "application/pdf",
			},
		})
	}

	contents := []*genai.Content{{Role: "user", Parts: parts}}
	resp, err := b.client.Models.GenerateContent(ctx, b.model, contents, nil)
	if err != nil {
		return Storyboard{}, fmt.Errorf("generate storyboard: %w", err)
	}
	if resp == nil {
		return Storyboard{}, fmt.Errorf("generate storyboard: empty response")
	}

	text := stripCodeFences(resp.Text())

	var sb Storyboard
	if err := json.Unmarshal([]byte(text), &sb); err != nil {
		return Storyboard{}, fmt.Errorf("parse storyboard response: %w", err)
	}

	// Fill any part the model left blank with the templated scene.
	if sb.Part1 == "" {
		sb.Part1 = fmt.Sprintf("Cinematic intro of %s in %s style.", in.Title, in.Style)
	}
	if sb.Part2 == "" {
		sb.Part2 = fmt.Sprintf("Showcasing work and skills of %s in %s style.", in.Title, in.Style)
	}
	if sb.Part3 == "" {
		sb.Part3 = fmt.Sprintf("Professional closing scene for %s portfolio.", in.Title)
	}

	b.logger.Debug("storyboard derived",
		slog.String("model", b.model),
		slog.Bool("with_document", in.DocumentURL != ""),
	)
	return sb, nil
}

// instructions builds the storyboard request for the prompting model.
func (b *GeminiBuilder) instructions(in Inputs) string {
	rawData := "{}"
	if len(in.RawData) > 0 {
		rawData = string(in.RawData)
	}

	return fmt.Sprintf(`Task: Create a highly detailed 3-part cinematic video generation storyboard for a 20-second portfolio showcase video.

Portfolio Title: %s
Target Visual Style: %s
Portfolio Data: %s

Narrative Structure (Total 20 seconds):
1. Part 1 (0-5s): Opening / Hook. Introduce the portfolio's theme and the professional identity.
2. Part 2 (5-15s): Core Content. Showcase the key projects, skills, and major achievements. Ensure ALL significant information from the portfolio is visually represented here.
3. Part 3 (15-20s): Ending / Outro. A smooth concluding scene that provides a clear sense of completion and leaves a lasting professional impression.

Styling Guidelines:
- %s

Prompt Requirements:
- Cinematic lighting and 4K resolution feel.
- Dynamic camera movements (slow pan, orbit, or zoom).
- Describe visuals and atmosphere vividly; do not just list text.
- Each part must flow logically from the previous one.

Return ONLY a JSON object with keys: "part1", "part2", "part3". No conversational text.
IMPORTANT: Do not wrap the JSON in markdown code blocks.`,
		in.Title, in.Style, rawData, in.StyleHints)
}
