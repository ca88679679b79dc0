// Package prompt derives the generation storyboard for a portfolio video.
// Derivation may call a generative-text model; callers fall back to the
// deterministic templated storyboard when derivation fails, so a broken
// or absent prompt model never blocks generation.
package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Inputs carries everything storyboard derivation may use.
type Inputs struct {
	// Title is the portfolio title.
	Title string
	// RawData is the portfolio's structured metadata.
	RawData json.RawMessage
	// DocumentURL is a time-limited URL of the uploaded source document,
	// empty when none was uploaded.
	DocumentURL string
	// Style is the requested visual style name.
	Style string
	// StyleHints describes the style for the prompting model.
	StyleHints string
}

// Storyboard is a three-part scene plan covering the full target video:
// hook, core content, and outro.
type Storyboard struct {
	Part1 string `json:"part1"`
	Part2 string `json:"part2"`
	Part3 string `json:"part3"`
}

// Complete reports whether every part is non-empty.
func (s Storyboard) Complete() bool {
	return s.Part1 != "" && s.Part2 != "" && s.Part3 != ""
}

// Builder derives a storyboard from portfolio inputs.
type Builder interface {
	Storyboard(ctx context.Context, in Inputs) (Storyboard, error)
}

// Fallback returns the deterministic templated prompt used when
// derivation fails or returns empty output.
func Fallback(title, style string) string {
	return fmt.Sprintf("Cinematic showcase of %s with %s aesthetic.", title, style)
}

// FallbackStoryboard fills all three parts with the templated prompt.
func FallbackStoryboard(title, style string) Storyboard {
	line := Fallback(title, style)
	return Storyboard{Part1: line, Part2: line, Part3: line}
}

// Compile-time check that StaticBuilder implements Builder.
var _ Builder = StaticBuilder{}

// StaticBuilder always produces the templated storyboard. Used when no
// prompt-model credential is configured.
type StaticBuilder struct{}

// Storyboard returns the deterministic fallback storyboard.
func (StaticBuilder) Storyboard(_ context.Context, in Inputs) (Storyboard, error) {
	return FallbackStoryboard(in.Title, in.Style), nil
}

// stripCodeFences removes a surrounding markdown code block, which the
// prompting model sometimes wraps its JSON in despite instructions.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
	} else {
		return text
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
