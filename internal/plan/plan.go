package plan

import (
	"encoding/json"
	"slices"
	"strings"
)

// Source values recorded on a plan.
const (
	// SourceLLM marks plans produced by the prompt middleware model.
	SourceLLM = "llm"
	// SourceFallback marks plans assembled locally after an LLM failure.
	SourceFallback = "fallback"
)

// Plan captures the structured prompt payload shared between the prompting
// and composing stages.
type Plan struct {
	MusicPromptEN string   `json:"music_prompt_en"`
	MusicPromptZH string   `json:"music_prompt_zh,omitempty"`
	StyleTags     []string `json:"style_tags,omitempty"`
	UseLyrics     bool     `json:"use_lyrics,omitempty"`
	LyricsZH      string   `json:"lyrics_zh,omitempty"`
	Source        string   `json:"source,omitempty"`
}

// Parse loads a plan from JSON, returning an empty plan on blank input.
func Parse(raw string) (Plan, error) {
	var p Plan
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Plan{}, err
	}
	p.StyleTags = slices.Clone(p.StyleTags)
	return p, nil
}

// Encode serialises the plan to JSON.
func (p Plan) Encode() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// IsZero reports whether the plan carries no usable prompt.
func (p Plan) IsZero() bool {
	return strings.TrimSpace(p.MusicPromptEN) == "" && strings.TrimSpace(p.MusicPromptZH) == ""
}

// Prompt returns the text to submit to the generation service: the English
// prompt when present, otherwise the Chinese one.
func (p Plan) Prompt() string {
	if v := strings.TrimSpace(p.MusicPromptEN); v != "" {
		return v
	}
	return strings.TrimSpace(p.MusicPromptZH)
}

// Tags returns the cleaned style tags, falling back to defaults when the
// plan has none.
func (p Plan) Tags(defaults []string) []string {
	cleaned := make([]string, 0, len(p.StyleTags))
	for _, tag := range p.StyleTags {
		if t := strings.TrimSpace(tag); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	if len(cleaned) > 0 {
		return cleaned
	}
	return slices.Clone(defaults)
}
