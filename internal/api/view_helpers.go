package api

import (
	"encoding/json"
	"strings"

	"hakimi/internal/plan"
	"hakimi/internal/services/suno"
)

// planSummaryFromJSON decodes a stored plan payload into its transport view.
// A blank or malformed payload yields nil rather than an error; the queue
// item remains renderable even when a stage wrote garbage.
func planSummaryFromJSON(raw string) *PlanSummary {
	p, err := plan.Parse(raw)
	if err != nil || p.IsZero() {
		return nil
	}
	return &PlanSummary{
		PromptEN:  strings.TrimSpace(p.MusicPromptEN),
		PromptZH:  strings.TrimSpace(p.MusicPromptZH),
		StyleTags: p.Tags(nil),
		UseLyrics: p.UseLyrics,
		Source:    strings.TrimSpace(p.Source),
	}
}

// trackDetailsFromJSON decodes a stored generation result into its transport
// view, following the same tolerant rules as planSummaryFromJSON.
func trackDetailsFromJSON(raw string) *TrackDetails {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var result suno.Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil
	}
	details := TrackDetails{
		ClipID:   strings.TrimSpace(result.ClipID),
		Title:    strings.TrimSpace(result.Title),
		Tags:     strings.TrimSpace(result.Tags),
		Duration: result.Duration,
	}
	if details == (TrackDetails{}) {
		return nil
	}
	return &details
}
