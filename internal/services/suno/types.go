package suno

import (
	"strconv"
	"strings"
	"time"
)

// DefaultTitle names tracks whose request did not carry a title.
const DefaultTitle = "Hakimi Meme Track"

// DefaultTags returns the style tags applied when a request carries none.
func DefaultTags() []string {
	return []string{"electronic", "meme", "fast", "cute"}
}

// Request describes one generation job: a natural-language description the
// service composes from, plus presentation metadata.
type Request struct {
	// Description is sent as the gpt_description_prompt field; the service
	// infers composition and lyrics from it.
	Description string
	// Title names the local artifacts. It is not part of the wire payload.
	Title string
	// Tags ride along as request metadata; the description mode does not
	// put them on the wire.
	Tags []string
	// Instrumental asks the service to skip vocals.
	Instrumental bool
}

// StyleTags returns the request's tags, or DefaultTags when none were set.
// The returned slice is always a copy.
func (r Request) StyleTags() []string {
	cleaned := make([]string, 0, len(r.Tags))
	for _, tag := range r.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			cleaned = append(cleaned, tag)
		}
	}
	if len(cleaned) == 0 {
		return DefaultTags()
	}
	return cleaned
}

// ClipState is the closed set of remote clip states the poller acts on.
// Unrecognized values map to ClipStateUnknown, which keeps the job polling
// rather than failing on states the service may add later.
type ClipState int

const (
	ClipStateUnknown ClipState = iota
	ClipStateSucceeded
	ClipStateFailed
)

// ParseClipState maps the service's state string onto the closed set. The
// comparison is exact; the service emits lowercase terminal states.
func ParseClipState(raw string) ClipState {
	switch raw {
	case "succeeded":
		return ClipStateSucceeded
	case "failed":
		return ClipStateFailed
	default:
		return ClipStateUnknown
	}
}

func (s ClipState) String() string {
	switch s {
	case ClipStateSucceeded:
		return "succeeded"
	case ClipStateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Seconds is a duration in seconds. The service reports it sometimes as a
// JSON number and sometimes as a numeric string, so decoding tolerates both
// and treats anything else as absent.
type Seconds float64

func (s *Seconds) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	trimmed = strings.Trim(trimmed, `"`)
	if trimmed == "" || trimmed == "null" {
		*s = 0
		return nil
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		*s = 0
		return nil
	}
	*s = Seconds(value)
	return nil
}

// Clip is the service's unit of generated output. Its fields are only
// trustworthy once State reports succeeded; under any other state they are
// undefined and must not be consumed.
type Clip struct {
	ID       string  `json:"clip_id"`
	State    string  `json:"state"`
	AudioURL string  `json:"audio_url"`
	ImageURL string  `json:"image_url"`
	Title    string  `json:"title"`
	Tags     string  `json:"tags"`
	Duration Seconds `json:"duration"`
}

// StateKind returns the clip's state mapped onto the closed ClipState set.
func (c Clip) StateKind() ClipState {
	return ParseClipState(c.State)
}

// Result is the final product of one orchestration call. The caller owns the
// files it references; CoverPath is empty when the cover download was skipped
// or failed.
type Result struct {
	AudioPath string  `json:"audio_path"`
	CoverPath string  `json:"cover_path,omitempty"`
	Title     string  `json:"title,omitempty"`
	Tags      string  `json:"tags,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
	ClipID    string  `json:"clip_id,omitempty"`
}

// PollProgress describes one status-poll observation, delivered to the
// optional observer so callers can surface long waits as item progress.
type PollProgress struct {
	Handle  string
	Attempt int
	Elapsed time.Duration
	State   ClipState
}

type createTaskRequest struct {
	CustomMode        bool   `json:"custom_mode"`
	DescriptionPrompt string `json:"gpt_description_prompt"`
	MakeInstrumental  bool   `json:"make_instrumental"`
	ModelVersion      string `json:"mv"`
}

type createTaskResponse struct {
	Message string `json:"message"`
	TaskID  string `json:"task_id"`
}

type taskStatusResponse struct {
	Code int    `json:"code"`
	Data []Clip `json:"data"`
}
