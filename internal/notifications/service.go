package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hakimi/internal/config"
)

const userAgent = "Hakimi-Go/0.1.0"

// Event identifies a workflow milestone that can be published.
type Event string

const (
	EventTrackQueued    Event = "track_queued"
	EventPromptReady    Event = "prompt_ready"
	EventTrackComposed  Event = "track_composed"
	EventVideoRendered  Event = "video_rendered"
	EventTrackPublished Event = "track_published"
	EventItemFailed     Event = "item_failed"
	EventQueueCompleted Event = "queue_completed"
	EventTest           Event = "test"
)

// Payload carries the event-specific fields used to format a message.
type Payload map[string]string

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

// Publish formats and delivers the event. Milestones that would fire on
// every enqueue or internal hand-off are suppressed rather than removed so
// call sites stay uniform.
func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := formatEvent(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func formatEvent(event Event, payload Payload) (message, bool) {
	get := func(key string) string { return strings.TrimSpace(payload[key]) }
	switch event {
	case EventTrackComposed:
		body := fmt.Sprintf("🎵 Track composed: %s", get("title"))
		if dur := get("duration"); dur != "" {
			body = fmt.Sprintf("%s (%s)", body, dur)
		}
		return message{
			title: "Hakimi - Track Composed",
			body:  body,
			tags:  []string{"hakimi", "compose", "completed"},
		}, true
	case EventVideoRendered:
		body := fmt.Sprintf("🎬 Video rendered: %s", get("title"))
		if file := get("file"); file != "" {
			body = fmt.Sprintf("%s\nFile: %s", body, file)
		}
		return message{
			title: "Hakimi - Video Rendered",
			body:  body,
			tags:  []string{"hakimi", "render", "completed"},
		}, true
	case EventTrackPublished:
		body := fmt.Sprintf("🚀 Published: %s", get("publishTitle"))
		if ref := get("ref"); ref != "" {
			body = fmt.Sprintf("%s\nRef: %s", body, ref)
		}
		return message{
			title:    "Hakimi - Published",
			body:     body,
			tags:     []string{"hakimi", "publish", "completed"},
			priority: "high",
		}, true
	case EventItemFailed:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := get("context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if errText := get("error"); errText != "" {
			builder.WriteString(errText)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "Hakimi - Error",
			body:     builder.String(),
			tags:     []string{"hakimi", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Hakimi - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"hakimi", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
