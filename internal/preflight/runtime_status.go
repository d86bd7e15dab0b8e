package preflight

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hakimi/internal/config"
	"hakimi/internal/corpus"
)

// CheckSunoFromConfig evaluates music API status from config and connectivity.
func CheckSunoFromConfig(cfg *config.Config) Result {
	const name = "Suno API"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Suno.APIKey) == "" {
		return Result{Name: name, Detail: "Missing API key"}
	}
	check := CheckSuno(context.Background(), cfg.Suno.BaseURL, cfg.Suno.APIKey)
	if check.Passed {
		return Result{Name: name, Passed: true, Detail: check.Detail}
	}
	return Result{Name: name, Detail: check.Detail}
}

// CheckNtfyFromConfig evaluates push notification status from config and
// connectivity. A blank topic means notifications are off, which is a valid
// configuration.
func CheckNtfyFromConfig(cfg *config.Config) Result {
	const name = "Notifications"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if _, err := url.ParseRequestURI(topic); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid topic URL (%v)", err)}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, topic, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("reachability check failed (%v)", err)}
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("reachability check failed (%v)", err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return Result{Name: name, Detail: fmt.Sprintf("topic returned %d", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CorpusProbe reports the current meme-corpus snapshot.
type CorpusProbe struct {
	Present   bool
	Snippets  int
	Sources   int
	UpdatedAt time.Time
}

// ProbeCorpus inspects the corpus file backing prompt enrichment.
func ProbeCorpus(path string) CorpusProbe {
	path = strings.TrimSpace(path)
	if path == "" {
		return CorpusProbe{}
	}
	stats, err := corpus.NewStore(path).Stats()
	if err != nil {
		return CorpusProbe{}
	}
	if stats.Snippets == 0 {
		return CorpusProbe{}
	}
	return CorpusProbe{
		Present:   true,
		Snippets:  stats.Snippets,
		Sources:   stats.Sources,
		UpdatedAt: stats.UpdatedAt,
	}
}

// CorpusDetail renders a display-friendly summary for status UIs.
func (p CorpusProbe) CorpusDetail() string {
	if !p.Present {
		return "No corpus crawled"
	}
	detail := fmt.Sprintf("%d snippets from %d sources", p.Snippets, p.Sources)
	if !p.UpdatedAt.IsZero() {
		detail = fmt.Sprintf("%s, updated %s", detail, p.UpdatedAt.Format("2006-01-02"))
	}
	return detail
}
