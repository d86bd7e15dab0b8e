package prompting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"hakimi/internal/config"
	"hakimi/internal/corpus"
	"hakimi/internal/logging"
	"hakimi/internal/notifications"
	"hakimi/internal/plan"
	"hakimi/internal/queue"
	"hakimi/internal/services"
	"hakimi/internal/services/llm"
	"hakimi/internal/services/suno"
	"hakimi/internal/stage"
)

const (
	progressStagePlanning  = "Prompt planning"
	progressPercentCorpus  = 10.0
	progressPercentRequest = 25.0
	progressPercentPersist = 85.0
)

// Client is the prompt-model surface the planner depends on.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Configured() bool
	Model() string
}

// Planner turns a queued request into a structured Suno plan.
type Planner struct {
	store    *queue.Store
	cfg      *config.Config
	client   Client
	corpus   *corpus.Store
	notifier notifications.Service
	logger   *slog.Logger
}

// NewPlanner constructs the workflow stage that runs the prompt middleware.
func NewPlanner(cfg *config.Config, store *queue.Store, client Client, corpusStore *corpus.Store, notifier notifications.Service, logger *slog.Logger) *Planner {
	return &Planner{
		cfg:      cfg,
		store:    store,
		client:   client,
		corpus:   corpusStore,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "prompting"),
	}
}

// SetLogger allows the workflow manager to route stage logs into the item-scoped log.
func (p *Planner) SetLogger(logger *slog.Logger) {
	if p == nil {
		return
	}
	p.logger = logging.NewComponentLogger(logger, "prompting")
}

// Prepare primes queue progress fields before executing the stage.
func (p *Planner) Prepare(ctx context.Context, item *queue.Item) error {
	if p == nil || p.cfg == nil {
		return services.Wrap(services.ErrConfiguration, "prompting", "prepare", "Prompting stage is not configured", nil)
	}
	if p.store == nil {
		return services.Wrap(services.ErrConfiguration, "prompting", "prepare", "Queue store unavailable", nil)
	}
	if p.client == nil {
		return services.Wrap(services.ErrConfiguration, "prompting", "prepare", "Prompt model client unavailable", nil)
	}
	item.InitProgress(progressStagePlanning, "Preparing prompt plan")
	return p.store.UpdateProgress(ctx, item)
}

// Execute builds the chat payload, asks the prompt model for a plan, and
// persists the decoded plan on the queue item.
func (p *Planner) Execute(ctx context.Context, item *queue.Item) error {
	stageStart := time.Now()

	if p == nil || p.cfg == nil {
		return services.Wrap(services.ErrConfiguration, "prompting", "execute", "Prompting stage is not configured", nil)
	}
	if item == nil {
		return services.Wrap(services.ErrValidation, "prompting", "execute", "Queue item is nil", nil)
	}
	if p.store == nil {
		return services.Wrap(services.ErrConfiguration, "prompting", "execute", "Queue store unavailable", nil)
	}
	if p.client == nil {
		return services.Wrap(services.ErrConfiguration, "prompting", "execute", "Prompt model client unavailable", nil)
	}

	need := strings.TrimSpace(item.Need)
	if need == "" {
		return services.Wrap(services.ErrValidation, "prompting", "execute", "Queue item has no request text", nil)
	}

	logger := logging.WithContext(ctx, p.logger)
	logger.Debug("starting prompt planning", logging.String("need", need))

	snippets := p.sampleSnippets(logger)
	if err := p.updateProgress(ctx, item, fmt.Sprintf("Gathered %d corpus snippet(s)", len(snippets)), progressPercentCorpus); err != nil {
		return err
	}

	if err := p.updateProgress(ctx, item, "Requesting prompt plan", progressPercentRequest); err != nil {
		return err
	}
	planned, err := p.plan(ctx, logger, need, snippets)
	if err != nil {
		return err
	}

	if err := p.updateProgress(ctx, item, "Persisting prompt plan", progressPercentPersist); err != nil {
		return err
	}
	encoded, err := planned.Encode()
	if err != nil {
		return services.Wrap(services.ErrValidation, "prompting", "encode plan",
			"Failed to serialise the prompt plan", err)
	}
	item.PlanJSON = encoded

	item.ProgressStage = "Prompt planned"
	item.ProgressPercent = 100
	item.ProgressMessage = buildCompletionMessage(planned, len(snippets))
	if err := p.store.UpdateProgress(ctx, item); err != nil {
		return services.Wrap(services.ErrTransient, "prompting", "persist progress",
			"Failed to persist prompt planning progress", err)
	}

	if p.notifier != nil {
		if err := p.notifier.Publish(ctx, notifications.EventPromptReady, notifications.Payload{
			"need":   need,
			"source": planned.Source,
		}); err != nil {
			logger.Warn("prompt notification failed", logging.Error(err))
		}
	}

	summaryAttrs := []logging.Attr{
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", time.Since(stageStart)),
		logging.String("plan_source", planned.Source),
		logging.Bool("use_lyrics", planned.UseLyrics),
		logging.Int("prompt_words", len(strings.Fields(planned.MusicPromptEN))),
		logging.Int("snippet_count", len(snippets)),
	}
	if planned.Source == plan.SourceLLM {
		summaryAttrs = append(summaryAttrs, logging.String("model", p.client.Model()))
	}
	logger.Info("prompt planning stage summary", logging.Args(summaryAttrs...)...)

	return nil
}

// HealthCheck reports readiness for the prompting stage.
func (p *Planner) HealthCheck(ctx context.Context) stage.Health {
	const name = "prompting"
	if p == nil || p.cfg == nil {
		return stage.Unhealthy(name, "stage not configured")
	}
	if p.store == nil {
		return stage.Unhealthy(name, "queue store unavailable")
	}
	if p.client == nil || !p.client.Configured() {
		return stage.Unhealthy(name, "prompt model api key missing")
	}
	return stage.Healthy(name)
}

// plan runs the chat exchange and decodes the response. An unavailable
// prompt model degrades to a locally built plan; a rejected key or an
// unusable response is a hard failure routed to review.
func (p *Planner) plan(ctx context.Context, logger *slog.Logger, need string, snippets []string) (plan.Plan, error) {
	if !p.client.Configured() {
		return plan.Plan{}, services.Wrap(services.ErrConfiguration, "prompting", "plan",
			"Prompt model API key is not configured", nil)
	}

	content, err := p.client.Complete(ctx, SystemPrompt, buildUserPrompt(need, snippets))
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return plan.Plan{}, err
	case errors.Is(err, llm.ErrNotConfigured):
		return plan.Plan{}, services.Wrap(services.ErrConfiguration, "prompting", "plan",
			"Prompt model rejected the configured API key", err)
	case errors.Is(err, llm.ErrUnavailable):
		logger.Warn("prompt model unavailable; using fallback plan",
			logging.Error(err),
			logging.String(logging.FieldEventType, "prompt_model_unavailable"),
			logging.String(logging.FieldErrorHint, "check the GLM endpoint and network connectivity"),
			logging.String(logging.FieldImpact, "track uses a generic prompt instead of a tailored one"),
		)
		return fallbackPlan(need), nil
	default:
		return plan.Plan{}, services.Wrap(services.ErrExternalTool, "prompting", "plan",
			"Prompt model request failed", err)
	}

	var planned plan.Plan
	if err := llm.DecodeJSON(content, &planned); err != nil {
		return plan.Plan{}, services.Wrap(services.ErrValidation, "prompting", "decode plan",
			"Prompt model returned an unparsable plan", err)
	}
	if strings.TrimSpace(planned.MusicPromptEN) == "" {
		return plan.Plan{}, services.Wrap(services.ErrValidation, "prompting", "decode plan",
			"Prompt model returned no English music prompt", nil)
	}
	planned.Source = plan.SourceLLM
	return planned, nil
}

func (p *Planner) sampleSnippets(logger *slog.Logger) []string {
	if p.corpus == nil {
		return nil
	}
	snippets, err := p.corpus.Sample(p.cfg.Corpus.MaxSnippets)
	if err != nil {
		logger.Warn("corpus sampling failed; planning without snippets",
			logging.Error(err),
			logging.String(logging.FieldEventType, "corpus_sample_failed"),
			logging.String(logging.FieldErrorHint, "check the corpus file for corruption"),
			logging.String(logging.FieldImpact, "prompt quality may drop without style examples"),
		)
		return nil
	}
	return snippets
}

func (p *Planner) updateProgress(ctx context.Context, item *queue.Item, message string, percent float64) error {
	item.ProgressStage = progressStagePlanning
	if strings.TrimSpace(message) != "" {
		item.ProgressMessage = message
	}
	if percent >= 0 {
		item.ProgressPercent = percent
	}
	if err := p.store.UpdateProgress(ctx, item); err != nil {
		return services.Wrap(services.ErrTransient, "prompting", "persist progress",
			"Failed to persist prompt planning progress", err)
	}
	return nil
}

// fallbackPlan assembles a deterministic plan from the raw request text so a
// prompt model outage does not strand the queue.
func fallbackPlan(need string) plan.Plan {
	return plan.Plan{
		MusicPromptEN: fmt.Sprintf("High energy cute meme electronic J-pop song in Japanese, high-pitched anime idol female vocal, fast and chaotic, repetitive catchy hook. Inspired by this request: %s", need),
		MusicPromptZH: "本地生成的兜底提示：高能量、可爱、魔性的哈基米电音。",
		StyleTags:     suno.DefaultTags(),
		Source:        plan.SourceFallback,
	}
}

func buildCompletionMessage(planned plan.Plan, snippetCount int) string {
	parts := []string{"Prompt plan ready"}
	if planned.Source == plan.SourceFallback {
		parts = append(parts, "Fallback plan (prompt model unavailable)")
	}
	if snippetCount > 0 {
		parts = append(parts, fmt.Sprintf("Corpus: %d snippet(s)", snippetCount))
	}
	if planned.UseLyrics {
		parts = append(parts, "Includes lyric hook")
	}
	return strings.Join(parts, " | ")
}
