package config

const (
	defaultOutputDir  = "~/.local/share/hakimi/output"
	defaultLogDir     = "~/.local/share/hakimi/logs"
	defaultCoversDir  = "~/.local/share/hakimi/covers"
	defaultCorpusFile = "~/.local/share/hakimi/corpus/hakimi_corpus.jsonl"

	defaultSunoBaseURL        = "https://api.sunoapi.com"
	defaultSunoModel          = "chirp-v4"
	defaultSunoMaxWaitSeconds = 360
	defaultSunoPollInterval   = 15

	defaultLLMBaseURL        = "https://open.bigmodel.cn/api/paas/v4"
	defaultLLMModel          = "glm-4"
	defaultLLMMaxTokens      = 800
	defaultLLMTimeoutSeconds = 60

	defaultRenderFPS            = 24
	defaultRenderTimeoutSeconds = 600

	defaultPublisherTimeoutSeconds = 1800

	defaultAPIBind = "127.0.0.1:4254"

	defaultCrawlMaxPages  = 50
	defaultPlanSnippetCap = 12
	defaultCrawlUserAgent = "Mozilla/5.0 (compatible; HakimiBot/0.1; +https://example.com/bot-info)"

	defaultWorkflowHeartbeatInterval = 15
	defaultWorkflowHeartbeatTimeout  = 120

	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
)

func defaultCorpusKeywords() []string {
	return []string{"哈基米", "哈吉米", "hachimi", "哈基米~", "哈基米！"}
}

func defaultCorpusDomains() []string {
	return []string{"regengbaike.com", "sohu.com", "toutiao.com", "zhihu.com", "bilibili.com"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
			CoversDir:  defaultCoversDir,
			CorpusFile: defaultCorpusFile,
		},
		Suno: Suno{
			BaseURL:             defaultSunoBaseURL,
			Model:               defaultSunoModel,
			MaxWaitSeconds:      defaultSunoMaxWaitSeconds,
			PollIntervalSeconds: defaultSunoPollInterval,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Temperature:    0.7,
			MaxTokens:      defaultLLMMaxTokens,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Render: Render{
			FPS:            defaultRenderFPS,
			TimeoutSeconds: defaultRenderTimeoutSeconds,
		},
		Publisher: Publisher{
			TimeoutSeconds: defaultPublisherTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Corpus: Corpus{
			AllowedDomains: defaultCorpusDomains(),
			Keywords:       defaultCorpusKeywords(),
			MaxPages:       defaultCrawlMaxPages,
			MaxSnippets:    defaultPlanSnippetCap,
			UserAgent:      defaultCrawlUserAgent,
		},
		Workflow: Workflow{
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
			HeartbeatInterval:  defaultWorkflowHeartbeatInterval,
			HeartbeatTimeout:   defaultWorkflowHeartbeatTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
