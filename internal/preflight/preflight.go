package preflight

import (
	"context"

	"hakimi/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Optional features are only checked when enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Working directories (always checked)
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckDirectoryAccess("Covers directory", cfg.Paths.CoversDir))
	results = append(results, CheckFreeSpace("Output free space", cfg.Paths.OutputDir, minFreeBytes))

	// Render binaries. The optional uploader is only checked when the
	// publisher is enabled.
	for _, status := range CheckSystemDeps(cfg) {
		if status.Optional {
			continue
		}
		detail := status.Detail
		if status.Available {
			detail = status.Command
		}
		results = append(results, Result{Name: status.Name, Passed: status.Available, Detail: detail})
	}

	// Prompt model and music generation APIs back the two core stages, so
	// both are checked unconditionally.
	results = append(results, CheckLLM(ctx, "Prompt LLM", cfg.GetLLM()))
	results = append(results, CheckSuno(ctx, cfg.Suno.BaseURL, cfg.Suno.APIKey))

	// Uploader
	if cfg.Publisher.Enabled {
		results = append(results, CheckUploader(cfg.Publisher.Command))
	}

	// A missing corpus degrades prompts but never blocks the pipeline.
	probe := ProbeCorpus(cfg.Paths.CorpusFile)
	results = append(results, Result{Name: "Corpus", Passed: true, Detail: probe.CorpusDetail()})

	return results
}
