package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hakimi/internal/corpus"
	"hakimi/internal/logging"
)

func newCorpusCommand(ctx *commandContext) *cobra.Command {
	corpusCmd := &cobra.Command{
		Use:   "corpus",
		Short: "Maintain the meme snippet corpus used for prompt planning",
	}

	corpusCmd.AddCommand(newCorpusCrawlCommand(ctx))
	corpusCmd.AddCommand(newCorpusStatsCommand(ctx))

	return corpusCmd
}

func newCorpusCrawlCommand(ctx *commandContext) *cobra.Command {
	var maxPages int

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl configured meme sites for fresh snippets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			crawlCfg := corpus.CrawlConfig{
				SeedURLs:       cfg.Corpus.SeedURLs,
				AllowedDomains: cfg.Corpus.AllowedDomains,
				Keywords:       cfg.Corpus.Keywords,
				MaxPages:       cfg.Corpus.MaxPages,
				UserAgent:      cfg.Corpus.UserAgent,
			}
			if maxPages > 0 {
				crawlCfg.MaxPages = maxPages
			}

			store := corpus.NewStore(cfg.Paths.CorpusFile)
			crawler := corpus.NewCrawler(store, crawlCfg, corpus.WithCrawlLogger(logger))
			stats, err := crawler.Crawl(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Crawl finished: %d pages fetched, %d failed, %d snippets saved\n",
				stats.PagesFetched, stats.PagesFailed, stats.SnippetsSaved)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "Override the configured page budget for this run")
	return cmd
}

func newCorpusStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show corpus size and freshness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store := corpus.NewStore(cfg.Paths.CorpusFile)
			stats, err := store.Stats()
			if err != nil {
				return err
			}

			if ctx.jsonMode() {
				return writeJSON(cmd, struct {
					Path      string `json:"path"`
					Snippets  int    `json:"snippets"`
					Sources   int    `json:"sources"`
					Skipped   int    `json:"skipped"`
					SizeBytes int64  `json:"sizeBytes"`
					UpdatedAt string `json:"updatedAt,omitempty"`
				}{
					Path:      stats.Path,
					Snippets:  stats.Snippets,
					Sources:   stats.Sources,
					Skipped:   stats.Skipped,
					SizeBytes: stats.SizeBytes,
					UpdatedAt: corpusUpdatedAt(stats),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Corpus file: %s\n", stats.Path)
			if stats.Snippets == 0 {
				fmt.Fprintln(out, "No snippets stored (run `hakimi corpus crawl`)")
				return nil
			}
			fmt.Fprintf(out, "Snippets: %d\n", stats.Snippets)
			fmt.Fprintf(out, "Sources: %d\n", stats.Sources)
			if stats.Skipped > 0 {
				fmt.Fprintf(out, "Skipped lines: %d\n", stats.Skipped)
			}
			fmt.Fprintf(out, "Size: %d bytes\n", stats.SizeBytes)
			if updated := corpusUpdatedAt(stats); updated != "" {
				fmt.Fprintf(out, "Updated: %s\n", updated)
			}
			return nil
		},
	}
}

func corpusUpdatedAt(stats corpus.Stats) string {
	if stats.UpdatedAt.IsZero() {
		return ""
	}
	return stats.UpdatedAt.UTC().Format("2006-01-02 15:04:05")
}
