package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"hakimi/internal/api"
	"hakimi/internal/logging"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var genTitle string
	var genTags string
	var genSkipVideo bool

	cmd := &cobra.Command{
		Use:   "generate <request>",
		Short: "Generate one track in the foreground, without the daemon",
		Long: "Run the full pipeline for a single request in this terminal: plan the\n" +
			"prompt, compose the track, and render the video. The item is stored in\n" +
			"the shared queue, so `hakimi queue list` shows the run afterwards and\n" +
			"failed runs can be retried by the daemon.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			need := strings.TrimSpace(strings.Join(args, " "))
			if need == "" {
				return errors.New("request text is required")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			result, genErr := api.GenerateTrack(cmd.Context(), api.GenerateTrackRequest{
				Config:    cfg,
				Logger:    logger,
				Need:      need,
				Title:     genTitle,
				Tags:      genTags,
				SkipVideo: genSkipVideo,
			})

			out := cmd.OutOrStdout()
			assessment := api.AssessGenerate(result.Item)
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Title: %s\n", assessment.Title)
			if assessment.PromptSource != "" {
				fmt.Fprintf(out, "Prompt source: %s\n", assessment.PromptSource)
			}
			if assessment.AudioFile != "" {
				fmt.Fprintf(out, "Audio: %s\n", assessment.AudioFile)
			}
			if assessment.VideoFile != "" {
				fmt.Fprintf(out, "Video: %s\n", assessment.VideoFile)
			}
			if assessment.ReviewRequired && assessment.ReviewReason != "" {
				fmt.Fprintf(out, "Review reason: %s\n", assessment.ReviewReason)
			}
			fmt.Fprintln(out, assessment.OutcomeMessage)

			return genErr
		},
	}

	cmd.Flags().StringVar(&genTitle, "title", "", "Preferred track title")
	cmd.Flags().StringVar(&genTags, "tags", "", "Comma-separated style tags")
	cmd.Flags().BoolVar(&genSkipVideo, "skip-video", false, "Stop after composing; do not render a video")
	return cmd
}
