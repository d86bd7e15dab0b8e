package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"hakimi/internal/api"
	"hakimi/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the generation queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueClearFailedCommand(ctx))
	queueCmd.AddCommand(newQueueResetCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueHealthSubcommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueAPI(func(q queueAPI) error {
				stats, err := q.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					if stats == nil {
						stats = map[string]int{}
					}
					return writeJSON(cmd, stats)
				}
				rows := buildQueueStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateStatusFilters(listStatuses); err != nil {
				return err
			}
			return ctx.withQueueAPI(func(q queueAPI) error {
				items, err := q.List(cmd.Context(), listStatuses)
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					sorted := api.SortQueueItemsNewestFirst(items)
					if sorted == nil {
						sorted = []api.QueueItem{}
					}
					return writeJSON(cmd, sorted)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Title", "Status", "Stage", "Created"},
					buildQueueListRows(items),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by queue status (repeatable)")
	return cmd
}

func validateStatusFilters(filters []string) error {
	for _, raw := range filters {
		if _, ok := queue.ParseStatus(raw); !ok {
			known := make([]string, 0, len(queue.AllStatuses()))
			for _, status := range queue.AllStatuses() {
				known = append(known, string(status))
			}
			return fmt.Errorf("unknown status %q (valid: %s)", raw, strings.Join(known, ", "))
		}
	}
	return nil
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <itemID>",
		Short: "Show one queue item in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withQueueAPI(func(q queueAPI) error {
				item, err := q.Describe(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if item == nil {
					if ctx.jsonMode() {
						return writeJSON(cmd, map[string]string{"error": "not_found"})
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Item %d not found\n", ids[0])
					return nil
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, item)
				}
				printQueueItemDetail(cmd, *item)
				return nil
			})
		},
	}
}

func printQueueItemDetail(cmd *cobra.Command, item api.QueueItem) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:        %d\n", item.ID)
	fmt.Fprintf(out, "Title:     %s\n", queueItemTitle(item))
	fmt.Fprintf(out, "Status:    %s\n", formatStatusLabel(item.Status))
	fmt.Fprintf(out, "Need:      %s\n", item.Need)
	if item.Tags != "" {
		fmt.Fprintf(out, "Tags:      %s\n", item.Tags)
	}
	if item.Progress.Stage != "" {
		fmt.Fprintf(out, "Stage:     %s (%.0f%%)\n", item.Progress.Stage, item.Progress.Percent)
	}
	if item.Progress.Message != "" {
		fmt.Fprintf(out, "Progress:  %s\n", item.Progress.Message)
	}
	fmt.Fprintf(out, "Created:   %s\n", formatDisplayTime(item.CreatedAt))
	fmt.Fprintf(out, "Updated:   %s\n", formatDisplayTime(item.UpdatedAt))
	if item.Plan != nil {
		fmt.Fprintf(out, "Plan:      %s prompt via %s\n", planLanguageLabel(*item.Plan), item.Plan.Source)
	}
	if item.Track != nil && item.Track.ClipID != "" {
		fmt.Fprintf(out, "Clip:      %s\n", item.Track.ClipID)
	}
	if item.AudioFile != "" {
		fmt.Fprintf(out, "Audio:     %s\n", item.AudioFile)
	}
	if item.CoverFile != "" {
		fmt.Fprintf(out, "Cover:     %s\n", item.CoverFile)
	}
	if item.VideoFile != "" {
		fmt.Fprintf(out, "Video:     %s\n", item.VideoFile)
	}
	if item.PublishRef != "" {
		fmt.Fprintf(out, "Published: %s\n", item.PublishRef)
	}
	if item.ItemLogPath != "" {
		fmt.Fprintf(out, "Log:       %s\n", item.ItemLogPath)
	}
	if item.NeedsReview {
		fmt.Fprintf(out, "Review:    %s\n", item.ReviewReason)
	}
	if item.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:     %s\n", item.ErrorMessage)
	}
}

func planLanguageLabel(plan api.PlanSummary) string {
	if plan.PromptZH != "" && plan.PromptEN == "" {
		return "Chinese"
	}
	return "English"
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool
	var clearForce bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			return ctx.withQueueAPI(func(q queueAPI) error {
				out := cmd.OutOrStdout()
				if clearForce {
					fmt.Fprintln(out, "Clearing queue without confirmation (--force)")
				}

				switch {
				case clearCompleted:
					removed, err := q.ClearCompleted(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d completed items\n", removed)
				case clearFailed:
					removed, err := q.ClearFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d failed items\n", removed)
				default:
					removed, err := q.ClearAll(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d queue items\n", removed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed items")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed items")
	cmd.Flags().BoolVar(&clearForce, "force", false, "No-op flag for compatibility; removal always proceeds")
	return cmd
}

func newQueueClearFailedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-failed",
		Short: "Remove failed queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueAPI(func(q queueAPI) error {
				removed, err := q.ClearFailed(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d failed items\n", removed)
				return nil
			})
		},
	}
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stuck",
		Short: "Return in-flight items to their last stable status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueAPI(func(q queueAPI) error {
				updated, err := q.ResetStuck(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d items\n", updated)
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [itemID...]",
		Short: "Retry failed or review queue items",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}

			return ctx.withQueueAPI(func(q queueAPI) error {
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					updated, err := q.RetryAll(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Retried %d failed items\n", updated)
					return nil
				}

				result, err := api.RetryItemsByID(cmd.Context(), q, ids)
				if err != nil {
					return err
				}
				for _, item := range result.Items {
					switch item.Outcome {
					case api.RetryItemUpdated:
						fmt.Fprintf(out, "Item %d reset for retry\n", item.ID)
					case api.RetryItemNotFound:
						fmt.Fprintf(out, "Item %d not found\n", item.ID)
					default:
						fmt.Fprintf(out, "Item %d is not in a retryable state\n", item.ID)
					}
				}
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <itemID...>",
		Short: "Remove specific queue items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}

			return ctx.withQueueAPI(func(q queueAPI) error {
				out := cmd.OutOrStdout()
				for _, id := range ids {
					removed, err := q.Remove(cmd.Context(), []int64{id})
					if err != nil {
						return err
					}
					if removed > 0 {
						fmt.Fprintf(out, "Removed item #%d\n", id)
					} else {
						fmt.Fprintf(out, "Item %d not found\n", id)
					}
				}
				return nil
			})
		},
	}
}

func newQueueHealthSubcommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show queue health summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueAPI(func(q queueAPI) error {
				health, err := q.Health(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, health)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Total: %d\nPending: %d\nProcessing: %d\nFailed: %d\nReview: %d\nCompleted: %d\n",
					health.Total,
					health.Pending,
					health.Processing,
					health.Failed,
					health.Review,
					health.Completed,
				)
				return nil
			})
		},
	}
}
