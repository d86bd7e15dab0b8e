package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"hakimi/internal/ipc"
	"hakimi/internal/queue"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var addTitle string
	var addTags string

	cmd := &cobra.Command{
		Use:   "add <request>",
		Short: "Queue a track request for the daemon to process",
		Long: "Queue a track request. The request text describes the meme or mood the\n" +
			"track should riff on, in Chinese or English. The daemon picks it up from\n" +
			"the pending queue and walks it through planning, composition, rendering,\n" +
			"and publishing.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			need := strings.TrimSpace(strings.Join(args, " "))
			if need == "" {
				return errors.New("request text is required")
			}

			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				if client != nil {
					resp, err := client.Enqueue(need, addTitle, addTags)
					if err != nil {
						return err
					}
					if resp == nil {
						return errors.New("empty response from daemon")
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Queued request as item #%d\n", resp.Item.ID)
					return nil
				}

				item, err := store.NewNeed(cmd.Context(), need, addTitle, addTags)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued request as item #%d\n", item.ID)
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running; start it with `hakimi daemon start` to process the queue")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&addTitle, "title", "", "Preferred track title")
	cmd.Flags().StringVar(&addTags, "tags", "", "Comma-separated style tags")
	return cmd
}
