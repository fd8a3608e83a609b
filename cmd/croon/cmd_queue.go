package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"croon/pkg/queue"
)

// newPauseCmd creates the "croon pause" subcommand.
func newPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause <queue-id>",
		Short: "Pause a running queue at the next item boundary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore()
			if err != nil {
				return err
			}
			e, err := store.Transition(args[0], queue.StatusPaused)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queue %s paused at %d/%d items\n", e.ID, e.ItemsCompleted, e.TotalItems)
			return nil
		},
	}
}

// newCancelCmd creates the "croon cancel" subcommand.
func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <queue-id>",
		Short: "Cancel a queue; completed items are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore()
			if err != nil {
				return err
			}
			e, err := store.Transition(args[0], queue.StatusCancelled)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queue %s cancelled at %d/%d items\n", e.ID, e.ItemsCompleted, e.TotalItems)
			return nil
		},
	}
}
