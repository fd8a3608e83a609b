package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"croon/internal/version"
)

// newRootCmd creates the root croon command with all subcommands attached.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "croon",
		Short:         "Batch song creation for Suno accounts",
		Long:          "croon queues batches of songs, drives a real browser per account\nto submit them, and keeps durable, resumable progress on disk.",
		Version:       fmt.Sprintf("croon %s", version.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.AddCommand(
		newAccountsCmd(),
		newCatalogCmd(),
		newEnqueueCmd(),
		newRunCmd(),
		newPauseCmd(),
		newCancelCmd(),
		newStatusCmd(),
		newHistoryCmd(),
	)

	return cmd
}
