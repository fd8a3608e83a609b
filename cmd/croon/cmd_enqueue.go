package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"croon/pkg/account"
)

// enqueueConfig holds configuration for the enqueue command.
type enqueueConfig struct {
	accountName string
	total       int
	batch       int
}

// newEnqueueCmd creates the "croon enqueue" subcommand.
func newEnqueueCmd() *cobra.Command {
	var cfg enqueueConfig

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Create a queue reserving items from the catalog",
		Long:  "Reserves the next N catalog items for the given account and\npersists a pending queue. Items are split into batches of the\ngiven size at run time.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, paths, err := openStore()
			if err != nil {
				return err
			}
			reg, err := account.Open(paths.AccountsPath, paths.ProfilesDir)
			if err != nil {
				return err
			}
			entry, err := store.Create(reg, cfg.accountName, cfg.total, cfg.batch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queue %s: %d items for %s in %d batches of up to %d\n",
				entry.ID, entry.TotalItems, entry.AccountName, entry.BatchCount(), entry.BatchSize)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.accountName, "account", "", "account to run the queue under (required)")
	cmd.Flags().IntVar(&cfg.total, "total", 0, "number of catalog items to reserve (required)")
	cmd.Flags().IntVar(&cfg.batch, "batch", 5, "items per batch, 1-10")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("total")

	return cmd
}
