package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"croon/pkg/catalog"
	"croon/pkg/queue"
)

// openStore resolves paths and opens the queue store.
func openStore() (*queue.Store, *Paths, error) {
	paths, err := ResolvePaths()
	if err != nil {
		return nil, nil, err
	}
	if err := paths.EnsureHome(); err != nil {
		return nil, nil, err
	}
	store, err := queue.Open(paths.StatePath)
	if err != nil {
		return nil, nil, err
	}
	return store, paths, nil
}

// newCatalogCmd creates the "croon catalog" subcommand tree.
func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Load and inspect the work catalog",
	}
	cmd.AddCommand(newCatalogLoadCmd(), newCatalogStatusCmd())
	return cmd
}

func newCatalogLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <file>",
		Short: "Load song definitions from an XML or YAML file",
		Long:  "Parses the file into work items and replaces the stored catalog.\nReloading an identical file is a no-op; replacing a catalog that\nunfinished queues still reference is refused.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := catalog.ParseFile(args[0])
			if err != nil {
				return err
			}
			store, _, err := openStore()
			if err != nil {
				return err
			}
			if err := store.LoadCatalog(items); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d items from %s\n", len(items), args[0])
			return nil
		},
	}
}

func newCatalogStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show catalog size and remaining unreserved items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore()
			if err != nil {
				return err
			}
			cat := store.Catalog()
			if cat.Len() == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no catalog loaded")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d items, %d reserved, %d remaining\n",
				cat.Len(), cat.Cursor(), cat.Remaining())
			return nil
		},
	}
}
