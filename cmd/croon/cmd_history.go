package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"croon/pkg/history"
)

// newHistoryCmd creates the "croon history" subcommand tree.
func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query the creation history ledger",
	}
	cmd.AddCommand(newHistoryListCmd(), newHistoryExportCmd())
	return cmd
}

// openHistory resolves paths and opens the history store.
func openHistory() (*history.Store, error) {
	paths, err := ResolvePaths()
	if err != nil {
		return nil, err
	}
	if err := paths.EnsureHome(); err != nil {
		return nil, err
	}
	return history.Open(paths.HistoryDBPath)
}

// historyListConfig holds configuration for the history list command.
type historyListConfig struct {
	account string
	search  string
	limit   int
}

func newHistoryListCmd() *cobra.Command {
	var cfg historyListConfig

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List creation records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hist, err := openHistory()
			if err != nil {
				return err
			}
			defer hist.Close()

			ctx := cmd.Context()
			var records []history.Record
			switch {
			case cfg.account != "":
				records, err = hist.ByAccount(ctx, cfg.account)
			case cfg.search != "":
				records, err = hist.Search(ctx, cfg.search)
			default:
				records, err = hist.Recent(ctx, cfg.limit)
			}
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no records")
				return nil
			}
			for _, r := range records {
				line := fmt.Sprintf("%s  %-20s  %-8s  %s",
					r.CreatedAt.Format("2006-01-02 15:04"), r.Account, r.Status, r.Title)
				if r.SongID != "" {
					line += "  (" + r.SongID + ")"
				}
				if r.Error != "" {
					line += "  " + r.Error
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.account, "account", "", "only records for this account")
	cmd.Flags().StringVar(&cfg.search, "search", "", "match title, song ID or status")
	cmd.Flags().IntVar(&cfg.limit, "limit", 50, "maximum records to show (0 = all)")
	return cmd
}

func newHistoryExportCmd() *cobra.Command {
	var csvPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the full history as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hist, err := openHistory()
			if err != nil {
				return err
			}
			defer hist.Close()

			out := cmd.OutOrStdout()
			if csvPath != "" {
				f, err := os.Create(csvPath)
				if err != nil {
					return fmt.Errorf("create %s: %w", csvPath, err)
				}
				defer f.Close()
				if err := hist.ExportCSV(cmd.Context(), f); err != nil {
					return err
				}
				fmt.Fprintf(out, "exported to %s\n", csvPath)
				return nil
			}
			return hist.ExportCSV(cmd.Context(), out)
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "write to this file instead of stdout")
	return cmd
}
