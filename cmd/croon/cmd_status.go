package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"croon/pkg/queue"
)

// newStatusCmd creates the "croon status" subcommand.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show every queue with its progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore()
			if err != nil {
				return err
			}
			queues := store.LoadAll()
			out := cmd.OutOrStdout()
			if len(queues) == 0 {
				fmt.Fprintln(out, "no queues")
				return nil
			}
			printQueueTable(out, queues, styledOutput(out))
			return nil
		},
	}
}

// styledOutput reports whether out is a terminal worth styling.
func styledOutput(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

var statusColors = map[queue.Status]lipgloss.Style{
	queue.StatusPending:   lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	queue.StatusRunning:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	queue.StatusPaused:    lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	queue.StatusCompleted: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	queue.StatusFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	queue.StatusCancelled: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
}

func printQueueTable(w io.Writer, queues []queue.Entry, styled bool) {
	fmt.Fprintf(w, "%-36s  %-20s  %-10s  %-9s  %s\n", "ID", "ACCOUNT", "STATUS", "PROGRESS", "BATCH")
	for _, e := range queues {
		status := string(e.Status)
		if styled {
			if style, ok := statusColors[e.Status]; ok {
				status = style.Render(status)
			}
		}
		fmt.Fprintf(w, "%-36s  %-20s  %-10s  %4d/%-4d  %d/%d\n",
			e.ID, e.AccountName, status,
			e.ItemsCompleted, e.TotalItems,
			e.CurrentBatch, e.BatchCount())
	}
}
