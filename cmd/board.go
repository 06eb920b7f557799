package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/clawdash/internal/output"
	"github.com/joescharf/clawdash/internal/process"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show the process board grouped by status",
	Long: `Show the kanban-style board in the terminal.

Processes are grouped into status columns in board order: running,
waiting, idle, completed, error. Empty columns are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return boardRun()
	},
}

func init() {
	rootCmd.AddCommand(boardCmd)
}

func boardRun() error {
	snap, err := getCollector().Collect(context.Background())
	if err != nil {
		return fmt.Errorf("collect processes: %w", err)
	}

	if len(snap.Processes) == 0 {
		ui.Info("Board is empty.")
		return nil
	}

	byStatus := make(map[process.Status][]process.Process)
	for _, p := range snap.Processes {
		byStatus[p.Status] = append(byStatus[p.Status], p)
	}

	for _, status := range process.Statuses {
		group := byStatus[status]
		if len(group) == 0 {
			continue
		}

		fmt.Fprintf(ui.Out, "%s (%d)\n", output.StatusColor(string(status)), len(group))
		table := ui.Table([]string{"Title", "Type", "Progress", "Description"})
		for _, p := range group {
			desc := p.Description
			if p.Error != "" {
				desc = output.Red(p.Error)
			}
			table.Append([]string{
				output.Cyan(p.Title),
				string(p.Type),
				output.ProgressBar(p.Progress),
				desc,
			})
		}
		if err := table.Render(); err != nil {
			return err
		}
		fmt.Fprintln(ui.Out)
	}
	return nil
}
