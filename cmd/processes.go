package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/clawdash/internal/output"
	"github.com/joescharf/clawdash/internal/process"
)

var (
	processesStatus string
	processesType   string
)

var processesCmd = &cobra.Command{
	Use:   "processes",
	Short: "List all board processes",
	Long: `List every process on the board in one flat table.

Combines live sessions and cron jobs into the unified process view
the dashboard uses.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return processesRun()
	},
}

func init() {
	processesCmd.Flags().StringVar(&processesStatus, "status", "", "Filter by status (running, waiting, idle, completed, error)")
	processesCmd.Flags().StringVar(&processesType, "type", "", "Filter by type (session, cron, sub-agent, background, system)")
	rootCmd.AddCommand(processesCmd)
}

func processesRun() error {
	snap, err := getCollector().Collect(context.Background())
	if err != nil {
		return fmt.Errorf("collect processes: %w", err)
	}

	statusFilter := process.Status(processesStatus)
	typeFilter := process.Type(processesType)

	table := ui.Table([]string{"Title", "Type", "Status", "Progress", "Tokens", "Description"})
	shown := 0
	for _, p := range snap.Processes {
		if statusFilter != "" && p.Status != statusFilter {
			continue
		}
		if typeFilter != "" && p.Type != typeFilter {
			continue
		}
		table.Append([]string{
			output.Cyan(p.Title),
			string(p.Type),
			output.StatusColor(string(p.Status)),
			output.ProgressBar(p.Progress),
			fmt.Sprintf("%d", p.Tokens),
			p.Description,
		})
		shown++
	}

	if shown == 0 {
		ui.Info("No processes match.")
		return nil
	}
	return table.Render()
}
