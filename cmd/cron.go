package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/clawdash/internal/output"
)

var cronEnabledOnly bool

var cronCmd = &cobra.Command{
	Use:   "cron",
	Short: "List raw gateway cron jobs",
	Long:  "List scheduled jobs as reported by the gateway, without board normalization.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cronRun()
	},
}

func init() {
	cronCmd.Flags().BoolVar(&cronEnabledOnly, "enabled", false, "Show only enabled jobs")
	rootCmd.AddCommand(cronCmd)
}

func cronRun() error {
	gw := getGateway()
	jobs, err := gw.CronJobs(context.Background())
	if err != nil {
		return fmt.Errorf("list cron jobs: %w", err)
	}

	if len(jobs) == 0 {
		ui.Info("No cron jobs.")
		return nil
	}

	table := ui.Table([]string{"Name", "Schedule", "Enabled", "Last Run", "Next Run", "Errors"})
	for _, j := range jobs {
		if cronEnabledOnly && !j.Enabled {
			continue
		}

		enabled := output.Green("yes")
		if !j.Enabled {
			enabled = output.Red("no")
		}

		lastRun := "never"
		if j.State.LastRunAtMs > 0 {
			lastRun = timeAgo(time.UnixMilli(j.State.LastRunAtMs))
			if j.State.LastStatus != "" {
				lastRun += " (" + j.State.LastStatus + ")"
			}
		}

		nextRun := "n/a"
		if j.Enabled && j.State.NextRunAtMs > 0 {
			nextRun = time.UnixMilli(j.State.NextRunAtMs).Local().Format("15:04:05")
		}

		errCount := fmt.Sprintf("%d", j.State.ConsecutiveErrors)
		if j.State.ConsecutiveErrors > 0 {
			errCount = output.Red(errCount)
		}

		table.Append([]string{
			output.Cyan(j.Name),
			j.Schedule.Expr,
			enabled,
			lastRun,
			nextRun,
			errCount,
		})
	}
	return table.Render()
}
