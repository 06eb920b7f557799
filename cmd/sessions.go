package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/clawdash/internal/output"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List raw gateway sessions",
	Long:  "List sessions as reported by the gateway, without board normalization.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionsRun()
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}

func sessionsRun() error {
	gw := getGateway()
	sessions, err := gw.Sessions(context.Background())
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	if len(sessions) == 0 {
		ui.Info("No sessions.")
		return nil
	}

	table := ui.Table([]string{"Key", "Kind", "Model", "Tokens", "Activity"})
	for _, s := range sessions {
		activity := "n/a"
		if s.UpdatedAt > 0 {
			activity = timeAgo(time.UnixMilli(s.UpdatedAt))
		}
		table.Append([]string{
			output.Cyan(s.Key),
			s.Kind,
			s.Model,
			fmt.Sprintf("%d", s.TotalTokens),
			activity,
		})
	}
	return table.Render()
}
