package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/clawdash/internal/llm"
	"github.com/joescharf/clawdash/internal/output"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize the board with an LLM",
	Long: `Fetch the current board and ask an Anthropic model for a short
digest: a headline, details, and any processes that need attention.

Requires an API key via anthropic.api_key, CLAWDASH_ANTHROPIC_API_KEY,
or the SDK's standard environment lookup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return summarizeRun()
	},
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
}

func summarizeRun() error {
	ctx := context.Background()

	snap, err := getCollector().Collect(ctx)
	if err != nil {
		return fmt.Errorf("collect processes: %w", err)
	}

	client := llm.NewClient(viper.GetString("anthropic.api_key"), viper.GetString("anthropic.model"))
	summary, err := client.Summarize(ctx, snap.Processes)
	if err != nil {
		return fmt.Errorf("summarize board: %w", err)
	}

	fmt.Fprintf(ui.Out, "%s\n\n", output.Cyan(summary.Headline))
	fmt.Fprintln(ui.Out, summary.Details)

	if len(summary.Attention) > 0 {
		fmt.Fprintln(ui.Out)
		ui.Warning("Needs attention:")
		for _, title := range summary.Attention {
			fmt.Fprintf(ui.Out, "  - %s\n", title)
		}
	}
	return nil
}
