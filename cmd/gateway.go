package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/clawdash/internal/output"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Show gateway health",
	RunE: func(cmd *cobra.Command, args []string) error {
		return gatewayRun()
	},
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
}

func gatewayRun() error {
	gw := getGateway()
	st, err := gw.Status(context.Background())
	if err != nil {
		return fmt.Errorf("gateway status: %w", err)
	}

	if st.RPC.OK {
		ui.Success("Gateway reachable at %s", st.RPC.URL)
	} else {
		ui.Error("Gateway RPC not responding")
	}

	runtime := st.Service.Runtime
	fmt.Fprintf(ui.Out, "  Status:  %s\n", output.StatusColor(runtime.Status))
	if runtime.State != "" {
		fmt.Fprintf(ui.Out, "  State:   %s\n", runtime.State)
	}
	if runtime.PID > 0 {
		fmt.Fprintf(ui.Out, "  PID:     %d\n", runtime.PID)
	}
	return nil
}
