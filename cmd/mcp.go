package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/clawdash/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets MCP-capable agents query the board natively. Configure with:

  {
    "mcpServers": {
      "clawdash": { "command": "clawdash", "args": ["mcp"] }
    }
  }

Available tools: clawdash_list_processes, clawdash_list_sessions,
clawdash_list_cron_jobs, clawdash_gateway_status`,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv := mcp.NewServer(getGateway(), getCollector())
		return srv.ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
