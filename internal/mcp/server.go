package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/clawdash/internal/gateway"
	"github.com/joescharf/clawdash/internal/process"
	"github.com/joescharf/clawdash/internal/snapshot"
)

// Server wraps the gateway data layer and exposes it as MCP tools.
type Server struct {
	gw        gateway.Client
	collector *snapshot.Collector
}

// NewServer creates the MCP server wrapper with all required dependencies.
func NewServer(gw gateway.Client, collector *snapshot.Collector) *Server {
	return &Server{
		gw:        gw,
		collector: collector,
	}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("clawdash", "1.0.0", server.WithToolCapabilities(true))

	// Register all tools
	srv.AddTool(s.listProcessesTool())
	srv.AddTool(s.listSessionsTool())
	srv.AddTool(s.listCronJobsTool())
	srv.AddTool(s.gatewayStatusTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// clawdash_list_processes
func (s *Server) listProcessesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("clawdash_list_processes",
		mcp.WithDescription("List all agent processes on the monitoring board. Combines live sessions and cron jobs into one view. Each process has: id, title, status (running/waiting/idle/completed/error), type (session/cron/sub-agent/background/system), startTime, description, progress (0-100), tokens, tools, and an error field when something went wrong."),
		mcp.WithString("status", mcp.Description("Status filter: running, waiting, idle, completed, error")),
		mcp.WithString("type", mcp.Description("Type filter: session, cron, sub-agent, background, system")),
	)
	return tool, s.handleListProcesses
}

func (s *Server) handleListProcesses(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := s.collector.Collect(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to collect processes: %v", err)), nil
	}

	statusFilter := process.Status(request.GetString("status", ""))
	typeFilter := process.Type(request.GetString("type", ""))

	out := make([]process.Process, 0, len(snap.Processes))
	for _, p := range snap.Processes {
		if statusFilter != "" && p.Status != statusFilter {
			continue
		}
		if typeFilter != "" && p.Type != typeFilter {
			continue
		}
		out = append(out, p)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal processes: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// clawdash_list_sessions
func (s *Server) listSessionsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("clawdash_list_sessions",
		mcp.WithDescription("List raw OpenClaw sessions as reported by the gateway, without board normalization. Each session has a key, kind, session id, last activity timestamp, and token usage."),
	)
	return tool, s.handleListSessions
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := s.gw.Sessions(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list sessions: %v", err)), nil
	}
	if sessions == nil {
		sessions = []gateway.Session{}
	}

	data, err := json.Marshal(sessions)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal sessions: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// clawdash_list_cron_jobs
func (s *Server) listCronJobsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("clawdash_list_cron_jobs",
		mcp.WithDescription("List raw OpenClaw cron jobs as reported by the gateway. Each job has a name, schedule, enabled flag, and run state including consecutive error counts."),
		mcp.WithBoolean("enabled_only", mcp.Description("Only return enabled jobs")),
	)
	return tool, s.handleListCronJobs
}

func (s *Server) handleListCronJobs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobs, err := s.gw.CronJobs(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list cron jobs: %v", err)), nil
	}

	enabledOnly := request.GetBool("enabled_only", false)

	out := make([]gateway.CronJob, 0, len(jobs))
	for _, j := range jobs {
		if enabledOnly && !j.Enabled {
			continue
		}
		out = append(out, j)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal cron jobs: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// clawdash_gateway_status
func (s *Server) gatewayStatusTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("clawdash_gateway_status",
		mcp.WithDescription("Get the OpenClaw gateway health: service runtime state and RPC reachability."),
	)
	return tool, s.handleGatewayStatus
}

func (s *Server) handleGatewayStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.gw.Status(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get gateway status: %v", err)), nil
	}

	data, err := json.Marshal(st)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal status: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
