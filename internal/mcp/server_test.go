package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/clawdash/internal/gateway"
	"github.com/joescharf/clawdash/internal/process"
	"github.com/joescharf/clawdash/internal/snapshot"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

// mockGateway implements gateway.Client for testing.
type mockGateway struct {
	sessions []gateway.Session
	jobs     []gateway.CronJob
	status   *gateway.Status

	// Optional error injection.
	sessionsErr error
	jobsErr     error
	statusErr   error
}

func (m *mockGateway) Sessions(_ context.Context) ([]gateway.Session, error) {
	return m.sessions, m.sessionsErr
}

func (m *mockGateway) CronJobs(_ context.Context) ([]gateway.CronJob, error) {
	return m.jobs, m.jobsErr
}

func (m *mockGateway) Status(_ context.Context) (*gateway.Status, error) {
	return m.status, m.statusErr
}

func newTestServer(t *testing.T) (*Server, *mockGateway) {
	t.Helper()
	gw := &mockGateway{}
	return NewServer(gw, snapshot.NewCollector(gw, nil, nil)), gw
}

// callToolReq builds a CallToolRequest the way the transport would.
func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// resultJSON parses the text result as JSON into the provided target.
func resultJSON(t *testing.T, result *mcpgo.CallToolResult, target any) {
	t.Helper()
	text := resultText(t, result)
	require.NoError(t, json.Unmarshal([]byte(text), target))
}

func activeSession(key, id string) gateway.Session {
	return gateway.Session{
		Key:        key,
		Kind:       "direct",
		SessionID:  id,
		UpdatedAt:  time.Now().UnixMilli(),
		AgeMs:      60_000,
		SystemSent: true,
	}
}

// ---------------------------------------------------------------------------
// Tests: clawdash_list_processes
// ---------------------------------------------------------------------------

func TestHandleListProcesses_Empty(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	req := callToolReq("clawdash_list_processes", nil)
	result, err := srv.handleListProcesses(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	var processes []process.Process
	resultJSON(t, result, &processes)
	assert.Empty(t, processes)
}

func TestHandleListProcesses_CombinesSources(t *testing.T) {
	srv, gw := newTestServer(t)
	ctx := context.Background()

	gw.sessions = []gateway.Session{activeSession("agent:alice:main", "s1")}
	gw.jobs = []gateway.CronJob{{ID: "j1", Name: "Morning Report", Enabled: true}}

	req := callToolReq("clawdash_list_processes", nil)
	result, err := srv.handleListProcesses(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var processes []process.Process
	resultJSON(t, result, &processes)
	require.Len(t, processes, 2)
	assert.Equal(t, "s1", processes[0].ID)
	assert.Equal(t, "j1", processes[1].ID)
}

func TestHandleListProcesses_StatusFilter(t *testing.T) {
	srv, gw := newTestServer(t)
	ctx := context.Background()

	gw.sessions = []gateway.Session{activeSession("agent:alice:main", "s1")}
	gw.jobs = []gateway.CronJob{{ID: "j1", Name: "Morning Report", Enabled: false}}

	req := callToolReq("clawdash_list_processes", map[string]any{"status": "running"})
	result, err := srv.handleListProcesses(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var processes []process.Process
	resultJSON(t, result, &processes)
	require.Len(t, processes, 1)
	assert.Equal(t, "s1", processes[0].ID)
}

func TestHandleListProcesses_TypeFilter(t *testing.T) {
	srv, gw := newTestServer(t)
	ctx := context.Background()

	gw.sessions = []gateway.Session{activeSession("agent:alice:main", "s1")}
	gw.jobs = []gateway.CronJob{{ID: "j1", Name: "Morning Report", Enabled: true}}

	req := callToolReq("clawdash_list_processes", map[string]any{"type": "cron"})
	result, err := srv.handleListProcesses(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var processes []process.Process
	resultJSON(t, result, &processes)
	require.Len(t, processes, 1)
	assert.Equal(t, "j1", processes[0].ID)
}

func TestHandleListProcesses_AllSourcesDown(t *testing.T) {
	srv, gw := newTestServer(t)
	ctx := context.Background()

	gw.sessionsErr = errors.New("gateway unreachable")
	gw.jobsErr = errors.New("gateway unreachable")

	req := callToolReq("clawdash_list_processes", nil)
	result, err := srv.handleListProcesses(ctx, req)
	require.NoError(t, err, "handler should not return Go error; should wrap in result")
	require.NotNil(t, result)
	assert.True(t, result.IsError)
}

func TestHandleListProcesses_PartialFailure(t *testing.T) {
	srv, gw := newTestServer(t)
	ctx := context.Background()

	gw.sessionsErr = errors.New("gateway unreachable")
	gw.jobs = []gateway.CronJob{{ID: "j1", Name: "Morning Report", Enabled: true}}

	req := callToolReq("clawdash_list_processes", nil)
	result, err := srv.handleListProcesses(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError, "one live source is enough to answer")

	var processes []process.Process
	resultJSON(t, result, &processes)
	require.Len(t, processes, 1)
	assert.Equal(t, "j1", processes[0].ID)
}

// ---------------------------------------------------------------------------
// Tests: clawdash_list_sessions
// ---------------------------------------------------------------------------

func TestHandleListSessions(t *testing.T) {
	srv, gw := newTestServer(t)
	ctx := context.Background()

	gw.sessions = []gateway.Session{
		activeSession("agent:alice:main", "s1"),
		activeSession("agent:alice:subagent:abc", "s2"),
	}

	req := callToolReq("clawdash_list_sessions", nil)
	result, err := srv.handleListSessions(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "agent:alice:main")
	assert.Contains(t, text, "agent:alice:subagent:abc")
}

func TestHandleListSessions_EmptyIsArray(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	req := callToolReq("clawdash_list_sessions", nil)
	result, err := srv.handleListSessions(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.JSONEq(t, "[]", resultText(t, result))
}

func TestHandleListSessions_GatewayError(t *testing.T) {
	srv, gw := newTestServer(t)
	ctx := context.Background()

	gw.sessionsErr = errors.New("gateway not running")

	req := callToolReq("clawdash_list_sessions", nil)
	result, err := srv.handleListSessions(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "gateway not running")
}

// ---------------------------------------------------------------------------
// Tests: clawdash_list_cron_jobs
// ---------------------------------------------------------------------------

func TestHandleListCronJobs(t *testing.T) {
	srv, gw := newTestServer(t)
	ctx := context.Background()

	gw.jobs = []gateway.CronJob{
		{ID: "j1", Name: "Morning Report", Enabled: true},
		{ID: "j2", Name: "Nightly Sweep", Enabled: false},
	}

	req := callToolReq("clawdash_list_cron_jobs", nil)
	result, err := srv.handleListCronJobs(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var jobs []gateway.CronJob
	resultJSON(t, result, &jobs)
	assert.Len(t, jobs, 2)
}

func TestHandleListCronJobs_EnabledOnly(t *testing.T) {
	srv, gw := newTestServer(t)
	ctx := context.Background()

	gw.jobs = []gateway.CronJob{
		{ID: "j1", Name: "Morning Report", Enabled: true},
		{ID: "j2", Name: "Nightly Sweep", Enabled: false},
	}

	req := callToolReq("clawdash_list_cron_jobs", map[string]any{"enabled_only": true})
	result, err := srv.handleListCronJobs(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var jobs []gateway.CronJob
	resultJSON(t, result, &jobs)
	require.Len(t, jobs, 1)
	assert.Equal(t, "j1", jobs[0].ID)
}

func TestHandleListCronJobs_GatewayError(t *testing.T) {
	srv, gw := newTestServer(t)
	ctx := context.Background()

	gw.jobsErr = errors.New("cron list failed")

	req := callToolReq("clawdash_list_cron_jobs", nil)
	result, err := srv.handleListCronJobs(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "cron list failed")
}

// ---------------------------------------------------------------------------
// Tests: clawdash_gateway_status
// ---------------------------------------------------------------------------

func TestHandleGatewayStatus(t *testing.T) {
	srv, gw := newTestServer(t)
	ctx := context.Background()

	st := &gateway.Status{}
	st.Service.Runtime.Status = "running"
	st.RPC.OK = true
	st.RPC.URL = "http://127.0.0.1:18789"
	gw.status = st

	req := callToolReq("clawdash_gateway_status", nil)
	result, err := srv.handleGatewayStatus(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "running")
	assert.Contains(t, text, "http://127.0.0.1:18789")
}

func TestHandleGatewayStatus_GatewayError(t *testing.T) {
	srv, gw := newTestServer(t)
	ctx := context.Background()

	gw.statusErr = errors.New("gateway not running")

	req := callToolReq("clawdash_gateway_status", nil)
	result, err := srv.handleGatewayStatus(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "gateway not running")
}

// ---------------------------------------------------------------------------
// Tests: server wiring
// ---------------------------------------------------------------------------

func TestMCPServerRegistersTools(t *testing.T) {
	srv, _ := newTestServer(t)
	mcpServer := srv.MCPServer()
	require.NotNil(t, mcpServer)
}
