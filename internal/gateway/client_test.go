package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeRunner(output string, err error) Runner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if err != nil {
			return nil, err
		}
		return []byte(output), nil
	}
}

func TestSessions_ParsesDocument(t *testing.T) {
	c := NewCLIClient(Config{})
	c.run = fakeRunner(`{"sessions":[
		{"key":"agent:alice:main","kind":"direct","updatedAt":1700000000000,"ageMs":60000,"sessionId":"s1","systemSent":true,"totalTokens":1234},
		{"key":"agent:alice:subagent:a1b2c3d4e5","kind":"isolated","updatedAt":1700000000000,"ageMs":120000,"sessionId":"s2"}
	]}`, nil)

	sessions, err := c.Sessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "agent:alice:main", sessions[0].Key)
	assert.True(t, sessions[0].SystemSent)
	assert.EqualValues(t, 1234, sessions[0].TotalTokens)
	assert.Equal(t, "s2", sessions[1].SessionID)
	assert.False(t, sessions[1].SystemSent)
}

func TestSessions_CommandFailure(t *testing.T) {
	c := NewCLIClient(Config{})
	c.run = fakeRunner("", errors.New("openclaw sessions --json: gateway not running"))

	_, err := c.Sessions(context.Background())
	require.Error(t, err)
}

func TestSessions_MalformedJSON(t *testing.T) {
	c := NewCLIClient(Config{})
	c.run = fakeRunner("not json at all", nil)

	_, err := c.Sessions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse sessions")
}

func TestCronJobs_ParsesDocument(t *testing.T) {
	c := NewCLIClient(Config{})
	c.run = fakeRunner(`{"jobs":[{
		"id":"job-1","agentId":"alice","name":"Email Sweep","enabled":true,
		"createdAtMs":1690000000000,"updatedAtMs":1700000000000,
		"schedule":{"kind":"cron","expr":"*/15 * * * *","tz":"UTC"},
		"sessionTarget":"agent:alice:main",
		"payload":{"kind":"message","message":"sweep inbox"},
		"state":{"nextRunAtMs":1700000900000,"lastRunAtMs":1700000000000,"lastStatus":"ok","consecutiveErrors":0}
	}]}`, nil)

	jobs, err := c.CronJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Email Sweep", jobs[0].Name)
	assert.Equal(t, "*/15 * * * *", jobs[0].Schedule.Expr)
	assert.Equal(t, "ok", jobs[0].State.LastStatus)
}

func TestStatus_ParsesDocument(t *testing.T) {
	c := NewCLIClient(Config{})
	c.run = fakeRunner(`{"service":{"runtime":{"status":"running","state":"active","pid":4242}},"rpc":{"ok":true,"url":"http://127.0.0.1:18789"}}`, nil)

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.RPC.OK)
	assert.Equal(t, 4242, st.Service.Runtime.PID)
}

func TestNewCLIClient_DefaultBin(t *testing.T) {
	c := NewCLIClient(Config{})
	assert.Equal(t, "openclaw", c.cfg.Bin)
}

func TestCLIClient_PassesArgs(t *testing.T) {
	var got []string
	c := NewCLIClient(Config{Bin: "openclaw"})
	c.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		got = append([]string{name}, args...)
		return []byte(`{"jobs":[]}`), nil
	}

	_, err := c.CronJobs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "openclaw cron list --json", strings.Join(got, " "))
}
