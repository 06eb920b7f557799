package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Client provides read-only access to the OpenClaw gateway.
type Client interface {
	Sessions(ctx context.Context) ([]Session, error)
	CronJobs(ctx context.Context) ([]CronJob, error)
	Status(ctx context.Context) (*Status, error)
}

// Config holds the settings for the CLI-backed client.
type Config struct {
	// Bin is the openclaw binary name or path.
	Bin string
	// Timeout bounds each CLI invocation. Zero means no timeout.
	Timeout time.Duration
}

// Runner executes a command and returns its stdout. Replaceable in tests.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// CLIClient implements Client by shelling out to the openclaw CLI,
// which emits a single JSON document on stdout per sub-command.
type CLIClient struct {
	cfg Config
	run Runner
}

// NewCLIClient returns a client that invokes the openclaw CLI directly.
func NewCLIClient(cfg Config) *CLIClient {
	if cfg.Bin == "" {
		cfg.Bin = "openclaw"
	}
	return &CLIClient{cfg: cfg, run: execRunner}
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("%s %s: %s", name, strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

func (c *CLIClient) invoke(ctx context.Context, args ...string) ([]byte, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	return c.run(ctx, c.cfg.Bin, args...)
}

// Sessions fetches the current session list.
func (c *CLIClient) Sessions(ctx context.Context) ([]Session, error) {
	out, err := c.invoke(ctx, "sessions", "--json")
	if err != nil {
		return nil, err
	}

	var doc struct {
		Sessions []Session `json:"sessions"`
	}
	if err := json.Unmarshal(out, &doc); err != nil {
		return nil, fmt.Errorf("parse sessions: %w", err)
	}
	return doc.Sessions, nil
}

// CronJobs fetches the scheduled job list.
func (c *CLIClient) CronJobs(ctx context.Context) ([]CronJob, error) {
	out, err := c.invoke(ctx, "cron", "list", "--json")
	if err != nil {
		return nil, err
	}

	var doc struct {
		Jobs []CronJob `json:"jobs"`
	}
	if err := json.Unmarshal(out, &doc); err != nil {
		return nil, fmt.Errorf("parse cron jobs: %w", err)
	}
	return doc.Jobs, nil
}

// Status fetches the gateway health document.
func (c *CLIClient) Status(ctx context.Context) (*Status, error) {
	out, err := c.invoke(ctx, "gateway", "status", "--json")
	if err != nil {
		return nil, err
	}

	var st Status
	if err := json.Unmarshal(out, &st); err != nil {
		return nil, fmt.Errorf("parse gateway status: %w", err)
	}
	return &st, nil
}
