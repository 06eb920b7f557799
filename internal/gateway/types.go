package gateway

// Session is one conversation session as reported by `openclaw sessions --json`.
// The Key encodes ownership and category as colon-separated segments,
// e.g. "agent:alice:main" or "agent:alice:subagent:a1b2c3d4e5".
type Session struct {
	Key            string `json:"key"`
	Kind           string `json:"kind"`
	UpdatedAt      int64  `json:"updatedAt"`
	AgeMs          int64  `json:"ageMs"`
	SessionID      string `json:"sessionId"`
	SystemSent     bool   `json:"systemSent,omitempty"`
	AbortedLastRun bool   `json:"abortedLastRun,omitempty"`
	InputTokens    int64  `json:"inputTokens,omitempty"`
	OutputTokens   int64  `json:"outputTokens,omitempty"`
	TotalTokens    int64  `json:"totalTokens,omitempty"`
	Model          string `json:"model,omitempty"`
	ContextTokens  int64  `json:"contextTokens,omitempty"`
}

// Schedule describes when a cron job fires.
type Schedule struct {
	Kind string `json:"kind"`
	Expr string `json:"expr"`
	TZ   string `json:"tz"`
}

// Payload is the message a cron job delivers to its target session.
type Payload struct {
	Kind           string `json:"kind"`
	Message        string `json:"message"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"`
}

// CronState is the mutable run-state portion of a cron job.
type CronState struct {
	NextRunAtMs       int64  `json:"nextRunAtMs,omitempty"`
	LastRunAtMs       int64  `json:"lastRunAtMs,omitempty"`
	LastStatus        string `json:"lastStatus,omitempty"`
	LastDurationMs    int64  `json:"lastDurationMs,omitempty"`
	ConsecutiveErrors int    `json:"consecutiveErrors,omitempty"`
}

// CronJob is one scheduled job as reported by `openclaw cron list --json`.
type CronJob struct {
	ID            string    `json:"id"`
	AgentID       string    `json:"agentId"`
	Name          string    `json:"name"`
	Enabled       bool      `json:"enabled"`
	CreatedAtMs   int64     `json:"createdAtMs"`
	UpdatedAtMs   int64     `json:"updatedAtMs"`
	Schedule      Schedule  `json:"schedule"`
	SessionTarget string    `json:"sessionTarget"`
	Payload       Payload   `json:"payload"`
	State         CronState `json:"state"`
}

// Status is the gateway health document from `openclaw gateway status --json`.
// Only RPC.OK is load-bearing: it tells us whether the gateway is reachable.
type Status struct {
	Service struct {
		Runtime struct {
			Status string `json:"status"`
			State  string `json:"state"`
			PID    int    `json:"pid"`
		} `json:"runtime"`
	} `json:"service"`
	RPC struct {
		OK  bool   `json:"ok"`
		URL string `json:"url"`
	} `json:"rpc"`
}
