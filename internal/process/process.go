package process

import "time"

// Status is the board column a process lands in.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusWaiting   Status = "waiting"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Statuses lists all statuses in board-column order.
var Statuses = []Status{StatusRunning, StatusWaiting, StatusIdle, StatusCompleted, StatusError}

// Type classifies where a process came from.
type Type string

const (
	TypeSession    Type = "session"
	TypeCron       Type = "cron"
	TypeSubAgent   Type = "sub-agent"
	TypeBackground Type = "background"
	TypeSystem     Type = "system"
)

// Process is the unified display entity for a session, scheduled job,
// or sub-agent run. Instances are recomputed from scratch on every
// pipeline tick; nothing carries over between ticks.
type Process struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Status      Status     `json:"status"`
	Type        Type       `json:"type"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	Description string     `json:"description"`
	Progress    int        `json:"progress"` // 0-100
	Tokens      int64      `json:"tokens"`
	Tools       []string   `json:"tools"`
	Error       string     `json:"error,omitempty"`
	SessionKey  string     `json:"sessionKey,omitempty"`
}
