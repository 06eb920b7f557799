package stream

import "github.com/joescharf/clawdash/internal/process"

// Message types carried on the stream.
const (
	TypeProcessesUpdate = "processes_update"
	TypeError           = "error"
	TypePing            = "ping"
)

// Message is the wire envelope for every SSE payload. Exactly one of
// Processes or Error is populated, according to Type; ping messages carry
// only the timestamp.
type Message struct {
	Type      string            `json:"type"`
	Processes []process.Process `json:"processes,omitempty"`
	Error     string            `json:"error,omitempty"`
	Timestamp int64             `json:"timestamp"` // epoch ms
}
