package process

import (
	"fmt"
	"strings"
	"time"

	"github.com/joescharf/clawdash/internal/gateway"
)

// Classification thresholds. These mirror the gateway's observed behavior
// and are deliberately literal; tune here rather than re-deriving them.
const (
	// SessionRunningWindow is how recently a session must have been active
	// (with a system message sent) to count as running.
	SessionRunningWindow = 5 * time.Minute

	// SessionWaitingWindow is the activity window within which a session
	// counts as waiting for input.
	SessionWaitingWindow = 30 * time.Minute

	// CronRunningWindow is how recently a cron job must have run
	// successfully to count as still running.
	CronRunningWindow = 5 * time.Minute

	// CronUpcomingWindow is the lookahead within which a scheduled run
	// puts a cron job into waiting.
	CronUpcomingWindow = time.Hour
)

var progressByStatus = map[Status]int{
	StatusError:     0,
	StatusRunning:   75,
	StatusWaiting:   25,
	StatusCompleted: 100,
	StatusIdle:      0,
}

// Convert turns raw gateway records into the unified process list.
// Pure: no I/O, deterministic for a fixed now. Output order is all
// session-derived processes in input order, then all cron-derived
// processes in input order.
func Convert(sessions []gateway.Session, jobs []gateway.CronJob, now time.Time) []Process {
	processes := make([]Process, 0, len(sessions)+len(jobs))
	for _, s := range sessions {
		processes = append(processes, fromSession(s))
	}
	for _, j := range jobs {
		processes = append(processes, fromCronJob(j, now))
	}
	return processes
}

func fromSession(s gateway.Session) Process {
	status := sessionStatus(s)

	p := Process{
		ID:          s.SessionID,
		Title:       sessionTitle(s.Key),
		Status:      status,
		Type:        sessionType(s.Key),
		StartTime:   time.UnixMilli(s.UpdatedAt - s.AgeMs),
		Description: sessionDescription(s, status),
		Progress:    progressByStatus[status],
		Tokens:      s.TotalTokens,
		Tools:       sessionTools(s.Key),
		SessionKey:  s.Key,
	}
	if status == StatusCompleted {
		end := time.UnixMilli(s.UpdatedAt)
		p.EndTime = &end
	}
	if s.AbortedLastRun {
		p.Error = "Session was aborted"
	}
	return p
}

func sessionStatus(s gateway.Session) Status {
	age := time.Duration(s.AgeMs) * time.Millisecond

	switch {
	case s.AbortedLastRun:
		return StatusError
	case age < SessionRunningWindow && s.SystemSent:
		return StatusRunning
	case age < SessionWaitingWindow:
		return StatusWaiting
	case s.TotalTokens > 0:
		return StatusCompleted
	default:
		return StatusIdle
	}
}

func sessionType(key string) Type {
	switch {
	case strings.Contains(key, ":main"):
		return TypeSession
	case strings.Contains(key, ":subagent:"):
		return TypeSubAgent
	case strings.Contains(key, ":cron:"):
		return TypeBackground
	default:
		return TypeSystem
	}
}

// sessionTitle derives a display title from the category segment of the
// key. The segment's position varies ("agent1:main" vs "agent:alice:main"),
// so scan past the leading owner segment rather than indexing a fixed slot.
func sessionTitle(key string) string {
	parts := strings.Split(key, ":")
	for i := 1; i < len(parts); i++ {
		switch parts[i] {
		case "main":
			return "Main Session"
		case "subagent":
			return "Sub-Agent " + shortSegment(parts, i+1)
		case "cron":
			return "Cron Job " + shortSegment(parts, i+1)
		}
	}
	return key
}

// shortSegment returns the first 8 characters of parts[i], or "" if absent.
func shortSegment(parts []string, i int) string {
	if i >= len(parts) {
		return ""
	}
	seg := parts[i]
	if len(seg) > 8 {
		seg = seg[:8]
	}
	return seg
}

func sessionDescription(s gateway.Session, status Status) string {
	switch status {
	case StatusError:
		return "❌ Session aborted"
	case StatusRunning:
		return "⚡ Processing request..."
	case StatusWaiting:
		return fmt.Sprintf("⏳ Waiting for input (%dm ago)", s.AgeMs/60000)
	case StatusCompleted:
		return "✅ Session completed"
	default:
		return "😴 Idle, ready for input"
	}
}

func sessionTools(key string) []string {
	switch {
	case strings.Contains(key, ":main"):
		return []string{"web_search", "exec", "read", "write"}
	case strings.Contains(key, ":subagent:"):
		return []string{"web_search", "exec", "browser"}
	case strings.Contains(key, ":cron:"):
		return []string{"message", "exec", "mbt_logger"}
	default:
		return []string{"system"}
	}
}

func fromCronJob(j gateway.CronJob, now time.Time) Process {
	status := cronStatus(j, now)

	progress := 0
	switch status {
	case StatusCompleted:
		progress = 100
	case StatusRunning:
		progress = 50
	}

	p := Process{
		ID:          j.ID,
		Title:       j.Name,
		Status:      status,
		Type:        TypeCron,
		StartTime:   time.UnixMilli(j.CreatedAtMs),
		Description: cronDescription(j, status, now),
		Progress:    progress,
		Tokens:      0, // cron jobs carry no token accounting
		Tools:       []string{"cron", "message"},
	}
	if j.State.LastRunAtMs > 0 {
		end := time.UnixMilli(j.State.LastRunAtMs)
		p.EndTime = &end
	}
	if j.State.ConsecutiveErrors > 0 {
		p.Error = fmt.Sprintf("%d consecutive errors", j.State.ConsecutiveErrors)
	}
	return p
}

func cronStatus(j gateway.CronJob, now time.Time) Status {
	if !j.Enabled {
		return StatusError
	}

	sinceLastRun := now.Sub(time.UnixMilli(j.State.LastRunAtMs))

	switch {
	case j.State.LastRunAtMs > 0 && sinceLastRun < CronRunningWindow && j.State.LastStatus == "ok":
		return StatusRunning
	case j.State.ConsecutiveErrors > 0:
		return StatusError
	case j.State.LastRunAtMs > 0 && j.State.LastStatus == "ok":
		return StatusCompleted
	case j.State.NextRunAtMs > 0 && time.UnixMilli(j.State.NextRunAtMs).Sub(now) < CronUpcomingWindow:
		return StatusWaiting
	default:
		return StatusIdle
	}
}

func cronDescription(j gateway.CronJob, status Status, now time.Time) string {
	switch status {
	case StatusError:
		return fmt.Sprintf("❌ %d consecutive errors", j.State.ConsecutiveErrors)
	case StatusRunning:
		return "⚡ Job executing..."
	case StatusCompleted:
		minutes := now.Sub(time.UnixMilli(j.State.LastRunAtMs)) / time.Minute
		return fmt.Sprintf("✅ Last run %dm ago", minutes)
	case StatusWaiting:
		minutes := time.UnixMilli(j.State.NextRunAtMs).Sub(now) / time.Minute
		return fmt.Sprintf("⏳ Next run in %dm", minutes)
	default:
		return "😴 Scheduled: " + j.Schedule.Expr
	}
}
