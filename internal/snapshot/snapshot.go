package snapshot

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joescharf/clawdash/internal/gateway"
	"github.com/joescharf/clawdash/internal/metrics"
	"github.com/joescharf/clawdash/internal/process"
)

// ErrAllSourcesFailed is returned when neither the sessions nor the cron
// feed could be fetched. A single failed source is not an error: the tick
// proceeds with the data it has.
var ErrAllSourcesFailed = errors.New("all gateway sources failed")

// Snapshot is the result of one fetch+normalize tick.
type Snapshot struct {
	Processes []process.Process `json:"processes"`
	FetchedAt time.Time         `json:"fetchedAt"`
}

// Collector runs the adapter+normalizer pipeline. It is stateless and
// safe for concurrent use from multiple connections.
type Collector struct {
	gw  gateway.Client
	log *slog.Logger
	m   *metrics.Metrics

	// now is replaceable in tests so classification is deterministic.
	now func() time.Time
}

// NewCollector wires a collector to a gateway client. Logger and metrics
// may be nil.
func NewCollector(gw gateway.Client, log *slog.Logger, m *metrics.Metrics) *Collector {
	if log == nil {
		log = slog.Default()
	}
	return &Collector{gw: gw, log: log, m: m, now: time.Now}
}

// Collect fetches sessions and cron jobs concurrently, waits for both to
// settle, and normalizes whatever arrived. A failed source contributes an
// empty list; only the total loss of both sources is an error.
func (c *Collector) Collect(ctx context.Context) (*Snapshot, error) {
	var (
		wg          sync.WaitGroup
		sessions    []gateway.Session
		jobs        []gateway.CronJob
		sessionsErr error
		jobsErr     error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		sessions, sessionsErr = c.gw.Sessions(ctx)
	}()
	go func() {
		defer wg.Done()
		jobs, jobsErr = c.gw.CronJobs(ctx)
	}()
	wg.Wait()

	if sessionsErr != nil {
		c.log.Warn("sessions fetch failed", "error", sessionsErr)
		c.m.IncFetchError("sessions")
		sessions = nil
	}
	if jobsErr != nil {
		c.log.Warn("cron fetch failed", "error", jobsErr)
		c.m.IncFetchError("cron")
		jobs = nil
	}
	if sessionsErr != nil && jobsErr != nil {
		return nil, ErrAllSourcesFailed
	}

	now := c.now()
	snap := &Snapshot{
		Processes: process.Convert(sessions, jobs, now),
		FetchedAt: now,
	}
	c.m.ObserveSnapshot(snap.Processes)
	return snap, nil
}
