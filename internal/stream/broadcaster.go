package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/clawdash/internal/metrics"
	"github.com/joescharf/clawdash/internal/snapshot"
)

// Default tick intervals for the streaming endpoint.
const (
	DefaultDataInterval      = 3 * time.Second
	DefaultHeartbeatInterval = 30 * time.Second
)

// tickErrorText is the fixed error payload sent when a tick fails.
const tickErrorText = "Failed to fetch OpenClaw data"

// Broadcaster streams process snapshots to each connected client over
// Server-Sent Events. Every connection owns its own pair of timers; the
// broadcaster itself holds no per-connection state and is safe for
// concurrent use.
type Broadcaster struct {
	collector *snapshot.Collector
	log       *slog.Logger
	m         *metrics.Metrics

	// DataInterval and HeartbeatInterval control the per-connection
	// timers. Zero values fall back to the defaults.
	DataInterval      time.Duration
	HeartbeatInterval time.Duration
}

// NewBroadcaster creates a broadcaster over the given collector.
// Logger and metrics may be nil.
func NewBroadcaster(c *snapshot.Collector, log *slog.Logger, m *metrics.Metrics) *Broadcaster {
	if log == nil {
		log = slog.Default()
	}
	return &Broadcaster{
		collector:         c,
		log:               log,
		m:                 m,
		DataInterval:      DefaultDataInterval,
		HeartbeatInterval: DefaultHeartbeatInterval,
	}
}

// ServeHTTP handles one streaming connection: an immediate data tick,
// then independent data and heartbeat timers until the client goes away.
// Tick failures are reported in-band and never terminate the stream.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	connID := ulid.Make().String()
	log := b.log.With("conn", connID, "remote", r.RemoteAddr)
	log.Info("stream client connected")

	b.m.StreamConnected(1)
	defer b.m.StreamConnected(-1)
	defer log.Info("stream client disconnected")

	ctx := r.Context()

	dataInterval := b.DataInterval
	if dataInterval <= 0 {
		dataInterval = DefaultDataInterval
	}
	heartbeatInterval := b.HeartbeatInterval
	if heartbeatInterval <= 0 {
		heartbeatInterval = DefaultHeartbeatInterval
	}

	// First tick before any timer fires so the client never stares at a
	// blank board for a full interval.
	if err := b.sendTick(w, flusher, r); err != nil {
		return
	}

	dataTicker := time.NewTicker(dataInterval)
	defer dataTicker.Stop()
	heartbeatTicker := time.NewTicker(heartbeatInterval)
	defer heartbeatTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-dataTicker.C:
			if err := b.sendTick(w, flusher, r); err != nil {
				return
			}
		case <-heartbeatTicker.C:
			ping := Message{Type: TypePing, Timestamp: time.Now().UnixMilli()}
			if err := b.send(w, flusher, ping); err != nil {
				return
			}
		}
	}
}

// sendTick runs one pipeline tick and writes the result. A collect
// failure becomes an in-band error message; only a write failure (client
// gone) is returned to the caller.
func (b *Broadcaster) sendTick(w http.ResponseWriter, flusher http.Flusher, r *http.Request) error {
	b.m.IncTick()

	snap, err := b.collector.Collect(r.Context())
	if err != nil {
		b.log.Warn("tick failed", "error", err)
		msg := Message{Type: TypeError, Error: tickErrorText, Timestamp: time.Now().UnixMilli()}
		return b.send(w, flusher, msg)
	}

	msg := Message{
		Type:      TypeProcessesUpdate,
		Processes: snap.Processes,
		Timestamp: snap.FetchedAt.UnixMilli(),
	}
	return b.send(w, flusher, msg)
}

func (b *Broadcaster) send(w http.ResponseWriter, flusher http.Flusher, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	flusher.Flush()
	b.m.IncStreamMessage(msg.Type)
	return nil
}
