package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/joescharf/clawdash/internal/process"
)

// Event channel names a client can subscribe to.
const (
	EventProcesses        = "processes_update"
	EventError            = "error"
	EventHeartbeat        = "heartbeat"
	EventConnectionStatus = "connection_status"
)

// Connection status values delivered on the connection_status channel.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// terminalErrorText is emitted once when reconnection attempts run out.
const terminalErrorText = "Failed to maintain SSE connection"

// Event is what subscribers receive. Fields beyond Type are populated
// according to the channel the event was delivered on.
type Event struct {
	Type      string
	Processes []process.Process
	Error     string
	Status    string
	Timestamp int64 // epoch ms
}

// ClientConfig holds the settings for a stream client.
type ClientConfig struct {
	// URL of the SSE endpoint.
	URL string
	// BaseDelay is the first reconnect delay; each subsequent attempt
	// doubles it. Defaults to one second.
	BaseDelay time.Duration
	// MaxAttempts bounds consecutive reconnect attempts before the
	// client gives up for good. Defaults to 5.
	MaxAttempts int
	// HTTPClient is replaceable in tests. Defaults to http.DefaultClient.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client maintains a persistent connection to the streaming endpoint,
// dispatches typed events to subscribers, and reconnects with bounded
// exponential backoff after transport failures. A closed client never
// reconnects on its own.
type Client struct {
	cfg ClientConfig
	log *slog.Logger

	mu         sync.Mutex
	listeners  map[string]map[int]func(Event)
	nextID     int
	connecting bool
	connected  bool
	closed     bool
	failed     bool
	attempts   int
	cancel     context.CancelFunc
	reconnect  *time.Timer
}

// NewClient creates a stream client. Call Connect to open the stream.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		cfg:       cfg,
		log:       log,
		listeners: make(map[string]map[int]func(Event)),
	}
}

// On subscribes fn to the named event channel and returns a handle that
// removes the subscription. Multiple listeners per channel are allowed.
func (c *Client) On(event string, fn func(Event)) (off func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.listeners[event] == nil {
		c.listeners[event] = make(map[int]func(Event))
	}
	id := c.nextID
	c.nextID++
	c.listeners[event][id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners[event], id)
	}
}

// Connect opens the stream. It is a no-op if the client is already
// connecting, connected, closed, or permanently failed. Calling Connect
// while a reconnect delay is pending cancels the delay and retries now.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.closed || c.failed || c.connecting || c.connected {
		c.mu.Unlock()
		return
	}
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	c.connecting = true
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	go c.run(ctx)
}

// Close tears the connection down and cancels any pending reconnect.
// The client will not reconnect after Close.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.connecting = false
	c.connected = false
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// IsConnected reports whether the stream is currently open.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) run(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		c.onTransportDown(err)
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		c.onTransportDown(err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.onTransportDown(nil)
		return
	}

	c.mu.Lock()
	// Close may have raced the handshake; never report connected after it.
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.connecting = false
	c.connected = true
	c.attempts = 0
	c.mu.Unlock()
	c.emit(EventConnectionStatus, Event{Type: EventConnectionStatus, Status: StatusConnected})

	scanner := newSSEScanner(resp.Body)
	for scanner.Next() {
		c.handlePayload(scanner.Event().Data)
	}

	// Stream ended: server closed it, the transport broke, or Close
	// cancelled our context.
	c.onTransportDown(scanner.Err())
}

// handlePayload parses one wire frame. Malformed payloads are logged
// and dropped; unknown message types are silently ignored.
func (c *Client) handlePayload(data string) {
	var msg Message
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		c.log.Warn("dropping malformed stream payload", "error", err)
		return
	}

	switch msg.Type {
	case TypeProcessesUpdate:
		if msg.Processes != nil {
			c.emit(EventProcesses, Event{Type: EventProcesses, Processes: msg.Processes, Timestamp: msg.Timestamp})
		}
	case TypeError:
		c.emit(EventError, Event{Type: EventError, Error: msg.Error, Timestamp: msg.Timestamp})
	case TypePing:
		c.emit(EventHeartbeat, Event{Type: EventHeartbeat, Timestamp: msg.Timestamp})
	}
}

// onTransportDown records the disconnect and schedules a reconnect
// unless the client was explicitly closed or is out of attempts.
func (c *Client) onTransportDown(err error) {
	c.mu.Lock()
	wasRunning := c.connecting || c.connected
	c.connecting = false
	c.connected = false
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Warn("stream transport failed", "error", err)
	}
	if wasRunning {
		c.emit(EventConnectionStatus, Event{Type: EventConnectionStatus, Status: StatusDisconnected})
	}
	c.scheduleReconnect()
}

func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	if c.closed || c.failed {
		c.mu.Unlock()
		return
	}
	if c.attempts >= c.cfg.MaxAttempts {
		c.failed = true
		c.mu.Unlock()
		c.log.Error("stream reconnect attempts exhausted")
		c.emit(EventError, Event{Type: EventError, Error: terminalErrorText})
		return
	}

	delay := c.cfg.BaseDelay * (1 << c.attempts)
	c.attempts++
	attempt := c.attempts

	c.reconnect = time.AfterFunc(delay, func() {
		c.mu.Lock()
		c.reconnect = nil
		if c.closed || c.failed || c.connecting || c.connected {
			c.mu.Unlock()
			return
		}
		c.connecting = true
		ctx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		c.mu.Unlock()

		c.log.Info("stream reconnecting", "attempt", attempt)
		go c.run(ctx)
	})
	c.mu.Unlock()
}

// emit delivers an event to all listeners on the channel. Listener
// callbacks run outside the client lock.
func (c *Client) emit(event string, e Event) {
	c.mu.Lock()
	fns := make([]func(Event), 0, len(c.listeners[event]))
	for _, fn := range c.listeners[event] {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}
