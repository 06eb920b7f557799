package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sseHandler writes the given frames and then blocks until the client
// goes away, simulating a healthy long-lived stream.
func sseHandler(frames ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, f := range frames {
			fmt.Fprintf(w, "data: %s\n\n", f)
		}
		flusher.Flush()
		<-r.Context().Done()
	}
}

func newTestClient(url string) *Client {
	return NewClient(ClientConfig{
		URL:       url,
		BaseDelay: 5 * time.Millisecond,
	})
}

func waitEvent(t *testing.T, ch <-chan Event, what string) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		return Event{}
	}
}

func TestClient_ReceivesProcessesUpdate(t *testing.T) {
	srv := httptest.NewServer(sseHandler(
		`{"type":"processes_update","processes":[{"id":"s1","title":"Main Session","status":"running","type":"session","progress":75,"tools":["exec"]}],"timestamp":1700000000000}`,
	))
	defer srv.Close()

	c := newTestClient(srv.URL)
	defer c.Close()

	status := make(chan Event, 4)
	updates := make(chan Event, 4)
	c.On(EventConnectionStatus, func(e Event) { status <- e })
	c.On(EventProcesses, func(e Event) { updates <- e })
	c.Connect()

	assert.Equal(t, StatusConnected, waitEvent(t, status, "connected").Status)

	e := waitEvent(t, updates, "processes update")
	require.Len(t, e.Processes, 1)
	assert.Equal(t, "s1", e.Processes[0].ID)
	assert.EqualValues(t, 1700000000000, e.Timestamp)
	assert.True(t, c.IsConnected())
}

func TestClient_DispatchesErrorAndHeartbeat(t *testing.T) {
	srv := httptest.NewServer(sseHandler(
		`{"type":"error","error":"Failed to fetch OpenClaw data","timestamp":1}`,
		`{"type":"ping","timestamp":2}`,
	))
	defer srv.Close()

	c := newTestClient(srv.URL)
	defer c.Close()

	errs := make(chan Event, 4)
	pings := make(chan Event, 4)
	c.On(EventError, func(e Event) { errs <- e })
	c.On(EventHeartbeat, func(e Event) { pings <- e })
	c.Connect()

	assert.Equal(t, "Failed to fetch OpenClaw data", waitEvent(t, errs, "error event").Error)
	assert.EqualValues(t, 2, waitEvent(t, pings, "heartbeat").Timestamp)
}

func TestClient_DropsMalformedPayloads(t *testing.T) {
	srv := httptest.NewServer(sseHandler(
		`{not json`,
		`{"type":"ping","timestamp":7}`,
	))
	defer srv.Close()

	c := newTestClient(srv.URL)
	defer c.Close()

	pings := make(chan Event, 4)
	c.On(EventHeartbeat, func(e Event) { pings <- e })
	c.Connect()

	// The malformed frame is dropped and the stream keeps going.
	assert.EqualValues(t, 7, waitEvent(t, pings, "heartbeat").Timestamp)
}

func TestClient_IgnoresUnknownMessageTypes(t *testing.T) {
	srv := httptest.NewServer(sseHandler(
		`{"type":"mystery","timestamp":1}`,
		`{"type":"ping","timestamp":2}`,
	))
	defer srv.Close()

	c := newTestClient(srv.URL)
	defer c.Close()

	pings := make(chan Event, 4)
	c.On(EventHeartbeat, func(e Event) { pings <- e })
	c.Connect()

	assert.EqualValues(t, 2, waitEvent(t, pings, "heartbeat").Timestamp)
}

func TestClient_ConnectIsIdempotent(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		sseHandler(`{"type":"ping","timestamp":1}`)(w, r)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	defer c.Close()

	pings := make(chan Event, 4)
	c.On(EventHeartbeat, func(e Event) { pings <- e })

	c.Connect()
	c.Connect()
	c.Connect()
	waitEvent(t, pings, "heartbeat")

	assert.EqualValues(t, 1, requests.Load())
}

func TestClient_GivesUpAfterMaxAttempts(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "no", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	defer c.Close()

	errs := make(chan Event, 8)
	c.On(EventError, func(e Event) { errs <- e })
	c.Connect()

	e := waitEvent(t, errs, "terminal error")
	assert.Equal(t, terminalErrorText, e.Error)

	// Initial connect plus exactly five reconnects, then nothing more.
	settled := requests.Load()
	assert.EqualValues(t, 6, settled)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, settled, requests.Load(), "no further attempts after giving up")

	select {
	case extra := <-errs:
		t.Fatalf("terminal error fired more than once: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClient_CloseCancelsPendingReconnect(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "no", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{
		URL:       srv.URL,
		BaseDelay: 250 * time.Millisecond,
	})

	c.Connect()
	require.Eventually(t, func() bool { return requests.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	// A reconnect is now pending; Close must prevent it from firing.
	c.Close()
	time.Sleep(400 * time.Millisecond)
	assert.EqualValues(t, 1, requests.Load())
}

func TestClient_ReconnectsAfterServerDrop(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: {\"type\":\"ping\",\"timestamp\":%d}\n\n", n)
		w.(http.Flusher).Flush()
		if n == 1 {
			return // drop the first connection right away
		}
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	defer c.Close()

	status := make(chan Event, 8)
	pings := make(chan Event, 8)
	c.On(EventConnectionStatus, func(e Event) { status <- e })
	c.On(EventHeartbeat, func(e Event) { pings <- e })
	c.Connect()

	assert.Equal(t, StatusConnected, waitEvent(t, status, "first connect").Status)
	waitEvent(t, pings, "first ping")
	assert.Equal(t, StatusDisconnected, waitEvent(t, status, "disconnect").Status)
	assert.Equal(t, StatusConnected, waitEvent(t, status, "reconnect").Status)
	assert.EqualValues(t, 2, waitEvent(t, pings, "second ping").Timestamp)
}

func TestClient_Unsubscribe(t *testing.T) {
	srv := httptest.NewServer(sseHandler(`{"type":"ping","timestamp":1}`))
	defer srv.Close()

	c := newTestClient(srv.URL)
	defer c.Close()

	var calls atomic.Int32
	pings := make(chan Event, 4)
	off := c.On(EventHeartbeat, func(e Event) { calls.Add(1) })
	c.On(EventHeartbeat, func(e Event) { pings <- e })
	off()

	c.Connect()
	waitEvent(t, pings, "heartbeat")
	assert.EqualValues(t, 0, calls.Load())
}

func TestClient_ClosedClientNeverReconnects(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		sseHandler()(w, r)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.Connect()
	require.Eventually(t, func() bool { return c.IsConnected() }, 2*time.Second, 5*time.Millisecond)

	c.Close()
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, requests.Load())
	assert.False(t, c.IsConnected())

	// Connect after Close stays a no-op.
	c.Connect()
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, requests.Load())
}

func TestClient_CloseDuringHandshakeNeverReportsConnected(t *testing.T) {
	srv := httptest.NewServer(sseHandler())
	defer srv.Close()

	c := newTestClient(srv.URL)

	var sawConnected atomic.Bool
	c.On(EventConnectionStatus, func(e Event) {
		if e.Status == StatusConnected {
			sawConnected.Store(true)
		}
	})

	// Close before the transport comes up, then drive the handshake to
	// completion. The connected transition must observe the closed state.
	c.Close()
	c.run(context.Background())

	assert.False(t, c.IsConnected())
	assert.False(t, sawConnected.Load())
}
