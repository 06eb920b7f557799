package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joescharf/clawdash/internal/process"
)

// Metrics holds the Prometheus instrumentation for the dashboard server.
// A nil *Metrics is valid and turns every method into a no-op, so the
// pipeline can run uninstrumented (CLI one-shots, tests).
type Metrics struct {
	registry *prometheus.Registry

	TicksTotal        prometheus.Counter
	FetchErrorsTotal  *prometheus.CounterVec
	StreamClients     prometheus.Gauge
	StreamMessages    *prometheus.CounterVec
	ProcessesByStatus *prometheus.GaugeVec
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.TicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clawdash_ticks_total",
			Help: "Total number of fetch+normalize pipeline ticks",
		},
	)

	m.FetchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clawdash_fetch_errors_total",
			Help: "Total number of failed gateway CLI fetches",
		},
		[]string{"source"},
	)

	m.StreamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clawdash_stream_clients",
			Help: "Number of currently connected SSE clients",
		},
	)

	m.StreamMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clawdash_stream_messages_total",
			Help: "Total number of SSE messages sent, by message type",
		},
		[]string{"type"},
	)

	m.ProcessesByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clawdash_processes",
			Help: "Processes in the latest snapshot, by status",
		},
		[]string{"status"},
	)

	m.registry.MustRegister(
		m.TicksTotal,
		m.FetchErrorsTotal,
		m.StreamClients,
		m.StreamMessages,
		m.ProcessesByStatus,
	)
	return m
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncTick counts one pipeline tick.
func (m *Metrics) IncTick() {
	if m == nil {
		return
	}
	m.TicksTotal.Inc()
}

// IncFetchError counts a failed fetch for the given source.
func (m *Metrics) IncFetchError(source string) {
	if m == nil {
		return
	}
	m.FetchErrorsTotal.WithLabelValues(source).Inc()
}

// StreamConnected tracks an SSE client attaching or detaching.
func (m *Metrics) StreamConnected(delta float64) {
	if m == nil {
		return
	}
	m.StreamClients.Add(delta)
}

// IncStreamMessage counts one sent SSE message of the given type.
func (m *Metrics) IncStreamMessage(messageType string) {
	if m == nil {
		return
	}
	m.StreamMessages.WithLabelValues(messageType).Inc()
}

// ObserveSnapshot updates the per-status process gauges from a snapshot.
func (m *Metrics) ObserveSnapshot(processes []process.Process) {
	if m == nil {
		return
	}
	counts := make(map[process.Status]int, len(process.Statuses))
	for _, p := range processes {
		counts[p.Status]++
	}
	for _, status := range process.Statuses {
		m.ProcessesByStatus.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}
