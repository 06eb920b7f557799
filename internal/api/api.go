package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/joescharf/clawdash/internal/gateway"
	"github.com/joescharf/clawdash/internal/metrics"
	"github.com/joescharf/clawdash/internal/process"
	"github.com/joescharf/clawdash/internal/snapshot"
	"github.com/joescharf/clawdash/internal/store"
	"github.com/joescharf/clawdash/internal/stream"
)

// Server provides the REST and streaming handlers.
type Server struct {
	gw          gateway.Client
	collector   *snapshot.Collector
	broadcaster *stream.Broadcaster
	cache       store.Store
	m           *metrics.Metrics
	log         *slog.Logger
}

// NewServer creates an API server. The cache and metrics may be nil; the
// server then serves live data only and omits the /metrics endpoint.
func NewServer(gw gateway.Client, collector *snapshot.Collector, broadcaster *stream.Broadcaster, cache store.Store, m *metrics.Metrics, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		gw:          gw,
		collector:   collector,
		broadcaster: broadcaster,
		cache:       cache,
		m:           m,
		log:         log,
	}
}

// Router returns an http.Handler for all routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/sessions", s.listSessions)
	mux.HandleFunc("GET /api/v1/cron-jobs", s.listCronJobs)
	mux.HandleFunc("GET /api/v1/gateway-status", s.gatewayStatus)
	mux.HandleFunc("GET /api/v1/processes", s.listProcesses)
	mux.Handle("GET /api/v1/stream", s.broadcaster)

	if s.m != nil {
		mux.Handle("GET /metrics", s.m.Handler())
	}

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Cache-Control")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- Raw gateway pass-throughs ---

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.gw.Sessions(r.Context())
	if err != nil {
		s.log.Warn("sessions fetch failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get sessions")
		return
	}
	if sessions == nil {
		sessions = []gateway.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) listCronJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.gw.CronJobs(r.Context())
	if err != nil {
		s.log.Warn("cron fetch failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get cron jobs")
		return
	}
	if jobs == nil {
		jobs = []gateway.CronJob{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) gatewayStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.gw.Status(r.Context())
	if err != nil {
		s.log.Warn("gateway status fetch failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get gateway status")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// --- Combined snapshot ---

// processesResponse is the combined snapshot payload. Stale is set when
// the live fetch failed and the cached snapshot was served instead.
type processesResponse struct {
	Processes []process.Process `json:"processes"`
	FetchedAt time.Time         `json:"fetchedAt"`
	Stale     bool              `json:"stale,omitempty"`
}

func (s *Server) listProcesses(w http.ResponseWriter, r *http.Request) {
	snap, err := s.collector.Collect(r.Context())
	if err == nil {
		if s.cache != nil {
			if saveErr := s.cache.SaveSnapshot(r.Context(), snap); saveErr != nil {
				s.log.Warn("snapshot cache save failed", "error", saveErr)
			}
		}
		writeJSON(w, http.StatusOK, processesResponse{
			Processes: snap.Processes,
			FetchedAt: snap.FetchedAt,
		})
		return
	}

	s.log.Warn("live snapshot failed", "error", err)

	// Fall back to the last cached snapshot, flagged stale.
	if s.cache != nil {
		cached, cacheErr := s.cache.LatestSnapshot(r.Context())
		if cacheErr == nil {
			writeJSON(w, http.StatusOK, processesResponse{
				Processes: cached.Processes,
				FetchedAt: cached.FetchedAt,
				Stale:     true,
			})
			return
		}
		if !errors.Is(cacheErr, store.ErrNoSnapshot) {
			s.log.Warn("snapshot cache read failed", "error", cacheErr)
		}
	}

	writeError(w, http.StatusInternalServerError, "Failed to get processes")
}
