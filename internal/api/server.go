// Package api exposes the ops HTTP surface: health, metrics, recent runs,
// and the configured target list.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobradar/harvester/internal/metrics"
	"github.com/jobradar/harvester/internal/scrape"
)

const defaultRunsLimit = 50

// Server wires HTTP handlers to the run log and target list.
type Server struct {
	router  chi.Router
	runs    scrape.RunLogStore
	targets []scrape.Target
	log     *zap.Logger
}

// ReadyCheck reports whether downstream dependencies are reachable.
type ReadyCheck func() error

// NewServer constructs a Server with middleware and routes. ready may be
// nil, in which case readyz always succeeds.
func NewServer(runs scrape.RunLogStore, targets []scrape.Target, ready ReadyCheck, log *zap.Logger) *Server {
	s := &Server{
		runs:    runs,
		targets: targets,
		log:     log,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz(ready))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/runs", s.listRuns)
		r.Get("/targets", s.listTargets)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.log, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(ready ReadyCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if ready != nil {
			if err := ready(); err != nil {
				writeError(s.log, w, http.StatusServiceUnavailable, err.Error())
				return
			}
		}
		writeJSON(s.log, w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(s.log, w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	entries, err := s.runs.Recent(r.Context(), limit)
	if err != nil {
		writeError(s.log, w, http.StatusInternalServerError, "failed to read run log")
		return
	}
	if entries == nil {
		entries = []scrape.RunLogEntry{}
	}
	writeJSON(s.log, w, http.StatusOK, map[string]any{"runs": entries})
}

type targetSummary struct {
	Name               string      `json:"name"`
	Slug               string      `json:"slug"`
	ListingURL         string      `json:"listing_url"`
	Tier               scrape.Tier `json:"tier"`
	RateLimitPerMinute int         `json:"rate_limit_per_minute"`
	MaxPages           int         `json:"max_pages"`
	RenderJS           bool        `json:"render_js"`
}

func (s *Server) listTargets(w http.ResponseWriter, _ *http.Request) {
	out := make([]targetSummary, 0, len(s.targets))
	for _, t := range s.targets {
		out = append(out, targetSummary{
			Name:               t.Name,
			Slug:               t.Slug,
			ListingURL:         t.ListingURL,
			Tier:               t.Tier,
			RateLimitPerMinute: t.RateLimitPerMinute,
			MaxPages:           t.MaxPages,
			RenderJS:           t.RenderJS,
		})
	}
	writeJSON(s.log, w, http.StatusOK, map[string]any{"targets": out})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", uuid.NewString())
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.log.Debug("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("panic recovered", zap.Any("panic", rec))
				writeError(s.log, w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func writeJSON(log *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(log *zap.Logger, w http.ResponseWriter, status int, msg string) {
	writeJSON(log, w, status, map[string]string{"error": msg})
}
