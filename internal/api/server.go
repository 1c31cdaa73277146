// Package api provides the HTTP server for Drive Nest.
// It accepts multipart uploads, streams batch progress over SSE and exposes
// history, usage and previews.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/health"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/infra/sqlite"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/presenter"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/preview"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/upload"
)

// Deps are the collaborators the server routes requests to.
// History, Store, Health and Previews may be nil; their routes then
// answer 501 or a degraded result.
type Deps struct {
	Uploads    *upload.Manager
	Hub        *presenter.Hub
	History    *sqlite.DB
	Store      domain.Opener
	QuotaLimit int64 // 0 = unlimited
	Health     *health.Checker
	Previews   *preview.Router
	StagingDir string

	// CORSOrigins lists allowed browser origins; "*" or empty allows any.
	CORSOrigins []string
}

// Server is the Drive Nest HTTP API server.
type Server struct {
	deps           Deps
	staging        *stager
	metricsEnabled bool
	log            *logrus.Entry
}

// NewServer creates a new API server.
func NewServer(d Deps) *Server {
	if d.Previews == nil {
		d.Previews = preview.NewRouter()
	}
	return &Server{
		deps:    d,
		staging: newStager(d.StagingDir),
		log:     logrus.WithField("component", "api"),
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(s.deps.CORSOrigins))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, s.deps.Uploads.Stats())
		})

		r.Route("/uploads", func(r chi.Router) {
			r.Post("/", s.handleUpload)
			r.Get("/", s.handleListBatches)
			r.Delete("/", s.handleClearHistory)
			r.Get("/{batchID}", s.handleGetBatch)
			r.Get("/{batchID}/events", s.handleBatchEvents)
			r.Post("/{batchID}/cancel", s.handleCancelBatch)
		})
		r.Post("/tasks/{taskID}/cancel", s.handleCancelTask)
		r.Post("/tasks/{taskID}/retry", s.handleRetryTask)

		// Short requests only; uploads and SSE streams run unbounded.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Get("/history", s.handleHistory)
			r.Get("/usage", s.handleUsage)
			r.Get("/preview", s.handlePreview)
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	statuses := s.deps.Health.Statuses()
	if len(statuses) == 0 {
		statuses = s.deps.Health.RunOnce(r.Context())
	}
	status, code := "ok", http.StatusOK
	if !s.deps.Health.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"checks": statuses,
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeDomainError maps domain errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrBatchNotFound),
		errors.Is(err, domain.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotRetryable):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPathEscape):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrManagerClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrNotSupported):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// corsMiddleware adds CORS headers for browser clients.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	allowAll := len(origins) == 0
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch origin := r.Header.Get("Origin"); {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
