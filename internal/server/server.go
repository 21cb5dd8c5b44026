package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ogulcanaydogan/campaign-refresh/pkg/model"
	"github.com/ogulcanaydogan/campaign-refresh/pkg/storage"
)

// Server exposes refresh status, recent alerts and metrics.
type Server struct {
	history storage.History
	metrics prometheus.Gatherer
	router  chi.Router
	logger  *slog.Logger
}

// NewServer creates an API server.
func NewServer(history storage.History, metrics prometheus.Gatherer, logger *slog.Logger) *Server {
	s := &Server{
		history: history,
		metrics: metrics,
		router:  chi.NewRouter(),
		logger:  logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(10 * time.Second))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/runs", s.handleRuns)
		r.Get("/alerts", s.handleAlerts)
	})
	if s.metrics != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
	}
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	run, err := s.history.LatestRun(r.Context())
	if err != nil {
		s.logger.Error("load latest run", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if run == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": storage.ErrNoRuns.Error()})
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		RefreshRun: run,
		Succeeded:  run.Succeeded(),
		Stages:     run.Status.Succeeded(),
	})
}

type statusResponse struct {
	*model.RefreshRun
	Succeeded bool `json:"succeeded"`
	Stages    int  `json:"stages_succeeded"`
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := s.history.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("list runs", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []model.RefreshRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	run, err := s.history.LatestRun(r.Context())
	if err != nil {
		s.logger.Error("load latest alerts", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	alerts := []model.AlertRecord{}
	if run != nil && run.Alerts != nil {
		alerts = run.Alerts
	}
	writeJSON(w, http.StatusOK, alerts)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
