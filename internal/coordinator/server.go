package coordinator

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"instagram-automation/internal/models"
	"instagram-automation/internal/store"
)

// Server exposes the local dashboard API. Everything it serves comes
// straight out of the store, so it works whether the browser engine is
// running or not.
type Server struct {
	router *chi.Mux
	http   *http.Server
	store  *store.Store
	logger zerolog.Logger
}

// NewServer builds the dashboard server listening on addr
func NewServer(addr string, st *store.Store, logger zerolog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		store:  st,
		logger: logger.With().Str("component", "dashboard").Logger(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/stats", s.handleStats)
		r.Get("/logs", s.handleLogs)
		r.Get("/analytics", s.handleAnalytics)
		r.Get("/followed", s.handleFollowed)
		r.Get("/history", s.handleHistory)
		r.Post("/run", s.handleRun)
	})

	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// Start serves until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("Dashboard listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	running, err := s.store.IsRunning()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	var startTime int64
	if _, err := s.store.Get(store.KeyBotStartTime, &startTime); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	var username string
	if _, err := s.store.Get(store.KeyLastKnownUsername, &username); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"running":   running,
		"startTime": startTime,
		"username":  username,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, stats)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	var logs []models.LogEntry
	if _, err := s.store.Get(store.KeyLogs, &logs); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if logs == nil {
		logs = []models.LogEntry{}
	}
	s.writeJSON(w, logs)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	var self models.ProfileAnalytics
	if _, err := s.store.Get(store.KeyCurrentUserStats, &self); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	competitors := map[string]models.ProfileAnalytics{}
	if _, err := s.store.Get(store.KeyCompetitorStats, &competitors); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"self":        self,
		"competitors": competitors,
	})
}

func (s *Server) handleFollowed(w http.ResponseWriter, r *http.Request) {
	followed, err := s.store.FollowedUsers()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if followed == nil {
		followed = []models.FollowedUser{}
	}
	s.writeJSON(w, followed)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	points, err := s.store.FollowerHistory()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if points == nil {
		points = []models.FollowerPoint{}
	}

	growth, err := s.store.GrowthStat()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"points": points,
		"growth": growth,
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Running bool `json:"running"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.store.SetRunning(body.Running); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.logger.Info().Bool("running", body.Running).Msg("Run state changed via API")
	s.writeJSON(w, map[string]interface{}{"running": body.Running})
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	s.logger.Warn().Err(err).Int("code", code).Msg("Request failed")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
