// Package server exposes the salience daemon HTTP API. Hook invocations are
// short-lived processes; all session state lives here, keyed by session ID.
package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/lazypower/salience/internal/config"
	"github.com/lazypower/salience/internal/metrics"
	"github.com/lazypower/salience/internal/project"
	"github.com/lazypower/salience/internal/track"
	"github.com/lazypower/salience/internal/updater"
)

// session is one live conversation's state.
type session struct {
	updater   *updater.Updater
	project   project.Profile
	startedAt time.Time

	mu          sync.Mutex
	lastContext string
}

func (s *session) setContext(text string) {
	s.mu.Lock()
	s.lastContext = text
	s.mu.Unlock()
}

func (s *session) takeContext() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	text := s.lastContext
	s.lastContext = ""
	return text
}

// Server is the salience HTTP API server.
type Server struct {
	cfg     config.Config
	store   updater.Retriever
	db      *track.DB
	log     zerolog.Logger
	met     *metrics.Metrics
	router  chi.Router
	version string
	started time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates a Server. db may be nil when session tracking is disabled.
func New(cfg config.Config, store updater.Retriever, db *track.DB, log zerolog.Logger, met *metrics.Metrics, version string) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		db:       db,
		log:      log,
		met:      met,
		version:  version,
		started:  time.Now(),
		sessions: make(map[string]*session),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/sessions/init", s.handleSessionInit)
		r.Post("/sessions/{sessionID}/update", s.handleSessionUpdate)
		r.Post("/sessions/{sessionID}/reset", s.handleSessionReset)
		r.Post("/sessions/{sessionID}/end", s.handleSessionEnd)
		r.Get("/sessions/{sessionID}/stats", s.handleSessionStats)
	})

	r.Method(http.MethodGet, "/metrics", s.met.Handler())

	s.router = r
}

func (s *Server) session(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

func (s *Server) dropSession(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[id]
	delete(s.sessions, id)
	return sess
}
