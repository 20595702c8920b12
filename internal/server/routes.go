package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/salience/internal/project"
	"github.com/lazypower/salience/internal/track"
	"github.com/lazypower/salience/internal/updater"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			dbOK = false
		}
	}

	s.mu.Lock()
	active := len(s.sessions)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.version,
		"uptime":   time.Since(s.started).Seconds(),
		"db":       dbOK,
		"sessions": active,
	})
}

func (s *Server) handleSessionInit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID  string `json:"session_id"`
		ProjectDir string `json:"project_dir"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id required")
		return
	}

	proj := project.Detect(req.ProjectDir)

	sess := &session{
		project:   proj,
		startedAt: time.Now(),
	}
	u := updater.New(proj, s.store, func(ctx context.Context, text string) error {
		sess.setContext(text)
		return nil
	}, updater.OptionsFromConfig(s.cfg))
	u.SetLogger(s.log)
	u.SetMetrics(s.met)
	if s.db != nil {
		u.SetTracker(s.db)
	}
	sess.updater = u

	s.mu.Lock()
	s.sessions[req.SessionID] = sess
	s.mu.Unlock()

	var recent []track.SessionSummary
	if s.db != nil {
		if _, err := s.db.StartSession(req.SessionID, proj.Name); err != nil {
			s.log.Warn().Err(err).Str("session", req.SessionID).Msg("session tracking unavailable")
		}
		recent, _ = s.db.ConversationContext(proj.Name, track.ContextOptions{
			MaxPreviousSessions: 2,
			MaxDaysBack:         3,
		})
	}

	s.log.Info().Str("session", req.SessionID).Str("project", proj.Name).Msg("session initialized")

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":      req.SessionID,
		"project":         proj.Name,
		"language":        proj.Language,
		"recent_sessions": recent,
	})
}

func (s *Server) handleSessionUpdate(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess := s.session(sessionID)
	if sess == nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text required")
		return
	}

	res := sess.updater.ProcessConversationUpdate(r.Context(), req.Text)

	out := map[string]any{"result": res}
	if res.Processed {
		if ctx := sess.takeContext(); ctx != "" {
			out["context"] = ctx
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess := s.session(sessionID)
	if sess == nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	sess.updater.Reset()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req struct {
		Outcome string `json:"outcome"`
	}
	// Body is optional on end.
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Outcome == "" {
		req.Outcome = "completed"
	}

	sess := s.dropSession(sessionID)
	if sess == nil {
		// Ending an unknown session is not an error; the daemon may have
		// restarted since init.
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "note": "unknown session"})
		return
	}

	injected := sess.updater.InjectedTotal()
	if s.db != nil {
		if err := s.db.EndSession(sessionID, req.Outcome, injected); err != nil {
			s.log.Warn().Err(err).Str("session", sessionID).Msg("end session tracking failed")
		}
		s.writeStatusCache(sess.project.Name, injected)
	}

	s.log.Info().Str("session", sessionID).Int("memories", injected).Msg("session ended")
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ended",
		"memories_injected": injected,
	})
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess := s.session(sessionID)
	if sess == nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, sess.updater.Stats())
}

// writeStatusCache refreshes the shell-prompt status file. Failures are
// logged only; the cache is cosmetic.
func (s *Server) writeStatusCache(projectName string, injected int) {
	path, err := track.DefaultStatusCachePath()
	if err != nil {
		return
	}
	recent, err := s.db.RecentSessionCount(projectName, 7)
	if err != nil {
		recent = 0
	}
	sc := track.StatusCache{
		MemoriesLoaded: injected,
		RecentCount:    recent,
	}
	if err := track.WriteStatusCache(path, sc); err != nil {
		s.log.Debug().Err(err).Msg("status cache write failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
