package track

import (
	"database/sql"
	"fmt"
	"time"
)

// Session is one recorded conversation.
type Session struct {
	ID        int64
	SessionID string
	Project   string
	StartedAt time.Time
	EndedAt   *time.Time
	Outcome   string
	Memories  int
}

// SessionSummary is the slim view served to the formatter.
type SessionSummary struct {
	EndTime time.Time `json:"end_time"`
	Outcome string    `json:"outcome,omitempty"`
}

// ContextOptions bounds a cross-session context lookup.
type ContextOptions struct {
	MaxPreviousSessions int
	MaxDaysBack         int
}

// StartSession records a session start, or returns the existing row when the
// host replays the same session id.
func (db *DB) StartSession(sessionID, project string) (*Session, error) {
	now := time.Now()

	var s Session
	var started, ended sql.NullInt64
	err := db.QueryRow(`
		SELECT id, session_id, project, started_at, ended_at, outcome, memories
		FROM sessions WHERE session_id = ?
	`, sessionID).Scan(&s.ID, &s.SessionID, &s.Project, &started, &ended, &s.Outcome, &s.Memories)
	if err == nil {
		s.StartedAt = time.UnixMilli(started.Int64)
		if ended.Valid {
			t := time.UnixMilli(ended.Int64)
			s.EndedAt = &t
		}
		return &s, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("check existing session: %w", err)
	}

	result, err := db.Exec(`
		INSERT INTO sessions (session_id, project, started_at)
		VALUES (?, ?, ?)
	`, sessionID, project, now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	id, _ := result.LastInsertId()
	return &Session{
		ID:        id,
		SessionID: sessionID,
		Project:   project,
		StartedAt: now,
	}, nil
}

// EndSession finalizes a session with an outcome label and the count of
// memories injected during it.
func (db *DB) EndSession(sessionID, outcome string, memories int) error {
	result, err := db.Exec(`
		UPDATE sessions
		SET ended_at = COALESCE(ended_at, ?), outcome = ?, memories = ?
		WHERE session_id = ?
	`, time.Now().UnixMilli(), outcome, memories, sessionID)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no session %s", sessionID)
	}
	return nil
}

// ConversationContext returns summaries of the most recent ended sessions for
// a project within the lookback window, newest first.
func (db *DB) ConversationContext(project string, opts ContextOptions) ([]SessionSummary, error) {
	if opts.MaxPreviousSessions <= 0 {
		opts.MaxPreviousSessions = 2
	}
	if opts.MaxDaysBack <= 0 {
		opts.MaxDaysBack = 3
	}
	cutoff := time.Now().AddDate(0, 0, -opts.MaxDaysBack).UnixMilli()

	rows, err := db.Query(`
		SELECT ended_at, outcome
		FROM sessions
		WHERE project = ? AND ended_at IS NOT NULL AND ended_at >= ?
		ORDER BY ended_at DESC
		LIMIT ?
	`, project, cutoff, opts.MaxPreviousSessions)
	if err != nil {
		return nil, fmt.Errorf("query recent sessions: %w", err)
	}
	defer rows.Close()

	var summaries []SessionSummary
	for rows.Next() {
		var endedAt int64
		var outcome string
		if err := rows.Scan(&endedAt, &outcome); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		summaries = append(summaries, SessionSummary{
			EndTime: time.UnixMilli(endedAt),
			Outcome: outcome,
		})
	}
	return summaries, rows.Err()
}

// RecentSessionCount returns how many sessions ended for a project within
// the last n days. Feeds the status cache.
func (db *DB) RecentSessionCount(project string, days int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -days).UnixMilli()
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM sessions
		WHERE project = ? AND ended_at IS NOT NULL AND ended_at >= ?
	`, project, cutoff).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count recent sessions: %w", err)
	}
	return count, nil
}
