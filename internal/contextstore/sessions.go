package contextstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hollis-dev/deskmate/pkg/models"
)

// StartSession records a new session row.
func (s *Store) StartSession(sessionID, interactionMode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if interactionMode == "" {
		interactionMode = "text"
	}
	_, err := s.conn.Exec(`
		INSERT INTO sessions (session_id, started_at, interaction_mode)
		VALUES (?, ?, ?)
	`, sessionID, time.Now().UTC(), interactionMode)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	return nil
}

// EndSession stamps the session's end time. Ending an already-ended session
// is a no-op.
func (s *Store) EndSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`
		UPDATE sessions SET ended_at = ?
		WHERE session_id = ? AND ended_at IS NULL
	`, time.Now().UTC(), sessionID)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// SetSessionFocus records the application or topic currently in focus.
func (s *Store) SetSessionFocus(sessionID, focus string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`
		UPDATE sessions SET current_focus = ? WHERE session_id = ?
	`, focus, sessionID)
	if err != nil {
		return fmt.Errorf("set session focus: %w", err)
	}
	return nil
}

// GetSession returns the session, or ok=false when absent. CompletedTaskIDs
// is derived from task history recorded while the session was open.
func (s *Store) GetSession(sessionID string) (models.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sess models.Session
	var endedAt sql.NullTime
	row := s.conn.QueryRow(`
		SELECT session_id, started_at, ended_at, current_focus, interaction_mode
		FROM sessions WHERE session_id = ?
	`, sessionID)
	err := row.Scan(&sess.SessionID, &sess.StartedAt, &endedAt, &sess.CurrentFocus, &sess.InteractionMode)
	if err == sql.ErrNoRows {
		return models.Session{}, false, nil
	}
	if err != nil {
		return models.Session{}, false, fmt.Errorf("get session: %w", err)
	}
	if endedAt.Valid {
		t := endedAt.Time
		sess.EndedAt = &t
	}

	end := time.Now().UTC()
	if sess.EndedAt != nil {
		end = *sess.EndedAt
	}
	rows, err := s.conn.Query(`
		SELECT task_id FROM task_history
		WHERE success = 1 AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`, sess.StartedAt, end)
	if err != nil {
		return models.Session{}, false, fmt.Errorf("session tasks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return models.Session{}, false, fmt.Errorf("scan session task: %w", err)
		}
		sess.CompletedTaskIDs = append(sess.CompletedTaskIDs, id)
	}
	return sess, true, rows.Err()
}
