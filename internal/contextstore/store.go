// Package contextstore provides the durable context and learning store.
// It persists preferences, task history, conversation history, extracted
// patterns, and sessions in an SQLite database
// (~/.local/share/deskmate/deskmate.db by default).
package contextstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hollis-dev/deskmate/pkg/models"
)

const (
	// similarityWindow bounds how many recent history rows a similarity
	// query scans, keeping latency constant as history grows.
	similarityWindow = 50
	// similarityThreshold is the minimum Jaccard score a result must reach.
	similarityThreshold = 0.3

	// minPatternFrequency protects established patterns from cleanup.
	minPatternFrequency = 3
)

// Store wraps the SQLite connection with context-store operations.
type Store struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// DefaultPath returns the default database location, honoring XDG_DATA_HOME.
func DefaultPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "deskmate", "deskmate.db")
}

// Open opens the store at the given path, creating parent directories as
// needed. WAL mode is enabled for concurrent reads.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &Store{conn: conn, path: path}, nil
}

// OpenDefault opens the store at DefaultPath.
func OpenDefault() (*Store, error) {
	return Open(DefaultPath())
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Migrate applies all pending schema migrations.
func (s *Store) Migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Sessions},
		{2, migrationV2History},
		{3, migrationV3Learning},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Migration SQL statements
const migrationV1Sessions = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	started_at DATETIME NOT NULL,
	ended_at DATETIME,
	current_focus TEXT NOT NULL DEFAULT '',
	interaction_mode TEXT NOT NULL DEFAULT 'text'
);

CREATE TABLE IF NOT EXISTS conversation_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	text TEXT NOT NULL,
	success INTEGER NOT NULL DEFAULT 0,
	timestamp DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversation_session ON conversation_history(session_id);
CREATE INDEX IF NOT EXISTS idx_conversation_timestamp ON conversation_history(timestamp);
`

const migrationV2History = `
CREATE TABLE IF NOT EXISTS task_history (
	task_id TEXT PRIMARY KEY,
	command TEXT NOT NULL,
	category TEXT NOT NULL,
	execution_time_seconds REAL NOT NULL DEFAULT 0,
	success INTEGER NOT NULL DEFAULT 0,
	timestamp DATETIME NOT NULL,
	context_blob TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_task_history_timestamp ON task_history(timestamp);
CREATE INDEX IF NOT EXISTS idx_task_history_success ON task_history(success);
`

const migrationV3Learning = `
CREATE TABLE IF NOT EXISTS preferences (
	category TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	confidence REAL NOT NULL DEFAULT 0,
	last_updated DATETIME NOT NULL,
	PRIMARY KEY (category, key)
);

CREATE TABLE IF NOT EXISTS patterns (
	pattern_type TEXT NOT NULL,
	pattern_data TEXT NOT NULL,
	frequency INTEGER NOT NULL DEFAULT 1,
	last_seen DATETIME NOT NULL,
	confidence REAL NOT NULL DEFAULT 0.5,
	PRIMARY KEY (pattern_type, pattern_data)
);

CREATE INDEX IF NOT EXISTS idx_patterns_last_seen ON patterns(last_seen);
`

// RecordUtterance appends one conversation turn.
func (s *Store) RecordUtterance(sessionID, text string, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`
		INSERT INTO conversation_history (session_id, text, success, timestamp)
		VALUES (?, ?, ?, ?)
	`, sessionID, text, boolToInt(success), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record utterance: %w", err)
	}
	return nil
}

// Utterances returns the session's conversation turns, oldest first.
func (s *Store) Utterances(sessionID string) ([]models.Utterance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(`
		SELECT session_id, text, success, timestamp
		FROM conversation_history
		WHERE session_id = ?
		ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query utterances: %w", err)
	}
	defer rows.Close()

	var out []models.Utterance
	for rows.Next() {
		var u models.Utterance
		var success int
		if err := rows.Scan(&u.SessionID, &u.Text, &success, &u.Timestamp); err != nil {
			return nil, fmt.Errorf("scan utterance: %w", err)
		}
		u.Success = success != 0
		out = append(out, u)
	}
	return out, rows.Err()
}

// RecordTask upserts a task history entry by task_id.
func (s *Store) RecordTask(entry models.TaskHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.conn.Exec(`
		INSERT INTO task_history (task_id, command, category, execution_time_seconds, success, timestamp, context_blob)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET
			command = excluded.command,
			category = excluded.category,
			execution_time_seconds = excluded.execution_time_seconds,
			success = excluded.success,
			timestamp = excluded.timestamp,
			context_blob = excluded.context_blob
	`, entry.TaskID, entry.Command, string(entry.Category),
		entry.ExecutionTimeSeconds, boolToInt(entry.Success), ts, entry.ContextBlob)
	if err != nil {
		return fmt.Errorf("record task: %w", err)
	}
	return nil
}

// SetPreference upserts a preference. Without overwrite, confidence is
// monotone: a lower value never replaces a higher one, though the value
// itself still updates.
func (s *Store) SetPreference(category, key, value string, confidence float64, overwrite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if overwrite {
		_, err := s.conn.Exec(`
			INSERT INTO preferences (category, key, value, confidence, last_updated)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(category, key) DO UPDATE SET
				value = excluded.value,
				confidence = excluded.confidence,
				last_updated = excluded.last_updated
		`, category, key, value, confidence, now)
		if err != nil {
			return fmt.Errorf("set preference: %w", err)
		}
		return nil
	}

	_, err := s.conn.Exec(`
		INSERT INTO preferences (category, key, value, confidence, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(category, key) DO UPDATE SET
			value = excluded.value,
			confidence = MAX(preferences.confidence, excluded.confidence),
			last_updated = excluded.last_updated
	`, category, key, value, confidence, now)
	if err != nil {
		return fmt.Errorf("set preference: %w", err)
	}
	return nil
}

// GetPreference returns the preference, or ok=false when absent.
func (s *Store) GetPreference(category, key string) (models.Preference, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p models.Preference
	row := s.conn.QueryRow(`
		SELECT category, key, value, confidence, last_updated
		FROM preferences
		WHERE category = ? AND key = ?
	`, category, key)
	err := row.Scan(&p.Category, &p.Key, &p.Value, &p.Confidence, &p.LastUpdated)
	if err == sql.ErrNoRows {
		return models.Preference{}, false, nil
	}
	if err != nil {
		return models.Preference{}, false, fmt.Errorf("get preference: %w", err)
	}
	return p, true, nil
}

// SimilarTasks returns up to k history entries whose commands score at least
// the similarity threshold against the query, best first. Only the most
// recent rows are considered.
func (s *Store) SimilarTasks(command string, k int) ([]models.TaskHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 {
		return nil, nil
	}

	rows, err := s.conn.Query(`
		SELECT task_id, command, category, execution_time_seconds, success, timestamp, context_blob
		FROM task_history
		ORDER BY timestamp DESC
		LIMIT ?
	`, similarityWindow)
	if err != nil {
		return nil, fmt.Errorf("query task history: %w", err)
	}
	defer rows.Close()

	query := tokenize(command)
	var matches []models.TaskHistoryEntry
	for rows.Next() {
		var e models.TaskHistoryEntry
		var category string
		var success int
		if err := rows.Scan(&e.TaskID, &e.Command, &category,
			&e.ExecutionTimeSeconds, &success, &e.Timestamp, &e.ContextBlob); err != nil {
			return nil, fmt.Errorf("scan task history: %w", err)
		}
		e.Category = models.Category(category)
		e.Success = success != 0

		score := jaccard(query, tokenize(e.Command))
		if score < similarityThreshold {
			continue
		}
		e.Similarity = score
		matches = append(matches, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// RecentTasks returns up to n history entries, newest first.
func (s *Store) RecentTasks(n int) ([]models.TaskHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(`
		SELECT task_id, command, category, execution_time_seconds, success, timestamp, context_blob
		FROM task_history
		ORDER BY timestamp DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent tasks: %w", err)
	}
	defer rows.Close()

	var out []models.TaskHistoryEntry
	for rows.Next() {
		var e models.TaskHistoryEntry
		var category string
		var success int
		if err := rows.Scan(&e.TaskID, &e.Command, &category,
			&e.ExecutionTimeSeconds, &success, &e.Timestamp, &e.ContextBlob); err != nil {
			return nil, fmt.Errorf("scan recent task: %w", err)
		}
		e.Category = models.Category(category)
		e.Success = success != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// ReinforcePattern increments a pattern's frequency and refreshes last_seen,
// inserting it on first sight.
func (s *Store) ReinforcePattern(patternType, patternData string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`
		INSERT INTO patterns (pattern_type, pattern_data, frequency, last_seen, confidence)
		VALUES (?, ?, 1, ?, 0.5)
		ON CONFLICT(pattern_type, pattern_data) DO UPDATE SET
			frequency = patterns.frequency + 1,
			last_seen = excluded.last_seen,
			confidence = MIN(1.0, patterns.confidence + 0.05)
	`, patternType, patternData, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("reinforce pattern: %w", err)
	}
	return nil
}

// Patterns returns patterns of the given type, most frequent first.
func (s *Store) Patterns(patternType string) ([]models.Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(`
		SELECT pattern_type, pattern_data, frequency, last_seen, confidence
		FROM patterns
		WHERE pattern_type = ?
		ORDER BY frequency DESC, last_seen DESC
	`, patternType)
	if err != nil {
		return nil, fmt.Errorf("query patterns: %w", err)
	}
	defer rows.Close()

	var out []models.Pattern
	for rows.Next() {
		var p models.Pattern
		if err := rows.Scan(&p.PatternType, &p.PatternData, &p.Frequency, &p.LastSeen, &p.Confidence); err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Cleanup applies the retention policy: conversation turns older than the
// retention window go, failed tasks older than the window go, and patterns
// that never took hold (low frequency, stale) go. Successful task history is
// kept regardless of age.
func (s *Store) Cleanup(retentionDays int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin cleanup: %w", err)
	}

	if _, err := tx.Exec(
		"DELETE FROM conversation_history WHERE timestamp < ?", cutoff); err != nil {
		tx.Rollback()
		return fmt.Errorf("cleanup conversation: %w", err)
	}
	if _, err := tx.Exec(
		"DELETE FROM task_history WHERE success = 0 AND timestamp < ?", cutoff); err != nil {
		tx.Rollback()
		return fmt.Errorf("cleanup failed tasks: %w", err)
	}
	if _, err := tx.Exec(
		"DELETE FROM patterns WHERE frequency < ? AND last_seen < ?",
		minPatternFrequency, cutoff); err != nil {
		tx.Rollback()
		return fmt.Errorf("cleanup patterns: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cleanup: %w", err)
	}
	return nil
}

// tokenize lowercases and splits on whitespace, returning the token set.
func tokenize(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		set[tok] = struct{}{}
	}
	return set
}

// jaccard computes |A∩B| / |A∪B| over token sets.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
