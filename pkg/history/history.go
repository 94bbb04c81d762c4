// Package history persists finished session records and the user's saved
// settings in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lunavoice/luna/pkg/core"
	"github.com/lunavoice/luna/pkg/core/types"
)

const (
	driverName = "sqlite"
	dsnOptions = "?_pragma=busy_timeout(3000)&_pragma=journal_mode(WAL)"

	// listSummaryLimit caps the summary text shown in list views.
	listSummaryLimit = 100
)

const schema = `
CREATE TABLE IF NOT EXISTS session_history (
	session_id       TEXT PRIMARY KEY,
	started_at       INTEGER NOT NULL,
	ended_at         INTEGER NOT NULL,
	primary_language TEXT NOT NULL,
	target_language  TEXT NOT NULL,
	proficiency      TEXT NOT NULL,
	turn_pairs       INTEGER NOT NULL,
	summary          TEXT NOT NULL,
	turns            TEXT NOT NULL,
	feedback         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_session_history_ended_at ON session_history(ended_at);
CREATE TABLE IF NOT EXISTS user_settings (
	id      INTEGER PRIMARY KEY CHECK (id = 1),
	payload TEXT NOT NULL
);`

// Store is the SQLite-backed history store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history: path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: create dir: %w", err)
		}
	}
	db, err := sql.Open(driverName, path+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRecord stores one finalized session. Saving the same session id again
// replaces the earlier record, which keeps finalize retries idempotent.
func (s *Store) SaveRecord(ctx context.Context, record *types.SessionRecord) error {
	turns, err := json.Marshal(record.Turns)
	if err != nil {
		return fmt.Errorf("history: encode turns: %w", err)
	}
	feedback, err := json.Marshal(record.Feedback)
	if err != nil {
		return fmt.Errorf("history: encode feedback: %w", err)
	}
	const q = `
INSERT INTO session_history (
	session_id, started_at, ended_at, primary_language, target_language,
	proficiency, turn_pairs, summary, turns, feedback
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
	ended_at = excluded.ended_at,
	turn_pairs = excluded.turn_pairs,
	summary = excluded.summary,
	turns = excluded.turns,
	feedback = excluded.feedback`
	_, err = s.db.ExecContext(ctx, q,
		record.SessionID,
		record.StartedAt.UnixMilli(),
		record.EndedAt.UnixMilli(),
		record.PrimaryLanguage,
		record.TargetLanguage,
		record.Proficiency,
		record.TurnPairs,
		record.Summary,
		string(turns),
		string(feedback),
	)
	if err != nil {
		return fmt.Errorf("history: save record: %w", err)
	}
	return nil
}

// Summary is the list-view projection of a stored record.
type Summary struct {
	SessionID      string    `json:"session_id"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
	TargetLanguage string    `json:"target_language"`
	Proficiency    string    `json:"proficiency_level"`
	TurnPairs      int       `json:"turn_count"`
	Summary        string    `json:"summary"`
}

// List returns all stored sessions, newest first, with the summary text
// truncated for display.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	const q = `
SELECT session_id, started_at, ended_at, target_language, proficiency, turn_pairs, summary
FROM session_history ORDER BY ended_at DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var item Summary
		var startedAt, endedAt int64
		if err := rows.Scan(&item.SessionID, &startedAt, &endedAt,
			&item.TargetLanguage, &item.Proficiency, &item.TurnPairs, &item.Summary); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		item.StartedAt = time.UnixMilli(startedAt).UTC()
		item.EndedAt = time.UnixMilli(endedAt).UTC()
		item.Summary = truncateSummary(item.Summary)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	return out, nil
}

// Get returns one full record.
func (s *Store) Get(ctx context.Context, sessionID string) (*types.SessionRecord, error) {
	const q = `
SELECT session_id, started_at, ended_at, primary_language, target_language,
	proficiency, turn_pairs, summary, turns, feedback
FROM session_history WHERE session_id = ?`
	var (
		record             types.SessionRecord
		startedAt, endedAt int64
		turns, feedback    string
	)
	err := s.db.QueryRowContext(ctx, q, sessionID).Scan(
		&record.SessionID, &startedAt, &endedAt,
		&record.PrimaryLanguage, &record.TargetLanguage,
		&record.Proficiency, &record.TurnPairs,
		&record.Summary, &turns, &feedback,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewNotFoundError(fmt.Sprintf("no history for session %s", sessionID))
	}
	if err != nil {
		return nil, fmt.Errorf("history: get: %w", err)
	}
	record.StartedAt = time.UnixMilli(startedAt).UTC()
	record.EndedAt = time.UnixMilli(endedAt).UTC()
	if err := json.Unmarshal([]byte(turns), &record.Turns); err != nil {
		return nil, fmt.Errorf("history: decode turns: %w", err)
	}
	if err := json.Unmarshal([]byte(feedback), &record.Feedback); err != nil {
		return nil, fmt.Errorf("history: decode feedback: %w", err)
	}
	return &record, nil
}

// Delete removes one record.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM session_history WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("history: delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NewNotFoundError(fmt.Sprintf("no history for session %s", sessionID))
	}
	return nil
}

// DeleteAll clears the history and returns how many records were removed.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM session_history`)
	if err != nil {
		return 0, fmt.Errorf("history: delete all: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// SaveSettings stores the user's session defaults.
func (s *Store) SaveSettings(ctx context.Context, settings types.SessionSettings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("history: encode settings: %w", err)
	}
	const q = `
INSERT INTO user_settings (id, payload) VALUES (1, ?)
ON CONFLICT(id) DO UPDATE SET payload = excluded.payload`
	if _, err := s.db.ExecContext(ctx, q, string(payload)); err != nil {
		return fmt.Errorf("history: save settings: %w", err)
	}
	return nil
}

// LoadSettings returns the stored defaults, or nil when none were saved yet.
func (s *Store) LoadSettings(ctx context.Context) (*types.SessionSettings, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM user_settings WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: load settings: %w", err)
	}
	var settings types.SessionSettings
	if err := json.Unmarshal([]byte(payload), &settings); err != nil {
		return nil, fmt.Errorf("history: decode settings: %w", err)
	}
	return &settings, nil
}

func truncateSummary(s string) string {
	runes := []rune(s)
	if len(runes) <= listSummaryLimit {
		return s
	}
	return string(runes[:listSummaryLimit]) + "..."
}
